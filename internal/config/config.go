package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	schedule "presence-ledger/internal/schedule/domain"
)

// CalendarConfig describes the recurring business calendar.
type CalendarConfig struct {
	Timezone            string            `yaml:"timezone"`
	FallbackOffsetHours int               `yaml:"fallback_offset_hours"`
	Weekdays            []int             `yaml:"weekdays"`
	DayStart            string            `yaml:"day_start"`
	DayEnd              string            `yaml:"day_end"`
	DayParts            map[string]string `yaml:"day_parts"`
	ActiveMode          string            `yaml:"active_mode"`
}

// SamplerConfig controls the full-membership sampler.
type SamplerConfig struct {
	Every   time.Duration `yaml:"every"`
	Enabled bool          `yaml:"enabled"`
}

// KafkaConfig controls the presence-change connector.
type KafkaConfig struct {
	Brokers          []string      `yaml:"brokers"`
	Topic            string        `yaml:"topic"`
	GroupID          string        `yaml:"group_id"`
	ManualIdleWithin time.Duration `yaml:"manual_idle_within"`
	ActivityTTL      time.Duration `yaml:"activity_ttl"`
}

// GatewayConfig points at the membership gateway.
type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// AboutConfig carries branding surfaced by the about endpoint.
type AboutConfig struct {
	Enterprise    string `yaml:"enterprise"`
	Version       string `yaml:"version"`
	Signature     string `yaml:"signature"`
	SignatureLink string `yaml:"signature_link"`
}

// Config is the full service configuration.
type Config struct {
	DatabaseURL      string         `yaml:"database_url"`
	HTTPAddr         string         `yaml:"http_addr"`
	LeaderboardLimit int            `yaml:"leaderboard_limit"`
	Calendar         CalendarConfig `yaml:"calendar"`
	Sampler          SamplerConfig  `yaml:"sampler"`
	Kafka            KafkaConfig    `yaml:"kafka"`
	Gateway          GatewayConfig  `yaml:"gateway"`
	About            AboutConfig    `yaml:"about"`
}

// Load reads configuration from the environment with defaults, then
// overlays the optional YAML file named by PRESENCE_CONFIG.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		LeaderboardLimit: getenvIntDefault("LEADERBOARD_LIMIT", 10),
		Calendar: CalendarConfig{
			Timezone:            getenvDefault("WORK_TZ", "America/Sao_Paulo"),
			FallbackOffsetHours: getenvIntDefault("WORK_TZ_OFFSET", -3),
			Weekdays:            parseWeekdays(getenvDefault("WORK_DAYS", "0,1,2,3,4")),
			DayStart:            getenvDefault("WORK_START", "08:00"),
			DayEnd:              getenvDefault("WORK_END", "18:00"),
			DayParts: map[string]string{
				"manha": "08:00-12:00",
				"tarde": "13:00-18:00",
			},
			ActiveMode: getenvDefault("ACTIVE_MODE", "active"),
		},
		Sampler: SamplerConfig{
			Every:   time.Duration(getenvIntDefault("SAMPLE_EVERY_SECONDS", 60)) * time.Second,
			Enabled: getenvDefault("SAMPLER_ENABLED", "true") == "true",
		},
		Kafka: KafkaConfig{
			Brokers:          splitCSV(getenvDefault("KAFKA_BROKERS", "")),
			Topic:            getenvDefault("KAFKA_TOPIC", "presence.status-changes"),
			GroupID:          getenvDefault("KAFKA_GROUP_ID", "presence-ledger"),
			ManualIdleWithin: getenvDuration("MANUAL_IDLE_WITHIN", time.Minute),
			ActivityTTL:      getenvDuration("ACTIVITY_TTL", 30*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL: getenvDefault("GATEWAY_BASE_URL", ""),
			Token:   getenvDefault("GATEWAY_TOKEN", ""),
		},
		About: AboutConfig{
			Enterprise:    getenvDefault("ABOUT_ENTERPRISE", ""),
			Version:       getenvDefault("ABOUT_VERSION", ""),
			Signature:     getenvDefault("ABOUT_SIGNATURE", ""),
			SignatureLink: getenvDefault("ABOUT_SIGNATURE_LINK", ""),
		},
	}

	if path := os.Getenv("PRESENCE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// BuildCalendar resolves the timezone and constructs the business calendar,
// reporting which branch of the timezone strategy fired.
func (c CalendarConfig) BuildCalendar() (*schedule.BusinessCalendar, schedule.ZoneResolution, error) {
	location, resolution := schedule.ResolveLocation(c.Timezone, c.FallbackOffsetHours)
	dayStart, err := schedule.ParseClockTime(c.DayStart)
	if err != nil {
		return nil, resolution, err
	}
	dayEnd, err := schedule.ParseClockTime(c.DayEnd)
	if err != nil {
		return nil, resolution, err
	}
	calendar, err := schedule.NewBusinessCalendar(c.Weekdays, dayStart, dayEnd, location)
	if err != nil {
		return nil, resolution, err
	}
	return calendar, resolution, nil
}

func parseWeekdays(raw string) []int {
	var weekdays []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		weekday, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		weekdays = append(weekdays, weekday)
	}
	return weekdays
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
