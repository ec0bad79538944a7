// Package reporthttp serves duration, presence and report queries.
package reporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"presence-ledger/internal/config"
	presence "presence-ledger/internal/presence/domain"
	report "presence-ledger/internal/report/application"
	sampler "presence-ledger/internal/sampler/application"
	schedule "presence-ledger/internal/schedule/domain"
)

// Defaults carries the configured calendar, day parts and clock shared by
// the query handlers. Per-request overrides build a throwaway calendar
// without touching the configured one.
type Defaults struct {
	Calendar            *schedule.BusinessCalendar
	FallbackOffsetHours int
	DayParts            map[string]string
	Mode                presence.ActiveMode
	Clock               schedule.Clock
}

func (d Defaults) clock() schedule.Clock {
	if d.Clock == nil {
		return schedule.SystemClock{}
	}
	return d.Clock
}

// calendarFor applies the tz/days/work_start/work_end query overrides on top
// of the configured calendar.
func (d Defaults) calendarFor(r *http.Request) (*schedule.BusinessCalendar, error) {
	query := r.URL.Query()
	tz := query.Get("tz")
	days := query.Get("days")
	workStart := query.Get("work_start")
	workEnd := query.Get("work_end")
	if tz == "" && days == "" && workStart == "" && workEnd == "" {
		return d.Calendar, nil
	}

	location := d.Calendar.Location()
	if tz != "" {
		location, _ = schedule.ResolveLocation(tz, d.FallbackOffsetHours)
	}
	weekdays := d.Calendar.Weekdays()
	if days != "" {
		weekdays = weekdays[:0]
		for _, part := range strings.Split(days, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			weekday, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid days value %q", part)
			}
			weekdays = append(weekdays, weekday)
		}
	}
	dayStart := d.Calendar.DayStart()
	if workStart != "" {
		parsed, err := schedule.ParseClockTime(workStart)
		if err != nil {
			return nil, err
		}
		dayStart = parsed
	}
	dayEnd := d.Calendar.DayEnd()
	if workEnd != "" {
		parsed, err := schedule.ParseClockTime(workEnd)
		if err != nil {
			return nil, err
		}
		dayEnd = parsed
	}
	return schedule.NewBusinessCalendar(weekdays, dayStart, dayEnd, location)
}

func (d Defaults) modeFor(r *http.Request) presence.ActiveMode {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		return d.Mode
	}
	return presence.ParseActiveMode(raw)
}

// windowJSON is the serialized form of one resolved window.
type windowJSON struct {
	Date          string             `json:"date"`
	Start         time.Time          `json:"start"`
	End           time.Time          `json:"end"`
	Skipped       bool               `json:"skipped"`
	Durations     map[string]float64 `json:"durations,omitempty"`
	ActiveSeconds float64            `json:"active_seconds"`
	ActiveHuman   string             `json:"active_human"`
}

type durationsResponse struct {
	ScopeID       string             `json:"scope_id"`
	SubjectID     string             `json:"subject_id"`
	Windows       []windowJSON       `json:"windows"`
	Totals        map[string]float64 `json:"totals"`
	ActiveSeconds float64            `json:"active_seconds"`
	ActiveHuman   string             `json:"active_human"`
}

// DurationsHandler serves per-status duration queries over resolved windows.
type DurationsHandler struct {
	reader   report.DurationReader
	defaults Defaults
	logger   *log.Logger
}

// NewDurationsHandler constructs a DurationsHandler.
func NewDurationsHandler(reader report.DurationReader, defaults Defaults, logger *log.Logger) (*DurationsHandler, error) {
	if reader == nil {
		return nil, report.ErrNilReader
	}
	if defaults.Calendar == nil {
		return nil, report.ErrNilCalendar
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DurationsHandler{reader: reader, defaults: defaults, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/durations.
func (h *DurationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID, subjectID, ok := requireSubject(w, r)
	if !ok {
		return
	}

	calendar, err := h.defaults.calendarFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filtered := r.URL.Query().Get("filtered") == "true"

	aggregation, err := h.run(r.Context(), r, scopeID, subjectID, calendar, report.AggregateOptions{
		CalendarFiltered: filtered,
		Mode:             h.defaults.modeFor(r),
	})
	if err != nil {
		h.logger.Printf("durations: %v", err)
		http.Error(w, "duration query error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, buildDurationsResponse(scopeID, subjectID, aggregation))
}

func (h *DurationsHandler) run(ctx context.Context, r *http.Request, scopeID, subjectID string, calendar *schedule.BusinessCalendar, opts report.AggregateOptions) (report.Aggregation, error) {
	resolver, err := schedule.NewResolver(calendar.Location(), h.defaults.clock())
	if err != nil {
		return report.Aggregation{}, err
	}
	windows := resolver.Resolve(r.URL.Query().Get("when"), calendar.DayStart(), calendar.DayEnd())

	aggregator, err := report.NewWindowAggregator(h.reader, calendar)
	if err != nil {
		return report.Aggregation{}, err
	}
	return aggregator.Aggregate(ctx, scopeID, subjectID, windows, opts)
}

// WorkCheckHandler answers whether a subject reached a minimum of active
// time inside business hours.
type WorkCheckHandler struct {
	reader   report.DurationReader
	defaults Defaults
	minimum  time.Duration
	logger   *log.Logger
}

// NewWorkCheckHandler constructs a WorkCheckHandler. A non-positive minimum
// defaults to thirty minutes.
func NewWorkCheckHandler(reader report.DurationReader, defaults Defaults, minimum time.Duration, logger *log.Logger) (*WorkCheckHandler, error) {
	if reader == nil {
		return nil, report.ErrNilReader
	}
	if defaults.Calendar == nil {
		return nil, report.ErrNilCalendar
	}
	if minimum <= 0 {
		minimum = 30 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WorkCheckHandler{reader: reader, defaults: defaults, minimum: minimum, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/workcheck.
func (h *WorkCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID, subjectID, ok := requireSubject(w, r)
	if !ok {
		return
	}

	calendar, err := h.defaults.calendarFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	minimum := h.minimum
	if raw := r.URL.Query().Get("min_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 0 {
			http.Error(w, "min_minutes must be a non-negative integer", http.StatusBadRequest)
			return
		}
		minimum = time.Duration(minutes) * time.Minute
	}

	resolver, err := schedule.NewResolver(calendar.Location(), h.defaults.clock())
	if err != nil {
		http.Error(w, "resolver error", http.StatusInternalServerError)
		return
	}
	windows := resolver.Resolve(r.URL.Query().Get("when"), calendar.DayStart(), calendar.DayEnd())

	aggregator, err := report.NewWindowAggregator(h.reader, calendar)
	if err != nil {
		http.Error(w, "aggregator error", http.StatusInternalServerError)
		return
	}
	aggregation, err := aggregator.Aggregate(r.Context(), scopeID, subjectID, windows, report.AggregateOptions{
		CalendarFiltered: true,
		Mode:             h.defaults.modeFor(r),
	})
	if err != nil {
		h.logger.Printf("workcheck: %v", err)
		http.Error(w, "duration query error", http.StatusInternalServerError)
		return
	}

	resp := struct {
		durationsResponse
		MinimumSeconds float64 `json:"minimum_seconds"`
		Worked         bool    `json:"worked"`
	}{
		durationsResponse: buildDurationsResponse(scopeID, subjectID, aggregation),
		MinimumSeconds:    minimum.Seconds(),
		Worked:            aggregation.MeetsMinimum(minimum),
	}
	writeJSON(w, resp)
}

// IdleHandler reports time spent idle inside a named day part.
type IdleHandler struct {
	reader   report.DurationReader
	defaults Defaults
	logger   *log.Logger
}

// NewIdleHandler constructs an IdleHandler.
func NewIdleHandler(reader report.DurationReader, defaults Defaults, logger *log.Logger) (*IdleHandler, error) {
	if reader == nil {
		return nil, report.ErrNilReader
	}
	if defaults.Calendar == nil {
		return nil, report.ErrNilCalendar
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IdleHandler{reader: reader, defaults: defaults, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/idle. The part parameter accepts a
// configured day part name, "dia" for the whole business window, or a
// literal "HH:MM-HH:MM" range.
func (h *IdleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID, subjectID, ok := requireSubject(w, r)
	if !ok {
		return
	}

	base, err := h.defaults.calendarFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	partStart, partEnd, err := h.resolvePart(base, r.URL.Query().Get("part"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	calendar, err := schedule.NewBusinessCalendar(base.Weekdays(), partStart, partEnd, base.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resolver, err := schedule.NewResolver(calendar.Location(), h.defaults.clock())
	if err != nil {
		http.Error(w, "resolver error", http.StatusInternalServerError)
		return
	}
	windows := resolver.Resolve(r.URL.Query().Get("when"), partStart, partEnd)

	aggregator, err := report.NewWindowAggregator(h.reader, calendar)
	if err != nil {
		http.Error(w, "aggregator error", http.StatusInternalServerError)
		return
	}
	aggregation, err := aggregator.Aggregate(r.Context(), scopeID, subjectID, windows, report.AggregateOptions{
		CalendarFiltered: true,
		Mode:             h.defaults.modeFor(r),
	})
	if err != nil {
		h.logger.Printf("idle: %v", err)
		http.Error(w, "duration query error", http.StatusInternalServerError)
		return
	}

	idleSeconds := aggregation.Total.Seconds(presence.StatusIdle)
	resp := struct {
		durationsResponse
		Part        string  `json:"part"`
		IdleSeconds float64 `json:"idle_seconds"`
		IdleHuman   string  `json:"idle_human"`
	}{
		durationsResponse: buildDurationsResponse(scopeID, subjectID, aggregation),
		Part:              partStart.String() + "-" + partEnd.String(),
		IdleSeconds:       idleSeconds,
		IdleHuman:         formatHMS(idleSeconds),
	}
	writeJSON(w, resp)
}

func (h *IdleHandler) resolvePart(calendar *schedule.BusinessCalendar, part string) (schedule.ClockTime, schedule.ClockTime, error) {
	part = strings.ToLower(strings.TrimSpace(part))
	if part == "" || part == "dia" || part == "day" {
		return calendar.DayStart(), calendar.DayEnd(), nil
	}
	if rangeSpec, ok := h.defaults.DayParts[part]; ok {
		part = rangeSpec
	}
	first, second, ok := strings.Cut(part, "-")
	if !ok {
		return schedule.ClockTime{}, schedule.ClockTime{}, fmt.Errorf("unknown day part %q", part)
	}
	start, err := schedule.ParseClockTime(first)
	if err != nil {
		return schedule.ClockTime{}, schedule.ClockTime{}, err
	}
	end, err := schedule.ParseClockTime(second)
	if err != nil {
		return schedule.ClockTime{}, schedule.ClockTime{}, err
	}
	return start, end, nil
}

// StatusReader reads the latest event carrying a given status.
type StatusReader interface {
	LatestWithStatus(ctx context.Context, scopeID, subjectID string, status presence.Status) (*presence.StatusEvent, error)
	LatestEvent(ctx context.Context, scopeID, subjectID string) (*presence.StatusEvent, error)
}

// IdleNowHandler reports whether a subject is currently idle and since when.
type IdleNowHandler struct {
	reader StatusReader
	clock  schedule.Clock
	logger *log.Logger
}

// NewIdleNowHandler constructs an IdleNowHandler.
func NewIdleNowHandler(reader StatusReader, clock schedule.Clock, logger *log.Logger) (*IdleNowHandler, error) {
	if reader == nil {
		return nil, errors.New("report: nil status reader")
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IdleNowHandler{reader: reader, clock: clock, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/idle/current.
func (h *IdleNowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID, subjectID, ok := requireSubject(w, r)
	if !ok {
		return
	}

	latest, err := h.reader.LatestEvent(r.Context(), scopeID, subjectID)
	if err != nil {
		h.logger.Printf("idle current: %v", err)
		http.Error(w, "status query error", http.StatusInternalServerError)
		return
	}

	resp := struct {
		ScopeID      string     `json:"scope_id"`
		SubjectID    string     `json:"subject_id"`
		Status       string     `json:"status"`
		Idle         bool       `json:"idle"`
		Manual       *bool      `json:"manual,omitempty"`
		Since        *time.Time `json:"since,omitempty"`
		ElapsedHuman string     `json:"elapsed_human,omitempty"`
	}{
		ScopeID:   scopeID,
		SubjectID: subjectID,
		Status:    string(presence.DefaultStatus),
	}
	if latest != nil {
		resp.Status = string(latest.Status)
		if latest.Status == presence.StatusIdle {
			resp.Idle = true
			manual := latest.Manual
			resp.Manual = &manual
			since := latest.At.UTC()
			resp.Since = &since
			resp.ElapsedHuman = formatHMS(h.clock.Now().Sub(latest.At).Seconds())
		}
	}
	writeJSON(w, resp)
}

// WindowHandler serves duration queries over one explicit local window.
type WindowHandler struct {
	reader   report.DurationReader
	defaults Defaults
	logger   *log.Logger
}

// NewWindowHandler constructs a WindowHandler.
func NewWindowHandler(reader report.DurationReader, defaults Defaults, logger *log.Logger) (*WindowHandler, error) {
	if reader == nil {
		return nil, report.ErrNilReader
	}
	if defaults.Calendar == nil {
		return nil, report.ErrNilCalendar
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WindowHandler{reader: reader, defaults: defaults, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/window with explicit start/end stamps.
func (h *WindowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID, subjectID, ok := requireSubject(w, r)
	if !ok {
		return
	}
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		http.Error(w, "start and end are required", http.StatusBadRequest)
		return
	}

	calendar, err := h.defaults.calendarFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resolver, err := schedule.NewResolver(calendar.Location(), h.defaults.clock())
	if err != nil {
		http.Error(w, "resolver error", http.StatusInternalServerError)
		return
	}
	window, err := resolver.ResolveExplicit(startRaw, endRaw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	aggregator, err := report.NewWindowAggregator(h.reader, calendar)
	if err != nil {
		http.Error(w, "aggregator error", http.StatusInternalServerError)
		return
	}
	result, err := aggregator.AggregateOne(r.Context(), scopeID, subjectID, window, report.AggregateOptions{
		CalendarFiltered: r.URL.Query().Get("filtered") == "true",
		Mode:             h.defaults.modeFor(r),
	})
	if err != nil {
		h.logger.Printf("window: %v", err)
		http.Error(w, "duration query error", http.StatusInternalServerError)
		return
	}

	resp := durationsResponse{
		ScopeID:       scopeID,
		SubjectID:     subjectID,
		Windows:       []windowJSON{windowToJSON(result)},
		Totals:        tallyToJSON(result.Tally),
		ActiveSeconds: result.ActiveSeconds,
		ActiveHuman:   formatHMS(result.ActiveSeconds),
	}
	writeJSON(w, resp)
}

// SummaryHandler serves scope-wide status counts.
type SummaryHandler struct {
	service *report.ReportService
	logger  *log.Logger
}

// NewSummaryHandler constructs a SummaryHandler.
func NewSummaryHandler(service *report.ReportService, logger *log.Logger) (*SummaryHandler, error) {
	if service == nil {
		return nil, errors.New("report: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SummaryHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/reports/summary.
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID := r.URL.Query().Get("scope_id")
	if scopeID == "" {
		http.Error(w, "scope_id is required", http.StatusBadRequest)
		return
	}
	days := intQuery(r, "days", 0)

	counts, err := h.service.Summary(r.Context(), scopeID, days)
	if err != nil {
		h.logger.Printf("summary: %v", err)
		http.Error(w, "summary query error", http.StatusInternalServerError)
		return
	}

	resp := struct {
		ScopeID string         `json:"scope_id"`
		Days    int            `json:"days"`
		Counts  map[string]int `json:"counts"`
	}{
		ScopeID: scopeID,
		Days:    days,
		Counts:  countsToJSON(counts),
	}
	writeJSON(w, resp)
}

// SubjectSummaryHandler serves per-subject status counts.
type SubjectSummaryHandler struct {
	service *report.ReportService
	logger  *log.Logger
}

// NewSubjectSummaryHandler constructs a SubjectSummaryHandler.
func NewSubjectSummaryHandler(service *report.ReportService, logger *log.Logger) (*SubjectSummaryHandler, error) {
	if service == nil {
		return nil, errors.New("report: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SubjectSummaryHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/reports/subject.
func (h *SubjectSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID, subjectID, ok := requireSubject(w, r)
	if !ok {
		return
	}
	days := intQuery(r, "days", 0)

	counts, err := h.service.SubjectBreakdown(r.Context(), scopeID, subjectID, days)
	if err != nil {
		h.logger.Printf("subject summary: %v", err)
		http.Error(w, "subject summary query error", http.StatusInternalServerError)
		return
	}

	resp := struct {
		ScopeID   string         `json:"scope_id"`
		SubjectID string         `json:"subject_id"`
		Days      int            `json:"days"`
		Counts    map[string]int `json:"counts"`
	}{
		ScopeID:   scopeID,
		SubjectID: subjectID,
		Days:      days,
		Counts:    countsToJSON(counts),
	}
	writeJSON(w, resp)
}

// MemberLister reads the current status of every member in a scope.
type MemberLister interface {
	ListMembers(ctx context.Context, scopeID string) ([]sampler.Member, error)
}

// LiveSummaryHandler serves a head count of statuses as reported right now,
// independent of the event log.
type LiveSummaryHandler struct {
	lister MemberLister
	logger *log.Logger
}

// NewLiveSummaryHandler constructs a LiveSummaryHandler.
func NewLiveSummaryHandler(lister MemberLister, logger *log.Logger) (*LiveSummaryHandler, error) {
	if lister == nil {
		return nil, errors.New("report: nil member lister")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LiveSummaryHandler{lister: lister, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/reports/live.
func (h *LiveSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID := r.URL.Query().Get("scope_id")
	if scopeID == "" {
		http.Error(w, "scope_id is required", http.StatusBadRequest)
		return
	}

	members, err := h.lister.ListMembers(r.Context(), scopeID)
	if err != nil {
		h.logger.Printf("live summary: %v", err)
		http.Error(w, "live summary query error", http.StatusInternalServerError)
		return
	}

	counts := make(map[string]int, len(presence.AllStatuses()))
	for _, status := range presence.AllStatuses() {
		counts[string(status)] = 0
	}
	for _, member := range members {
		counts[string(member.Status)]++
	}

	resp := struct {
		ScopeID string         `json:"scope_id"`
		Total   int            `json:"total"`
		Counts  map[string]int `json:"counts"`
	}{
		ScopeID: scopeID,
		Total:   len(members),
		Counts:  counts,
	}
	writeJSON(w, resp)
}

// LeaderboardHandler serves the most-active-subjects ranking.
type LeaderboardHandler struct {
	service *report.ReportService
	logger  *log.Logger
}

// NewLeaderboardHandler constructs a LeaderboardHandler.
func NewLeaderboardHandler(service *report.ReportService, logger *log.Logger) (*LeaderboardHandler, error) {
	if service == nil {
		return nil, errors.New("report: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &LeaderboardHandler{service: service, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/reports/leaderboard.
func (h *LeaderboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scopeID := r.URL.Query().Get("scope_id")
	if scopeID == "" {
		http.Error(w, "scope_id is required", http.StatusBadRequest)
		return
	}
	days := intQuery(r, "days", 0)

	rows, err := h.service.Leaderboard(r.Context(), scopeID, days)
	if err != nil {
		h.logger.Printf("leaderboard: %v", err)
		http.Error(w, "leaderboard query error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, activityRowsToJSON(scopeID, days, rows))
}

// Snapshotter runs one sampling sweep on demand.
type Snapshotter interface {
	SnapshotOnce(ctx context.Context) (int, error)
}

// SnapshotHandler triggers an immediate membership snapshot.
type SnapshotHandler struct {
	snapshotter Snapshotter
	logger      *log.Logger
}

// NewSnapshotHandler constructs a SnapshotHandler.
func NewSnapshotHandler(snapshotter Snapshotter, logger *log.Logger) (*SnapshotHandler, error) {
	if snapshotter == nil {
		return nil, errors.New("report: nil snapshotter")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SnapshotHandler{snapshotter: snapshotter, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/snapshot.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	count, err := h.snapshotter.SnapshotOnce(r.Context())
	if err != nil {
		h.logger.Printf("snapshot: %v", err)
		http.Error(w, "snapshot error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"inserted": count})
}

// AboutHandler serves deployment branding.
type AboutHandler struct {
	about config.AboutConfig
}

// NewAboutHandler constructs an AboutHandler.
func NewAboutHandler(about config.AboutConfig) *AboutHandler {
	return &AboutHandler{about: about}
}

// ServeHTTP handles GET /api/v1/about.
func (h *AboutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := struct {
		Enterprise    string `json:"enterprise,omitempty"`
		Version       string `json:"version,omitempty"`
		Signature     string `json:"signature,omitempty"`
		SignatureLink string `json:"signature_link,omitempty"`
	}{
		Enterprise:    h.about.Enterprise,
		Version:       h.about.Version,
		Signature:     h.about.Signature,
		SignatureLink: h.about.SignatureLink,
	}
	writeJSON(w, resp)
}

func requireSubject(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	scopeID := r.URL.Query().Get("scope_id")
	subjectID := r.URL.Query().Get("subject_id")
	if scopeID == "" || subjectID == "" {
		http.Error(w, "scope_id and subject_id are required", http.StatusBadRequest)
		return "", "", false
	}
	return scopeID, subjectID, true
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func buildDurationsResponse(scopeID, subjectID string, aggregation report.Aggregation) durationsResponse {
	resp := durationsResponse{
		ScopeID:       scopeID,
		SubjectID:     subjectID,
		Totals:        tallyToJSON(aggregation.Total),
		ActiveSeconds: aggregation.ActiveSeconds,
		ActiveHuman:   formatHMS(aggregation.ActiveSeconds),
	}
	for _, result := range aggregation.Windows {
		resp.Windows = append(resp.Windows, windowToJSON(result))
	}
	return resp
}

func windowToJSON(result report.WindowResult) windowJSON {
	out := windowJSON{
		Date:    result.Window.LocalDate.Format("2006-01-02"),
		Start:   result.Window.Start.UTC(),
		End:     result.Window.End.UTC(),
		Skipped: result.Skipped,
	}
	if !result.Skipped {
		out.Durations = tallyToJSON(result.Tally)
		out.ActiveSeconds = result.ActiveSeconds
		out.ActiveHuman = formatHMS(result.ActiveSeconds)
	}
	return out
}

func tallyToJSON(tally presence.DurationTally) map[string]float64 {
	if tally == nil {
		return nil
	}
	out := make(map[string]float64, len(tally))
	for status, seconds := range tally {
		out[string(status)] = seconds
	}
	return out
}

func countsToJSON(counts map[presence.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return out
}

type activityJSON struct {
	SubjectID   string         `json:"subject_id"`
	DisplayName string         `json:"display_name,omitempty"`
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
}

func activityRowsToJSON(scopeID string, days int, rows []report.SubjectActivity) any {
	out := struct {
		ScopeID  string         `json:"scope_id"`
		Days     int            `json:"days"`
		Subjects []activityJSON `json:"subjects"`
	}{ScopeID: scopeID, Days: days}
	for _, row := range rows {
		out.Subjects = append(out.Subjects, activityJSON{
			SubjectID:   row.SubjectID,
			DisplayName: row.DisplayName,
			Counts:      countsToJSON(row.Counts),
			Total:       row.Total,
		})
	}
	return out
}

// formatHMS renders whole seconds as HH:MM:SS.
func formatHMS(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
