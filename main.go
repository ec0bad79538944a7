package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"presence-ledger/internal/config"
	"presence-ledger/internal/eventing"
	"presence-ledger/internal/gateway"
	"presence-ledger/internal/observability/metrics"
	presence "presence-ledger/internal/presence/domain"
	"presence-ledger/internal/presence/infrastructure/postgres"
	"presence-ledger/internal/presence/interfaces/consumer"
	"presence-ledger/internal/presence/interfaces/ingest"
	report "presence-ledger/internal/report/application"
	reporthttp "presence-ledger/internal/report/interfaces/http"
	sampler "presence-ledger/internal/sampler/application"
	schedule "presence-ledger/internal/schedule/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	store := postgres.NewPresenceRepository(db)
	activityQuery := postgres.NewActivityQuery(db)
	metrics.Init(activityQuery, logger)

	reconstructor, err := presence.NewIntervalReconstructor(store)
	if err != nil {
		logger.Fatalf("reconstructor error: %v", err)
	}

	calendar, resolution, err := cfg.Calendar.BuildCalendar()
	if err != nil {
		logger.Fatalf("calendar error: %v", err)
	}
	logger.Printf("calendar: tz=%s (%s) days=%v window=%s-%s",
		calendar.Location(), resolution, calendar.Weekdays(), calendar.DayStart(), calendar.DayEnd())

	defaults := reporthttp.Defaults{
		Calendar:            calendar,
		FallbackOffsetHours: cfg.Calendar.FallbackOffsetHours,
		DayParts:            cfg.Calendar.DayParts,
		Mode:                presence.ParseActiveMode(cfg.Calendar.ActiveMode),
		Clock:               schedule.SystemClock{},
	}

	bus := eventing.NewPresenceNotifier()
	bus.Subscribe(func(_ context.Context, logged eventing.PresenceLogged) error {
		logger.Printf("presence logged: scope=%s subject=%s status=%s source=%s", logged.ScopeID, logged.SubjectID, logged.Status, logged.Source)
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.Topic,
		})
		tracker := consumer.NewActivityTracker(cfg.Kafka.ManualIdleWithin, cfg.Kafka.ActivityTTL)
		processor, err := consumer.NewProcessor(reader, store, tracker, bus, consumer.WithLogger(logger))
		if err != nil {
			logger.Fatalf("consumer error: %v", err)
		}
		go tracker.Sweep(context.Background(), cfg.Kafka.ActivityTTL)
		go func() {
			if err := processor.Run(context.Background()); err != nil {
				logger.Printf("consumer stopped: %v", err)
			}
		}()
		logger.Printf("consumer: topic=%s group=%s", cfg.Kafka.Topic, cfg.Kafka.GroupID)
	}

	ingestHandler, err := ingest.NewHandler(store, bus, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	durationsHandler, err := reporthttp.NewDurationsHandler(reconstructor, defaults, logger)
	if err != nil {
		logger.Fatalf("durations handler error: %v", err)
	}
	workCheckHandler, err := reporthttp.NewWorkCheckHandler(reconstructor, defaults, 0, logger)
	if err != nil {
		logger.Fatalf("workcheck handler error: %v", err)
	}
	idleHandler, err := reporthttp.NewIdleHandler(reconstructor, defaults, logger)
	if err != nil {
		logger.Fatalf("idle handler error: %v", err)
	}
	idleNowHandler, err := reporthttp.NewIdleNowHandler(store, defaults.Clock, logger)
	if err != nil {
		logger.Fatalf("idle current handler error: %v", err)
	}
	windowHandler, err := reporthttp.NewWindowHandler(reconstructor, defaults, logger)
	if err != nil {
		logger.Fatalf("window handler error: %v", err)
	}

	reportService, err := report.NewReportService(activityQuery, cfg.LeaderboardLimit, defaults.Clock)
	if err != nil {
		logger.Fatalf("report service error: %v", err)
	}
	summaryHandler, err := reporthttp.NewSummaryHandler(reportService, logger)
	if err != nil {
		logger.Fatalf("summary handler error: %v", err)
	}
	subjectSummaryHandler, err := reporthttp.NewSubjectSummaryHandler(reportService, logger)
	if err != nil {
		logger.Fatalf("subject summary handler error: %v", err)
	}
	leaderboardHandler, err := reporthttp.NewLeaderboardHandler(reportService, logger)
	if err != nil {
		logger.Fatalf("leaderboard handler error: %v", err)
	}
	csvHandler, err := reporthttp.NewExportHandler(reportService, "csv", logger)
	if err != nil {
		logger.Fatalf("csv export handler error: %v", err)
	}
	xlsxHandler, err := reporthttp.NewExportHandler(reportService, "xlsx", logger)
	if err != nil {
		logger.Fatalf("xlsx export handler error: %v", err)
	}
	pdfHandler, err := reporthttp.NewExportHandler(reportService, "pdf", logger)
	if err != nil {
		logger.Fatalf("pdf export handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ingest/presence", ingestHandler)
	mux.Handle("/api/v1/durations", durationsHandler)
	mux.Handle("/api/v1/workcheck", workCheckHandler)
	mux.Handle("/api/v1/idle", idleHandler)
	mux.Handle("/api/v1/idle/current", idleNowHandler)
	mux.Handle("/api/v1/window", windowHandler)
	mux.Handle("/api/v1/reports/summary", summaryHandler)
	mux.Handle("/api/v1/reports/subject", subjectSummaryHandler)
	mux.Handle("/api/v1/reports/leaderboard", leaderboardHandler)
	mux.Handle("/api/v1/exports/presence.csv", csvHandler)
	mux.Handle("/api/v1/exports/presence.xlsx", xlsxHandler)
	mux.Handle("/api/v1/exports/presence.pdf", pdfHandler)
	mux.Handle("/api/v1/about", reporthttp.NewAboutHandler(cfg.About))

	if cfg.Gateway.BaseURL != "" {
		gatewayClient, err := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token)
		if err != nil {
			logger.Fatalf("gateway client error: %v", err)
		}
		statusSampler, err := sampler.NewSampler(gatewayClient, store, cfg.Sampler.Every, logger)
		if err != nil {
			logger.Fatalf("sampler error: %v", err)
		}
		if cfg.Sampler.Enabled {
			go statusSampler.Run(context.Background())
		}
		snapshotHandler, err := reporthttp.NewSnapshotHandler(statusSampler, logger)
		if err != nil {
			logger.Fatalf("snapshot handler error: %v", err)
		}
		mux.Handle("/api/v1/snapshot", snapshotHandler)
		liveSummaryHandler, err := reporthttp.NewLiveSummaryHandler(gatewayClient, logger)
		if err != nil {
			logger.Fatalf("live summary handler error: %v", err)
		}
		mux.Handle("/api/v1/reports/live", liveSummaryHandler)
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
