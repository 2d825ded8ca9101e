package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomly/internal/api"
	"roomly/internal/config"
	"roomly/internal/database"
	"roomly/internal/domain"
	"roomly/internal/events"
	"roomly/internal/logging"
	"roomly/internal/metrics"
	"roomly/internal/notify"
	"roomly/internal/repository"
	"roomly/internal/service"
	"roomly/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := logging.Component(baseLogger, "main")

	metrics.Register()

	db, err := database.NewDB(cfg.Database.Path, baseLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.UpsertRooms(ctx, cfg.Rooms); err != nil {
		return fmt.Errorf("seed room catalog: %w", err)
	}
	logger.Info().Int("rooms", len(cfg.Rooms)).Msg("room catalog loaded")

	locker, closeRedis := initRoomLocker(ctx, cfg, baseLogger)
	defer closeRedis()

	eventBus := events.NewEventBus()
	subscribeAuditLog(eventBus, baseLogger)

	bookingService := service.NewBookingService(
		db, db, locker, eventBus,
		logging.Component(baseLogger, "booking-service"),
		cfg.Booking.MaxBookingDays,
	)

	notifier := initNotifier(cfg, baseLogger)
	reminderWorker := worker.NewReminderWorker(
		db, notifier, eventBus,
		logging.Component(baseLogger, "reminder-scheduler"),
		cfg.Scheduler.Tick(), cfg.Scheduler.Lookahead(), cfg.Scheduler.DefaultLeadMinutes,
		cfg.Scheduler.DisplayLocation(),
	)
	go reminderWorker.Start(ctx)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, baseLogger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort, logger)
	}

	apiServer := api.NewServer(cfg.API, bookingService, logging.Component(baseLogger, "api"))
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("api server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return apiServer.Shutdown(shutdownCtx)
}

// initRoomLocker prefers Redis and degrades to the in-process locker when
// Redis is not configured or unreachable at startup.
func initRoomLocker(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.RoomLocker, func()) {
	memory := repository.NewMemoryRoomLocker()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, using in-process room locks")
		return memory, func() {}
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup, failover locker will retry")
	}

	locker := repository.NewFailoverRoomLocker(repository.NewRedisRoomLocker(client), memory, logger)
	return locker, func() { _ = repository.Close(client) }
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	var base domain.Notifier
	if cfg.Notifications.Mode == "smtp" {
		base = notify.NewSMTPNotifier(cfg.Notifications.SMTP)
	} else {
		base = notify.NewLogNotifier(logger)
	}

	policy := notify.RetryPolicy{
		MaxAttempts:  cfg.Notifications.Retry.MaxAttempts,
		InitialDelay: cfg.Notifications.Retry.InitialDelayDuration(),
		MaxDelay:     cfg.Notifications.Retry.MaxDelayDuration(),
	}
	return notify.NewRetryingNotifier(base, policy, logger)
}

func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	audit := logging.Component(logger, "audit")
	handler := func(event *events.Event) error {
		audit.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Msg("booking event")
		return nil
	}
	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingUpdated, handler)
	bus.Subscribe(events.EventBookingCancelled, handler)
	bus.Subscribe(events.EventReminderSent, handler)
}

func serveMetrics(port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", srv.Addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
