package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"consulat-booking/internal/clock"
	"consulat-booking/internal/config"
	"consulat-booking/internal/events"
	apptCancel "consulat-booking/internal/http-server/handlers/appointments/cancel"
	apptComplete "consulat-booking/internal/http-server/handlers/appointments/complete"
	apptConfirm "consulat-booking/internal/http-server/handlers/appointments/confirm"
	apptCreate "consulat-booking/internal/http-server/handlers/appointments/create"
	apptGet "consulat-booking/internal/http-server/handlers/appointments/get"
	apptReschedule "consulat-booking/internal/http-server/handlers/appointments/reschedule"
	rangeAvailable "consulat-booking/internal/http-server/handlers/rangebookings/available"
	rangeCreate "consulat-booking/internal/http-server/handlers/rangebookings/create"
	slotBlock "consulat-booking/internal/http-server/handlers/slots/block"
	slotCreate "consulat-booking/internal/http-server/handlers/slots/create"
	slotDelete "consulat-booking/internal/http-server/handlers/slots/delete"
	slotGenerate "consulat-booking/internal/http-server/handlers/slots/generate"
	slotGet "consulat-booking/internal/http-server/handlers/slots/get"
	"consulat-booking/internal/idempotency"
	"consulat-booking/internal/lock"
	"consulat-booking/internal/service"
	"consulat-booking/internal/storage/postgres"
	"consulat-booking/pkg/handlers/slogpretty"
	"consulat-booking/pkg/middleware/mwlogger"
	"consulat-booking/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Error("Failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	locker := lock.NewRedisLock(redisClient)
	idemStore := idempotency.NewRedisStore(redisClient)
	publisher := events.NewRedisPublisher(redisClient, cfg.Booking.EventChannel)

	engine := service.New(
		log,
		storage,
		locker,
		service.AgentCapability{Agents: storage},
		publisher,
		idemStore,
		clock.System{},
		cfg.Booking,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	// Slots
	router.Post("/slots", slotCreate.New(log, engine))
	router.Post("/slots/bulk", slotCreate.NewBulk(log, engine))
	router.Post("/slots/generate", slotGenerate.New(log, engine))
	router.Get("/slots", slotGet.New(log, engine))
	router.Get("/slots/available", slotGet.NewAvailable(log, engine))
	router.Get("/slots/available/dates", slotGet.NewAvailableDates(log, engine))
	router.Post("/slots/{id}/block", slotBlock.New(log, engine))
	router.Post("/slots/{id}/unblock", slotBlock.NewUnblock(log, engine))
	router.Delete("/slots/{id}", slotDelete.New(log, engine))

	// Appointments
	router.Post("/appointments", apptCreate.New(log, engine))
	router.Get("/appointments", apptGet.NewByOrg(log, engine))
	router.Get("/appointments/my", apptGet.NewMy(log, engine))
	router.Get("/appointments/day", apptGet.NewDay(log, engine))
	router.Get("/appointments/{id}", apptGet.New(log, engine))
	router.Put("/appointments/{id}/cancel", apptCancel.New(log, engine))
	router.Post("/appointments/{id}/confirm", apptConfirm.New(log, engine))
	router.Post("/appointments/{id}/complete", apptComplete.New(log, engine))
	router.Post("/appointments/{id}/no-show", apptComplete.NewNoShow(log, engine))
	router.Post("/appointments/reschedule", apptReschedule.New(log, engine))

	// Legacy range bookings. Lifecycle endpoints are shared with appointments:
	// a range booking is an appointment without a slot.
	router.Post("/range-bookings", rangeCreate.New(log, engine))
	router.Get("/range-bookings/available", rangeAvailable.New(log, engine))
	router.Get("/range-bookings/{id}", apptGet.New(log, engine))
	router.Put("/range-bookings/{id}/cancel", apptCancel.New(log, engine))
	router.Post("/range-bookings/{id}/confirm", apptConfirm.New(log, engine))
	router.Post("/range-bookings/{id}/complete", apptComplete.New(log, engine))
	router.Post("/range-bookings/{id}/no-show", apptComplete.NewNoShow(log, engine))
	router.Post("/range-bookings/reschedule", apptReschedule.New(log, engine))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close redis client", sl.Err(err))
	} else {
		log.Info("Redis client closed")
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
