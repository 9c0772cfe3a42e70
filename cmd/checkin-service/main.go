package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-invites/internal/auth"
	"ms-invites/internal/catalog"
	"ms-invites/internal/checkin"
	checkin_api "ms-invites/internal/checkin/api"
	"ms-invites/internal/config"
	"ms-invites/internal/kafka"
	"ms-invites/internal/lifecycle"
	"ms-invites/internal/logger"
	"ms-invites/internal/payment"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// The portaria service: small, read-mostly, and safe to run on every door
// device's network. It shares the invite database but only ever performs the
// paid→checked_in transition.
func main() {
	log := logger.NewLogger("checkin-service")
	defer log.Close()

	log.Info("APP", "Starting Check-in Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()
	log.Info("DATABASE", "PostgreSQL connection successful")

	fees := make(map[string]payment.Fee, len(cfg.Payment.Fees))
	for method, f := range cfg.Payment.Fees {
		fees[method] = payment.Fee{Fixed: f.Fixed, Percentage: f.Percentage}
	}
	calculator, err := payment.NewCalculator(fees)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid fee schedule: %v", err))
	}

	catalogService := catalog.NewService(&catalog.DB{Bun: bunDB})
	lifecycleService := lifecycle.NewService(&lifecycle.DB{Bun: bunDB}, catalogService, calculator)

	checkinService := checkin.NewService(lifecycleService)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		if err := kafka.CreateTopicIfNotExists(cfg.Kafka.Brokers, cfg.Kafka.Topics.InviteCheckedIn); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		checkinService.Kafka = producer
		defer producer.Close()
	}

	handler := checkin_api.NewHandler(checkinService, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		r.Post("/api/checkin", handler.Scan)
		r.Get("/api/checkin/recent", handler.Recent)
	})
	log.Info("ROUTER", "Check-in routes registered under /api/checkin")

	server := &http.Server{
		Addr:         cfg.Checkin.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Check-in Service running on %s", cfg.Checkin.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Check-in Service shutdown complete")
	}
}
