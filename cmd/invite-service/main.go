package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ms-invites/internal/allocator"
	allocator_api "ms-invites/internal/allocator/api"
	allocredis "ms-invites/internal/allocator/redis"
	"ms-invites/internal/auth"
	"ms-invites/internal/catalog"
	catalog_api "ms-invites/internal/catalog/api"
	"ms-invites/internal/config"
	"ms-invites/internal/database/migrations"
	"ms-invites/internal/kafka"
	"ms-invites/internal/lifecycle"
	lifecycle_api "ms-invites/internal/lifecycle/api"
	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/payment"
	"ms-invites/internal/qr"
	"ms-invites/internal/quota"
	quota_api "ms-invites/internal/quota/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err == nil {
			err = sqldb.Ping()
		}
		if err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	// Expired-key notifications drive the unpaid-invite expiry path.
	if _, err := redisClient.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	} else {
		log.Info("REDIS", "Keyspace notifications enabled for expired events")
	}

	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	return bunDB, redisClient
}

// subscribeInviteExpiry retires invites whose payment-window key expired. A
// key that outlived its invite (already paid or retired) is a no-op because
// Expire only moves generated/sent invites.
func subscribeInviteExpiry(rdb *redis.Client, lc *lifecycle.Service, log *logger.Logger) {
	ctx := context.Background()
	pubsub := rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	log.Info("REDIS", "Subscribed to Redis keyevent expired notifications")

	go func() {
		for msg := range pubsub.Channel() {
			if !strings.HasPrefix(msg.Payload, allocredis.PaymentWindowKeyPrefix) {
				continue
			}
			rest := strings.TrimPrefix(msg.Payload, allocredis.PaymentWindowKeyPrefix)
			parts := strings.SplitN(rest, ":", 2)
			if len(parts) != 2 {
				log.Warn("EXPIRY", fmt.Sprintf("Malformed payment window key: %s", msg.Payload))
				continue
			}
			eventID, code := parts[0], parts[1]

			expired, err := lc.Expire(ctx, eventID, code)
			if err != nil {
				log.Error("EXPIRY", fmt.Sprintf("Failed to expire invite %s/%s: %v", eventID, code, err))
				continue
			}
			if expired {
				log.LogInvite(code, "expired: payment window elapsed")
			}
		}
	}()
}

// sweepStaleInvites is the fallback for notifications lost across restarts.
func sweepStaleInvites(lc *lifecycle.Service, window time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(15 * time.Minute)
	go func() {
		for range ticker.C {
			n, err := lc.ExpireStale(context.Background(), window)
			if err != nil {
				log.Error("EXPIRY", fmt.Sprintf("Stale invite sweep failed: %v", err))
				continue
			}
			if n > 0 {
				log.Info("EXPIRY", fmt.Sprintf("Swept %d stale invites", n))
			}
		}
	}()
}

func main() {
	log := logger.NewLogger("invite-service")
	defer log.Close()

	log.Info("APP", "Starting Invite Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if os.Getenv("AUTO_MIGRATE") == "true" {
		runner := migrations.NewRunner(bunDB, os.Getenv("MIGRATIONS_DIR"))
		if err := runner.Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}

	fees := make(map[string]payment.Fee, len(cfg.Payment.Fees))
	for method, f := range cfg.Payment.Fees {
		fees[method] = payment.Fee{Fixed: f.Fixed, Percentage: f.Percentage}
	}
	calculator, err := payment.NewCalculator(fees)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("Invalid fee schedule: %v", err))
	}
	log.Info("CONFIG", fmt.Sprintf("Fee schedule loaded for methods: %v", calculator.Methods()))

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		requiredTopics := []string{
			cfg.Kafka.Topics.InviteGenerated,
			cfg.Kafka.Topics.DeliveryRequests,
			cfg.Kafka.Topics.InvitePaid,
			cfg.Kafka.Topics.InviteCheckedIn,
			cfg.Kafka.Topics.InviteCancelled,
			cfg.Kafka.Topics.PaymentConfirmed,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		log.Info("KAFKA", "Kafka producer initialized")
		defer producer.Close()
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	redisWrap := allocredis.NewRedis(redisClient)

	catalogService := catalog.NewService(&catalog.DB{Bun: bunDB})
	quotaService := quota.NewService(&quota.DB{Bun: bunDB})

	lifecycleService := lifecycle.NewService(&lifecycle.DB{Bun: bunDB}, catalogService, calculator)
	lifecycleService.Tracker = redisWrap
	if producer != nil {
		lifecycleService.Kafka = producer
	}

	allocatorService := allocator.NewService(&allocator.DB{Bun: bunDB}, catalogService, quotaService, redisWrap)
	allocatorService.Tracker = redisWrap
	allocatorService.PaymentWindow = cfg.Invites.PaymentWindow
	if producer != nil {
		allocatorService.Kafka = producer
	}
	if cfg.Invites.QRSecret != "" {
		allocatorService.QR = qr.NewQRGenerator(cfg.Invites.QRSecret)
	} else {
		log.Warn("CONFIG", "QR_SECRET_KEY not set, invites will be issued without QR codes")
	}

	saleHandler := allocator_api.NewHandler(allocatorService, log)
	lifecycleHandler := lifecycle_api.NewHandler(lifecycleService, log)
	catalogHandler := catalog_api.NewHandler(catalogService, calculator, log)
	quotaHandler := quota_api.NewHandler(quotaService, log)

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.PaymentConfirmed, cfg.Kafka.GroupID)
		go consumer.Start(ctx, func(conf models.PaymentConfirmation) error {
			_, err := lifecycleService.ConfirmPayment(ctx, conf)
			return err
		})
		defer consumer.Close()
	}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// Public fee preview for the checkout screen
	r.Get("/api/quote", catalogHandler.Quote)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Route("/api", func(r chi.Router) {
			r.Post("/sale", saleHandler.Sale)
			r.Post("/payment/confirm", lifecycleHandler.ConfirmPayment)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", catalogHandler.ListEvents)
				r.Post("/", catalogHandler.CreateEvent)
				r.Get("/{eventId}", catalogHandler.GetEvent)
				r.Get("/{eventId}/invites/{code}", lifecycleHandler.GetInvite)
				r.Post("/{eventId}/invites/{code}/send", lifecycleHandler.Send)
				r.Post("/{eventId}/invites/{code}/cancel", lifecycleHandler.Cancel)
			})

			r.Route("/sellers", func(r chi.Router) {
				r.Post("/", quotaHandler.RegisterSeller)
				r.Put("/{sellerId}/quota", quotaHandler.AssignQuota)
				r.Get("/{sellerId}/quota", quotaHandler.Remaining)
			})
		})
	})
	log.Info("ROUTER", "Sale, lifecycle, catalog, and seller routes registered under /api")

	subscribeInviteExpiry(redisClient, lifecycleService, log)
	sweepStaleInvites(lifecycleService, cfg.Invites.PaymentWindow, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Invite Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Invite Service shutdown complete")
	}
}
