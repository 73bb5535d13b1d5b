package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/banner"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/dashboard"
	"github.com/vasiliy-maslov/storefront/internal/db"
	storefrontHttp "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/realtime"
	"github.com/vasiliy-maslov/storefront/internal/settings"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

func setupLogger(cfg config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stdout)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	log.Logger = logger.With().Timestamp().Str("service", cfg.Name).Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)
	log.Info().Msg("Starting storefront...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	publisher := order.NoopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := order.NewSyncProducer(cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("Failed to connect to Kafka")
		}
		defer producer.Close()
		publisher = order.NewKafkaPublisher(producer, cfg.Kafka.OrderTopic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.OrderTopic).Msg("Publishing order events to Kafka")
	} else {
		log.Warn().Msg("No Kafka brokers configured, order events are dropped")
	}

	hub := realtime.NewHub()
	notifier := realtime.NewPGNotifier(pg.Pool)
	listener := realtime.NewListener(pg.Pool, hub)
	go listener.Run(ctx)

	catalogSvc := catalog.NewService(
		catalog.NewRepository(pg.Pool),
		catalog.NewRedisCache(rdb, cfg.Redis.ProductTTL),
		notifier, hub,
	)
	bannerSvc := banner.NewService(banner.NewRepository(pg.Pool), notifier, hub)
	cartSvc := cart.NewService(cart.NewRepository(pg.Pool), catalogSvc, notifier, hub)
	settingsSvc := settings.NewService(settings.NewRepository(pg.Pool), notifier, hub)

	userRepository := user.NewRepository(pg.Pool)
	userSvc := user.NewService(userRepository)
	authSvc := auth.NewService(userRepository, auth.NewRedisStore(rdb), cfg.Auth)

	orderSvc := order.NewService(order.NewRepository(pg.Pool), publisher, notifier, hub)
	checkoutSvc := checkout.NewService(
		checkout.NewRedisDraftStore(rdb, cfg.Checkout.DraftTTL),
		cartSvc, settingsSvc, userSvc, orderSvc,
	)

	reporting := pg.SQLX()
	defer reporting.Close()
	dashboardSvc := dashboard.NewService(dashboard.NewRepository(reporting))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	redisPing := func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
	healthChecks := map[string]storefrontHttp.HealthCheck{
		"postgres": pg.Pool.Ping,
		"redis":    redisPing,
	}

	router := storefrontHttp.NewRouter(storefrontHttp.RouterConfig{
		Auth:          storefrontHttp.NewAuthHandler(authSvc),
		Catalog:       storefrontHttp.NewCatalogHandler(catalogSvc),
		Banners:       storefrontHttp.NewBannerHandler(bannerSvc),
		Cart:          storefrontHttp.NewCartHandler(cartSvc, catalogSvc),
		Checkout:      storefrontHttp.NewCheckoutHandler(checkoutSvc),
		Orders:        storefrontHttp.NewOrderHandler(orderSvc),
		Settings:      storefrontHttp.NewSettingsHandler(settingsSvc),
		Users:         storefrontHttp.NewUserHandler(userSvc, dashboardSvc),
		Authenticator: authSvc,
		Metrics:       storefrontHttp.NewMetrics(registry),
		Gatherer:      registry,
		HealthChecks:  healthChecks,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", cfg.App.Port).Msg("Could not listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Storefront stopped gracefully")
}
