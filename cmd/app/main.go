package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dad1755/ktransport/api"
	"github.com/dad1755/ktransport/config"
	"github.com/dad1755/ktransport/internal/bootstrap"
	"github.com/dad1755/ktransport/internal/cache"
	"github.com/dad1755/ktransport/internal/chat"
	"github.com/dad1755/ktransport/internal/email"
	"github.com/dad1755/ktransport/internal/kafka"
	"github.com/dad1755/ktransport/internal/logger"
	"github.com/dad1755/ktransport/internal/service/booking"
	"github.com/dad1755/ktransport/internal/service/places"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	secretsPath := os.Getenv("SECRETS_PATH")
	if secretsPath == "" {
		secretsPath = "secrets.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	creds, err := config.LoadCredentials(secretsPath, nil)
	if err != nil {
		zl.Fatal("load credentials", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}

	placesTTL := time.Duration(cfg.Places.CacheTTLSeconds) * time.Second
	var (
		sessions    api.SessionStore
		placesCache places.PlacesCache
	)
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Session.TTL(), placesTTL)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			zl.Fatal("connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		sessions, placesCache = redisCache, redisCache
	default:
		memCache := cache.NewMemoryCache(cfg.Session.TTL(), placesTTL)
		sessions, placesCache = memCache, memCache
	}

	opts := []booking.BookingServiceOption{booking.WithLogger(zl)}
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, zl)
		defer producer.Close()
		opts = append(opts, booking.WithEventProducer(producer, cfg.Kafka.SubmissionsTopic))
	}

	formatter := booking.NewFormatter(cfg.Email.Subject, cfg.Email.Format == config.EmailFormatHTML, cfg.Chat.LinkBase)
	bookingService := booking.NewBookingService(
		formatter,
		email.NewSender(cfg.Email, creds),
		chat.NewClient(cfg.Chat, creds),
		opts...,
	)
	placeService := places.NewPlaceService(places.NewStaticCatalog(cfg.Places), placesCache)

	router := api.NewRouter(
		api.NewBookingHandler(bookingService, sessions, placeService, api.CookieConfig{
			Name:   cfg.Session.CookieName,
			MaxAge: cfg.Session.TTL(),
			Secure: cfg.Session.Secure,
		}, zl),
		api.NewPlaceHandler(placeService),
		zl,
	)

	if err := bootstrap.Run(ctx, cfg, router, zl); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}
