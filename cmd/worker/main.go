package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dad1755/ktransport/config"
	"github.com/dad1755/ktransport/internal/kafka"
	"github.com/dad1755/ktransport/internal/logger"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// The worker tails the submission event topic into the operator log.
func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
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

	if !cfg.Kafka.Enabled() {
		zl.Fatal("kafka is not configured; set kafka.brokers and kafka.submissions_topic")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, zl)
	if err := producer.CheckConnection(ctx); err != nil {
		zl.Warn("kafka connection check failed", zap.Error(err))
	}
	_ = producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.SubmissionsTopic)
	defer consumer.Close()

	zl.Info("consuming submission events", zap.String("topic", cfg.Kafka.SubmissionsTopic))
	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		var event kafka.SubmissionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			zl.Warn("decode event error", zap.Error(err), zap.Int64("offset", msg.Offset))
			return nil
		}
		logEvent(zl, event)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("consumer stopped", zap.Error(err))
		return
	}
	zl.Info("worker stopped")
}

func logEvent(zl *zap.Logger, event kafka.SubmissionEvent) {
	fields := []zap.Field{
		zap.String("submission_id", event.SubmissionID),
		zap.String("type", event.Type),
		zap.String("destination", event.Destination),
		zap.String("pickup_date", event.PickupDate),
		zap.Int("passengers", event.Passengers),
		zap.Bool("email_sent", event.EmailSent),
		zap.Bool("chat_sent", event.ChatSent),
		zap.Time("submitted_at", event.SubmittedAt),
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if event.Type == kafka.EventSubmissionFailed {
		zl.Warn("booking submission failed", fields...)
		return
	}
	zl.Info("booking submission", fields...)
}
