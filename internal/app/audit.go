package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/dal/rabbitmq"
	historyrepo "github.com/corray333/backend-labs/ordering/internal/dal/repositories/history/postgres"
	inboxrepo "github.com/corray333/backend-labs/ordering/internal/dal/repositories/inbox/postgres"
	"github.com/corray333/backend-labs/ordering/internal/otel"
	"github.com/corray333/backend-labs/ordering/internal/service/services/auditsvc"
	"github.com/corray333/backend-labs/ordering/internal/transport/consumer"
	inboxworker "github.com/corray333/backend-labs/ordering/internal/worker/inbox"
	"github.com/spf13/viper"
)

// AuditConsumerName names the audit consumer in logs, traces and config paths.
const AuditConsumerName = "audit-consumer"

// AuditApp consumes order events and records the order status history.
type AuditApp struct {
	consumerTransp *consumer.Consumer
	inboxWorker    *inboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewAuditApp creates a new audit consumer application.
func MustNewAuditApp() *AuditApp {
	otelController := otel.MustInitOtel(AuditConsumerName)
	rabbitMqClient := rabbitmq.MustNewClient()
	postgresClient := postgres.MustNewClient()

	historyRepository := historyrepo.NewHistoryRepository(postgresClient.Pool())
	inboxRepository := inboxrepo.NewInboxRepository(postgresClient.Pool())

	auditSvc := auditsvc.MustNewAuditService(
		auditsvc.WithHistoryRepository(historyRepository),
	)

	consumerTransp := consumer.MustNewConsumer(rabbitMqClient, auditSvc, inboxRepository)

	inboxWorker := inboxworker.NewWorker(
		inboxRepository,
		auditSvc,
		time.Duration(viper.GetInt("rabbitmq.inbox.poll_interval_seconds"))*time.Second,
		viper.GetInt("rabbitmq.inbox.batch_size"),
	)

	return &AuditApp{
		consumerTransp: consumerTransp,
		inboxWorker:    inboxWorker,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *AuditApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting inbox worker")
		a.inboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")

	a.gracefulShutdown()
	cancel()
}

// gracefulShutdown shuts down components sequentially: inbox worker,
// consumer, RabbitMQ, PostgreSQL, and OpenTelemetry.
func (a *AuditApp) gracefulShutdown() {
	a.inboxWorker.Stop()
	slog.Info("Inbox worker stopped gracefully")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	slog.Info("Application shutdown complete")
}
