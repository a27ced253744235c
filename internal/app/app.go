package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountclient "github.com/corray333/backend-labs/ordering/internal/dal/clients/account"
	catalogclient "github.com/corray333/backend-labs/ordering/internal/dal/clients/catalog"
	"github.com/corray333/backend-labs/ordering/internal/dal/clients/remote"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/dal/rabbitmq"
	redisclient "github.com/corray333/backend-labs/ordering/internal/dal/redis"
	"github.com/corray333/backend-labs/ordering/internal/dal/repositories/events"
	historyrepo "github.com/corray333/backend-labs/ordering/internal/dal/repositories/history/postgres"
	outboxrepo "github.com/corray333/backend-labs/ordering/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/ordering/internal/otel"
	"github.com/corray333/backend-labs/ordering/internal/service/fallback"
	"github.com/corray333/backend-labs/ordering/internal/service/gateway"
	"github.com/corray333/backend-labs/ordering/internal/service/services/cartsvc"
	"github.com/corray333/backend-labs/ordering/internal/service/services/ordersvc"
	grpctransport "github.com/corray333/backend-labs/ordering/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/ordering/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/ordering/internal/worker/outbox"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

// OrderServiceName names the order service in logs, traces and config paths.
const OrderServiceName = "order-svc"

// App represents the order service application.
type App struct {
	httpTransport  *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	outboxWorker   *outboxworker.Worker
	postgresClient *postgres.Client
	rabbitMqClient *rabbitmq.Client
	redisClient    *redis.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel(OrderServiceName)
	postgresClient := postgres.MustNewClient()
	redisClient := redisclient.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	exchange := viper.GetString("rabbitmq.exchange")
	if err := rabbitMqClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    exchange,
		Kind:    amqp.ExchangeTopic,
		Durable: true,
	}); err != nil {
		panic(err)
	}

	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient.Pool())
	historyRepository := historyrepo.NewHistoryRepository(postgresClient.Pool())
	eventRepository := events.NewEventRabbitMQRepository(
		rabbitMqClient,
		outboxRepository,
		exchange,
		viper.GetInt("rabbitmq.max_retries"),
	)

	accountClient := accountclient.NewClient(remote.NewClient(
		"account",
		viper.GetString("clients.account.base_url"),
		viper.GetDuration("clients.account.timeout"),
	))
	catalogClient := catalogclient.NewCachedClient(
		catalogclient.NewClient(remote.NewClient(
			"catalog",
			viper.GetString("clients.catalog.base_url"),
			viper.GetDuration("clients.catalog.timeout"),
		)),
		redisClient,
		viper.GetDuration("clients.catalog.cache_ttl"),
	)

	grpcTransport := grpctransport.NewGRPCTransport()

	policy := fallback.MustNewPolicy(
		fallback.WithFailSites(viper.GetStringSlice("fallback.fail_sites")),
		fallback.WithHealthReporter(grpcTransport),
	)

	gateways := gateway.MustNewGateways(
		gateway.WithWalletClient(accountClient),
		gateway.WithAddressClient(accountClient),
		gateway.WithCatalogClient(catalogClient),
		gateway.WithPolicy(policy),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
		ordersvc.WithGateways(gateways),
		ordersvc.WithEventPublisher(eventRepository),
		ordersvc.WithHistoryRepository(historyRepository),
	)

	cartSvc := cartsvc.MustNewCartService(
		cartsvc.WithPostgresClient(postgresClient),
	)

	httpTransport := httptransport.NewHTTPTransport(OrderServiceName, orderSvc, cartSvc)
	httpTransport.RegisterRoutes()

	return &App{
		httpTransport:  httpTransport,
		grpcTransport:  grpcTransport,
		outboxWorker:   outboxworker.NewWorker(outboxRepository, rabbitMqClient),
		postgresClient: postgresClient,
		rabbitMqClient: rabbitMqClient,
		redisClient:    redisClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.httpTransport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := a.grpcTransport.Run(); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting outbox worker")
		a.outboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the transports first so no request starts a new
// remote call, then the worker, then the connections.
func (a *App) gracefulShutdown() {
	timeout := time.Duration(viper.GetInt("server.http.shutdown_timeout_seconds")) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	a.outboxWorker.Stop()
	slog.Info("Outbox worker stopped gracefully")

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if err := a.redisClient.Close(); err != nil {
		slog.Error("Redis connection close error", "error", err)
	} else {
		slog.Info("Redis connection closed gracefully")
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
