package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/corray333/backend-labs/ordering/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MustInit loads .env and config.yaml and installs the default logger.
// service names both the config directory under /etc and the log attribute.
func MustInit(service string) {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}

	SetDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/" + service)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}

	SetupLogger(service)
}

// SetupLogger installs the JSON logger as the slog default.
func SetupLogger(service string) {
	handler := logger.NewHandler(&logger.HandlerOptions{
		Service:  service,
		SlogOpts: &slog.HandlerOptions{Level: logger.ParseLevel(viper.GetString("logger.level"))},
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}

// SetDefaults registers a default for every configuration key.
func SetDefaults() {
	viper.SetDefault("logger.level", "info")

	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.shutdown_timeout_seconds", 10)
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Accept", "Content-Type", "X-User-ID", "X-Request-ID"})
	viper.SetDefault("server.http.cors.exposed_headers", []string{"X-Request-ID"})
	viper.SetDefault("server.http.cors.allow_credentials", false)
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("server.grpc.port", "9090")
	viper.SetDefault("server.grpc.keepalive.max_connection_idle", 15)
	viper.SetDefault("server.grpc.keepalive.max_connection_age", 30)
	viper.SetDefault("server.grpc.keepalive.max_connection_age_grace", 5)
	viper.SetDefault("server.grpc.keepalive.time", 5)
	viper.SetDefault("server.grpc.keepalive.timeout", 1)
	viper.SetDefault("server.grpc.keepalive.min_time", 5)
	viper.SetDefault("server.grpc.keepalive.permit_without_stream", true)

	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.db", "ordering")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("postgres.migrations_path", "./migrations")

	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.exchange", "orders")
	viper.SetDefault("rabbitmq.queue", "order.history")
	viper.SetDefault("rabbitmq.consumer_tag", "audit-consumer")
	viper.SetDefault("rabbitmq.prefetch", 50)
	viper.SetDefault("rabbitmq.max_retries", 5)
	viper.SetDefault("rabbitmq.outbox.poll_interval_seconds", 10)
	viper.SetDefault("rabbitmq.outbox.batch_size", 100)
	viper.SetDefault("rabbitmq.inbox.poll_interval_seconds", 10)
	viper.SetDefault("rabbitmq.inbox.batch_size", 100)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("clients.account.base_url", "http://localhost:8081")
	viper.SetDefault("clients.account.timeout", "2s")
	viper.SetDefault("clients.catalog.base_url", "http://localhost:8082")
	viper.SetDefault("clients.catalog.timeout", "2s")
	viper.SetDefault("clients.catalog.cache_ttl", "5m")

	viper.SetDefault("fallback.fail_sites", []string{})

	viper.SetDefault("otel.enabled", true)
	viper.SetDefault("otel.jaeger_endpoint", "http://jaeger:14268/api/traces")
}
