package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// MustNewClient creates a new Redis client from the redis.* config keys.
func MustNewClient() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		panic("failed to connect to redis: " + err.Error())
	}

	slog.Info("Redis connected", "addr", viper.GetString("redis.addr"))

	return client
}
