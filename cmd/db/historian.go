// cmd/db/historian.go runs the historian: it pops round actions from the Redis
// queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/pairs/internal/cache"
	"github.com/jason-s-yu/pairs/internal/config"
	"github.com/jason-s-yu/pairs/internal/database"
	"github.com/jason-s-yu/pairs/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	if err := database.ConnectDB(ctx, cfg.PostgresURL()); err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.DB.Close()
	if err := database.EnsureSchema(ctx, database.DB); err != nil {
		log.Fatalf("database: %v", err)
	}

	hs, err := historian.NewRedisPostgresService(cfg)
	if err != nil {
		log.Fatalf("historian: %v", err)
	}
	hs.Run(ctx)
	log.Info("Historian shutdown complete.")
}
