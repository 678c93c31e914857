// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/pairs/internal/auth"
	"github.com/jason-s-yu/pairs/internal/cache"
	"github.com/jason-s-yu/pairs/internal/catalog"
	"github.com/jason-s-yu/pairs/internal/config"
	"github.com/jason-s-yu/pairs/internal/deck"
	"github.com/jason-s-yu/pairs/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	logrus.SetLevel(cfg.LogLevel)

	ttl, err := auth.ParseTokenExpireTime(cfg.TokenExpireTime)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}
	if err := auth.Init(ttl); err != nil {
		logger.Fatalf("auth: %v", err)
	}

	// the action log is optional; tables run without it
	cache.QueueName = cfg.HistorianQueue
	if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.Warnf("Round history disabled: %v", err)
		cache.Rdb = nil
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			logger.Fatalf("catalog: %v", err)
		}
	}
	builder := deck.NewBuilder(cat, rand.New(rand.NewSource(time.Now().UnixNano())))

	ts := handlers.NewTableServer(builder, logger, cfg.MaxPlayers, cfg.RevealDelay)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.NewRouter(logger, ts),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				ts.PruneIdle(now, cfg.TableIdle)
			}
		}
	}()

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
	logger.Info("Server stopped.")
}
