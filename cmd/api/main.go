package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	_ "stockflow/docs"
	"stockflow/pkg/api"
	"stockflow/pkg/app"
	"stockflow/pkg/auth"
	"stockflow/pkg/config"
	"stockflow/pkg/event"
	"stockflow/pkg/event/kafka"
	"stockflow/pkg/logger"
	"stockflow/pkg/otel"
	sessionredis "stockflow/pkg/session/redis"
	"stockflow/pkg/webhook"
)

// @title Stockflow API
// @version 1.0
// @description Raw stock, products, packaging and sales for a beverage plant
// @host localhost:8443
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, logger.LevelInfo, "stockflow", otel.GetTraceID)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "stockflow stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := otel.InitTracing(log, otel.Config{ServiceName: "stockflow", Host: cfg.OtelHost, Probability: cfg.OtelSampleRatio})
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	stores := app.MemoryStores()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if stores, err = app.PostgresStores(ctx, db); err != nil {
			return err
		}
		log.Info(ctx, "using postgres stores")
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		stores.Revoked = sessionredis.New(rdb)
		log.Info(ctx, "using redis revocation registry", "addr", cfg.RedisAddr)
	}

	queue := webhook.NewQueue(webhook.NewHTTPSender(cfg.WebhookTimeout), cfg.WebhookWorkers, cfg.WebhookQueueSize, log)
	queue.Start()

	var mirrors []event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		sink := kafka.New(kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic), log)
		defer sink.Close()
		mirrors = append(mirrors, sink)
		log.Info(ctx, "mirroring events to kafka", "topic", cfg.KafkaTopic)
	}

	a, err := app.New(ctx, stores, app.Options{
		Log:     log,
		Auth:    auth.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL},
		Sender:  queue,
		Mirrors: mirrors,
	})
	if err != nil {
		return err
	}
	if cfg.AdminEmail != "" {
		created, err := a.Auth.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info(ctx, "seeded admin account", "email", cfg.AdminEmail)
		}
	}

	srv := api.NewServer(api.Deps{
		Log:           log,
		Tracer:        tp.Tracer("stockflow"),
		Auth:          a.Auth,
		Stock:         a.Stock,
		Products:      a.Products,
		Packaging:     a.Packaging,
		Sales:         a.Sales,
		Subscriptions: a.Subscriptions,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(srv.Router(), "stockflow"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "listening", "addr", cfg.HTTPAddr, "tls", cfg.TLSCert != "")
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = httpSrv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(sctx)
		if !queue.Drain(sctx) {
			log.Warn(sctx, "webhook queue not drained", "pending", queue.Pending())
		}
		queue.Stop()
		log.Info(sctx, "shutdown complete", "dropped_webhooks", queue.Dropped())
		return err
	})
	return g.Wait()
}
