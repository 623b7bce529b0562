package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"graceparish.org/internal/audit"
	"graceparish.org/internal/auth"
	"graceparish.org/internal/config"
	"graceparish.org/internal/httpapi"
	"graceparish.org/internal/obs"
	"graceparish.org/internal/ratelimit"
	"graceparish.org/internal/site"
	"graceparish.org/internal/store/pg"
	"graceparish.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := pg.Open(cfg.BackendURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemory()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.NewRedis(rdb)
	}

	tokens, err := auth.NewTokens(cfg.AuthSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	accounts, err := auth.NewAccounts(store, store, tokens)
	if err != nil {
		log.Fatalf("accounts: %v", err)
	}
	gate := auth.NewGate(auth.NewResolver(
		auth.NewAdminAllowList(cfg.AdminEmails...),
		auth.StoreRoles{Store: store},
	))

	feed := stream.New[audit.Record](32)
	recorder := audit.NewRecorder(store, cfg.AuditQueue, audit.WithFeed(feed))
	go func() {
		for err := range recorder.Errors() {
			obs.Error("audit write dropped", map[string]any{"err": err})
		}
	}()

	svc, err := site.New(site.Deps{
		Backend:    store,
		Identities: store,
		Roles:      store,
		AuditLog:   store,
		Gate:       gate,
		Limiter:    limiter,
		Recorder:   recorder,
	})
	if err != nil {
		log.Fatalf("site: %v", err)
	}

	probe := httpapi.ReadyProbe{DB: store.DB()}
	api, err := httpapi.New(httpapi.Options{
		Version:    version,
		Readiness:  probe,
		Accounts:   accounts,
		Site:       svc,
		AuditFeed:  feed,
		APIKey:     cfg.APIKey,
		Origins:    cfg.AllowedOrigins,
		RatePerSec: cfg.IPRatePerSec,
		RateBurst:  cfg.IPRateBurst,
	})
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("grpc listen: %v", err)
	}
	grpcSrv := grpc.NewServer()
	httpapi.NewGRPCHealth(probe).Register(grpcSrv)

	obs.Info("starting graceparish-api", map[string]any{
		"version":   version,
		"http_addr": cfg.HTTPAddr,
		"grpc_addr": cfg.GRPCAddr,
		"redis":     rdb != nil,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()
	go func() {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	obs.Info("shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The SSE audit stream holds connections open; Shutdown waits up to the deadline.
	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	if err := recorder.Close(ctx); err != nil {
		obs.Warn("audit recorder did not drain", map[string]any{"err": err})
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = store.Close()
	obs.Info("stopped", nil)
}
