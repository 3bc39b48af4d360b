// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"invoice-portal/internal/config"
	"invoice-portal/internal/domain/ports/adapter"
	mailAdapters "invoice-portal/internal/infra/adapters/mail"
	payAdapters "invoice-portal/internal/infra/adapters/payment"
	"invoice-portal/internal/infra/api"
	pg "invoice-portal/internal/infra/db/postgres"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/infra/metrics"
	"invoice-portal/internal/infra/pdf"
	red "invoice-portal/internal/infra/redis"
	"invoice-portal/internal/infra/sched"
	"invoice-portal/internal/infra/security"
	"invoice-portal/internal/infra/worker"
	"invoice-portal/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted output)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Encryption ----
	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}
	creds := security.NewCredentialStore(encSvc, logger)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	accountRepo := pg.NewMerchantAccountRepoCacheDecorator(pg.NewMerchantAccountRepo(pool), redisClient, cfg.Redis.TTL, logger)
	linkRepo := pg.NewAccessLinkRepo(pool)

	// ---- Adapters ----
	gateways := payAdapters.NewStripeGatewayFactory(nil)
	renderer := pdf.NewInvoiceRenderer(pdf.WithCompression(*cfg.PDF.Compress))
	var mailer adapter.Mailer
	if cfg.Mail.Host != "" {
		mailer = mailAdapters.NewSMTPMailer(cfg.Mail, logger)
		logger.Info().Str("host", cfg.Mail.Host).Int("port", cfg.Mail.Port).Msg("mail: smtp")
	} else {
		mailer = mailAdapters.NewNoopMailer(logger, cfg.Runtime.Dev)
		logger.Warn().Msg("mail.host not set; access links are logged, not sent")
	}

	// ---- Background workers ----
	// tasks open merchant credentials, so the pool runs in a trusted context
	workers := worker.NewPool(cfg.Workers, logger)
	workers.Start(security.WithTrusted(ctx))
	defer workers.Stop()

	// ---- Use cases ----
	linkUC := usecase.NewAccessLinkUseCase(linkRepo, accountRepo, mailer, rateLimiter, usecase.LinkPolicy{
		SiteURL:       cfg.Server.SiteURL,
		TTL:           cfg.Links.TTL,
		RequestLimit:  cfg.Links.RequestLimit,
		RequestWindow: cfg.Links.RequestWindow,
	}, nil, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, creds, gateways, workers, logger)
	invoiceUC := usecase.NewInvoiceUseCase(linkUC, accountRepo, creds, gateways, renderer, txManager, logger)

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Security.JWTSecret, 0)
	srv := api.NewServer(accountUC, linkUC, invoiceUC, auth, cfg.Server.RequestTimeout, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// ---- Expired link purge ----
	purger := sched.NewLinkPurgeWorker(cfg.Links.PurgeInterval, linkUC, locker, logger)
	g.Go(func() error {
		if err := purger.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	go pg.ReportPoolStats(gctx, pool, 15*time.Second)

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("bye")
}
