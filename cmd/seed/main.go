// File: cmd/seed/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"invoice-portal/internal/config"
	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	mailAdapters "invoice-portal/internal/infra/adapters/mail"
	payAdapters "invoice-portal/internal/infra/adapters/payment"
	"invoice-portal/internal/infra/api"
	pg "invoice-portal/internal/infra/db/postgres"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/infra/security"
	"invoice-portal/internal/usecase"
)

// seed links a merchant account and optionally issues an access link, for local testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	userID := flag.String("user", "", "platform user id owning the account (required)")
	apiKey := flag.String("key", "", "Stripe secret key to link")
	email := flag.String("email", "", "customer email to issue an access link for")
	ttl := flag.Duration("ttl", model.DefaultLinkTTL, "access link lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = security.WithTrusted(ctx)

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}
	accountRepo := pg.NewMerchantAccountRepo(pool)
	accountUC := usecase.NewAccountUseCase(accountRepo, security.NewCredentialStore(encSvc, logger), payAdapters.NewStripeGatewayFactory(nil), nil, logger)

	if *apiKey != "" {
		acc, err := accountUC.Link(ctx, *userID, *apiKey)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			fmt.Println("account already linked. No changes.")
		case err != nil:
			log.Fatalf("link account: %v", err)
		default:
			fmt.Printf("linked %s (%s)\n", acc.StripeAccountID, deref(acc.DisplayName))
		}
	}

	accounts, err := accountUC.List(ctx, *userID)
	if err != nil {
		log.Fatalf("list accounts: %v", err)
	}
	fmt.Printf("%d account(s) linked for %s\n", len(accounts), *userID)
	for _, a := range accounts {
		fmt.Printf("  - %s (%s)\n", a.StripeAccountID, deref(a.DisplayName))
	}

	token, err := api.NewAuthManager(cfg.Security.JWTSecret, 24*time.Hour).Mint(*userID)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Printf("merchant bearer token (24h): %s\n", token)

	if *email == "" {
		return
	}
	linkUC := usecase.NewAccessLinkUseCase(pg.NewAccessLinkRepo(pool), accountRepo, mailAdapters.NewNoopMailer(logger, true), nil,
		usecase.LinkPolicy{SiteURL: cfg.Server.SiteURL, TTL: cfg.Links.TTL}, nil, logger)
	issued, err := linkUC.Issue(ctx, usecase.IssueLinkInput{UserID: *userID, Email: *email, TTL: *ttl})
	if err != nil {
		log.Fatalf("issue link: %v", err)
	}
	fmt.Printf("access link token: %s\n", issued.Link.Token)
	fmt.Printf("url: %s (expires %s)\n", issued.URL, issued.Link.ExpiresAt.Format(time.RFC3339))
}

func deref(s *string) string {
	if s == nil {
		return "no name yet"
	}
	return *s
}
