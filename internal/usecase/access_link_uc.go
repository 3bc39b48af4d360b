package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/adapter"
	"invoice-portal/internal/domain/ports/repository"
	"invoice-portal/internal/infra/logging"
	"invoice-portal/internal/infra/metrics"
	red "invoice-portal/internal/infra/redis"
)

// Compile-time check
var _ AccessLinkUseCase = (*accessLinkUC)(nil)

// AccessLinkUseCase issues and validates customer access links.
type AccessLinkUseCase interface {
	Issue(ctx context.Context, in IssueLinkInput) (*IssuedLink, error)
	// RequestLink is the customer self-service path; it is rate-limited and always notifies.
	RequestLink(ctx context.Context, userID, email string) error
	// Resolve returns a link strictly before its expiry. Missing and expired tokens both yield domain.ErrLinkInvalid.
	Resolve(ctx context.Context, token string) (*model.AccessLink, error)
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}

// RateLimiter is satisfied by the Redis fixed-window limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type IssueLinkInput struct {
	UserID    string
	Email     string
	AccountID *string       // nil: all of the user's accounts
	TTL       time.Duration // zero: policy default
	Origin    model.LinkOrigin
	Notify    bool
}

type IssuedLink struct {
	Link *model.AccessLink
	URL  string
}

// LinkPolicy carries the configurable parts of link issuance.
type LinkPolicy struct {
	SiteURL       string
	TTL           time.Duration
	RequestLimit  int
	RequestWindow time.Duration
}

type accessLinkUC struct {
	links    repository.AccessLinkRepository
	accounts repository.MerchantAccountRepository
	mailer   adapter.Mailer
	limiter  RateLimiter
	policy   LinkPolicy
	now      func() time.Time
	log      *zerolog.Logger
}

// NewAccessLinkUseCase wires the service. A nil clock means time.Now.
func NewAccessLinkUseCase(
	links repository.AccessLinkRepository,
	accounts repository.MerchantAccountRepository,
	mailer adapter.Mailer,
	limiter RateLimiter,
	policy LinkPolicy,
	clock func() time.Time,
	logger *zerolog.Logger,
) *accessLinkUC {
	if clock == nil {
		clock = time.Now
	}
	if policy.TTL <= 0 {
		policy.TTL = model.DefaultLinkTTL
	}
	policy.SiteURL = strings.TrimRight(policy.SiteURL, "/")
	l := logger.With().Str("component", "AccessLinkUC").Logger()
	return &accessLinkUC{
		links:    links,
		accounts: accounts,
		mailer:   mailer,
		limiter:  limiter,
		policy:   policy,
		now:      clock,
		log:      &l,
	}
}

func (uc *accessLinkUC) Issue(ctx context.Context, in IssueLinkInput) (*IssuedLink, error) {
	defer logging.TraceDuration(uc.log, "AccessLinkUC.Issue")()

	ttl := in.TTL
	if ttl <= 0 {
		ttl = uc.policy.TTL
	}
	origin := in.Origin
	if origin == "" {
		origin = model.LinkOriginMerchant
	}

	link, err := model.NewAccessLink(uuid.NewString(), in.Email, in.UserID, in.AccountID, ttl, uc.now())
	if err != nil {
		return nil, err
	}
	if link.Scoped() {
		// the issuer must own the account it scopes to
		if _, err := uc.accounts.FindByUserAndAccount(ctx, nil, link.UserID, *link.StripeAccountID); err != nil {
			return nil, err
		}
	}
	if err := uc.links.Save(ctx, nil, link); err != nil {
		return nil, fmt.Errorf("save access link: %w", err)
	}
	metrics.IncLinkIssued(string(origin))

	issued := &IssuedLink{Link: link, URL: uc.policy.SiteURL + "/invoices/" + link.Token}
	log := logging.With(logging.WithLinkID(ctx, link.ID), uc.log)
	log.Info().
		Str("origin", string(origin)).
		Str("email", logging.Redact(link.Email, false)).
		Time("expires_at", link.ExpiresAt).
		Msg("access link issued")

	if in.Notify {
		msg := adapter.AccessLinkMessage{To: link.Email, LoginURL: issued.URL, ExpiresAt: link.ExpiresAt}
		if err := uc.mailer.SendAccessLink(ctx, msg); err != nil {
			log.Error().Err(err).Msg("access link delivery failed")
			if !errors.Is(err, domain.ErrDelivery) {
				err = fmt.Errorf("%w: %v", domain.ErrDelivery, err)
			}
			return issued, err
		}
	}
	return issued, nil
}

func (uc *accessLinkUC) RequestLink(ctx context.Context, userID, email string) error {
	normalized, err := model.NormalizeEmail(email)
	if err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidArgument
	}

	if uc.limiter != nil && uc.policy.RequestLimit > 0 {
		ok, err := uc.limiter.Allow(ctx, red.LinkRequestKey(userID, normalized), uc.policy.RequestLimit, uc.policy.RequestWindow)
		if err != nil {
			// fail open: a cache outage must not lock customers out
			logging.With(ctx, uc.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			return domain.ErrRateLimited
		}
	}

	_, err = uc.Issue(ctx, IssueLinkInput{
		UserID: userID,
		Email:  normalized,
		Origin: model.LinkOriginSelfService,
		Notify: true,
	})
	return err
}

func (uc *accessLinkUC) Resolve(ctx context.Context, token string) (*model.AccessLink, error) {
	token = strings.TrimSpace(token)
	if _, err := uuid.Parse(token); err != nil {
		metrics.IncLinkResolution("missing")
		return nil, domain.ErrLinkInvalid
	}

	link, err := uc.links.FindByToken(ctx, nil, token)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncLinkResolution("missing")
		return nil, domain.ErrLinkInvalid
	}
	if err != nil {
		metrics.IncLinkResolution("error")
		return nil, fmt.Errorf("find access link: %w", err)
	}
	if !link.ValidAt(uc.now()) {
		metrics.IncLinkResolution("expired")
		logging.With(logging.WithLinkID(ctx, link.ID), uc.log).Debug().Time("expires_at", link.ExpiresAt).Msg("expired link presented")
		return nil, domain.ErrLinkInvalid
	}
	metrics.IncLinkResolution("valid")
	return link, nil
}

func (uc *accessLinkUC) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	n, err := uc.links.DeleteExpired(ctx, nil, before)
	if err != nil {
		return 0, err
	}
	metrics.IncLinksPurged(n)
	return n, nil
}
