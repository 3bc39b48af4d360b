//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/usecase"
)

var issuedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newLinkUC(links *MockAccessLinkRepo, accounts *MockMerchantAccountRepo, mailer *MockMailer, limiter usecase.RateLimiter, clock *testClock) usecase.AccessLinkUseCase {
	policy := usecase.LinkPolicy{
		SiteURL:       "https://portal.example.com/",
		RequestLimit:  3,
		RequestWindow: time.Hour,
	}
	return usecase.NewAccessLinkUseCase(links, accounts, mailer, limiter, policy, clock.Now, newTestLogger())
}

func TestAccessLinkUseCase_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("should store a trimmed link with the default lifetime", func(t *testing.T) {
		// --- Arrange ---
		links := NewMockAccessLinkRepo()
		uc := newLinkUC(links, NewMockMerchantAccountRepo(), &MockMailer{}, nil, newTestClock(issuedAt))

		// --- Act ---
		issued, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "  Ann@Example.com "})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if issued.Link.Email != "Ann@Example.com" {
			t.Errorf("expected trimmed email with its case kept, got %q", issued.Link.Email)
		}
		if want := issuedAt.Add(model.DefaultLinkTTL); !issued.Link.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, issued.Link.ExpiresAt)
		}
		if issued.URL != "https://portal.example.com/invoices/"+issued.Link.Token {
			t.Errorf("unexpected url %q", issued.URL)
		}
		if got := links.Tokens(); len(got) != 1 || got[0] != issued.Link.Token {
			t.Errorf("expected exactly the issued token stored, got %v", got)
		}
	})

	t.Run("should issue distinct tokens", func(t *testing.T) {
		links := NewMockAccessLinkRepo()
		uc := newLinkUC(links, NewMockMerchantAccountRepo(), &MockMailer{}, nil, newTestClock(issuedAt))

		a, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com"})
		if err != nil {
			t.Fatalf("first issue: %v", err)
		}
		b, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com"})
		if err != nil {
			t.Fatalf("second issue: %v", err)
		}
		if a.Link.Token == b.Link.Token {
			t.Error("expected two different tokens")
		}
	})

	t.Run("should reject a malformed email", func(t *testing.T) {
		uc := newLinkUC(NewMockAccessLinkRepo(), NewMockMerchantAccountRepo(), &MockMailer{}, nil, newTestClock(issuedAt))

		_, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "not-an-address"})

		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should refuse to scope a link to an account the user does not own", func(t *testing.T) {
		links := NewMockAccessLinkRepo()
		uc := newLinkUC(links, NewMockMerchantAccountRepo(), &MockMailer{}, nil, newTestClock(issuedAt))

		_, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com", AccountID: strPtr("acct_other")})

		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if len(links.Tokens()) != 0 {
			t.Error("expected no link stored")
		}
	})

	t.Run("should mail the link when asked to notify", func(t *testing.T) {
		mailer := &MockMailer{}
		uc := newLinkUC(NewMockAccessLinkRepo(), NewMockMerchantAccountRepo(), mailer, nil, newTestClock(issuedAt))

		issued, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com", TTL: 90 * 24 * time.Hour, Notify: true})

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(mailer.Sent) != 1 {
			t.Fatalf("expected one message, got %d", len(mailer.Sent))
		}
		if mailer.Sent[0].To != "ann@example.com" || mailer.Sent[0].LoginURL != issued.URL {
			t.Errorf("unexpected message %+v", mailer.Sent[0])
		}
		if want := issuedAt.Add(90 * 24 * time.Hour); !mailer.Sent[0].ExpiresAt.Equal(want) {
			t.Errorf("expected the mail to carry expiry %v, got %v", want, mailer.Sent[0].ExpiresAt)
		}
	})

	t.Run("should keep the link and report ErrDelivery when mail fails", func(t *testing.T) {
		links := NewMockAccessLinkRepo()
		mailer := &MockMailer{Err: errBoom}
		uc := newLinkUC(links, NewMockMerchantAccountRepo(), mailer, nil, newTestClock(issuedAt))

		issued, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com", Notify: true})

		if !errors.Is(err, domain.ErrDelivery) {
			t.Fatalf("expected ErrDelivery, got %v", err)
		}
		if issued == nil || len(links.Tokens()) != 1 {
			t.Error("expected the link to be stored despite the delivery failure")
		}
	})
}

func TestAccessLinkUseCase_Resolve(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, clock *testClock) (usecase.AccessLinkUseCase, *model.AccessLink) {
		t.Helper()
		uc := newLinkUC(NewMockAccessLinkRepo(), NewMockMerchantAccountRepo(), &MockMailer{}, nil, clock)
		issued, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com"})
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		return uc, issued.Link
	}

	t.Run("should be valid strictly before expiry", func(t *testing.T) {
		// --- Arrange ---
		clock := newTestClock(issuedAt)
		uc, link := issue(t, clock)

		// --- Act / Assert ---
		clock.Set(link.ExpiresAt.Add(-time.Second))
		if _, err := uc.Resolve(ctx, link.Token); err != nil {
			t.Errorf("expected link valid one second before expiry, got %v", err)
		}

		clock.Set(link.ExpiresAt)
		if _, err := uc.Resolve(ctx, link.Token); !errors.Is(err, domain.ErrLinkInvalid) {
			t.Errorf("expected ErrLinkInvalid at expiry, got %v", err)
		}
	})

	t.Run("should honour the seven day lifetime", func(t *testing.T) {
		clock := newTestClock(issuedAt)
		uc, link := issue(t, clock)

		clock.Set(issuedAt.Add(6 * 24 * time.Hour))
		if _, err := uc.Resolve(ctx, link.Token); err != nil {
			t.Errorf("expected valid after six days, got %v", err)
		}
		clock.Set(issuedAt.Add(8 * 24 * time.Hour))
		if _, err := uc.Resolve(ctx, link.Token); !errors.Is(err, domain.ErrLinkInvalid) {
			t.Errorf("expected invalid after eight days, got %v", err)
		}
	})

	t.Run("should resolve the same link repeatedly", func(t *testing.T) {
		uc, link := issue(t, newTestClock(issuedAt))

		first, err := uc.Resolve(ctx, link.Token)
		if err != nil {
			t.Fatalf("first resolve: %v", err)
		}
		second, err := uc.Resolve(ctx, link.Token)
		if err != nil {
			t.Fatalf("second resolve: %v", err)
		}
		if *first != *second {
			t.Errorf("expected identical links, got %+v and %+v", first, second)
		}
	})

	t.Run("should not distinguish missing from malformed tokens", func(t *testing.T) {
		uc, _ := issue(t, newTestClock(issuedAt))

		for _, token := range []string{"", "abc", "00000000-0000-4000-8000-000000000000"} {
			if _, err := uc.Resolve(ctx, token); !errors.Is(err, domain.ErrLinkInvalid) {
				t.Errorf("token %q: expected ErrLinkInvalid, got %v", token, err)
			}
		}
	})

	t.Run("should surface storage failures", func(t *testing.T) {
		links := NewMockAccessLinkRepo()
		links.FindErr = domain.ErrReadDatabaseRow
		uc := newLinkUC(links, NewMockMerchantAccountRepo(), &MockMailer{}, nil, newTestClock(issuedAt))

		_, err := uc.Resolve(ctx, "00000000-0000-4000-8000-000000000000")

		if !errors.Is(err, domain.ErrReadDatabaseRow) || errors.Is(err, domain.ErrLinkInvalid) {
			t.Errorf("expected the storage error, got %v", err)
		}
	})
}

func TestAccessLinkUseCase_RequestLink(t *testing.T) {
	ctx := context.Background()

	t.Run("should issue and mail a self-service link", func(t *testing.T) {
		// --- Arrange ---
		mailer := &MockMailer{}
		limiter := &MockRateLimiter{Allowed: true}
		uc := newLinkUC(NewMockAccessLinkRepo(), NewMockMerchantAccountRepo(), mailer, limiter, newTestClock(issuedAt))

		// --- Act ---
		err := uc.RequestLink(ctx, "user-1", "Ann@Example.com")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(mailer.Sent) != 1 {
			t.Fatalf("expected one message, got %d", len(mailer.Sent))
		}
		if len(limiter.Keys) != 1 || !strings.HasSuffix(limiter.Keys[0], ":user-1:ann@example.com") {
			t.Errorf("unexpected limiter keys %v", limiter.Keys)
		}
	})

	t.Run("should refuse when the limit is reached", func(t *testing.T) {
		mailer := &MockMailer{}
		links := NewMockAccessLinkRepo()
		uc := newLinkUC(links, NewMockMerchantAccountRepo(), mailer, &MockRateLimiter{Allowed: false}, newTestClock(issuedAt))

		err := uc.RequestLink(ctx, "user-1", "ann@example.com")

		if !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if len(mailer.Sent) != 0 || len(links.Tokens()) != 0 {
			t.Error("expected nothing issued or sent")
		}
	})

	t.Run("should proceed when the limiter is unavailable", func(t *testing.T) {
		mailer := &MockMailer{}
		uc := newLinkUC(NewMockAccessLinkRepo(), NewMockMerchantAccountRepo(), mailer, &MockRateLimiter{Err: errBoom}, newTestClock(issuedAt))

		if err := uc.RequestLink(ctx, "user-1", "ann@example.com"); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(mailer.Sent) != 1 {
			t.Errorf("expected one message, got %d", len(mailer.Sent))
		}
	})

	t.Run("should validate input before touching the limiter", func(t *testing.T) {
		limiter := &MockRateLimiter{Allowed: true}
		uc := newLinkUC(NewMockAccessLinkRepo(), NewMockMerchantAccountRepo(), &MockMailer{}, limiter, newTestClock(issuedAt))

		if err := uc.RequestLink(ctx, "user-1", "nope"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := uc.RequestLink(ctx, " ", "ann@example.com"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(limiter.Keys) != 0 {
			t.Errorf("expected limiter untouched, got %v", limiter.Keys)
		}
	})
}

func TestAccessLinkUseCase_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock(issuedAt)
	links := NewMockAccessLinkRepo()
	uc := newLinkUC(links, NewMockMerchantAccountRepo(), &MockMailer{}, nil, clock)

	short, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com", TTL: time.Hour})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	long, err := uc.Issue(ctx, usecase.IssueLinkInput{UserID: "user-1", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	n, err := uc.PurgeExpired(ctx, short.Link.ExpiresAt)

	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one link purged, got %d", n)
	}
	if got := links.Tokens(); len(got) != 1 || got[0] != long.Link.Token {
		t.Errorf("expected only the long-lived link to remain, got %v", got)
	}
}
