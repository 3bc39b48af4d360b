//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/model"
	"invoice-portal/internal/domain/ports/adapter"
	"invoice-portal/internal/domain/ports/repository"
	"invoice-portal/internal/infra/security"
	"invoice-portal/internal/infra/worker"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func strPtr(s string) *string { return &s }

// trustedCtx is the context handlers run with inside the server process.
func trustedCtx() context.Context { return security.WithTrusted(context.Background()) }

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

func newTestCredentialStore(t *testing.T) *security.CredentialStore {
	t.Helper()
	enc, err := security.NewEncryptionService(testEncryptionKey)
	if err != nil {
		t.Fatalf("NewEncryptionService() error = %v", err)
	}
	return security.NewCredentialStore(enc, newTestLogger())
}

func mustEncrypt(t *testing.T, store adapter.CredentialStore, plaintext string) string {
	t.Helper()
	ct, err := store.Encrypt(trustedCtx(), plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	return ct
}

// testClock is a settable clock for expiry boundaries.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// -----------------------------
// Mock TxManager
// -----------------------------

type MockTxManager struct{}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// -----------------------------
// Mock MerchantAccountRepository
// -----------------------------

type MockMerchantAccountRepo struct {
	mu       sync.Mutex
	seq      int64
	accounts map[string]*model.MerchantAccount // "<user>/<account>"
	order    []string

	updates int
	ListErr error
}

var _ repository.MerchantAccountRepository = (*MockMerchantAccountRepo)(nil)

func NewMockMerchantAccountRepo() *MockMerchantAccountRepo {
	return &MockMerchantAccountRepo{accounts: make(map[string]*model.MerchantAccount)}
}

func accountKey(userID, accountID string) string { return userID + "/" + accountID }

func (m *MockMerchantAccountRepo) Save(ctx context.Context, tx repository.Tx, acc *model.MerchantAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := accountKey(acc.UserID, acc.StripeAccountID)
	if _, ok := m.accounts[k]; ok {
		return domain.ErrAlreadyExists
	}
	m.seq++
	acc.ID = m.seq
	cp := *acc
	m.accounts[k] = &cp
	m.order = append(m.order, k)
	return nil
}

func (m *MockMerchantAccountRepo) FindByUserAndAccount(ctx context.Context, tx repository.Tx, userID, accountID string) (*model.MerchantAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountKey(userID, accountID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockMerchantAccountRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.MerchantAccount, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.MerchantAccount, 0)
	for _, k := range m.order {
		if a, ok := m.accounts[k]; ok && a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockMerchantAccountRepo) UpdateDisplayMetadata(ctx context.Context, tx repository.Tx, userID, accountID, name string, icon *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountKey(userID, accountID)]
	if !ok {
		return domain.ErrNotFound
	}
	a.DisplayName = &name
	a.IconURL = icon
	m.updates++
	return nil
}

func (m *MockMerchantAccountRepo) Delete(ctx context.Context, tx repository.Tx, userID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := accountKey(userID, accountID)
	if _, ok := m.accounts[k]; !ok {
		return domain.ErrNotFound
	}
	delete(m.accounts, k)
	return nil
}

// -----------------------------
// Mock AccessLinkRepository
// -----------------------------

type MockAccessLinkRepo struct {
	mu    sync.Mutex
	seq   int64
	links map[string]*model.AccessLink

	FindErr error
}

var _ repository.AccessLinkRepository = (*MockAccessLinkRepo)(nil)

func NewMockAccessLinkRepo() *MockAccessLinkRepo {
	return &MockAccessLinkRepo{links: make(map[string]*model.AccessLink)}
}

func (m *MockAccessLinkRepo) Save(ctx context.Context, tx repository.Tx, l *model.AccessLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[l.Token]; ok {
		return domain.ErrAlreadyExists
	}
	m.seq++
	l.ID = m.seq
	cp := *l
	m.links[l.Token] = &cp
	return nil
}

func (m *MockAccessLinkRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.AccessLink, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *MockAccessLinkRepo) DeleteExpired(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, l := range m.links {
		if !l.ExpiresAt.After(cutoff) {
			delete(m.links, k)
			n++
		}
	}
	return n, nil
}

func (m *MockAccessLinkRepo) Tokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.links))
	for k := range m.links {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// -----------------------------
// Mock adapters
// -----------------------------

type MockMailer struct {
	mu   sync.Mutex
	Sent []adapter.AccessLinkMessage
	Err  error
}

func (m *MockMailer) SendAccessLink(ctx context.Context, msg adapter.AccessLinkMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

type MockRateLimiter struct {
	Allowed bool
	Err     error
	Keys    []string
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.Keys = append(m.Keys, key)
	return m.Allowed, m.Err
}

type MockRenderer struct {
	GotInvoice *model.Invoice
	GotKind    model.InvoiceKind
	GotCompany model.CompanyInfo
	Err        error
}

func (m *MockRenderer) Render(inv *model.Invoice, kind model.InvoiceKind, company model.CompanyInfo) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.GotInvoice, m.GotKind, m.GotCompany = inv, kind, company
	return []byte("%PDF-1.3 " + inv.ID), nil
}

func (m *MockRenderer) ContentType() string { return "application/pdf" }

// MockTaskSubmitter runs tasks inline so tests stay deterministic.
type MockTaskSubmitter struct {
	ctx       context.Context
	Submitted int
	Err       error
}

func (m *MockTaskSubmitter) Submit(task worker.Task) error {
	if m.Err != nil {
		return m.Err
	}
	m.Submitted++
	return task(m.ctx)
}

var errBoom = errors.New("boom")
