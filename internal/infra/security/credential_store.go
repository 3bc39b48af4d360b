package security

import (
	"context"
	"fmt"

	"invoice-portal/internal/domain"
	"invoice-portal/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.CredentialStore = (*CredentialStore)(nil)

type trustedKey struct{}

// WithTrusted marks ctx as running inside the server process, where merchant
// credentials may be opened.
func WithTrusted(ctx context.Context) context.Context {
	return context.WithValue(ctx, trustedKey{}, true)
}

// IsTrusted reports whether ctx was marked by WithTrusted.
func IsTrusted(ctx context.Context) bool {
	v, _ := ctx.Value(trustedKey{}).(bool)
	return v
}

// CredentialStore guards EncryptionService with the trusted-context check and
// collapses every failure into domain.ErrCredential.
type CredentialStore struct {
	enc *EncryptionService
	log *zerolog.Logger
}

func NewCredentialStore(enc *EncryptionService, logger *zerolog.Logger) *CredentialStore {
	l := logger.With().Str("component", "CredentialStore").Logger()
	return &CredentialStore{enc: enc, log: &l}
}

func (s *CredentialStore) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if !IsTrusted(ctx) {
		return "", domain.ErrUntrustedContext
	}
	if plaintext == "" {
		return "", domain.ErrInvalidArgument
	}
	ct, err := s.enc.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCredential, err)
	}
	return ct, nil
}

func (s *CredentialStore) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if !IsTrusted(ctx) {
		return "", domain.ErrUntrustedContext
	}
	if ciphertext == "" {
		return "", domain.ErrCredential
	}
	pt, err := s.enc.Decrypt(ciphertext)
	if err != nil {
		s.log.Warn().Err(err).Msg("credential decryption failed")
		return "", domain.ErrCredential
	}
	return pt, nil
}
