package adapter

import "context"

// CredentialStore seals and opens merchant API keys.
// Both operations fail with domain.ErrUntrustedContext unless ctx was marked trusted.
type CredentialStore interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	// Decrypt returns the plaintext or domain.ErrCredential; it never returns partial output.
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}
