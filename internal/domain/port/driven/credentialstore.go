package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// CIWATCH_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set CIWATCH_SECRET_KEY")

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the credential identified by service and key.
	// Returns ErrEncryptionKeyNotSet if the adapter was constructed without an encryption key.
	Set(ctx context.Context, service, key, plaintext string) error

	// Get retrieves the plaintext credential for the given service and key.
	// Returns ("", nil) if no credential exists.
	Get(ctx context.Context, service, key string) (string, error)

	// List returns all stored credentials. Values are decrypted plaintext.
	List(ctx context.Context) ([]model.Credential, error)

	// Delete removes the credential for the given service and key.
	Delete(ctx context.Context, service, key string) error
}
