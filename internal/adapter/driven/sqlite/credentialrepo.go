package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo stores credentials in the credentials table, sealed with
// AES-256-GCM. The "service/key" pair is bound to each ciphertext as
// additional data, so a value copied onto another row fails to open.
type CredentialRepo struct {
	db      *DB
	aead    cipher.AEAD
	aeadErr error
}

// NewCredentialRepo returns a repo sealing values with the given 32-byte key.
// A nil key disables storage: reads and writes then fail with
// driven.ErrEncryptionKeyNotSet. Delete works either way.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	r := &CredentialRepo{db: db}
	if key == nil {
		r.aeadErr = driven.ErrEncryptionKeyNotSet
		return r
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		r.aeadErr = fmt.Errorf("credential key: %w", err)
		return r
	}
	r.aead, r.aeadErr = cipher.NewGCM(block)
	return r
}

// Set stores or replaces the credential identified by service and key.
func (r *CredentialRepo) Set(ctx context.Context, service, key, plaintext string) error {
	sealed, err := r.seal(service, key, plaintext)
	if err != nil {
		return err
	}

	_, err = r.db.Writer.ExecContext(ctx, `
		INSERT INTO credentials (service, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(service, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		service, key, sealed)
	if err != nil {
		return fmt.Errorf("set credential %s/%s: %w", service, key, err)
	}
	return nil
}

// Get returns the plaintext credential, or "" when none is stored.
func (r *CredentialRepo) Get(ctx context.Context, service, key string) (string, error) {
	if r.aeadErr != nil {
		return "", r.aeadErr
	}

	var sealed string
	err := r.db.Reader.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE service = ? AND key = ?`,
		service, key).Scan(&sealed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("get credential %s/%s: %w", service, key, err)
	}
	return r.open(service, key, sealed)
}

// List returns every stored credential, decrypted, ordered by service and key.
func (r *CredentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	if r.aeadErr != nil {
		return nil, r.aeadErr
	}

	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT id, service, key, value, updated_at FROM credentials ORDER BY service, key`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.Credential
	for rows.Next() {
		var (
			c         model.Credential
			sealed    string
			updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.Service, &c.Key, &sealed, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if c.Value, err = r.open(c.Service, c.Key, sealed); err != nil {
			return nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("credential %s/%s updated_at: %w", c.Service, c.Key, err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return creds, nil
}

// Delete removes the credential for the given service and key.
func (r *CredentialRepo) Delete(ctx context.Context, service, key string) error {
	_, err := r.db.Writer.ExecContext(ctx,
		`DELETE FROM credentials WHERE service = ? AND key = ?`, service, key)
	if err != nil {
		return fmt.Errorf("delete credential %s/%s: %w", service, key, err)
	}
	return nil
}

// seal returns base64(nonce || ciphertext || tag).
func (r *CredentialRepo) seal(service, key, plaintext string) (string, error) {
	if r.aeadErr != nil {
		return "", r.aeadErr
	}

	nonce := make([]byte, r.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("credential nonce: %w", err)
	}
	out := r.aead.Seal(nonce, nonce, []byte(plaintext), associatedData(service, key))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (r *CredentialRepo) open(service, key, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("credential %s/%s: %w", service, key, err)
	}

	n := r.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("credential %s/%s: ciphertext too short", service, key)
	}
	plaintext, err := r.aead.Open(nil, data[:n], data[n:], associatedData(service, key))
	if err != nil {
		return "", fmt.Errorf("decrypt credential %s/%s: %w", service, key, err)
	}
	return string(plaintext), nil
}

func associatedData(service, key string) []byte {
	return []byte(service + "/" + key)
}
