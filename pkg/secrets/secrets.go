// Package secrets provides the reversible envelope encryption used for
// tenant client secrets at rest, plus process-start key resolution.
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "prism/pkg/domain-errors"
)

// envelopePrefix is the magic marker of this package's ciphertext format.
// Stored values without it are treated as legacy plaintext.
const envelopePrefix = "sbx1:"

// minEnvelopeLen guards IsEncrypted against short accidental prefix matches.
const minEnvelopeLen = 20

// Cipher encrypts and decrypts secret values with an AEAD derived from the
// process-wide key. One instance is created at startup and shared.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from arbitrary key material.
// The material is hashed to a fixed-size key, so env-provided passphrases and
// generated keys are both acceptable.
func NewCipher(keyMaterial string) (*Cipher, error) {
	if strings.TrimSpace(keyMaterial) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "cipher key material cannot be empty")
	}
	h := sha256.Sum256([]byte(keyMaterial))
	aead, err := chacha20poly1305.NewX(h[:])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not initialize cipher")
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext into the versioned envelope format.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return envelopePrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the plaintext from an envelope token.
// It fails soft: values that do not carry the envelope prefix are returned
// as-is (legacy plaintext), and tokens that cannot be opened yield the empty
// string. A broken secret degrades to "no credentials" downstream rather than
// failing the whole request.
func (c *Cipher) Decrypt(token string) string {
	if !IsEncrypted(token) {
		return token
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, envelopePrefix))
	if err != nil {
		return ""
	}
	if len(raw) < c.aead.NonceSize() {
		return ""
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ""
	}
	return string(plain)
}

// IsEncrypted reports whether a stored value matches this package's envelope
// format. Anything else is legacy plaintext awaiting migration.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, envelopePrefix) && len(value) > minEnvelopeLen
}

// Generate creates a cryptographically secure random key.
// Returns a base64-encoded string suitable for use as the process key.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate key")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ResolveKey returns the process key material, in order of precedence:
// an explicit key from configuration, the persisted key file, or a newly
// generated key written to that file for future runs. An existing key file
// is never overwritten — regenerating would make stored secrets
// permanently undecryptable.
func ResolveKey(explicit, keyFile string) (string, error) {
	if k := strings.TrimSpace(explicit); k != "" {
		return k, nil
	}
	if data, err := os.ReadFile(keyFile); err == nil {
		if k := strings.TrimSpace(string(data)); k != "" {
			return k, nil
		}
	}
	key, err := Generate()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(keyFile, []byte(key), 0o600); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not persist key file")
	}
	return key, nil
}
