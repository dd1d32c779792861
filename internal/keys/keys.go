// Package keys generates, encodes and uses the AES-256-GCM keys that protect
// credentials at rest.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/secure"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length prepended to every ciphertext.
	NonceSize = 12
)

// SecretKey is an AES-256 key held in a memguard enclave.
type SecretKey struct {
	buf *secure.SecureBuffer
}

// Generate creates a new random key.
func Generate() (*SecretKey, error) {
	buf, err := secure.NewRandomBuffer(KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}
	return &SecretKey{buf: buf}, nil
}

// FromBytes wraps raw key bytes. raw is wiped.
func FromBytes(raw []byte) (*SecretKey, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", dserrors.ErrInvalidKeyEncoding, KeySize, len(raw))
	}
	buf, err := secure.NewSecureBuffer(raw)
	if err != nil {
		return nil, err
	}
	return &SecretKey{buf: buf}, nil
}

// Decode parses a standard base64 key as produced by Encode.
func Decode(text string) (*SecretKey, error) {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dserrors.ErrInvalidKeyEncoding, err)
	}
	return FromBytes(raw)
}

// Encode returns the key as standard base64 text.
func Encode(key *SecretKey) (string, error) {
	if key == nil {
		return "", dserrors.InvalidArgument("key", "must not be nil")
	}
	var text string
	err := key.buf.Use(func(raw []byte) error {
		text = base64.StdEncoding.EncodeToString(raw)
		return nil
	})
	return text, err
}

// Seal encrypts plaintext with a fresh random nonce and binds it to aad.
// The result is nonce || ciphertext || tag.
func (k *SecretKey) Seal(plaintext, aad []byte) ([]byte, error) {
	var out []byte
	err := k.withGCM(func(gcm cipher.AEAD) error {
		nonce := make([]byte, gcm.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return fmt.Errorf("failed to generate nonce: %w", err)
		}
		out = gcm.Seal(nonce, nonce, plaintext, aad)
		return nil
	})
	return out, err
}

// Open reverses Seal. A wrong key, altered ciphertext or different aad
// all fail authentication.
func (k *SecretKey) Open(sealed, aad []byte) ([]byte, error) {
	var out []byte
	err := k.withGCM(func(gcm cipher.AEAD) error {
		if len(sealed) < gcm.NonceSize()+gcm.Overhead() {
			return fmt.Errorf("%w: ciphertext too short", dserrors.ErrMalformedValue)
		}
		nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
		plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
		if err != nil {
			return fmt.Errorf("failed to decrypt: %w", err)
		}
		out = plaintext
		return nil
	})
	return out, err
}

// Destroy releases the key material. The key cannot be used afterwards.
func (k *SecretKey) Destroy() {
	if k != nil && k.buf != nil {
		k.buf.Destroy()
	}
}

func (k *SecretKey) withGCM(fn func(cipher.AEAD) error) error {
	if k == nil || k.buf == nil {
		return dserrors.InvalidArgument("key", "must not be nil")
	}
	return k.buf.Use(func(raw []byte) error {
		block, err := aes.NewCipher(raw)
		if err != nil {
			return fmt.Errorf("failed to create cipher: %w", err)
		}
		gcm, err := cipher.NewGCMWithNonceSize(block, NonceSize)
		if err != nil {
			return fmt.Errorf("failed to create GCM: %w", err)
		}
		return fn(gcm)
	})
}
