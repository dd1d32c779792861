package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
	dserrors "github.com/systmms/envvault/internal/errors"
)

// ErrDestroyed is returned when a destroyed buffer is opened.
var ErrDestroyed = errors.New("secure buffer destroyed")

// SecureBuffer holds secret bytes encrypted at rest in memory.
type SecureBuffer struct {
	enclave *memguard.Enclave
	size    int

	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer moves data into a new enclave. data is wiped on return,
// so callers that still need the bytes must pass a copy.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, dserrors.InvalidArgument("data", "must not be empty")
	}
	size := len(data)
	return &SecureBuffer{enclave: memguard.NewEnclave(data), size: size}, nil
}

// NewRandomBuffer creates an enclave holding size cryptographically random bytes.
func NewRandomBuffer(size int) (*SecureBuffer, error) {
	if size <= 0 {
		return nil, dserrors.InvalidArgument("size", "must be positive, got %d", size)
	}
	return &SecureBuffer{enclave: memguard.NewEnclaveRandom(size), size: size}, nil
}

// Size returns the length of the protected data.
func (s *SecureBuffer) Size() int {
	return s.size
}

// Open decrypts the enclave into a locked buffer. The caller must Destroy
// the returned buffer.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	return s.enclave.Open()
}

// Use opens the buffer, passes the plaintext to fn and wipes it afterwards.
// fn must not retain the slice.
func (s *SecureBuffer) Use(fn func(secret []byte) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy drops the enclave. Calling it more than once is safe.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}
