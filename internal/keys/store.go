package keys

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/source"
)

// Store persists encoded keys under a variable name.
type Store interface {
	Name() string
	// Save writes encoded under variable, replacing any previous value.
	Save(variable, encoded string) error
	// Load returns the encoded key or an error wrapping ErrMissingKey.
	Load(variable string) (string, error)
}

// SourceStore keeps keys as plain variables in a configuration file,
// normally the base environment file.
type SourceStore struct {
	Source source.Source
}

func (s SourceStore) Name() string {
	return "file " + s.Source.Path()
}

func (s SourceStore) Save(variable, encoded string) error {
	if variable == "" {
		return dserrors.InvalidArgument("variable", "must not be empty")
	}
	return s.Source.Update(map[string]string{variable: encoded}, nil)
}

func (s SourceStore) Load(variable string) (string, error) {
	return s.Source.Get(variable)
}

// KeyringStore keeps keys in the OS keychain under Service.
type KeyringStore struct {
	Service string
}

func (s KeyringStore) Name() string {
	return "keyring " + s.Service
}

func (s KeyringStore) Save(variable, encoded string) error {
	if variable == "" {
		return dserrors.InvalidArgument("variable", "must not be empty")
	}
	if err := keyring.Set(s.Service, variable, encoded); err != nil {
		return fmt.Errorf("failed to store %s in keyring %s: %w", variable, s.Service, err)
	}
	return nil
}

func (s KeyringStore) Load(variable string) (string, error) {
	value, err := keyring.Get(s.Service, variable)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && value == "") {
		return "", dserrors.MissingKey(s.Name(), variable)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from keyring %s: %w", variable, s.Service, err)
	}
	return value, nil
}

// Resolve returns the first key found for variable across stores, in order.
func Resolve(variable string, stores ...Store) (*SecretKey, Store, error) {
	var errs []error
	for _, st := range stores {
		encoded, err := st.Load(variable)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
			continue
		}
		key, err := Decode(encoded)
		if err != nil {
			return nil, st, fmt.Errorf("secret key '%s' in %s: %w", variable, st.Name(), err)
		}
		return key, st, nil
	}
	if len(errs) == 0 {
		return nil, nil, dserrors.MissingKey("key stores", variable)
	}
	return nil, nil, errors.Join(errs...)
}
