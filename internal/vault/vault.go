// Package vault moves named credentials between plaintext and ciphertext
// inside environment files.
//
// Encrypted values are stored as base64(nonce || ciphertext || tag) under
// "<NAME>_ENCRYPTED" and the plaintext entry is removed from the file. The
// credential name is bound to the ciphertext as associated data, so a value
// copied to another variable will not decrypt.
//
// Writes to one file are serialized inside a process. Two processes
// encrypting the same file at once can still lose an update.
package vault

import (
	"encoding/base64"
	"fmt"

	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/keys"
	"github.com/systmms/envvault/internal/logging"
	"github.com/systmms/envvault/internal/metrics"
	"github.com/systmms/envvault/internal/registry"
	"github.com/systmms/envvault/internal/source"
)

// DefaultSuffix is appended to a credential name to form its ciphertext variable.
const DefaultSuffix = "_ENCRYPTED"

// Vault encrypts and decrypts credentials in sources obtained from a registry.
type Vault struct {
	envs   *registry.Registry
	stores []keys.Store
	logger *logging.Logger
	suffix string
}

// Option configures a Vault.
type Option func(*Vault)

// WithKeyStores adds stores consulted for the secret key after the
// credential's own source.
func WithKeyStores(stores ...keys.Store) Option {
	return func(v *Vault) { v.stores = append(v.stores, stores...) }
}

// WithLogger sets the vault logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Vault) { v.logger = l }
}

// WithSuffix changes the ciphertext variable suffix.
func WithSuffix(suffix string) Option {
	return func(v *Vault) {
		if suffix != "" {
			v.suffix = suffix
		}
	}
}

// New creates a vault over envs.
func New(envs *registry.Registry, opts ...Option) *Vault {
	v := &Vault{envs: envs, suffix: DefaultSuffix}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// EncryptedName returns the variable a credential's ciphertext is stored under.
func (v *Vault) EncryptedName(name string) string {
	return name + v.suffix
}

// EncryptEnvironmentVariables encrypts each named credential with the key
// found under keyVariable and writes the results back to the file.
//
// Every credential is encrypted before anything is written. If any of them
// fails, the returned *errors.CryptoError names it and the file is untouched.
func (v *Vault) EncryptEnvironmentVariables(displayName, fileIdentifier, keyVariable string, names ...string) (err error) {
	defer func() { metrics.RecordVaultOperation("encrypt", err) }()

	if err := validateNames(names); err != nil {
		return dserrors.Report(v.logger, "encryptEnvironmentVariables", displayName, err)
	}
	src, key, err := v.open(displayName, fileIdentifier, keyVariable)
	if err != nil {
		return err
	}
	defer key.Destroy()

	set := make(map[string]string, len(names))
	for _, name := range names {
		plaintext, err := src.Get(name)
		if err != nil {
			return v.cryptoError("encrypt", name, err)
		}
		sealed, err := key.Seal([]byte(plaintext), []byte(name))
		if err != nil {
			return v.cryptoError("encrypt", name, err)
		}
		set[v.EncryptedName(name)] = base64.StdEncoding.EncodeToString(sealed)
		v.logger.Debug("Encrypted '%s' (%s)", name, logging.Secret(plaintext))
	}

	if err := src.Update(set, names); err != nil {
		return err
	}
	v.logger.Info("Encrypted %d credential(s) in configuration '%s'", len(names), displayName)
	return nil
}

// DecryptEnvironmentVariables returns the plaintext of each named credential,
// in the order the names were given. Nothing is returned if any one fails.
func (v *Vault) DecryptEnvironmentVariables(displayName, fileIdentifier, keyVariable string, names ...string) (values []string, err error) {
	defer func() { metrics.RecordVaultOperation("decrypt", err) }()

	if err := validateNames(names); err != nil {
		return nil, dserrors.Report(v.logger, "decryptEnvironmentVariables", displayName, err)
	}
	src, key, err := v.open(displayName, fileIdentifier, keyVariable)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	values = make([]string, 0, len(names))
	for _, name := range names {
		encoded, err := src.Get(v.EncryptedName(name))
		if err != nil {
			return nil, v.cryptoError("decrypt", name, err)
		}
		sealed, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, v.cryptoError("decrypt", name, fmt.Errorf("%w: %v", dserrors.ErrMalformedValue, err))
		}
		plaintext, err := key.Open(sealed, []byte(name))
		if err != nil {
			return nil, v.cryptoError("decrypt", name, err)
		}
		values = append(values, string(plaintext))
	}

	v.logger.Debug("Decrypted %d credential(s) from configuration '%s'", len(names), displayName)
	return values, nil
}

// GenerateKey creates a new secret key and saves it under keyVariable. With a
// nil store the key goes into the (displayName, fileIdentifier) source. An
// existing key is only replaced when overwrite is set.
func (v *Vault) GenerateKey(displayName, fileIdentifier, keyVariable string, store keys.Store, overwrite bool) (err error) {
	defer func() { metrics.RecordVaultOperation("keygen", err) }()

	if keyVariable == "" {
		return dserrors.Report(v.logger, "generateSecretKey", displayName,
			dserrors.InvalidArgument("keyVariable", "must not be empty"))
	}
	if store == nil {
		src, err := v.envs.GetConfiguration(displayName, fileIdentifier)
		if err != nil {
			return err
		}
		store = keys.SourceStore{Source: src}
	}

	if !overwrite {
		if _, err := store.Load(keyVariable); err == nil {
			return dserrors.Report(v.logger, "generateSecretKey", keyVariable, dserrors.UserError{
				Message:    fmt.Sprintf("Secret key '%s' already exists in %s", keyVariable, store.Name()),
				Suggestion: "Re-run with --force to replace it. Credentials encrypted with the old key will no longer decrypt",
				Err:        ErrKeyExists,
			})
		}
	}

	key, err := keys.Generate()
	if err != nil {
		return dserrors.Report(v.logger, "generateSecretKey", keyVariable, err)
	}
	defer key.Destroy()

	encoded, err := keys.Encode(key)
	if err != nil {
		return dserrors.Report(v.logger, "generateSecretKey", keyVariable, err)
	}
	if err := store.Save(keyVariable, encoded); err != nil {
		return dserrors.Report(v.logger, "generateSecretKey", keyVariable, err)
	}
	v.logger.Info("Saved secret key '%s' to %s", keyVariable, store.Name())
	return nil
}

// ResolveKey finds the secret key for a source: the source itself first
// (so an exported variable wins), then the configured stores.
func (v *Vault) ResolveKey(src source.Source, keyVariable string) (*keys.SecretKey, error) {
	stores := append([]keys.Store{keys.SourceStore{Source: src}}, v.stores...)
	key, from, err := keys.Resolve(keyVariable, stores...)
	if err != nil {
		return nil, dserrors.Report(v.logger, "decodeSecretKey", keyVariable, err)
	}
	v.logger.Debug("Using secret key '%s' from %s", keyVariable, from.Name())
	return key, nil
}

func (v *Vault) open(displayName, fileIdentifier, keyVariable string) (source.Source, *keys.SecretKey, error) {
	if keyVariable == "" {
		return nil, nil, dserrors.Report(v.logger, "resolveSecretKey", displayName,
			dserrors.InvalidArgument("keyVariable", "must not be empty"))
	}
	src, err := v.envs.GetConfiguration(displayName, fileIdentifier)
	if err != nil {
		return nil, nil, err
	}
	key, err := v.ResolveKey(src, keyVariable)
	if err != nil {
		return nil, nil, err
	}
	return src, key, nil
}

func (v *Vault) cryptoError(op, name string, err error) error {
	return dserrors.Report(v.logger, op, name, &dserrors.CryptoError{Op: op, Credential: name, Err: err})
}

func validateNames(names []string) error {
	if len(names) == 0 {
		return dserrors.InvalidArgument("credentialNames", "at least one credential name is required")
	}
	for i, name := range names {
		if name == "" {
			return dserrors.InvalidArgument("credentialNames", "name at position %d is empty", i)
		}
	}
	return nil
}
