package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the configuration and credential layers. Match with errors.Is.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrMissingKey            = errors.New("missing key")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrMalformedValue        = errors.New("malformed value")
	ErrInvalidKeyEncoding    = errors.New("invalid key encoding")
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ConfigurationError reports a failure to load or reload a configuration source.
type ConfigurationError struct {
	Op  string // "load" or "reload"
	Key string // displayName:fileIdentifier
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration %s failed for %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("configuration %s failed for %s", e.Op, e.Key)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CryptoError reports an encryption or decryption failure for a single credential.
type CryptoError struct {
	Op         string // "encrypt" or "decrypt"
	Credential string
	Err        error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed for credential %s: %v", e.Op, e.Credential, e.Err)
	}
	return fmt.Sprintf("%s failed for credential %s", e.Op, e.Credential)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// InvalidArgument builds an ErrInvalidArgument naming the offending parameter.
func InvalidArgument(param string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, param, fmt.Sprintf(format, args...))
}

// MissingKey builds an ErrMissingKey for key in the named configuration.
func MissingKey(configuration, key string) error {
	return fmt.Errorf("%w: '%s' not found or empty in configuration '%s'", ErrMissingKey, key, configuration)
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	var cryptoErr *CryptoError
	if errors.As(err, &cryptoErr) {
		return UserError{
			Message:    fmt.Sprintf("Could not %s credential '%s'", cryptoErr.Op, cryptoErr.Credential),
			Details:    rootErr.Error(),
			Suggestion: "Check that the secret key variable matches the key used for encryption",
			Err:        err,
		}
	}

	if errors.Is(err, ErrMissingKey) {
		return UserError{
			Message:    err.Error(),
			Suggestion: "Add the variable to the environment file or export it in your shell",
			Err:        err,
		}
	}

	// Simplify common technical errors
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Details:    err.Error(),
			Suggestion: "Verify the environment directory and file names in envvault.yaml",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
