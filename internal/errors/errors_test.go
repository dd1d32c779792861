package errors_test

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/logging"
)

func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Could not decrypt credentials",
		Details:    "cipher: message authentication failed",
		Suggestion: "Regenerate the key and re-encrypt",
	}

	msg := err.Error()
	assert.Contains(t, msg, "Could not decrypt credentials")
	assert.Contains(t, msg, "Details: cipher: message authentication failed")
	assert.Contains(t, msg, "Try: Regenerate the key")
}

func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "environments.uat.envFile",
		Value:      "",
		Message:    "must not be empty",
		Suggestion: "Set envFile to the dotenv file name",
	}

	msg := err.Error()
	assert.Contains(t, msg, "environments.uat.envFile")
	assert.Contains(t, msg, "must not be empty")
	assert.Contains(t, msg, "Set envFile")
}

func TestConfigurationErrorUnwraps(t *testing.T) {
	t.Parallel()

	err := &errors.ConfigurationError{Op: "load", Key: "UAT:.env.uat", Err: os.ErrNotExist}

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "configuration load failed for UAT:.env.uat")
}

func TestCryptoErrorCarriesCredential(t *testing.T) {
	t.Parallel()

	root := fmt.Errorf("cipher: message authentication failed")
	var wrapped error = fmt.Errorf("vault: %w", &errors.CryptoError{Op: "decrypt", Credential: "PORTAL_PASSWORD", Err: root})

	var cryptoErr *errors.CryptoError
	require.True(t, stderrors.As(wrapped, &cryptoErr))
	assert.Equal(t, "PORTAL_PASSWORD", cryptoErr.Credential)
	assert.ErrorIs(t, wrapped, root)
}

func TestSentinelHelpers(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, errors.InvalidArgument("displayName", "must not be empty"), errors.ErrInvalidArgument)

	missing := errors.MissingKey("UAT", "PORTAL_USERNAME")
	assert.ErrorIs(t, missing, errors.ErrMissingKey)
	assert.Contains(t, missing.Error(), "PORTAL_USERNAME")
	assert.Contains(t, missing.Error(), "UAT")
}

func TestReportLogsAndPropagates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)
	original := errors.MissingKey("UAT", "TIMEOUT")

	got := errors.Report(logger, "getProperty", "UAT:TIMEOUT", original)

	assert.Same(t, original, got)
	assert.Contains(t, buf.String(), "getProperty failed for UAT:TIMEOUT")
}

func TestReportNil(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.NoError(t, errors.Report(logging.NewWithWriter(&buf, false, true), "reload", "UAT:.env", nil))
	assert.Empty(t, buf.String())
}

func TestSimplifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "crypto error names credential",
			err:      &errors.CryptoError{Op: "decrypt", Credential: "PORTAL_PASSWORD", Err: fmt.Errorf("bad tag")},
			contains: "Could not decrypt credential 'PORTAL_PASSWORD'",
		},
		{
			name:     "missing key gets suggestion",
			err:      errors.MissingKey("UAT", "PORTAL_USERNAME"),
			contains: "export it in your shell",
		},
		{
			name:     "missing file",
			err:      fmt.Errorf("load: %w", fmt.Errorf("open .env.uat: no such file or directory")),
			contains: "File or directory not found",
		},
		{
			name:     "permission denied",
			err:      fmt.Errorf("open .env: permission denied"),
			contains: "Permission denied",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, errors.SimplifyError(tt.err).Error(), tt.contains)
		})
	}

	assert.Nil(t, errors.SimplifyError(nil))
	plain := fmt.Errorf("something else")
	assert.Equal(t, plain, errors.SimplifyError(plain))
}
