package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertSecretRedacted verifies that a secret value does not appear in output
// and that the [REDACTED] marker does.
//
// Example usage:
//
//	output := logs.String()
//	AssertSecretRedacted(t, output, "hunter22")
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker when secret is used")
}

// AssertFileContains verifies that a file exists and contains substr.
func AssertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	assert.Contains(t, ReadFile(t, path), substr)
}

// AssertFileNotContains verifies that a file exists and does not contain substr.
func AssertFileNotContains(t *testing.T, path, substr string) {
	t.Helper()
	assert.NotContains(t, ReadFile(t, path), substr)
}
