package testutil

import (
	"os"
	"testing"
)

// SetupTestEnv sets process environment variables for the duration of a test.
//
// The original environment is restored automatically when the test completes.
// Tests using it must not call t.Parallel().
//
// Example usage:
//
//	SetupTestEnv(t, map[string]string{
//	    "PORTAL_USERNAME": "from-shell",
//	})
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	for key, value := range vars {
		t.Setenv(key, value)
	}
}

// UnsetTestEnv removes variables from the process environment for the
// duration of a test, so file values are not shadowed by a developer's shell.
func UnsetTestEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		// t.Setenv registers the restore and marks the test as non-parallel.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("Failed to unset environment variable %s: %v", key, err)
		}
	}
}

// NoEnv is a lookup function that reports every variable as unset. Pass it
// to source.WithEnvLookup in parallel tests instead of touching the real environment.
func NoEnv(string) (string, bool) { return "", false }

// EnvMap returns a lookup function backed by vars.
func EnvMap(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}
