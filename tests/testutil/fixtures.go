package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// WriteEnvFile writes a dotenv file named name into dir and returns its path.
// Keys are written in sorted order, one KEY=value per line.
func WriteEnvFile(t *testing.T, dir, name string, values map[string]string) string {
	t.Helper()
	return writeLines(t, dir, name, values, "=")
}

// WritePropertiesFile writes a .properties file named name into dir and returns its path.
func WritePropertiesFile(t *testing.T, dir, name string, values map[string]string) string {
	t.Helper()
	return writeLines(t, dir, name, values, " = ")
}

// WriteFile writes raw content into dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", path, err)
	}
	return path
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func writeLines(t *testing.T, dir, name string, values map[string]string, sep string) string {
	t.Helper()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(sep)
		b.WriteString(values[k])
		b.WriteString("\n")
	}
	return WriteFile(t, dir, name, b.String())
}
