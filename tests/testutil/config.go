// Package testutil provides test utilities and helpers for envvault tests.
//
// This package contains shared test infrastructure including a layout
// builder for envvault.yaml projects, logger helpers and fixture writers.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/envvault/internal/config"
)

// LayoutBuilder provides a fluent API for building a project on disk:
// envvault.yaml plus its environment and properties files.
//
// Example usage:
//
//	path := NewLayout(t).
//	    WithBase(nil).
//	    WithEnvironment("uat", config.Environment{
//	        EnvFile:     ".env.uat",
//	        Credentials: []string{"PORTAL_USERNAME"},
//	    }, map[string]string{"PORTAL_USERNAME": "alice"}).
//	    Build()
type LayoutBuilder struct {
	t       *testing.T
	root    string
	def     config.Definition
	baseSet bool
	base    map[string]string
}

// NewLayout creates a builder rooted at a fresh temporary directory. Env
// files go to <root>/environments and properties files to <root>/properties.
func NewLayout(t *testing.T) *LayoutBuilder {
	t.Helper()

	root := t.TempDir()
	return &LayoutBuilder{
		t:    t,
		root: root,
		def: config.Definition{
			Version:             0,
			Directory:           "environments",
			PropertiesDirectory: "properties",
			Base:                config.BaseFile{DisplayName: "BASE", File: ".env"},
			Environments:        make(map[string]config.Environment),
		},
	}
}

// Root returns the directory holding envvault.yaml.
func (b *LayoutBuilder) Root() string { return b.root }

// EnvDir returns the environment file directory.
func (b *LayoutBuilder) EnvDir() string { return filepath.Join(b.root, b.def.Directory) }

// PropertiesDir returns the properties file directory.
func (b *LayoutBuilder) PropertiesDir() string {
	return filepath.Join(b.root, b.def.PropertiesDirectory)
}

// WithBase writes the base environment file with values. A nil map still
// creates an empty file so keys can be saved into it.
func (b *LayoutBuilder) WithBase(values map[string]string) *LayoutBuilder {
	b.t.Helper()
	b.baseSet = true
	b.base = values
	return b
}

// WithKeyring enables the keyring key store under service.
func (b *LayoutBuilder) WithKeyring(service string) *LayoutBuilder {
	b.def.Keyring = &config.KeyringConfig{Service: service}
	return b
}

// WithEnvironment adds an environment and writes its env file with values.
func (b *LayoutBuilder) WithEnvironment(name string, env config.Environment, values map[string]string) *LayoutBuilder {
	b.t.Helper()
	b.def.Environments[name] = env
	WriteEnvFile(b.t, b.EnvDir(), env.EnvFile, values)
	return b
}

// WithProperties writes a properties file into the properties directory.
func (b *LayoutBuilder) WithProperties(file string, values map[string]string) *LayoutBuilder {
	b.t.Helper()
	WritePropertiesFile(b.t, b.PropertiesDir(), file, values)
	return b
}

// Build writes envvault.yaml and returns its path.
func (b *LayoutBuilder) Build() string {
	b.t.Helper()

	if b.baseSet {
		WriteEnvFile(b.t, b.EnvDir(), b.def.Base.File, b.base)
	}

	data, err := yaml.Marshal(&b.def)
	if err != nil {
		b.t.Fatalf("failed to marshal envvault.yaml: %v", err)
	}
	path := filepath.Join(b.root, config.DefaultPath)
	if err := os.WriteFile(path, data, 0600); err != nil {
		b.t.Fatalf("failed to write envvault.yaml: %v", err)
	}
	return path
}
