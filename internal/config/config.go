// Package config loads envvault.yaml, which names the environments of a test
// suite and where their files and secret keys live.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/logging"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "envvault.yaml"

//go:embed schema.json
var schemaJSON []byte

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition is the envvault.yaml structure
type Definition struct {
	Version             int                    `yaml:"version"`
	Directory           string                 `yaml:"directory,omitempty"`
	PropertiesDirectory string                 `yaml:"propertiesDirectory,omitempty"`
	Base                BaseFile               `yaml:"base,omitempty"`
	Keyring             *KeyringConfig         `yaml:"keyring,omitempty"`
	Environments        map[string]Environment `yaml:"environments"`
}

// BaseFile is the environment file that holds generated secret keys.
type BaseFile struct {
	DisplayName string `yaml:"displayName,omitempty"`
	File        string `yaml:"file,omitempty"`
}

// KeyringConfig enables the OS keyring as an additional key store.
type KeyringConfig struct {
	Service string `yaml:"service"`
}

// Environment describes one logical test environment.
type Environment struct {
	DisplayName       string   `yaml:"displayName,omitempty"`
	EnvFile           string   `yaml:"envFile"`
	PropertiesFile    string   `yaml:"propertiesFile,omitempty"`
	SecretKeyVariable string   `yaml:"secretKeyVariable,omitempty"`
	Credentials       []string `yaml:"credentials,omitempty"`
}

// Load reads, validates and normalizes the configuration file
func (c *Config) Load() error {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create envvault.yaml or pass --config with its location",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if v, ok := raw["version"]; ok && v != 0 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      v,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your envvault.yaml file",
		}
	}
	if err := validate(raw); err != nil {
		return err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: err.Error(),
		}
	}
	def.applyDefaults(filepath.Dir(c.Path))

	c.Definition = &def
	c.Logger.Debug("Loaded %d environment(s) from %s", len(def.Environments), c.Path)
	return nil
}

func validate(raw map[string]interface{}) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	sort.Strings(problems)
	return dserrors.ConfigError{
		Field:      firstField(result.Errors()),
		Message:    "schema validation failed:\n  - " + strings.Join(problems, "\n  - "),
		Suggestion: "Every environment needs at least an envFile. See the envvault.yaml example in the README",
	}
}

func firstField(errs []gojsonschema.ResultError) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Field()
}

func (d *Definition) applyDefaults(configDir string) {
	if d.Directory == "" {
		d.Directory = "."
	}
	d.Directory = resolveDir(configDir, d.Directory)
	if d.PropertiesDirectory == "" {
		d.PropertiesDirectory = d.Directory
	} else {
		d.PropertiesDirectory = resolveDir(configDir, d.PropertiesDirectory)
	}
	if d.Base.DisplayName == "" {
		d.Base.DisplayName = "BASE"
	}
	if d.Base.File == "" {
		d.Base.File = ".env"
	}
	for name, env := range d.Environments {
		if env.DisplayName == "" {
			env.DisplayName = strings.ToUpper(name)
		}
		if env.SecretKeyVariable == "" {
			env.SecretKeyVariable = strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_SECRET_KEY"
		}
		d.Environments[name] = env
	}
}

func resolveDir(base, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}

// GetEnvironment returns the configuration for a specific environment
func (c *Config) GetEnvironment(name string) (Environment, error) {
	if c.Definition == nil {
		return Environment{}, dserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	env, ok := c.Definition.Environments[name]
	if !ok {
		suggestion := "Check your envvault.yaml for available environments"
		if available := c.EnvironmentNames(); len(available) > 0 {
			suggestion = fmt.Sprintf("Available environments: %s", strings.Join(available, ", "))
		}
		return Environment{}, dserrors.ConfigError{
			Field:      "environment",
			Value:      name,
			Message:    "environment not found",
			Suggestion: suggestion,
		}
	}
	return env, nil
}

// EnvironmentNames returns the configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	if c.Definition == nil {
		return nil
	}
	names := make([]string, 0, len(c.Definition.Environments))
	for name := range c.Definition.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
