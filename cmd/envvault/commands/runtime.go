package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/systmms/envvault/internal/config"
	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/keys"
	"github.com/systmms/envvault/internal/registry"
	"github.com/systmms/envvault/internal/source"
	"github.com/systmms/envvault/internal/vault"
)

// runtime wires the registries and vault for one command invocation.
type runtime struct {
	cfg     *config.Config
	envName string
	env     config.Environment
	envs    *registry.Registry
	props   *registry.Registry
	vault   *vault.Vault
}

func newRuntime(cfg *config.Config, envName string) (*runtime, error) {
	if envName == "" {
		return nil, dserrors.UserError{
			Message:    "Environment name is required",
			Suggestion: "Use --env <environment-name> to specify an environment",
		}
	}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	env, err := cfg.GetEnvironment(envName)
	if err != nil {
		return nil, err
	}

	def := cfg.Definition
	rt := &runtime{
		cfg:     cfg,
		envName: envName,
		env:     env,
		envs:    registry.NewEnvironmentRegistry(def.Directory, cfg.Logger),
		props:   registry.NewPropertiesRegistry(def.PropertiesDirectory, cfg.Logger),
	}
	rt.vault = vault.New(rt.envs, vault.WithLogger(cfg.Logger), vault.WithKeyStores(rt.keyStores()...))
	return rt, nil
}

// keyStores lists where secret keys are looked up after the environment file:
// the base file when it exists, then the OS keyring when configured.
func (rt *runtime) keyStores() []keys.Store {
	var stores []keys.Store
	def := rt.cfg.Definition
	if def.Base.File != rt.env.EnvFile {
		if _, err := os.Stat(rt.basePath()); err == nil {
			if base, err := rt.envs.GetConfiguration(def.Base.DisplayName, def.Base.File); err == nil {
				stores = append(stores, keys.SourceStore{Source: base})
			}
		}
	}
	if def.Keyring != nil {
		stores = append(stores, keys.KeyringStore{Service: def.Keyring.Service})
	}
	return stores
}

func (rt *runtime) basePath() string {
	return filepath.Join(rt.cfg.Definition.Directory, rt.cfg.Definition.Base.File)
}

// environmentSource returns the dotenv source for the selected environment.
func (rt *runtime) environmentSource() (source.Source, error) {
	return rt.envs.GetConfiguration(rt.env.DisplayName, rt.env.EnvFile)
}

// propertiesSource returns the .properties source for the selected environment.
func (rt *runtime) propertiesSource() (source.Source, error) {
	if rt.env.PropertiesFile == "" {
		return nil, dserrors.ConfigError{
			Field:      "propertiesFile",
			Value:      rt.envName,
			Message:    "environment has no properties file",
			Suggestion: fmt.Sprintf("Add 'propertiesFile' to environment '%s' in envvault.yaml", rt.envName),
		}
	}
	return rt.props.GetConfiguration(rt.env.DisplayName, rt.env.PropertiesFile)
}

// credentialNames returns the names given on the command line, or the
// environment's configured credentials when none were given.
func (rt *runtime) credentialNames(flagNames []string) ([]string, error) {
	if len(flagNames) > 0 {
		return flagNames, nil
	}
	if len(rt.env.Credentials) == 0 {
		return nil, dserrors.UserError{
			Message:    fmt.Sprintf("No credentials configured for environment '%s'", rt.envName),
			Suggestion: "Pass --var NAME or list them under 'credentials' in envvault.yaml",
		}
	}
	return rt.env.Credentials, nil
}

// ensureFile creates an empty file at path if it does not exist yet.
func ensureFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if errors.Is(err, os.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return f.Close()
}
