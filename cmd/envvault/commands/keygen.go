package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/systmms/envvault/internal/config"
	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/keys"
)

func NewKeygenCommand(cfg *config.Config) *cobra.Command {
	var (
		envName   string
		storeName string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the secret key for an environment",
		Long: `Generate a new AES-256 secret key and save it under the environment's
secretKeyVariable.

By default the key is written to the base environment file (base.file in
envvault.yaml). Use --store keyring to keep it in the OS keychain instead.
An existing key is never replaced unless --force is given, because
credentials encrypted with the old key can no longer be decrypted.

Examples:
  # Save the UAT key in the base .env file
  envvault keygen --env uat

  # Keep the key in the OS keyring
  envvault keygen --env uat --store keyring`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg, envName)
			if err != nil {
				return err
			}
			def := cfg.Definition

			var store keys.Store
			switch storeName {
			case "file":
				if err := os.MkdirAll(def.Directory, 0o755); err != nil {
					return fmt.Errorf("failed to create environment directory: %w", err)
				}
				if err := ensureFile(rt.basePath()); err != nil {
					return fmt.Errorf("failed to create base environment file: %w", err)
				}
			case "keyring":
				if def.Keyring == nil {
					return dserrors.ConfigError{
						Field:      "keyring",
						Message:    "keyring store is not configured",
						Suggestion: "Add 'keyring: {service: envvault}' to envvault.yaml",
					}
				}
				store = keys.KeyringStore{Service: def.Keyring.Service}
			default:
				return dserrors.UserError{
					Message:    fmt.Sprintf("Unknown key store '%s'", storeName),
					Suggestion: "Use --store file or --store keyring",
				}
			}

			if err := rt.vault.GenerateKey(def.Base.DisplayName, def.Base.File, rt.env.SecretKeyVariable, store, force); err != nil {
				return err
			}

			where := filepath.Base(rt.basePath())
			if store != nil {
				where = store.Name()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %s in %s\n", rt.env.SecretKeyVariable, where)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&storeName, "store", "file", "Where to save the key: file or keyring")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing key")
	_ = cmd.MarkFlagRequired("env")
	registerEnvCompletion(cmd, cfg)

	return cmd
}
