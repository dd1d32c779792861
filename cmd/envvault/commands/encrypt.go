package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/envvault/internal/config"
)

func NewEncryptCommand(cfg *config.Config) *cobra.Command {
	var (
		envName  string
		varNames []string
	)

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt credentials in an environment file",
		Long: `Encrypt credentials in place.

Each credential NAME is replaced by NAME_ENCRYPTED holding the ciphertext.
All credentials are encrypted before the file is written, so a failure
leaves the file unchanged. Without --var the environment's configured
credentials are used.

Examples:
  envvault encrypt --env uat
  envvault encrypt --env uat --var PORTAL_PASSWORD`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg, envName)
			if err != nil {
				return err
			}
			names, err := rt.credentialNames(varNames)
			if err != nil {
				return err
			}

			if err := rt.vault.EncryptEnvironmentVariables(rt.env.DisplayName, rt.env.EnvFile, rt.env.SecretKeyVariable, names...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Encrypted %d credential(s) in %s\n", len(names), rt.env.EnvFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringArrayVar(&varNames, "var", nil, "Credential to encrypt (repeatable)")
	_ = cmd.MarkFlagRequired("env")
	registerEnvCompletion(cmd, cfg)

	return cmd
}
