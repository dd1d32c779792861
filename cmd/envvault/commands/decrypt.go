package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/envvault/internal/config"
)

type decryptedCredential struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func NewDecryptCommand(cfg *config.Config) *cobra.Command {
	var (
		envName    string
		varNames   []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Print decrypted credentials",
		Long: `Decrypt credentials and print them in the order requested.

The file is not modified. Output is NAME=value lines, or a JSON array with
--json. Without --var the environment's configured credentials are used.

Examples:
  envvault decrypt --env uat --var PORTAL_USERNAME --var PORTAL_PASSWORD
  envvault decrypt --env uat --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg, envName)
			if err != nil {
				return err
			}
			names, err := rt.credentialNames(varNames)
			if err != nil {
				return err
			}

			values, err := rt.vault.DecryptEnvironmentVariables(rt.env.DisplayName, rt.env.EnvFile, rt.env.SecretKeyVariable, names...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				result := make([]decryptedCredential, len(names))
				for i, name := range names {
					result[i] = decryptedCredential{Name: name, Value: values[i]}
				}
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(result); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
				return nil
			}

			for i, name := range names {
				fmt.Fprintf(out, "%s=%s\n", name, values[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringArrayVar(&varNames, "var", nil, "Credential to decrypt (repeatable, order is kept)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output a JSON array")
	_ = cmd.MarkFlagRequired("env")
	registerEnvCompletion(cmd, cfg)

	return cmd
}
