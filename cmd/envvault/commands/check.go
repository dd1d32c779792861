package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/envvault/internal/config"
	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/logging"
	"github.com/systmms/envvault/internal/source"
)

// CheckResult is the outcome of one check step.
type CheckResult struct {
	Name   string
	Status string
	Detail string
}

func NewCheckCommand(cfg *config.Config) *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify an environment's files, key and credentials",
		Long: `Verify that an environment is usable without printing any values.

This command checks:
- The environment file loads
- The properties file loads, when one is configured
- The secret key resolves and decodes
- Every configured credential decrypts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg, envName)
			if err != nil {
				return err
			}

			results := runChecks(rt)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
			failed := 0
			for _, r := range results {
				if r.Status != "ok" {
					failed++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, r.Detail)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return dserrors.UserError{
					Message:    fmt.Sprintf("%d of %d checks failed for environment '%s'", failed, len(results), envName),
					Suggestion: "Re-run with --debug for details",
				}
			}
			cfg.Logger.Info("Environment '%s' is ready", envName)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	_ = cmd.MarkFlagRequired("env")
	registerEnvCompletion(cmd, cfg)

	return cmd
}

func runChecks(rt *runtime) []CheckResult {
	var (
		results []CheckResult
		secrets []string
	)
	logger := rt.cfg.Logger
	add := func(name string, err error, okDetail string) bool {
		if err != nil {
			if logger.DebugEnabled() {
				logger.Debug("check %s: %s", name, logging.Redact(err.Error(), secrets))
			}
			results = append(results, CheckResult{Name: name, Status: "error", Detail: checkDetail(err, secrets)})
			return false
		}
		results = append(results, CheckResult{Name: name, Status: "ok", Detail: okDetail})
		return true
	}

	src, err := rt.environmentSource()
	if !add("environment file", err, rt.env.EnvFile) {
		return results
	}
	secrets = plaintextValues(src, append([]string{rt.env.SecretKeyVariable}, rt.env.Credentials...))
	if rt.env.PropertiesFile != "" {
		_, err := rt.propertiesSource()
		add("properties file", err, rt.env.PropertiesFile)
	}

	key, err := rt.vault.ResolveKey(src, rt.env.SecretKeyVariable)
	if !add("secret key", err, rt.env.SecretKeyVariable) {
		return results
	}
	key.Destroy()

	// Decrypt one at a time so every broken credential is listed.
	for _, name := range rt.env.Credentials {
		_, err := rt.vault.DecryptEnvironmentVariables(rt.env.DisplayName, rt.env.EnvFile, rt.env.SecretKeyVariable, name)
		add("credential "+name, err, rt.vault.EncryptedName(name))
	}
	return results
}

// plaintextValues returns the values currently set for names, skipping any
// that are missing.
func plaintextValues(src source.Source, names []string) []string {
	var values []string
	for _, name := range names {
		if v, err := src.Get(name); err == nil {
			values = append(values, v)
		}
	}
	return values
}

// checkDetail is the table detail for a failed check with secrets masked.
func checkDetail(err error, secrets []string) string {
	return logging.Redact(summary(err), secrets)
}

// summary returns the first line of the user-facing form of err.
func summary(err error) string {
	line, _, _ := strings.Cut(dserrors.SimplifyError(err).Error(), "\n")
	return line
}
