package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/envvault/internal/config"
	"github.com/systmms/envvault/internal/convert"
	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/source"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		envName      string
		varName      string
		defaultValue string
		typeName     string
		properties   bool
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a single configuration value",
		Long: `Retrieve and display a single configuration value.

Lookups follow the same precedence as the library: an exported, non-empty
process environment variable wins over the file. By default only the raw
value is printed, making it suitable for scripting.

Examples:
  # Get a value from the environment file
  envvault get --env uat --var BASE_URL

  # Read from the environment's .properties file
  envvault get --env uat --var CHROME_BROWSER --properties

  # Fall back to a default and check the type
  envvault get --env uat --var TIMEOUT --default 10 --type int`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if varName == "" {
				return dserrors.UserError{
					Message:    "Variable name is required",
					Suggestion: "Use --var <variable-name> to specify which variable to get",
				}
			}
			rt, err := newRuntime(cfg, envName)
			if err != nil {
				return err
			}

			var src source.Source
			if properties {
				src, err = rt.propertiesSource()
			} else {
				src, err = rt.environmentSource()
			}
			if err != nil {
				return err
			}

			var value string
			if cmd.Flags().Changed("default") {
				value = src.GetOrDefault(varName, defaultValue)
			} else if value, err = src.Get(varName); err != nil {
				return err
			}

			var typed any = value
			if typeName != "" {
				kind, err := convert.ParseKind(typeName)
				if err != nil {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Unknown type '%s'", typeName),
						Suggestion: "Use one of: string, int, int64, float, bool, duration",
						Err:        err,
					}
				}
				if typed, err = convert.Convert(value, kind); err != nil {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Variable '%s' is not a valid %s", varName, kind),
						Suggestion: fmt.Sprintf("Check the value of '%s' in %s", varName, src.Path()),
						Err:        err,
					}
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				output := map[string]interface{}{
					"variable":    varName,
					"value":       typed,
					"environment": envName,
					"file":        src.FileIdentifier(),
				}
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(output); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
				return nil
			}

			fmt.Fprint(out, typed)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&varName, "var", "", "Variable name to get (required)")
	cmd.Flags().StringVar(&defaultValue, "default", "", "Value to use when the variable is not set")
	cmd.Flags().StringVar(&typeName, "type", "", "Validate and print the value as this type")
	cmd.Flags().BoolVar(&properties, "properties", false, "Read from the environment's .properties file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")

	_ = cmd.MarkFlagRequired("env")
	_ = cmd.MarkFlagRequired("var")
	registerEnvCompletion(cmd, cfg)

	return cmd
}
