package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/envvault/internal/config"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for envvault.

Environment names for --env are completed from envvault.yaml.

Bash:
  $ source <(envvault completion bash)

Zsh:
  $ envvault completion zsh > "${fpath[1]}/_envvault"

Fish:
  $ envvault completion fish | source

PowerShell:
  PS> envvault completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// registerEnvCompletion completes --env from the environments in envvault.yaml.
func registerEnvCompletion(cmd *cobra.Command, cfg *config.Config) {
	_ = cmd.RegisterFlagCompletionFunc("env", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if cfg.Definition == nil {
			if err := cfg.Load(); err != nil {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
		}
		return cfg.EnvironmentNames(), cobra.ShellCompDirectiveNoFileComp
	})
}
