package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ctxexec.

The completion script must be sourced to provide completions. After generating the
completion script, follow the instructions for your shell:

Bash:
  $ source <(ctxexec completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ ctxexec completion bash > /etc/bash_completion.d/ctxexec
  # macOS:
  $ ctxexec completion bash > $(brew --prefix)/etc/bash_completion.d/ctxexec

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ ctxexec completion zsh > "${fpath[1]}/_ctxexec"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ ctxexec completion fish | source

  # To load completions for each session, execute once:
  $ ctxexec completion fish > ~/.config/fish/completions/ctxexec.fish

PowerShell:
  PS> ctxexec completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> ctxexec completion powershell > ctxexec.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// completion needs no config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompletion(cmd, args[0])
		},
	}

	return cmd
}

func runCompletion(cmd *cobra.Command, shell string) error {
	w := cmd.OutOrStdout()
	switch shell {
	case "bash":
		return cmd.Root().GenBashCompletionV2(w, true)
	case "zsh":
		return cmd.Root().GenZshCompletion(w)
	case "fish":
		return cmd.Root().GenFishCompletion(w, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unsupported shell type %q", shell)
	}
}
