package cli

import (
	"fmt"
	"os"

	"github.com/aryankumar/ctxexec/internal/output"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize the ctxexec configuration",
		Long: `Inspect the effective configuration (file, CTXEXEC_* environment variables,
and flags merged together) or write a starter config file.`,
	}

	cmd.AddCommand(newConfigViewCmd(a))
	cmd.AddCommand(newConfigInitCmd(a))

	return cmd
}

func newConfigViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config.GetConfig()

			format, ok := output.ParseFormat(cfg.Defaults.OutputFormat)
			if !ok {
				return fmt.Errorf("unsupported output format %q", cfg.Defaults.OutputFormat)
			}
			// a table cannot show nested sections
			if format == output.FormatTable {
				format = output.FormatYAML
			}

			if used := a.config.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "# loaded from %s\n", used)
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), cfg)
		},
	}
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to the config file",
		Long: `Write the effective configuration to the file given by --config, or to
$HOME/.ctxexec.yaml. An existing file is left untouched unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.config.Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			if err := a.config.Save(); err != nil {
				return err
			}

			a.logger.Info("wrote config file", "path", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
