package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aryankumar/ctxexec/internal/config"
	"github.com/aryankumar/ctxexec/internal/output"
	"github.com/spf13/cobra"
)

// app carries state shared by subcommands for one invocation
type app struct {
	cfgFile string
	config  *config.Manager
	logger  *slog.Logger
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ctxexec",
		Short: "ctxexec - request-context propagation for worker pools",
		Long: `ctxexec runs tasks on a bounded worker pool and carries the submitting
goroutine's request attributes onto the worker that runs each task.

Attributes are captured at submission, installed right before the task runs,
and cleared afterwards so pooled workers never leak one request's state into
the next. Tasks that the pool runs on the submitting goroutine keep the
submitter's attributes untouched.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.ctxexec.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (json, yaml, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "how long to wait for submitted tasks")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// initConfig loads the config file and sets up logging
func (a *app) initConfig(cmd *cobra.Command) error {
	a.config = config.NewManager(a.cfgFile)

	// flags take precedence over the file and CTXEXEC_DEFAULTS_* variables
	flags := cmd.Flags()
	v := a.config.Viper()
	if err := v.BindPFlag("defaults.outputFormat", flags.Lookup("output")); err != nil {
		return err
	}
	if err := v.BindPFlag("defaults.noColor", flags.Lookup("no-color")); err != nil {
		return err
	}
	if err := v.BindPFlag("defaults.timeout", flags.Lookup("timeout")); err != nil {
		return err
	}

	if _, err := a.config.Load(); err != nil {
		return err
	}

	a.logger = setupLogging(cmd.ErrOrStderr(), flags)

	if used := a.config.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded configuration", "file", used)
	}

	return nil
}

type flagGetter interface {
	GetBool(name string) (bool, error)
}

// setupLogging configures structured logging with slog
func setupLogging(w io.Writer, flags flagGetter) *slog.Logger {
	verbose, _ := flags.GetBool("verbose")
	noColor, _ := flags.GetBool("no-color")

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if noColor {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	if verbose {
		logger.Debug("verbose logging enabled")
	}

	return logger
}

// formatter builds an output formatter from the loaded defaults
func (a *app) formatter(wide bool) (output.Formatter, error) {
	defaults := a.config.GetConfig().Defaults

	format, ok := output.ParseFormat(defaults.OutputFormat)
	if !ok {
		return nil, fmt.Errorf("unsupported output format %q", defaults.OutputFormat)
	}

	return output.NewFormatter(format,
		output.WithNoColor(defaults.NoColor || os.Getenv("NO_COLOR") != ""),
		output.WithWide(wide),
	), nil
}
