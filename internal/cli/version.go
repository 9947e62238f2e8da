package cli

import (
	"fmt"

	"github.com/aryankumar/ctxexec/internal/output"
	"github.com/aryankumar/ctxexec/pkg/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display detailed version information for the ctxexec CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}
}

func runVersion(cmd *cobra.Command) error {
	info := version.Get()
	outputFormat, _ := cmd.Flags().GetString("output")
	w := cmd.OutOrStdout()

	switch output.Format(outputFormat) {
	case output.FormatJSON:
		return output.NewJSONFormatter(nil).Format(w, info)
	case output.FormatYAML:
		return output.NewYAMLFormatter(nil).Format(w, info)
	case output.FormatTable:
		return output.NewTableFormatter(nil).Format(w, info.Map())
	default:
		_, err := fmt.Fprintln(w, info.String())
		return err
	}
}
