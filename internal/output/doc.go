// Package output renders task results for the ctxexec CLI.
//
// Results can be printed as a borderless table, JSON, or YAML:
//
//	formatter := output.NewFormatter(output.FormatTable, output.WithWide(true))
//	formatter.FormatResults(os.Stdout, results)
//
// Colors are enabled only when writing to a terminal and can be turned off
// with WithNoColor. In table mode, tasks that ran on the submitting goroutine
// are highlighted, since that is where request attributes are not cleared.
package output
