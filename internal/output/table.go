package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aryankumar/ctxexec/internal/executor"
	"github.com/olekukonko/tablewriter"
)

const maxDataWidth = 50

// TableFormatter formats output as a borderless, tab-padded table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(f.createTable(w), v)
	case map[string]string:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[k] = val
		}
		return f.formatMap(f.createTable(w), m)
	case []map[string]interface{}:
		return f.formatMapSlice(f.createTable(w), v)
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

// FormatResults outputs task results as a table followed by a summary line
func (f *TableFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"TASK", "WORKER", "CALLER", "STATUS", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "DATA")
	}

	if !f.options.NoHeaders {
		if !colors.Disabled {
			for i, h := range headers {
				headers[i] = colors.Header("%s", h)
			}
		}
		table.SetHeader(headers)
	}

	for _, result := range results {
		table.Append(f.formatResultRow(result, colors))
	}

	table.Render()

	f.printSummary(w, results, colors)

	return nil
}

func (f *TableFormatter) formatResultRow(result executor.Result, colors *ColorScheme) []string {
	caller := "no"
	if result.CallerRan {
		caller = colors.Warning("yes")
	}

	status := "Success"
	if result.Error != nil {
		status = "Failed"
	}

	row := []string{
		colors.Task("%s", result.Task),
		colors.Worker("%s", result.Worker),
		caller,
		colors.StatusColor(result.Error != nil)("%s", status),
		colors.Duration("%s", result.Duration),
	}

	if f.options.Wide {
		dataStr := ""
		if result.Error != nil {
			dataStr = result.Error.Error()
		} else if result.Data != nil {
			dataStr = fmt.Sprintf("%v", result.Data)
		}
		if len(dataStr) > maxDataWidth {
			dataStr = dataStr[:maxDataWidth-3] + "..."
		}
		row = append(row, dataStr)
	}

	return row
}

// formatMap formats a map as a two-column table sorted by key
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%v", data[k])})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table, one column per key of the first map
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	keys := make([]string, 0, len(data[0]))
	for k := range data[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if !f.options.NoHeaders {
		headers := make([]string, len(keys))
		for i, k := range keys {
			headers[i] = strings.ToUpper(k)
		}
		table.SetHeader(headers)
	}

	for _, item := range data {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = fmt.Sprintf("%v", item[k])
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

func (f *TableFormatter) printSummary(w io.Writer, results []executor.Result, colors *ColorScheme) {
	summary := executor.Summarize(results)

	successText := colors.Success("%d successful", summary.Successful)

	failedText := fmt.Sprintf("%d failed", summary.Failed)
	if summary.Failed > 0 {
		failedText = colors.Error(failedText)
	}

	parts := []string{successText, failedText}
	if summary.CallerRan > 0 {
		parts = append(parts, colors.Warning("%d caller-ran", summary.CallerRan))
	}
	parts = append(parts, colors.Duration("avg=%s", summary.AvgDuration.Round(1000)))
	parts = append(parts, fmt.Sprintf("success=%.0f%%", summary.SuccessRate))

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: %s\n", strings.Join(parts, ", "))
}
