package output

import (
	"io"

	"github.com/aryankumar/ctxexec/internal/executor"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs data in a table format
	FormatTable Format = "table"
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatResults outputs one entry per task result
	FormatResults(w io.Writer, results []executor.Result) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Wide enables wide output with additional columns
	Wide bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithWide enables wide output
func WithWide(wide bool) Option {
	return func(o *Options) {
		o.Wide = wide
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// ParseFormat validates a format name; empty selects the table format
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case "", FormatTable:
		return FormatTable, true
	case FormatJSON, FormatYAML:
		return Format(s), true
	default:
		return "", false
	}
}

// toRecords converts results into the structure shared by the JSON and YAML formatters
func toRecords(results []executor.Result) []map[string]interface{} {
	records := make([]map[string]interface{}, len(results))

	for i, result := range results {
		item := map[string]interface{}{
			"task":      result.Task,
			"worker":    result.Worker,
			"callerRan": result.CallerRan,
			"duration":  result.Duration.String(),
		}

		if result.Error != nil {
			item["status"] = "failed"
			item["error"] = result.Error.Error()
		} else {
			item["status"] = "success"
			item["data"] = result.Data
		}

		records[i] = item
	}

	return records
}
