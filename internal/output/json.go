package output

import (
	"encoding/json"
	"io"

	"github.com/aryankumar/ctxexec/internal/executor"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatResults outputs task results as a JSON array
func (f *JSONFormatter) FormatResults(w io.Writer, results []executor.Result) error {
	return f.Format(w, toRecords(results))
}
