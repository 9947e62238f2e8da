package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/ctxexec/internal/executor"
)

func sampleResults() []executor.Result {
	return []executor.Result{
		{Task: "task-1", Worker: "ctxexec-worker-1", Data: "tenant=acme", Duration: 12 * time.Millisecond},
		{Task: "task-2", Worker: "caller", Data: "tenant=acme", Duration: 3 * time.Millisecond, CallerRan: true},
		{Task: "task-3", Worker: "ctxexec-worker-2", Error: errors.New("boom"), Duration: time.Millisecond},
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format Format
		want   interface{}
	}{
		{FormatTable, &TableFormatter{}},
		{FormatJSON, &JSONFormatter{}},
		{FormatYAML, &YAMLFormatter{}},
		{Format("unknown"), &TableFormatter{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.IsType(t, tt.want, NewFormatter(tt.format))
		})
	}
}

func TestNewFormatter_Options(t *testing.T) {
	f := NewFormatter(FormatTable, WithNoColor(true), WithNoHeaders(true), WithWide(true))
	table, ok := f.(*TableFormatter)
	require.True(t, ok)
	assert.Equal(t, &Options{NoColor: true, NoHeaders: true, Wide: true}, table.options)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatTable, true},
		{"table", FormatTable, true},
		{"json", FormatJSON, true},
		{"yaml", FormatYAML, true},
		{"xml", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFormat(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToRecords(t *testing.T) {
	records := toRecords(sampleResults())
	require.Len(t, records, 3)

	assert.Equal(t, "success", records[0]["status"])
	assert.Equal(t, "tenant=acme", records[0]["data"])
	assert.NotContains(t, records[0], "error")

	assert.Equal(t, true, records[1]["callerRan"])
	assert.Equal(t, "caller", records[1]["worker"])

	assert.Equal(t, "failed", records[2]["status"])
	assert.Equal(t, "boom", records[2]["error"])
	assert.NotContains(t, records[2], "data")
}

func TestFormatResults_AllFormats(t *testing.T) {
	for _, format := range []Format{FormatTable, FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewFormatter(format, WithNoColor(true), WithWide(true)).FormatResults(&buf, sampleResults()))
			out := buf.String()
			assert.Contains(t, out, "task-1")
			assert.Contains(t, out, "task-3")
			assert.Contains(t, out, "boom")
		})
	}
}
