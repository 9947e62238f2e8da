package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/ctxexec/internal/executor"
)

func TestTableFormatter_FormatResults(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(&Options{NoColor: true})

	require.NoError(t, f.FormatResults(&buf, sampleResults()))
	out := buf.String()

	for _, h := range []string{"TASK", "WORKER", "CALLER", "STATUS", "DURATION"} {
		assert.Contains(t, out, h)
	}
	assert.NotContains(t, out, "DATA")
	assert.Contains(t, out, "ctxexec-worker-1")
	assert.Contains(t, out, "Success")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "Summary: 2 successful, 1 failed, 1 caller-ran")
	assert.Contains(t, out, "success=67%")
	assert.NotContains(t, out, "\x1b[", "no escape codes when writing to a buffer")
}

func TestTableFormatter_Wide(t *testing.T) {
	results := sampleResults()
	results[0].Data = strings.Repeat("x", 80)

	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&Options{Wide: true}).FormatResults(&buf, results))
	out := buf.String()

	assert.Contains(t, out, "DATA")
	assert.Contains(t, out, strings.Repeat("x", maxDataWidth-3)+"...")
	assert.NotContains(t, out, strings.Repeat("x", maxDataWidth))
	assert.Contains(t, out, "boom")
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&Options{NoHeaders: true}).FormatResults(&buf, sampleResults()))
	assert.NotContains(t, buf.String(), "WORKER")
	assert.Contains(t, buf.String(), "task-2")
}

func TestTableFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(nil).FormatResults(&buf, []executor.Result{}))
	assert.Equal(t, "No results\n", buf.String())
}

func TestTableFormatter_FormatMap(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(nil)
	require.NoError(t, f.Format(&buf, map[string]string{"tenant": "acme", "user": "alice"}))
	out := buf.String()

	assert.Contains(t, out, "KEY")
	assert.Less(t, strings.Index(out, "tenant"), strings.Index(out, "user"), "keys are sorted")
}

func TestTableFormatter_FormatMapSlice(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(nil)
	require.NoError(t, f.Format(&buf, []map[string]interface{}{
		{"name": "a", "size": 1},
		{"name": "b", "size": 2},
	}))
	out := buf.String()

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "SIZE")
	assert.Contains(t, out, "b")
}

func TestTableFormatter_FormatScalar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(nil).Format(&buf, "plain text"))
	assert.Equal(t, "plain text\n", buf.String())
}
