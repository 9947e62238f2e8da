package cli

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/ctxexec/internal/config"
	"github.com/aryankumar/ctxexec/internal/executor"
	"github.com/aryankumar/ctxexec/internal/reqctx"
	"github.com/aryankumar/ctxexec/internal/util"
)

type runRecord struct {
	Task      string `json:"task"`
	Worker    string `json:"worker"`
	CallerRan bool   `json:"callerRan"`
	Status    string `json:"status"`
	Data      string `json:"data"`
}

func runJSON(t *testing.T, configYAML string, args ...string) []runRecord {
	t.Helper()

	stdout, _, err := executeCommand(t, configYAML, append([]string{"run", "-o", "json", "--duration", "1ms"}, args...)...)
	require.NoError(t, err)

	var records []runRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	return records
}

func TestRun_PropagatesAttributes(t *testing.T) {
	records := runJSON(t, "", "--tasks", "3", "--attr", "tenant=acme", "--attr", "user=alice")
	require.Len(t, records, 3)

	for _, r := range records {
		assert.Equal(t, "success", r.Status)
		assert.Equal(t, "tenant=acme,user=alice", r.Data, r.Task)
		assert.NotEmpty(t, r.Worker)
	}
	assert.Nil(t, reqctx.Current(), "run must unbind the submitting goroutine")
}

func TestRun_PlainPoolDoesNotPropagate(t *testing.T) {
	records := runJSON(t, "", "--tasks", "3", "--attr", "tenant=acme", "--plain")
	require.Len(t, records, 3)

	for _, r := range records {
		require.False(t, r.CallerRan, "default pool queues instead of rejecting")
		assert.Equal(t, "<none>", r.Data)
	}
}

func TestRun_ConfigDisablesPropagation(t *testing.T) {
	records := runJSON(t, "pool:\n  propagate: false\n", "--tasks", "2", "--attr", "tenant=acme")
	for _, r := range records {
		assert.Equal(t, "<none>", r.Data)
	}
}

func TestRun_CallerRunsDemo(t *testing.T) {
	records := runJSON(t, "", "--tasks", "6", "--attr", "tenant=acme", "--caller-runs-demo")
	require.Len(t, records, 6)

	for _, r := range records {
		assert.Equal(t, "success", r.Status)
		assert.Equal(t, "tenant=acme", r.Data, "worker and caller both see the attributes")
		if r.CallerRan {
			assert.Equal(t, callerWorker, r.Worker)
		}
	}
}

func TestRun_MergesConfigAttributes(t *testing.T) {
	cfg := "probe:\n  tasks: 2\n  attributes:\n    region: eu\n    tenant: default\n"
	records := runJSON(t, cfg, "--attr", "tenant=acme")
	require.Len(t, records, 2)

	for _, r := range records {
		assert.Equal(t, "region=eu,tenant=acme", r.Data)
	}
}

func TestRun_Table(t *testing.T) {
	stdout, _, err := executeCommand(t, "", "run", "--tasks", "2", "--duration", "1ms", "--attr", "k=v", "--wide", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "TASK")
	assert.Contains(t, stdout, "k=v")
	assert.Contains(t, stdout, "Summary: 2 successful, 0 failed")
}

func TestRun_TimeoutInterruptsRun(t *testing.T) {
	_, _, err := executeCommand(t, "", "run", "--tasks", "1", "--duration", "300ms", "--timeout", "5ms", "-o", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, util.IsTimeout(err))
	assert.Contains(t, err.Error(), "probe run interrupted")
}

func TestFailedTasksError(t *testing.T) {
	assert.NoError(t, failedTasksError(nil))
	assert.NoError(t, failedTasksError([]executor.Result{{Task: "task-1", Data: "ok"}}))

	boom := errors.New("boom")
	err := failedTasksError([]executor.Result{
		{Task: "task-1", Data: "ok"},
		{Task: "task-2", Error: boom},
		{Task: "task-3", Error: executor.ErrDiscarded},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, executor.ErrDiscarded)
	assert.Contains(t, err.Error(), "2 errors occurred:")
	assert.Contains(t, err.Error(), `task "task-2": boom`)

	var te *util.TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "task-2", te.Task)
}

func TestRun_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		args    []string
		wantErr string
	}{
		{"bad attribute", "", []string{"--attr", "novalue"}, "invalid attribute"},
		{"bad policy", "pool:\n  rejectionPolicy: retry\n", nil, "invalid pool configuration"},
		{"bad output", "", []string{"-o", "xml"}, "unsupported output format"},
		{"extra args", "", []string{"extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.config, append([]string{"run", "--tasks", "1"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveProbe(t *testing.T) {
	probe := config.ProbeConfig{
		Tasks:        4,
		TaskDuration: 20 * time.Millisecond,
		Attributes:   map[string]string{"a": "1"},
	}

	tasks, hold, attrs, err := resolveProbe(probe, &runOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, tasks)
	assert.Equal(t, 20*time.Millisecond, hold)
	assert.Equal(t, map[string]string{"a": "1"}, attrs)

	tasks, hold, attrs, err = resolveProbe(probe, &runOptions{tasks: 9, duration: time.Second, attrs: []string{"a=2", "b=3"}})
	require.NoError(t, err)
	assert.Equal(t, 9, tasks)
	assert.Equal(t, time.Second, hold)
	assert.Equal(t, map[string]string{"a": "2", "b": "3"}, attrs)

	_, _, _, err = resolveProbe(config.ProbeConfig{}, &runOptions{})
	assert.Error(t, err)
}

func TestObservation_String(t *testing.T) {
	assert.Equal(t, "<none>", observation{}.String())
	assert.Equal(t, "a=1,b=2", observation{attributes: map[string]string{"b": "2", "a": "1"}}.String())
}
