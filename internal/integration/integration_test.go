package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/ctxexec/internal/config"
	"github.com/aryankumar/ctxexec/internal/executor"
	"github.com/aryankumar/ctxexec/internal/output"
	"github.com/aryankumar/ctxexec/internal/propagate"
	"github.com/aryankumar/ctxexec/internal/reqctx"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newPool loads poolYAML through the config manager and wraps the resulting pool
func newPool(t *testing.T, poolYAML string, registry reqctx.Registry) (*executor.ThreadPool, *propagate.Executor) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ctxexec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(poolYAML), 0644))

	mgr := config.NewManager(path)
	_, err := mgr.Load()
	require.NoError(t, err)

	cfg, err := mgr.ExecutorConfig()
	require.NoError(t, err)

	pool, err := executor.NewThreadPool(cfg, quietLogger())
	require.NoError(t, err)
	pool.Initialize()

	exec := propagate.New(pool, propagate.WithRegistry(registry), propagate.WithLogger(quietLogger()))
	t.Cleanup(func() { exec.ShutdownNow() })

	return pool, exec
}

// TestFullWorkflow drives concurrent submitters through a configured, wrapped pool
// and checks that every task saw exactly its own submitter's attributes.
func TestFullWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	registry := reqctx.NewGoroutineRegistry()
	_, exec := newPool(t, `
pool:
  corePoolSize: 2
  maxPoolSize: 4
  queueCapacity: 64
  keepAlive: 100ms
`, registry)

	const submitters = 5
	const tasksEach = 10

	var (
		mu      sync.Mutex
		results []executor.Result
		wg      sync.WaitGroup
	)

	for s := 0; s < submitters; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()

			attrs := reqctx.NewAttributes(fmt.Sprintf("request-%d", s))
			attrs.SetAttribute("submitter", s, reqctx.ScopeRequest)
			registry.Set(attrs)
			defer registry.Clear()

			futures := make([]*executor.Future, 0, tasksEach)
			for i := 0; i < tasksEach; i++ {
				f, err := exec.SubmitCallable(func() (interface{}, error) {
					current := registry.Current()
					if current == nil {
						return nil, fmt.Errorf("no attributes bound")
					}
					v, _ := current.Attribute("submitter", reqctx.ScopeRequest)
					return v, nil
				})
				if !assert.NoError(t, err) {
					return
				}
				futures = append(futures, f)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			for i, f := range futures {
				r := executor.Collect(ctx, fmt.Sprintf("s%d-t%d", s, i), f, time.Now())
				if assert.NoError(t, r.Error) {
					assert.Equal(t, s, r.Data, "task %s saw another submitter's attributes", r.Task)
				}
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}(s)
	}

	wg.Wait()

	require.Len(t, results, submitters*tasksEach)
	assert.False(t, executor.HasErrors(results))

	require.NoError(t, exec.Shutdown())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, exec.AwaitTermination(ctx))

	stats := exec.Stats()
	assert.Equal(t, int64(submitters*tasksEach), stats.Completed)
	assert.LessOrEqual(t, stats.LargestPoolSize, 4)

	assert.Eventually(t, func() bool { return registry.Len() == 0 },
		time.Second, 10*time.Millisecond, "workers must not keep request attributes")

	var buf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatJSON).FormatResults(&buf, results))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, submitters*tasksEach)
}

// TestCallerRunsKeepsSubmitterAttributes saturates a single-worker pool so the
// submitter runs the task itself, then checks its binding survived.
func TestCallerRunsKeepsSubmitterAttributes(t *testing.T) {
	registry := reqctx.NewGoroutineRegistry()
	_, exec := newPool(t, `
pool:
  corePoolSize: 1
  maxPoolSize: 1
  queueCapacity: 0
  rejectionPolicy: caller-runs
`, registry)

	attrs := reqctx.NewAttributes("caller-runs")
	attrs.SetAttribute("user", "alice", reqctx.ScopeRequest)
	registry.Set(attrs)
	defer registry.Clear()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker, err := exec.Submit(func() {
		close(started)
		<-release
	})
	require.NoError(t, err)
	<-started

	origin := reqctx.CurrentGoroutineID()
	var ranOn reqctx.GoroutineID
	var seen reqctx.Attributes

	f, err := exec.Submit(func() {
		ranOn = reqctx.CurrentGoroutineID()
		seen = registry.Current()
	})
	require.NoError(t, err)
	require.True(t, f.IsDone(), "caller-runs completes before Submit returns")

	assert.Equal(t, origin, ranOn)
	assert.Same(t, attrs, seen)
	assert.Same(t, attrs, registry.Current(), "submitter binding must survive an inline task")

	close(release)
	_, err = blocker.GetTimeout(time.Second)
	require.NoError(t, err)
}

// TestShutdownRejectsNewWork checks the wrapped pool reports rejection after shutdown
func TestShutdownRejectsNewWork(t *testing.T) {
	registry := reqctx.NewGoroutineRegistry()
	_, exec := newPool(t, "pool:\n  corePoolSize: 1\n  maxPoolSize: 1\n", registry)

	require.NoError(t, exec.Shutdown())

	_, err := exec.SubmitCallable(func() (interface{}, error) { return nil, nil })
	require.Error(t, err)
	assert.True(t, executor.IsRejected(err))
	assert.ErrorIs(t, err, executor.ErrShutdown)
}

// TestCollectHonorsContext checks that an abandoned wait reports the context error
func TestCollectHonorsContext(t *testing.T) {
	registry := reqctx.NewGoroutineRegistry()
	_, exec := newPool(t, "pool:\n  corePoolSize: 1\n  maxPoolSize: 1\n", registry)

	release := make(chan struct{})
	defer close(release)

	f, err := exec.SubmitCallable(func() (interface{}, error) {
		<-release
		return "late", nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := executor.Collect(ctx, "slow", f, time.Now())
	assert.ErrorIs(t, r.Error, context.Canceled)
	assert.Nil(t, r.Data)
}
