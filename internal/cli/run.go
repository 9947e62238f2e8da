package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryankumar/ctxexec/internal/config"
	"github.com/aryankumar/ctxexec/internal/executor"
	"github.com/aryankumar/ctxexec/internal/propagate"
	"github.com/aryankumar/ctxexec/internal/reqctx"
	"github.com/aryankumar/ctxexec/internal/util"
	"github.com/spf13/cobra"
)

// callerWorker is the worker name reported for tasks run on the submitting goroutine
const callerWorker = "caller"

// runOptions holds the flags of the run command
type runOptions struct {
	tasks          int
	duration       time.Duration
	attrs          []string
	plain          bool
	callerRunsDemo bool
	wide           bool
}

// probeExecutor is the surface shared by a bare pool and a propagating one
type probeExecutor interface {
	executor.TaskExecutor
	Shutdown() error
	ShutdownNow() int
	AwaitTermination(ctx context.Context) error
	Stats() executor.Stats
}

// observation is what a probe task saw on the goroutine that ran it
type observation struct {
	goroutine  reqctx.GoroutineID
	attributes map[string]string
}

func (o observation) String() string {
	if len(o.attributes) == 0 {
		return "<none>"
	}
	pairs := make([]string, 0, len(o.attributes))
	for _, k := range util.SortedKeys(o.attributes) {
		pairs = append(pairs, k+"="+o.attributes[k])
	}
	return strings.Join(pairs, ",")
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit probe tasks and report the attributes each one observed",
		Long: `Bind request attributes to the current goroutine, submit probe tasks to a
worker pool, and report which goroutine ran each task and which attributes
it could see.

With propagation enabled (the default) every task reports the submitter's
attributes. With --plain only tasks run on the submitting goroutine do.`,
		Example: `  # Four probe tasks carrying two attributes
  ctxexec run --attr tenant=acme --attr user=alice

  # Compare against the bare pool
  ctxexec run --attr tenant=acme --plain

  # Force caller-runs rejections with a single-worker, zero-capacity pool
  ctxexec run --tasks 8 --caller-runs-demo -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProbe(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.tasks, "tasks", "n", 0, "number of probe tasks (default from config, 4)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "how long each probe task holds its worker (default from config, 20ms)")
	cmd.Flags().StringArrayVarP(&opts.attrs, "attr", "a", nil, "request attribute as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "submit to the bare pool without attribute propagation")
	cmd.Flags().BoolVar(&opts.callerRunsDemo, "caller-runs-demo", false, "use one worker, no queue, and the caller-runs policy")
	cmd.Flags().BoolVarP(&opts.wide, "wide", "w", false, "show the attributes each task observed")

	return cmd
}

func (a *app) runProbe(cmd *cobra.Command, opts *runOptions) error {
	cfg := a.config.GetConfig()
	logger := a.logger

	tasks, duration, attrs, err := resolveProbe(cfg.Probe, opts)
	if err != nil {
		return err
	}

	poolCfg, err := cfg.Pool.ExecutorConfig()
	if err != nil {
		return fmt.Errorf("invalid pool configuration: %w", err)
	}
	if opts.callerRunsDemo {
		poolCfg.CorePoolSize = 1
		poolCfg.MaxPoolSize = 1
		poolCfg.QueueCapacity = 0
		poolCfg.RejectionPolicy = executor.CallerRunsPolicy
	}

	pool, err := executor.NewThreadPool(poolCfg, logger)
	if err != nil {
		return err
	}
	pool.Initialize()

	var exec probeExecutor = pool
	propagating := cfg.Pool.Propagate && !opts.plain
	if propagating {
		exec = propagate.New(pool, propagate.WithLogger(logger))
	}

	request := reqctx.NewAttributes("ctxexec-run")
	for k, v := range attrs {
		request.SetAttribute(k, v, reqctx.ScopeRequest)
	}
	request.RegisterDestructionCallback(func() {
		logger.Debug("request completed", "request", request.RequestName())
	})
	defer request.RequestCompleted()

	logger.Debug("starting probe run",
		"tasks", tasks,
		"propagate", propagating,
		"policy", poolCfg.RejectionPolicy,
		"attributes", len(attrs))

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Defaults.Timeout)
	defer cancel()
	ctx = reqctx.NewContext(ctx, request)

	results := submitProbes(ctx, exec, tasks, duration, logger)

	if err := exec.Shutdown(); err != nil {
		logger.Warn("pool shutdown", "error", err)
	}
	if err := exec.AwaitTermination(ctx); err != nil {
		cancelled := exec.ShutdownNow()
		logger.Warn("pool did not terminate in time", "cancelled_tasks", cancelled, "error", err)
	}

	if leaked := reqctx.Default().Len(); leaked > 0 {
		logger.Warn("request attributes left bound on exited goroutines", "count", leaked)
	}

	logger.Debug("probe run finished", "stats", exec.Stats().String())
	for worker, ran := range executor.GroupByWorker(results) {
		logger.Debug("worker summary", "worker", worker, "tasks", len(ran))
	}

	formatter, err := a.formatter(opts.wide)
	if err != nil {
		return err
	}
	if err := formatter.FormatResults(cmd.OutOrStdout(), results); err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if ctx.Err() != nil {
		return util.WrapErrorf(ctx.Err(), "probe run interrupted")
	}
	return failedTasksError(results)
}

// failedTasksError combines the errors of failed results, each tagged with its task
func failedTasksError(results []executor.Result) error {
	if !executor.HasErrors(results) {
		return nil
	}

	failed := executor.FilterFailed(results)
	errs := make([]error, 0, len(failed))
	for _, r := range failed {
		errs = append(errs, util.WrapTaskError(r.Task, r.Error))
	}
	return util.CombineErrors(errs...)
}

// resolveProbe merges command flags over the probe section of the config file
func resolveProbe(probe config.ProbeConfig, opts *runOptions) (int, time.Duration, map[string]string, error) {
	tasks := probe.Tasks
	if opts.tasks > 0 {
		tasks = opts.tasks
	}
	if tasks <= 0 {
		return 0, 0, nil, util.NewValidationError("tasks", tasks, "must be > 0")
	}

	duration := probe.TaskDuration
	if opts.duration > 0 {
		duration = opts.duration
	}

	flagAttrs, err := util.ParseAttributes(opts.attrs)
	if err != nil {
		return 0, 0, nil, err
	}

	attrs := make(map[string]string, len(probe.Attributes)+len(flagAttrs))
	for k, v := range probe.Attributes {
		attrs[k] = v
	}
	for k, v := range flagAttrs {
		attrs[k] = v
	}

	return tasks, duration, attrs, nil
}

// submitProbes binds the attributes carried by ctx to the calling goroutine,
// submits n probe tasks from it and collects one result each
func submitProbes(ctx context.Context, exec probeExecutor, n int, hold time.Duration, logger *slog.Logger) []executor.Result {
	origin := reqctx.CurrentGoroutineID()
	if attrs, ok := reqctx.FromContext(ctx); ok {
		reqctx.Set(attrs)
		defer reqctx.Reset()
	}

	type pending struct {
		name      string
		future    *executor.Future
		submitted time.Time
		err       error
	}

	submitted := make([]pending, 0, n)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("task-%d", i)
		start := time.Now()

		future, err := exec.SubmitCallable(probe(hold))
		if err != nil {
			logger.Error("failed to submit task", "task", name, "error", err)
		}
		submitted = append(submitted, pending{name: name, future: future, submitted: start, err: err})
	}

	results := make([]executor.Result, 0, n)
	for _, p := range submitted {
		if p.err != nil {
			results = append(results, executor.Result{Task: p.name, Error: p.err})
			continue
		}

		result := executor.Collect(ctx, p.name, p.future, p.submitted)
		if obs, ok := result.Data.(observation); ok {
			result.CallerRan = obs.goroutine == origin
			result.Worker = workerName(obs.goroutine, result.CallerRan)
			result.Data = obs.String()
		}
		if errors.Is(result.Error, executor.ErrDiscarded) {
			result.Worker = "-"
		}
		results = append(results, result)
	}

	return results
}

// probe returns a task that records the goroutine it ran on and the attributes bound there
func probe(hold time.Duration) executor.Callable {
	return func() (interface{}, error) {
		obs := observation{goroutine: reqctx.CurrentGoroutineID()}

		if attrs, err := reqctx.MustCurrent(); err == nil {
			names := attrs.Names(reqctx.ScopeRequest)
			obs.attributes = make(map[string]string, len(names))
			for _, name := range names {
				if v, ok := attrs.Attribute(name, reqctx.ScopeRequest); ok {
					obs.attributes[name] = fmt.Sprint(v)
				}
			}
		}

		if hold > 0 {
			time.Sleep(hold)
		}
		return obs, nil
	}
}

func workerName(id reqctx.GoroutineID, callerRan bool) string {
	if callerRan {
		return callerWorker
	}
	return fmt.Sprintf("goroutine-%d", id)
}
