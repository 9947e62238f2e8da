package executor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Result is the recorded outcome of one task, as collected from its Future
type Result struct {
	// Task identifies the task within a batch
	Task string

	// Worker names the goroutine that ran the task
	Worker string

	// Data is the task's value (nil if an error occurred)
	Data interface{}

	// Error is the task's error, or the reason it never ran
	Error error

	// Duration is the time from submission to completion
	Duration time.Duration

	// CallerRan is true when the task ran on the submitting goroutine
	CallerRan bool
}

// Collect waits for f and records its outcome under the given task name.
// If ctx ends first, the context error becomes the result's error.
func Collect(ctx context.Context, task string, f *Future, submitted time.Time) Result {
	data, err := f.Get(ctx)
	return Result{
		Task:     task,
		Data:     data,
		Error:    err,
		Duration: time.Since(submitted),
	}
}

// CountSuccessful returns the number of successful results (no error)
func CountSuccessful(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Error == nil {
			count++
		}
	}
	return count
}

// CountFailed returns the number of failed results (has error)
func CountFailed(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Error != nil {
			count++
		}
	}
	return count
}


// FilterFailed returns only the failed results
func FilterFailed(results []Result) []Result {
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// FilterCallerRan returns the results of tasks that ran on the submitting goroutine
func FilterCallerRan(results []Result) []Result {
	filtered := make([]Result, 0)
	for _, r := range results {
		if r.CallerRan {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// GroupByWorker groups results by the worker that ran them
// Returns a map where the key is the worker name and value is a slice of results
func GroupByWorker(results []Result) map[string][]Result {
	grouped := make(map[string][]Result)
	for _, r := range results {
		grouped[r.Worker] = append(grouped[r.Worker], r)
	}
	return grouped
}

// AverageDuration calculates the average duration of all results
func AverageDuration(results []Result) time.Duration {
	if len(results) == 0 {
		return 0
	}

	var total time.Duration
	for _, r := range results {
		total += r.Duration
	}

	return total / time.Duration(len(results))
}

// MaxDuration returns the maximum duration among all results
func MaxDuration(results []Result) time.Duration {
	if len(results) == 0 {
		return 0
	}

	max := results[0].Duration
	for _, r := range results {
		if r.Duration > max {
			max = r.Duration
		}
	}
	return max
}

// MinDuration returns the minimum duration among all results
func MinDuration(results []Result) time.Duration {
	if len(results) == 0 {
		return 0
	}

	min := results[0].Duration
	for _, r := range results {
		if r.Duration < min {
			min = r.Duration
		}
	}
	return min
}


// GetWorkerNames extracts unique worker names from results, in first-seen order
func GetWorkerNames(results []Result) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)

	for _, r := range results {
		if !seen[r.Worker] {
			seen[r.Worker] = true
			names = append(names, r.Worker)
		}
	}

	return names
}

// Summary provides a summary of execution results
type Summary struct {
	Total       int
	Successful  int
	Failed      int
	CallerRan   int
	Workers     int
	AvgDuration time.Duration
	MaxDuration time.Duration
	MinDuration time.Duration
	SuccessRate float64
}

// Summarize creates a summary of the results
func Summarize(results []Result) Summary {
	return Summary{
		Total:       len(results),
		Successful:  CountSuccessful(results),
		Failed:      CountFailed(results),
		CallerRan:   len(FilterCallerRan(results)),
		Workers:     len(GetWorkerNames(results)),
		AvgDuration: AverageDuration(results),
		MaxDuration: MaxDuration(results),
		MinDuration: MinDuration(results),
		SuccessRate: SuccessRate(results),
	}
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Successful: %d, ", s.Successful))
	sb.WriteString(fmt.Sprintf("Failed: %d", s.Failed))
	if s.CallerRan > 0 {
		sb.WriteString(fmt.Sprintf(", Caller ran: %d", s.CallerRan))
	}

	if s.Total > 0 {
		sb.WriteString(fmt.Sprintf(", Avg: %s", s.AvgDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Min: %s", s.MinDuration.Round(time.Millisecond)))
	}

	return sb.String()
}

// HasErrors returns true if any results contain errors
func HasErrors(results []Result) bool {
	for _, r := range results {
		if r.Error != nil {
			return true
		}
	}
	return false
}


// SuccessRate returns the success rate as a percentage (0.0 to 100.0)
func SuccessRate(results []Result) float64 {
	if len(results) == 0 {
		return 0.0
	}
	return float64(CountSuccessful(results)) / float64(len(results)) * 100.0
}

