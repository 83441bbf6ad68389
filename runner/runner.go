// Package runner executes independent tasks concurrently with a per-task
// deadline. It backs the orchestrator's broadcast fan-out.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/pinecone/errors"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. Run should honor ctx, but the runner does not
// depend on it: a task that outlives its deadline is abandoned.
type Task struct {
	ID  string
	Run func(ctx context.Context) (string, error)
}

// Result represents the result of a task execution
type Result struct {
	TaskID   string
	Output   string
	Error    error
	TimedOut bool
	Duration time.Duration
}

// Runner executes a single task
type Runner interface {
	Run(ctx context.Context, task *Task) *Result
}

// runner is the default implementation of Runner
type runner struct {
	timeout time.Duration
}

// New creates a runner. A non-positive timeout disables the deadline.
func New(timeout time.Duration) Runner {
	return &runner{timeout: timeout}
}

// Run executes task and waits for it, its deadline, or ctx, whichever
// comes first. Panics are converted into errors.
func (r *runner) Run(ctx context.Context, task *Task) *Result {
	start := time.Now()
	result := &Result{TaskID: task.ID}
	if task.Run == nil {
		result.Error = fmt.Errorf("task %s: %w: no run function", task.ID, errors.ErrInvalidInput)
		return result
	}

	taskCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	defer cancel()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("panic in task %s: %v", task.ID, p)}
			}
		}()
		output, err := task.Run(taskCtx)
		done <- outcome{output: output, err: err}
	}()

	select {
	case out := <-done:
		result.Output, result.Error = out.output, out.err
		if out.err != nil && ctx.Err() == nil && taskCtx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.Error = fmt.Errorf("task %s: %w after %s", task.ID, errors.ErrTimeout, r.timeout)
		}
	case <-taskCtx.Done():
		if ctx.Err() != nil {
			result.Error = ctx.Err()
		} else {
			result.TimedOut = true
			result.Error = fmt.Errorf("task %s: %w after %s", task.ID, errors.ErrTimeout, r.timeout)
		}
	}
	result.Duration = time.Since(start)
	return result
}

// ParallelRunner executes multiple tasks in parallel
type ParallelRunner struct {
	runner         Runner
	maxConcurrency int
}

// NewParallelRunner creates a parallel runner. maxConcurrency <= 0 lets
// every task run at once.
func NewParallelRunner(maxConcurrency int, timeout time.Duration) *ParallelRunner {
	return &ParallelRunner{
		runner:         New(timeout),
		maxConcurrency: maxConcurrency,
	}
}

// RunParallel executes tasks concurrently and returns one result per task,
// in task order. Task failures are reported in the results, never as a
// group error, so one slow or failing task does not cancel the others.
func (pr *ParallelRunner) RunParallel(ctx context.Context, tasks []*Task) []*Result {
	results := make([]*Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var g errgroup.Group
	limit := pr.maxConcurrency
	if limit <= 0 {
		limit = len(tasks)
	}
	g.SetLimit(limit)

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = pr.runner.Run(ctx, task)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
