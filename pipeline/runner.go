package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/rdbms"
	"github.com/relloyd/starpipe/rdbms/shared"
	"github.com/relloyd/starpipe/stats"
	"github.com/rs/xid"
)

// RunnerConfig supplies everything a Runner needs.
type RunnerConfig struct {
	Log logger.Logger
	// Db is the single connection used for every step. It may be nil when DryRun is set.
	Db     shared.Connector
	DryRun bool
	// Out receives the rendered SQL in DryRun mode. Defaults to STDOUT.
	Out io.Writer
	// RunId identifies the run in logs and status. A new xid is used when empty.
	RunId string
	// WatchFrequency controls how often progress is logged for a running statement.
	WatchFrequency time.Duration
}

// Runner executes a Plan one step at a time, committing after each step and stopping at the first failure.
type Runner struct {
	cfg     RunnerConfig
	log     logger.Logger
	plan    *Plan
	tracker *statusTracker
}

// NewRunner prepares plan for execution.
func NewRunner(cfg RunnerConfig, plan *Plan) *Runner {
	if cfg.RunId == "" {
		cfg.RunId = xid.New().String()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Runner{
		cfg:     cfg,
		log:     cfg.Log.WithField("runId", cfg.RunId),
		plan:    plan,
		tracker: newStatusTracker(cfg.RunId, plan.Steps()),
	}
}

// RunId returns the id of this run.
func (r *Runner) RunId() string {
	return r.cfg.RunId
}

// Status returns a snapshot of the run and its steps.
func (r *Runner) Status() RunStatus {
	return r.tracker.snapshot()
}

// Run executes every step in the plan in order.
// It returns a *StepError for the first step that fails, or the context error if the run is cancelled.
func (r *Runner) Run(ctx context.Context) (err error) {
	if !r.cfg.DryRun && r.cfg.Db == nil {
		return errors.New("runner has no database connection")
	}
	r.tracker.updateRun(func(s *RunStatus) {
		s.Status = StatusRunning
		s.StartTime = time.Now()
	})
	defer func() {
		r.finish(ctx, err)
	}()
	r.log.Info("Starting run of ", r.plan.Len(), " steps: ", r.plan.Names())
	for _, step := range r.plan.Steps() {
		if errCtx := ctx.Err(); errCtx != nil { // if we were interrupted between steps...
			return errors.Wrapf(errCtx, "run cancelled before step %v", step.GetName())
		}
		if r.cfg.DryRun {
			r.printStep(step)
			continue
		}
		if err = r.runStep(ctx, step); err != nil {
			return err
		}
	}
	r.log.Info("Run complete")
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	log := r.log.WithField("step", step.GetName())
	log.Info("Running ", step.GetKind(), " step ", step.GetName())
	r.tracker.updateStep(step.GetName(), func(s *StepStatus) {
		s.Status = StatusRunning
		s.StartTime = time.Now()
	})
	w := r.newWatcher(log, step.GetName())
	w.StartWatching()
	n, err := rdbms.ExecInTx(ctx, log, r.cfg.Db, step.GetSql())
	w.StopWatching(n)
	if err != nil {
		stepErr := &StepError{Step: step.GetName(), Kind: step.GetKind(), Err: err}
		log.Error("Step failed: ", rdbms.DescribeError(err))
		r.tracker.updateStep(step.GetName(), func(s *StepStatus) {
			s.Status = StatusFailed
			if ctx.Err() != nil {
				s.Status = StatusCancelled
			}
			s.EndTime = time.Now()
			s.Error = rdbms.DescribeError(err)
		})
		return stepErr
	}
	r.tracker.updateStep(step.GetName(), func(s *StepStatus) {
		s.Status = StatusComplete
		s.EndTime = time.Now()
		s.RowsAffected = n
	})
	log.Info(w.RenderStats())
	return nil
}

func (r *Runner) newWatcher(log logger.Logger, name string) *stats.StepWatcher {
	if r.cfg.WatchFrequency > 0 {
		return stats.NewStepWatcherWithFrequency(log, name, r.cfg.WatchFrequency)
	}
	return stats.NewStepWatcher(log, name)
}

// printStep writes the step's SQL instead of executing it.
func (r *Runner) printStep(step Step) {
	_, _ = fmt.Fprintf(r.cfg.Out, "-- %v (%v)\n%v;\n\n", step.GetName(), step.GetKind(), step.GetSql())
	r.tracker.updateStep(step.GetName(), func(s *StepStatus) {
		s.Status = StatusSkipped
	})
}

// finish records the final run status. Steps that never started are marked skipped.
// Any failure once ctx is done counts as a cancellation, whatever error the driver returned.
func (r *Runner) finish(ctx context.Context, err error) {
	r.tracker.updateRun(func(s *RunStatus) {
		s.EndTime = time.Now()
		switch {
		case err == nil:
			s.Status = StatusComplete
		case ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			s.Status = StatusCancelled
			s.Error = err.Error()
		default:
			s.Status = StatusFailed
			s.Error = err.Error()
		}
		for idx := range s.Steps {
			if s.Steps[idx].Status == StatusPending {
				s.Steps[idx].Status = StatusSkipped
			}
		}
	})
}
