package actions

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/pipeline"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

type runInfo struct {
	runner   *pipeline.Runner
	cancelFn context.CancelFunc
	done     chan struct{}
}

// runRegistry tracks the runs started by the web server and allows at most one to be active.
type runRegistry struct {
	sync.RWMutex
	runs   map[string]runInfo
	busy   bool
	closed bool
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]runInfo)}
}

// launch reserves the single run slot, calls prepare and starts the prepared run in the background.
// The slot is released when the run ends or if prepare fails.
func (r *runRegistry) launch(log logger.Logger, prepare func() (*pipelineRun, error)) (string, error) {
	r.Lock()
	if r.closed {
		r.Unlock()
		return "", errors.New("server is shutting down")
	}
	if r.busy {
		r.Unlock()
		return "", ErrRunInProgress
	}
	r.busy = true
	r.Unlock()
	p, err := prepare()
	if err != nil {
		r.release()
		return "", err
	}
	ctx, cancelFn := context.WithCancel(context.Background())
	info := runInfo{runner: p.runner, cancelFn: cancelFn, done: make(chan struct{})}
	id := p.runner.RunId()
	r.Lock()
	r.runs[id] = info
	r.Unlock()
	go func() {
		defer close(info.done)
		defer r.release()
		defer cancelFn()
		if err := p.run(ctx); err != nil {
			log.Error("Run ", id, " failed: ", err)
		}
	}()
	return id, nil
}

func (r *runRegistry) release() {
	r.Lock()
	r.busy = false
	r.Unlock()
}

func (r *runRegistry) load(id string) (runInfo, bool) {
	r.RLock()
	defer r.RUnlock()
	ri, ok := r.runs[id]
	return ri, ok
}

// list returns the status of every run ordered by start time.
func (r *runRegistry) list() []pipeline.RunStatus {
	r.RLock()
	retval := make([]pipeline.RunStatus, 0, len(r.runs))
	for _, ri := range r.runs {
		retval = append(retval, ri.runner.Status())
	}
	r.RUnlock()
	sort.Slice(retval, func(i, j int) bool {
		return retval[i].StartTime.Before(retval[j].StartTime)
	})
	return retval
}

// stopAll refuses new runs, cancels any active run and waits for it to end or for ctx to expire.
func (r *runRegistry) stopAll(ctx context.Context) error {
	r.Lock()
	r.closed = true
	infos := make([]runInfo, 0, len(r.runs))
	for _, ri := range r.runs {
		infos = append(infos, ri)
	}
	r.Unlock()
	for _, ri := range infos {
		ri.cancelFn()
	}
	for _, ri := range infos {
		select {
		case <-ri.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
