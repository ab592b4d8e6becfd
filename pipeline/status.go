package pipeline

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type Status uint32

const (
	StatusMissing Status = iota
	StatusPending
	StatusRunning
	StatusComplete
	StatusFailed
	StatusSkipped
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return ""
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Status(%d)", uint32(s))
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s > StatusCancelled {
		return nil, fmt.Errorf("unhandled Status value %v in custom MarshalJSON() conversion", uint32(s))
	}
	return json.Marshal(s.String())
}

// StepStatus records the outcome of one step.
type StepStatus struct {
	Name         string    `json:"name"`
	Kind         Kind      `json:"kind"`
	Status       Status    `json:"status"`
	StartTime    time.Time `json:"startTime,omitempty"`
	EndTime      time.Time `json:"endTime,omitempty"`
	RowsAffected int64     `json:"rowsAffected"`
	Error        string    `json:"error,omitempty"`
}

// RunStatus records the outcome of a whole run.
type RunStatus struct {
	RunId     string       `json:"runId"`
	Status    Status       `json:"status"`
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime,omitempty"`
	Error     string       `json:"error,omitempty"`
	Steps     []StepStatus `json:"steps"`
}

// IsFinished returns true once the run can no longer change.
func (r RunStatus) IsFinished() bool {
	return r.Status != StatusPending && r.Status != StatusRunning && r.Status != StatusMissing
}

// statusTracker guards a RunStatus so that it can be read while a run is in progress.
type statusTracker struct {
	mu     sync.RWMutex
	status RunStatus
	index  map[string]int
}

func newStatusTracker(runId string, steps []Step) *statusTracker {
	t := &statusTracker{
		status: RunStatus{RunId: runId, Status: StatusPending, Steps: make([]StepStatus, len(steps))},
		index:  make(map[string]int, len(steps)),
	}
	for idx, s := range steps {
		t.status.Steps[idx] = StepStatus{Name: s.GetName(), Kind: s.GetKind(), Status: StatusPending}
		t.index[s.GetName()] = idx
	}
	return t
}

func (t *statusTracker) snapshot() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	retval := t.status
	retval.Steps = make([]StepStatus, len(t.status.Steps))
	copy(retval.Steps, t.status.Steps)
	return retval
}

func (t *statusTracker) updateRun(fn func(r *RunStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.status)
}

func (t *statusTracker) updateStep(name string, fn func(s *StepStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.index[name]; ok {
		fn(&t.status.Steps[idx])
	}
}
