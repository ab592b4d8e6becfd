package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/relloyd/starpipe/constants"
	"github.com/relloyd/starpipe/logger"
)

// StepWatcher logs progress for a long running SQL statement periodically.
// The runner calls StartWatching() before executing a statement and StopWatching() afterwards.
type StepWatcher struct {
	log          logger.Logger
	stepName     string
	frequency    time.Duration
	startTime    time.Time
	endTime      time.Time
	rowsAffected int64
	ticks        int64
	ticker       *time.Ticker
	tickerDone   chan struct{}
	wg           sync.WaitGroup
	isRunning    int32
}

type Stats struct {
	StepName       string `json:"stepName"`
	StatusText     string `json:"statusText"`
	StatusEmoji    string `json:"statusEmoji"`
	ElapsedTimeSec int    `json:"elapsedTimeSec"`
	RowsAffected   int64  `json:"rowsAffected"`
}

func NewStepWatcher(log logger.Logger, stepName string) *StepWatcher {
	return NewStepWatcherWithFrequency(log, stepName, time.Second*c.StatsLogFrequencySeconds)
}

func NewStepWatcherWithFrequency(log logger.Logger, stepName string, frequency time.Duration) *StepWatcher {
	return &StepWatcher{log: log, stepName: stepName, frequency: frequency, tickerDone: make(chan struct{})}
}

func (n *StepWatcher) StartWatching() {
	n.startTime = time.Now()
	atomic.StoreInt32(&n.isRunning, 1)
	n.ticker = time.NewTicker(n.frequency)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case <-n.ticker.C:
				atomic.AddInt64(&n.ticks, 1)
				n.log.Info(n.RenderStats())
			case <-n.tickerDone:
				return
			}
		}
	}()
}

// StopWatching stops the periodic logging and saves the final row count.
func (n *StepWatcher) StopWatching(rowsAffected int64) {
	n.ticker.Stop()
	close(n.tickerDone) // stop the goroutine that logs stats.
	n.wg.Wait()
	n.endTime = time.Now()
	atomic.StoreInt64(&n.rowsAffected, rowsAffected)
	atomic.StoreInt32(&n.isRunning, 0)
}

// Ticks returns the number of times progress was logged.
func (n *StepWatcher) Ticks() int64 {
	return atomic.LoadInt64(&n.ticks)
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (n *StepWatcher) RenderStats() Stats {
	var statusText, statusEmoji string
	var elapsed time.Duration
	if atomic.LoadInt32(&n.isRunning) == 1 {
		statusText = "running"
		statusEmoji = "\U0000231B" // hour glass
		elapsed = time.Since(n.startTime)
	} else {
		statusText = "complete"
		statusEmoji = "\U00002705" // green tick
		elapsed = n.endTime.Sub(n.startTime)
	}
	return Stats{
		StepName:       n.stepName,
		StatusText:     statusText,
		StatusEmoji:    statusEmoji,
		ElapsedTimeSec: int(elapsed.Seconds()),
		RowsAffected:   atomic.LoadInt64(&n.rowsAffected),
	}
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v %v elapsedTimeSec=%v rowsAffected=%v",
		s.StepName, s.StatusText, s.StatusEmoji,
		s.ElapsedTimeSec,
		s.RowsAffected,
	)
}
