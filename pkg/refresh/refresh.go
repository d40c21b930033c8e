// Package refresh runs a job periodically while its output is being watched.
//
// A [Refresher] pairs a cron scheduler with a visibility switch: while
// hidden, scheduled runs are skipped, and becoming visible again triggers an
// immediate run so that the data on screen is never older than one interval.
//
//	r, err := refresh.New(30*time.Second, func(ctx context.Context) error {
//	    _, err := client.GetLiveMatches(ctx, true)
//	    return err
//	})
//	r.Start(ctx)
//	defer r.Stop()
package refresh

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Job is the work done on every run.
type Job func(ctx context.Context) error

// Refresher schedules a Job at a fixed interval. Runs never overlap: a run
// that is due while the previous one is still going is skipped.
type Refresher struct {
	name     string
	interval time.Duration
	job      Job
	logger   *log.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	running bool
	manual  sync.WaitGroup

	visible  atomic.Bool
	runs     atomic.Int64
	failures atomic.Int64
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(r *Refresher) { r.logger = l }
}

// WithName labels log lines of this refresher.
func WithName(name string) Option {
	return func(r *Refresher) { r.name = name }
}

// New creates a stopped Refresher.
func New(interval time.Duration, job Job, opts ...Option) (*Refresher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	if job == nil {
		return nil, fmt.Errorf("refresh job is nil")
	}
	r := &Refresher{
		name:     "refresh",
		interval: interval,
		job:      job,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.visible.Store(true)
	return r, nil
}

// every is a fixed-delay schedule. Unlike cron.Every it keeps sub-second
// intervals.
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// Start begins scheduling. The first run happens one interval from now.
// Jobs receive a context derived from ctx that is cancelled by Stop.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("%s: already running", r.name)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	cronLogger := cron.PrintfLogger(r.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	r.entry = c.Schedule(every(r.interval), cron.FuncJob(func() { r.run(jobCtx) }))
	c.Start()

	r.cron = c
	r.cancel = cancel
	r.running = true
	r.logger.Debug("refresher started", "name", r.name, "interval", r.interval)
	return nil
}

// Stop cancels the job context and waits for an in-flight run to return.
// Stopping a stopped Refresher does nothing.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.cancel()
	<-r.cron.Stop().Done()
	r.manual.Wait()

	r.running = false
	r.logger.Debug("refresher stopped", "name", r.name, "runs", r.runs.Load())
}

// SetVisible pauses (false) or resumes (true) scheduled runs. Resuming a
// running Refresher triggers an immediate run.
func (r *Refresher) SetVisible(visible bool) {
	was := r.visible.Swap(visible)
	if visible && !was {
		r.logger.Debug("refresher resumed", "name", r.name)
		r.Trigger()
	}
}

// Trigger starts a run now unless one is already in progress. It does
// nothing when the Refresher is stopped.
func (r *Refresher) Trigger() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	wrapped := r.cron.Entry(r.entry).WrappedJob
	if wrapped == nil {
		return
	}
	r.manual.Add(1)
	go func() {
		defer r.manual.Done()
		wrapped.Run()
	}()
}

// Running reports whether the Refresher has been started and not stopped.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Visible reports whether scheduled runs are enabled.
func (r *Refresher) Visible() bool { return r.visible.Load() }

// Runs returns the number of completed runs.
func (r *Refresher) Runs() int64 { return r.runs.Load() }

// Failures returns the number of runs that returned an error.
func (r *Refresher) Failures() int64 { return r.failures.Load() }

func (r *Refresher) run(ctx context.Context) {
	if !r.visible.Load() {
		r.logger.Debug("refresh skipped while hidden", "name", r.name)
		return
	}
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := r.job(ctx)
	r.runs.Add(1)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.failures.Add(1)
		r.logger.Warn("refresh failed", "name", r.name, "err", err)
		return
	}
	r.logger.Debug("refreshed", "name", r.name, "duration", time.Since(start).Round(time.Millisecond))
}
