package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ports"
)

// DefaultPollInterval is the spacing between status checks
const DefaultPollInterval = 2 * time.Second

// PollHandlers receive the outcome of each poll tick. They run on the poll
// goroutine. OnComplete, OnExpired and OnError are terminal: the loop has
// already stopped when they are called.
type PollHandlers struct {
	OnComplete func(status domain.JobStatus)
	OnError    func(message string)
	OnExpired  func()
	OnProgress func(status domain.JobStatus)
}

// PollerStats counts loop lifecycle events
type PollerStats struct {
	Cancelled int
	Finished  int
	MaxActive int
	Started   int
}

// StatusPoller is the polling contract used by the stage controller
type StatusPoller interface {
	Poll(ctx context.Context, jobID string, targets []domain.JobStatusValue, handlers PollHandlers)
	Cancel()
}

// JobPoller repeatedly fetches the status of one job until a target status,
// an error, expiry or cancellation. At most one loop is active at a time:
// starting a new loop cancels the previous one.
type JobPoller struct {
	fetcher  ports.JobStatusFetcher
	interval time.Duration

	mu     sync.Mutex
	active *pollLoop
	nextID uint64
	stats  PollerStats
}

type pollLoop struct {
	cancel context.CancelFunc
	id     uint64
}

var _ StatusPoller = (*JobPoller)(nil)

// NewJobPoller creates a poller checking every interval (DefaultPollInterval if zero)
func NewJobPoller(fetcher ports.JobStatusFetcher, interval time.Duration) *JobPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &JobPoller{
		fetcher:  fetcher,
		interval: interval,
	}
}

// Poll starts a loop for jobID, cancelling any loop already running.
// The first status check happens immediately.
func (p *JobPoller) Poll(ctx context.Context, jobID string, targets []domain.JobStatusValue, handlers PollHandlers) {
	targetSet := make(map[domain.JobStatusValue]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}

	p.mu.Lock()
	p.cancelLocked()
	loopCtx, cancel := context.WithCancel(ctx)
	p.nextID++
	loop := &pollLoop{id: p.nextID, cancel: cancel}
	p.active = loop
	p.stats.Started++
	p.stats.MaxActive = max(p.stats.MaxActive, p.activeCountLocked())
	p.mu.Unlock()

	logging.Logger.Debug("Poll loop started",
		"job_id", jobID,
		"loop_id", loop.id,
		"targets", targets,
		"interval", p.interval)

	go p.run(loopCtx, loop, jobID, targetSet, handlers)
}

// Cancel stops the active loop. It is safe to call when no loop is active.
func (p *JobPoller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

// Active reports whether a loop is currently running
func (p *JobPoller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

// Stats returns a copy of the loop counters
func (p *JobPoller) Stats() PollerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *JobPoller) cancelLocked() {
	if p.active == nil {
		return
	}
	p.active.cancel()
	logging.Logger.Debug("Poll loop cancelled", "loop_id", p.active.id)
	p.active = nil
	p.stats.Cancelled++
}

func (p *JobPoller) activeCountLocked() int {
	if p.active == nil {
		return 0
	}
	return 1
}

// finish marks loop as no longer active. It returns false if the loop had
// already been cancelled or replaced, in which case no handler may run.
func (p *JobPoller) finish(loop *pollLoop) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != loop {
		return false
	}
	loop.cancel()
	p.active = nil
	p.stats.Finished++
	return true
}

// release clears a loop stopped by its parent context
func (p *JobPoller) release(loop *pollLoop) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == loop {
		p.active = nil
		p.stats.Cancelled++
	}
}

func (p *JobPoller) isActive(loop *pollLoop) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active == loop
}

func (p *JobPoller) run(ctx context.Context, loop *pollLoop, jobID string, targets map[domain.JobStatusValue]bool, h PollHandlers) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.release(loop)

	for {
		if done := p.tick(ctx, loop, jobID, targets, h); done {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick performs one status check and returns true when the loop must stop
func (p *JobPoller) tick(ctx context.Context, loop *pollLoop, jobID string, targets map[domain.JobStatusValue]bool, h PollHandlers) bool {
	status, err := p.fetcher.Status(ctx, jobID)
	if ctx.Err() != nil {
		return true
	}

	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			if !p.finish(loop) {
				return true
			}
			logging.Logger.Warn("Job no longer known to generation service", "job_id", jobID)
			if h.OnExpired != nil {
				h.OnExpired()
			}
			return true
		}
		// Polling is the retry mechanism: the next tick tries again
		logging.Logger.Debug("Status check failed, retrying on next tick", "job_id", jobID, "error", err)
		return false
	}

	switch {
	case status.Status.IsError():
		if !p.finish(loop) {
			return true
		}
		logging.Logger.Warn("Generation failed", "job_id", jobID, "error", status.ErrorMessage())
		if h.OnError != nil {
			h.OnError(status.ErrorMessage())
		}
		return true

	case targets[status.Status] || status.Status == domain.JobComplete:
		if !p.finish(loop) {
			return true
		}
		logging.Logger.Info("Poll target reached", "job_id", jobID, "status", status.Status)
		if h.OnComplete != nil {
			h.OnComplete(*status)
		}
		return true

	default:
		if !p.isActive(loop) {
			return true
		}
		if h.OnProgress != nil {
			h.OnProgress(*status)
		}
		return false
	}
}
