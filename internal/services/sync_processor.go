package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"icried/internal/amqp"
	"icried/internal/cloud"
	"icried/internal/worker"
)

// Syncer runs one reconciliation pass.
type Syncer interface {
	Sync(ctx context.Context) (worker.SyncReport, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// Interval between scheduled passes (default: 15m)
	Interval time.Duration

	// RunOnStart triggers a pass as soon as the processor starts (default: true)
	RunOnStart bool

	// Timeout bounds a single pass (default: 2m)
	Timeout time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
		Timeout:    2 * time.Minute,
	}
}

// SyncProcessor runs the sync worker on an interval and on demand.
type SyncProcessor struct {
	syncer Syncer
	config SyncProcessorConfig
	clock  clockwork.Clock

	trigger chan struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lastMu     sync.Mutex
	lastReport worker.SyncReport
	lastErr    error
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(syncer Syncer, config SyncProcessorConfig, clock clockwork.Clock) *SyncProcessor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SyncProcessor{
		syncer:  syncer,
		config:  config,
		clock:   clock,
		trigger: make(chan struct{}, 1),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("sync processor is already running")
	}
	if p.syncer == nil {
		return fmt.Errorf("sync processor has no syncer")
	}
	if p.config.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %v", p.config.Interval)
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx, p.stopCh, p.doneCh)

	slog.InfoContext(ctx, "Sync processor started",
		"interval", p.config.Interval,
		"run_on_start", p.config.RunOnStart)
	return nil
}

// Stop gracefully stops the processor and waits for completion. When ctx
// expires first the processor keeps shutting down in the background and a
// later Stop waits for it again.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Trigger requests a pass as soon as possible. Requests made while one is
// already pending collapse into it.
func (p *SyncProcessor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// HandleJournalChanged is an AMQP consumer handler that requests a pass for
// every change notification.
func (p *SyncProcessor) HandleJournalChanged(ctx context.Context, msg *amqp.JournalChangedMessage) error {
	slog.DebugContext(ctx, "Journal change received",
		"kind", msg.Kind,
		"id", msg.ID,
		"operation", msg.Operation)
	p.Trigger()
	return nil
}

// Last returns the outcome of the most recent pass.
func (p *SyncProcessor) Last() (worker.SyncReport, error) {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	return p.lastReport, p.lastErr
}

func (p *SyncProcessor) runLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := p.clock.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.runOnce(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.runOnce(ctx)
		case <-p.trigger:
			p.runOnce(ctx)
		}
	}
}

func (p *SyncProcessor) runOnce(ctx context.Context) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	report, err := p.syncer.Sync(ctx)

	p.lastMu.Lock()
	p.lastReport, p.lastErr = report, err
	p.lastMu.Unlock()

	switch {
	case errors.Is(err, cloud.ErrCloudUnavailable):
		slog.InfoContext(ctx, "Cloud unavailable, sync skipped", "error", err)
	case err != nil:
		slog.ErrorContext(ctx, "Scheduled sync failed", "error", err)
	}
}
