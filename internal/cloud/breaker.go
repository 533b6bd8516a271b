package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"icried/internal/core"
)

// BreakerSettings tunes the circuit breaker around a RecordStore.
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// OnStateChange is called after each transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "cloud",
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// Breaker guards a RecordStore with a circuit breaker. While open, calls
// fail fast with an error wrapping ErrCloudUnavailable.
type Breaker struct {
	next RecordStore
	cb   *gobreaker.CircuitBreaker
}

var _ RecordStore = (*Breaker)(nil)

func NewBreaker(next RecordStore, s BreakerSettings) *Breaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// Missing records are an answer, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnknownItem)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", "cloud",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			if s.OnStateChange != nil {
				s.OnStateChange(name, from, to)
			}
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Status(ctx context.Context) (AccountStatus, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Status(ctx)
	})
	if isBreakerOpen(err) {
		return StatusTemporarilyUnavailable, nil
	}
	if err != nil {
		return StatusCouldNotDetermine, err
	}
	return v.(AccountStatus), nil
}

func (b *Breaker) Query(ctx context.Context, kind core.Kind) ([]Record, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Query(ctx, kind)
	})
	if err != nil {
		return nil, wrapOpen(err)
	}
	return v.([]Record), nil
}

func (b *Breaker) Fetch(ctx context.Context, kind core.Kind, name string) (Record, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Fetch(ctx, kind, name)
	})
	if err != nil {
		return Record{}, wrapOpen(err)
	}
	return v.(Record), nil
}

func (b *Breaker) Save(ctx context.Context, r Record) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Save(ctx, r)
	})
	return wrapOpen(err)
}

func (b *Breaker) SaveAll(ctx context.Context, kind core.Kind, recs []Record) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.SaveAll(ctx, kind, recs)
	})
	return wrapOpen(err)
}

func (b *Breaker) Delete(ctx context.Context, kind core.Kind, name string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, kind, name)
	})
	return wrapOpen(err)
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func wrapOpen(err error) error {
	if isBreakerOpen(err) {
		return fmt.Errorf("%w: %v", ErrCloudUnavailable, err)
	}
	return err
}
