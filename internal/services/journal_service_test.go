package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"icried/internal/amqp"
	"icried/internal/core"
	"icried/internal/journal"
	"icried/internal/metrics"
	"icried/internal/storage/memory"
)

var serviceNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.JournalChangedMessage
	err  error
}

func (p *recordingPublisher) PublishJournalChanged(_ context.Context, msg *amqp.JournalChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func newTestService(t *testing.T, opts ...ServiceOption) *JournalService {
	t.Helper()
	clock := clockwork.NewFakeClockAt(serviceNow)
	j := journal.New(memory.New(), journal.WithClock(clock))
	if err := j.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return NewJournalService(j, append([]ServiceOption{WithClock(clock)}, opts...)...)
}

func TestJournalService_PublishesChanges(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, WithPublisher(pub))

	e, err := svc.AddEntry(ctx, serviceNow.Add(-time.Hour), nil, nil, "note")
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := svc.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := svc.MoveTags(ctx, []int{0}, 3); err != nil {
		t.Fatalf("MoveTags: %v", err)
	}

	want := []struct {
		kind string
		id   string
		op   amqp.Operation
	}{
		{string(core.KindEntry), e.ID.String(), amqp.OpCreate},
		{string(core.KindEntry), e.ID.String(), amqp.OpDelete},
		{string(core.KindTag), "", amqp.OpMove},
	}
	if len(pub.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(pub.msgs), len(want))
	}
	for i, w := range want {
		got := pub.msgs[i]
		if got.Kind != w.kind || got.ID != w.id || got.Operation != w.op {
			t.Errorf("message %d = %+v, want %+v", i, got, w)
		}
		if !got.Timestamp.Equal(serviceNow) {
			t.Errorf("message %d timestamp = %v", i, got.Timestamp)
		}
	}
}

func TestJournalService_RejectedWriteIsNotPublished(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, WithPublisher(pub))

	if _, err := svc.AddTag(ctx, "   "); !errors.Is(err, core.ErrEmptyTagName) {
		t.Fatalf("AddTag error = %v, want ErrEmptyTagName", err)
	}
	if len(pub.msgs) != 0 {
		t.Errorf("rejected write published %d messages", len(pub.msgs))
	}
}

func TestJournalService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("circuit breaker is open")}
	m := metrics.New(prometheus.NewRegistry())
	svc := newTestService(t, WithPublisher(pub), WithMetrics(m))

	tag, err := svc.AddTag(ctx, "#Дождь")
	if err != nil {
		t.Fatalf("AddTag should succeed when publishing fails: %v", err)
	}
	if tags := svc.Journal().Tags(); tags[len(tags)-1].ID != tag.ID {
		t.Error("tag should be stored despite the publish failure")
	}
	if got := testutil.ToFloat64(m.PublishFailures); got != 1 {
		t.Errorf("publish failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.JournalWrites.WithLabelValues("add_tag", "ok")); got != 1 {
		t.Errorf("add_tag writes = %v, want 1", got)
	}
}

func TestJournalService_WithoutPublisher(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	em, err := svc.AddEmoji(ctx, "😿", "#112233", 0.3)
	if err != nil {
		t.Fatalf("AddEmoji: %v", err)
	}
	if _, err := svc.UpdateEmoji(ctx, em.ID, "😿", "#445566", 0.6); err != nil {
		t.Fatalf("UpdateEmoji: %v", err)
	}
	if err := svc.RemoveEmoji(ctx, em.ID); err != nil {
		t.Fatalf("RemoveEmoji: %v", err)
	}
	if n := len(svc.Journal().Emojis()); n != 3 {
		t.Errorf("emojis = %d, want 3", n)
	}
}

func TestJournalService_RemoveDuplicates(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newTestService(t, WithPublisher(pub))

	r, err := svc.RemoveDuplicates(ctx)
	if err != nil {
		t.Fatalf("RemoveDuplicates: %v", err)
	}
	if r.Total() != 0 || len(pub.msgs) != 0 {
		t.Errorf("clean journal: report %+v, %d messages", r, len(pub.msgs))
	}
}
