package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"icried/internal/amqp"
	"icried/internal/core"
	"icried/internal/journal"
	applog "icried/internal/log"
	"icried/internal/metrics"
)

// Publisher sends change notifications.
type Publisher interface {
	PublishJournalChanged(ctx context.Context, msg *amqp.JournalChangedMessage) error
}

// JournalService applies journal writes and announces them. Notification
// failures are logged and never fail the write.
type JournalService struct {
	journal   *journal.Journal
	publisher Publisher
	metrics   *metrics.Metrics
	clock     clockwork.Clock
}

// ServiceOption configures a JournalService.
type ServiceOption func(*JournalService)

func WithPublisher(p Publisher) ServiceOption {
	return func(s *JournalService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *JournalService) { s.metrics = m }
}

func WithClock(c clockwork.Clock) ServiceOption {
	return func(s *JournalService) { s.clock = c }
}

// NewJournalService wraps j. Without WithPublisher writes are applied but
// not announced.
func NewJournalService(j *journal.Journal, opts ...ServiceOption) *JournalService {
	s := &JournalService{journal: j, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Journal exposes the underlying journal for reads.
func (s *JournalService) Journal() *journal.Journal {
	return s.journal
}

func (s *JournalService) AddEntry(ctx context.Context, date time.Time, emojiID, tagID *uuid.UUID, note string) (core.TearEntry, error) {
	e, err := s.journal.AddEntry(ctx, date, emojiID, tagID, note)
	if s.done(ctx, "add_entry", err) {
		s.notify(ctx, core.KindEntry, e.ID, amqp.OpCreate)
	}
	return e, err
}

func (s *JournalService) UpdateEntry(ctx context.Context, id uuid.UUID, date time.Time, emojiID, tagID *uuid.UUID, note string) (core.TearEntry, error) {
	e, err := s.journal.UpdateEntry(ctx, id, date, emojiID, tagID, note)
	if s.done(ctx, "update_entry", err) {
		s.notify(ctx, core.KindEntry, id, amqp.OpUpdate)
	}
	return e, err
}

func (s *JournalService) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	err := s.journal.DeleteEntry(ctx, id)
	if s.done(ctx, "delete_entry", err) {
		s.notify(ctx, core.KindEntry, id, amqp.OpDelete)
	}
	return err
}

func (s *JournalService) AddTag(ctx context.Context, name string) (core.TagItem, error) {
	t, err := s.journal.AddTag(ctx, name)
	if s.done(ctx, "add_tag", err) {
		s.notify(ctx, core.KindTag, t.ID, amqp.OpCreate)
	}
	return t, err
}

func (s *JournalService) RenameTag(ctx context.Context, id uuid.UUID, name string) (core.TagItem, error) {
	t, err := s.journal.RenameTag(ctx, id, name)
	if s.done(ctx, "rename_tag", err) {
		s.notify(ctx, core.KindTag, id, amqp.OpUpdate)
	}
	return t, err
}

func (s *JournalService) RemoveTag(ctx context.Context, id uuid.UUID) error {
	err := s.journal.RemoveTag(ctx, id)
	if s.done(ctx, "remove_tag", err) {
		s.notify(ctx, core.KindTag, id, amqp.OpDelete)
	}
	return err
}

func (s *JournalService) MoveTags(ctx context.Context, from []int, to int) error {
	err := s.journal.MoveTags(ctx, from, to)
	if s.done(ctx, "move_tags", err) {
		s.notify(ctx, core.KindTag, uuid.Nil, amqp.OpMove)
	}
	return err
}

func (s *JournalService) AddEmoji(ctx context.Context, symbol, colorHex string, opacity float64) (core.EmojiIntensity, error) {
	e, err := s.journal.AddEmoji(ctx, symbol, colorHex, opacity)
	if s.done(ctx, "add_emoji", err) {
		s.notify(ctx, core.KindEmoji, e.ID, amqp.OpCreate)
	}
	return e, err
}

func (s *JournalService) UpdateEmoji(ctx context.Context, id uuid.UUID, symbol, colorHex string, opacity float64) (core.EmojiIntensity, error) {
	e, err := s.journal.UpdateEmoji(ctx, id, symbol, colorHex, opacity)
	if s.done(ctx, "update_emoji", err) {
		s.notify(ctx, core.KindEmoji, id, amqp.OpUpdate)
	}
	return e, err
}

func (s *JournalService) RemoveEmoji(ctx context.Context, id uuid.UUID) error {
	err := s.journal.RemoveEmoji(ctx, id)
	if s.done(ctx, "remove_emoji", err) {
		s.notify(ctx, core.KindEmoji, id, amqp.OpDelete)
	}
	return err
}

func (s *JournalService) MoveEmojis(ctx context.Context, from []int, to int) error {
	err := s.journal.MoveEmojis(ctx, from, to)
	if s.done(ctx, "move_emojis", err) {
		s.notify(ctx, core.KindEmoji, uuid.Nil, amqp.OpMove)
	}
	return err
}

// RemoveDuplicates runs the dedup pass and announces it when something
// was removed.
func (s *JournalService) RemoveDuplicates(ctx context.Context) (journal.DedupReport, error) {
	r, err := s.journal.RemoveDuplicates(ctx)
	if s.done(ctx, "remove_duplicates", err) {
		s.metrics.AddDuplicates(string(core.KindEmoji), r.Emojis)
		s.metrics.AddDuplicates(string(core.KindTag), r.Tags)
		s.metrics.AddDuplicates(string(core.KindEntry), r.Entries)
		if r.Total() > 0 {
			s.notify(ctx, "", uuid.Nil, amqp.OpDedupe)
		}
	}
	return r, err
}

func (s *JournalService) done(ctx context.Context, op string, err error) bool {
	s.metrics.ObserveWrite(op, err)
	if err != nil {
		slog.DebugContext(ctx, "Journal write rejected", "operation", op, "error", err)
		return false
	}
	return true
}

func (s *JournalService) notify(ctx context.Context, kind core.Kind, id uuid.UUID, op amqp.Operation) {
	if s.publisher == nil {
		return
	}
	var ref string
	if id != uuid.Nil {
		ref = id.String()
	}
	msg := amqp.NewJournalChangedMessage(string(kind), ref, op, s.clock.Now())
	if err := s.publisher.PublishJournalChanged(ctx, msg); err != nil {
		s.metrics.PublishFailed()
		applog.LogError(ctx, applog.ComponentAMQP, "Failed to publish journal change", err,
			applog.NewFields().WithOperation(string(op)).WithRecord(string(kind), ref))
	}
}
