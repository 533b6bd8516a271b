// Package memory is an in-process journal store used by tests and by the
// "memory" data backend.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"icried/internal/core"
)

type tombKey struct {
	kind core.Kind
	id   uuid.UUID
}

type Store struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]core.TearEntry
	tags        map[uuid.UUID]core.TagItem
	emojis      map[uuid.UUID]core.EmojiIntensity
	tombstones  map[tombKey]core.Tombstone
	pending     map[tombKey]core.PendingChange
	lastRefresh time.Time
}

func New() *Store {
	return &Store{
		entries:    make(map[uuid.UUID]core.TearEntry),
		tags:       make(map[uuid.UUID]core.TagItem),
		emojis:     make(map[uuid.UUID]core.EmojiIntensity),
		tombstones: make(map[tombKey]core.Tombstone),
		pending:    make(map[tombKey]core.PendingChange),
	}
}

func (s *Store) ListEntries(_ context.Context) ([]core.TearEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TearEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (s *Store) SaveEntry(_ context.Context, e core.TearEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *Store) ListTags(_ context.Context) ([]core.TagItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TagItem, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) SaveTag(_ context.Context, t core.TagItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[t.ID] = t
	return nil
}

func (s *Store) DeleteTag(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, id)
	return nil
}

func (s *Store) ListEmojis(_ context.Context) ([]core.EmojiIntensity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.EmojiIntensity, 0, len(s.emojis))
	for _, e := range s.emojis {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) SaveEmoji(_ context.Context, e core.EmojiIntensity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emojis[e.ID] = e
	return nil
}

func (s *Store) DeleteEmoji(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.emojis, id)
	return nil
}

func (s *Store) SaveTombstone(_ context.Context, t core.Tombstone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones[tombKey{t.Kind, t.ID}] = t
	return nil
}

func (s *Store) ListTombstones(_ context.Context) ([]core.Tombstone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Tombstone, 0, len(s.tombstones))
	for _, t := range s.tombstones {
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) DeleteTombstone(_ context.Context, kind core.Kind, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tombstones, tombKey{kind, id})
	return nil
}

func (s *Store) MarkPending(_ context.Context, c core.PendingChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[tombKey{c.Kind, c.ID}] = c
	return nil
}

func (s *Store) ListPending(_ context.Context) ([]core.PendingChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PendingChange, 0, len(s.pending))
	for _, c := range s.pending {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, c core.PendingChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := tombKey{c.Kind, c.ID}
	if cur, ok := s.pending[k]; ok && cur.ChangedAt.Equal(c.ChangedAt) {
		delete(s.pending, k)
	}
	return nil
}

func (s *Store) LastRefresh(_ context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh, nil
}

func (s *Store) SetLastRefresh(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRefresh = t
	return nil
}

// Close is a no-op; it lets the store share the SQLite cleanup path.
func (s *Store) Close() error { return nil }
