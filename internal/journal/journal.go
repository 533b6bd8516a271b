package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"icried/internal/core"
)

type env struct {
	store Store
	clock clockwork.Clock
	// lastMark keeps pending-change times strictly increasing even when
	// the clock does not move between writes.
	lastMark time.Time
}

// touch records a local write so the next sync keeps it over remote values.
func (v *env) touch(ctx context.Context, kind core.Kind, id uuid.UUID) error {
	at := v.clock.Now().UTC()
	if !at.After(v.lastMark) {
		at = v.lastMark.Add(time.Nanosecond)
	}
	v.lastMark = at
	if err := v.store.MarkPending(ctx, core.PendingChange{Kind: kind, ID: id, ChangedAt: at}); err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	return nil
}

func (v *env) bury(ctx context.Context, kind core.Kind, id uuid.UUID) error {
	t := core.Tombstone{Kind: kind, ID: id, DeletedAt: v.clock.Now().UTC()}
	if err := v.store.SaveTombstone(ctx, t); err != nil {
		return fmt.Errorf("save tombstone: %w", err)
	}
	return nil
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock sets the clock used for tombstones.
func WithClock(c clockwork.Clock) Option {
	return func(j *Journal) { j.env.clock = c }
}

// WithSeedDefaults controls whether Load seeds default emojis and tags
// into an empty store. Enabled by default.
func WithSeedDefaults(seed bool) Option {
	return func(j *Journal) { j.seed = seed }
}

// Journal owns the three managers. A single RW mutex serialises writers.
type Journal struct {
	mu      sync.RWMutex
	env     *env
	seed    bool
	version atomic.Uint64

	entries *EntryManager
	tags    *TagManager
	emojis  *EmojiManager
}

// Snapshot is a consistent copy of all lists at one version.
type Snapshot struct {
	Version uint64
	Entries []core.TearEntry
	Tags    []core.TagItem
	Emojis  []core.EmojiIntensity
}

// Tx exposes the managers to a caller holding the write lock.
type Tx struct {
	Entries *EntryManager
	Tags    *TagManager
	Emojis  *EmojiManager
	j       *Journal
}

// New returns an empty journal writing through to store. Call Load before
// serving reads.
func New(store Store, opts ...Option) *Journal {
	v := &env{store: store, clock: clockwork.NewRealClock()}
	j := &Journal{env: v, seed: true}
	j.entries = &EntryManager{env: v}
	j.tags = &TagManager{env: v, entries: j.entries}
	j.emojis = &EmojiManager{env: v, entries: j.entries}
	j.entries.tags = j.tags
	j.entries.emojis = j.emojis
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Load reads all lists from the store, seeding defaults into empty ones.
func (j *Journal) Load(ctx context.Context) error {
	return j.write(func() error {
		if err := j.emojis.Reload(ctx); err != nil {
			return err
		}
		if err := j.tags.Reload(ctx); err != nil {
			return err
		}
		if err := j.entries.Reload(ctx); err != nil {
			return err
		}
		if !j.seed {
			return nil
		}
		if j.emojis.Len() == 0 {
			for _, e := range core.DefaultEmojis() {
				if err := j.emojis.Put(ctx, e); err != nil {
					return fmt.Errorf("seed emojis: %w", err)
				}
			}
			slog.InfoContext(ctx, "Seeded default emojis", "count", j.emojis.Len())
		}
		if j.tags.Len() == 0 {
			for _, t := range core.DefaultTags() {
				if err := j.tags.Put(ctx, t); err != nil {
					return fmt.Errorf("seed tags: %w", err)
				}
			}
			slog.InfoContext(ctx, "Seeded default tags", "count", j.tags.Len())
		}
		return nil
	})
}

// Version increases after every write, successful or not.
func (j *Journal) Version() uint64 {
	return j.version.Load()
}

func (j *Journal) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Snapshot{
		Version: j.version.Load(),
		Entries: j.entries.List(),
		Tags:    j.tags.List(),
		Emojis:  j.emojis.List(),
	}
}

func (j *Journal) Entries() []core.TearEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.entries.List()
}

func (j *Journal) Tags() []core.TagItem {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.tags.List()
}

func (j *Journal) Emojis() []core.EmojiIntensity {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.emojis.List()
}

func (j *Journal) Entry(id uuid.UUID) (core.TearEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	e, ok := j.entries.Get(id)
	if !ok {
		return core.TearEntry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

// AddEntry stores a new entry. Unknown references fail with
// core.ErrUnknownEmoji or core.ErrUnknownTag.
func (j *Journal) AddEntry(ctx context.Context, date time.Time, emojiID, tagID *uuid.UUID, note string) (e core.TearEntry, err error) {
	err = j.write(func() error {
		e, err = j.entries.Add(ctx, core.NewTearEntry(date, emojiID, tagID, note))
		return err
	})
	return e, err
}

// UpdateEntry replaces every editable field of the entry with the given ID.
func (j *Journal) UpdateEntry(ctx context.Context, id uuid.UUID, date time.Time, emojiID, tagID *uuid.UUID, note string) (e core.TearEntry, err error) {
	err = j.write(func() error {
		e, err = j.entries.Update(ctx, id, date, emojiID, tagID, note)
		return err
	})
	return e, err
}

// DeleteEntry removes an entry and leaves a tombstone for the next sync.
func (j *Journal) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return j.write(func() error { return j.entries.Delete(ctx, id) })
}

// AddTag appends a tag. Names are unique ignoring case.
func (j *Journal) AddTag(ctx context.Context, name string) (t core.TagItem, err error) {
	err = j.write(func() error {
		t, err = j.tags.Add(ctx, name)
		return err
	})
	return t, err
}

// RenameTag changes a tag name, keeping its ID and order.
func (j *Journal) RenameTag(ctx context.Context, id uuid.UUID, name string) (t core.TagItem, err error) {
	err = j.write(func() error {
		t, err = j.tags.Rename(ctx, id, name)
		return err
	})
	return t, err
}

// RemoveTag deletes a tag and clears it from the entries using it.
func (j *Journal) RemoveTag(ctx context.Context, id uuid.UUID) error {
	return j.write(func() error { return j.tags.Remove(ctx, id) })
}

// MoveTags moves the tags at the from offsets before offset to.
func (j *Journal) MoveTags(ctx context.Context, from []int, to int) error {
	return j.write(func() error { return j.tags.Move(ctx, from, to) })
}

// AddEmoji appends an emoji intensity. Symbols are unique.
func (j *Journal) AddEmoji(ctx context.Context, symbol, colorHex string, opacity float64) (e core.EmojiIntensity, err error) {
	err = j.write(func() error {
		e, err = j.emojis.Add(ctx, symbol, colorHex, opacity)
		return err
	})
	return e, err
}

// UpdateEmoji changes symbol, colour and opacity of an intensity.
func (j *Journal) UpdateEmoji(ctx context.Context, id uuid.UUID, symbol, colorHex string, opacity float64) (e core.EmojiIntensity, err error) {
	err = j.write(func() error {
		e, err = j.emojis.Update(ctx, id, symbol, colorHex, opacity)
		return err
	})
	return e, err
}

// RemoveEmoji deletes an intensity and clears it from the entries using it.
func (j *Journal) RemoveEmoji(ctx context.Context, id uuid.UUID) error {
	return j.write(func() error { return j.emojis.Remove(ctx, id) })
}

// MoveEmojis moves the intensities at the from offsets before offset to.
func (j *Journal) MoveEmojis(ctx context.Context, from []int, to int) error {
	return j.write(func() error { return j.emojis.Move(ctx, from, to) })
}

// RemoveDuplicates merges repeated emojis and tags and drops repeated
// entries.
func (j *Journal) RemoveDuplicates(ctx context.Context) (r DedupReport, err error) {
	err = j.write(func() error {
		r, err = removeDuplicates(ctx, j.entries, j.tags, j.emojis)
		return err
	})
	return r, err
}

// LastRefresh returns when the last sync completed.
func (j *Journal) LastRefresh(ctx context.Context) (time.Time, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.env.store.LastRefresh(ctx)
}

// Apply runs fn with exclusive access to every manager.
func (j *Journal) Apply(fn func(tx *Tx) error) error {
	return j.write(func() error {
		return fn(&Tx{Entries: j.entries, Tags: j.tags, Emojis: j.emojis, j: j})
	})
}

func (j *Journal) write(fn func() error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	defer j.version.Add(1)
	return fn()
}

func (tx *Tx) RemoveDuplicates(ctx context.Context) (DedupReport, error) {
	return removeDuplicates(ctx, tx.Entries, tx.Tags, tx.Emojis)
}

func (tx *Tx) Tombstones(ctx context.Context) ([]core.Tombstone, error) {
	return tx.j.env.store.ListTombstones(ctx)
}

func (tx *Tx) ClearTombstone(ctx context.Context, kind core.Kind, id uuid.UUID) error {
	return tx.j.env.store.DeleteTombstone(ctx, kind, id)
}

// Pending lists entities written locally since their last upload.
func (tx *Tx) Pending(ctx context.Context) ([]core.PendingChange, error) {
	return tx.j.env.store.ListPending(ctx)
}

// MarkSynced clears a pending change unless the entity was written again
// after c was read.
func (tx *Tx) MarkSynced(ctx context.Context, c core.PendingChange) error {
	return tx.j.env.store.MarkSynced(ctx, c)
}

func (tx *Tx) SetLastRefresh(ctx context.Context, t time.Time) error {
	return tx.j.env.store.SetLastRefresh(ctx, t)
}
