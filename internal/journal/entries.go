package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"icried/internal/core"
)

// EntryManager holds the entries, newest first.
type EntryManager struct {
	env    *env
	items  []core.TearEntry
	tags   *TagManager
	emojis *EmojiManager
}

// List returns a copy of the entries in display order.
func (m *EntryManager) List() []core.TearEntry {
	out := make([]core.TearEntry, len(m.items))
	for i, e := range m.items {
		out[i] = e.Clone()
	}
	return out
}

func (m *EntryManager) Len() int { return len(m.items) }

func (m *EntryManager) Get(id uuid.UUID) (core.TearEntry, bool) {
	i := m.index(id)
	if i < 0 {
		return core.TearEntry{}, false
	}
	return m.items[i].Clone(), true
}

// Add stores a new entry. An entry with the same signature as an existing
// one is rejected with core.ErrDuplicate.
func (m *EntryManager) Add(ctx context.Context, e core.TearEntry) (core.TearEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return core.TearEntry{}, err
	}
	if err := m.checkRefs(e); err != nil {
		return core.TearEntry{}, err
	}
	if m.index(e.ID) >= 0 {
		return core.TearEntry{}, fmt.Errorf("entry %s: %w", e.ID, core.ErrDuplicate)
	}
	sig := e.Signature()
	for _, it := range m.items {
		if it.Signature() == sig {
			return core.TearEntry{}, fmt.Errorf("entry at %s: %w", e.Date.Format(time.RFC3339), core.ErrDuplicate)
		}
	}

	e = e.Clone()
	if err := m.env.touch(ctx, core.KindEntry, e.ID); err != nil {
		return core.TearEntry{}, err
	}
	if err := m.env.store.SaveEntry(ctx, e); err != nil {
		return core.TearEntry{}, fmt.Errorf("save entry: %w", err)
	}
	m.items = append(m.items, e)
	m.sort()

	slog.DebugContext(ctx, "Entry added", "id", e.ID, "date", e.Date)
	return e.Clone(), nil
}

// Update replaces every editable field of an entry. Nil references clear
// the corresponding field.
func (m *EntryManager) Update(ctx context.Context, id uuid.UUID, date time.Time, emojiID, tagID *uuid.UUID, note string) (core.TearEntry, error) {
	i := m.index(id)
	if i < 0 {
		return core.TearEntry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	e := core.TearEntry{
		ID:      id,
		Date:    date,
		EmojiID: core.CloneID(emojiID),
		TagID:   core.CloneID(tagID),
		Note:    note,
	}
	if err := e.Validate(); err != nil {
		return core.TearEntry{}, err
	}
	if err := m.checkRefs(e); err != nil {
		return core.TearEntry{}, err
	}
	if err := m.env.touch(ctx, core.KindEntry, id); err != nil {
		return core.TearEntry{}, err
	}
	if err := m.env.store.SaveEntry(ctx, e); err != nil {
		return core.TearEntry{}, fmt.Errorf("save entry: %w", err)
	}
	m.items[i] = e
	m.sort()
	return e.Clone(), nil
}

// Delete removes an entry and records a tombstone for it.
func (m *EntryManager) Delete(ctx context.Context, id uuid.UUID) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	if err := m.env.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return m.env.bury(ctx, core.KindEntry, id)
}

// Reload replaces the in-memory list with the store contents.
func (m *EntryManager) Reload(ctx context.Context) error {
	items, err := m.env.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	m.items = items
	m.sort()
	return nil
}

// Put upserts an entry without the duplicate check. References must
// already be resolved by the caller.
func (m *EntryManager) Put(ctx context.Context, e core.TearEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := m.checkRefs(e); err != nil {
		return err
	}
	e = e.Clone()
	if err := m.env.store.SaveEntry(ctx, e); err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	if i := m.index(e.ID); i >= 0 {
		m.items[i] = e
	} else {
		m.items = append(m.items, e)
	}
	m.sort()
	return nil
}

func (m *EntryManager) checkRefs(e core.TearEntry) error {
	if e.EmojiID != nil {
		if _, ok := m.emojis.Get(*e.EmojiID); !ok {
			return fmt.Errorf("emoji %s: %w", *e.EmojiID, core.ErrUnknownEmoji)
		}
	}
	if e.TagID != nil {
		if _, ok := m.tags.Get(*e.TagID); !ok {
			return fmt.Errorf("tag %s: %w", *e.TagID, core.ErrUnknownTag)
		}
	}
	return nil
}

// repoint rewrites references of the given kind from one ID to another;
// a nil target clears them. Each entry is committed to memory only after
// its store write succeeded. It returns the number of entries changed.
func (m *EntryManager) repoint(ctx context.Context, kind core.Kind, from uuid.UUID, to *uuid.UUID) (int, error) {
	if kind != core.KindEmoji && kind != core.KindTag {
		return 0, fmt.Errorf("repoint: unsupported kind %q", kind)
	}
	changed := 0
	for i := range m.items {
		e := m.items[i].Clone()
		ref := &e.TagID
		if kind == core.KindEmoji {
			ref = &e.EmojiID
		}
		if *ref == nil || **ref != from {
			continue
		}
		*ref = core.CloneID(to)
		if err := m.env.touch(ctx, core.KindEntry, e.ID); err != nil {
			return changed, err
		}
		if err := m.env.store.SaveEntry(ctx, e); err != nil {
			return changed, fmt.Errorf("save entry: %w", err)
		}
		m.items[i] = e
		changed++
	}
	if changed > 0 {
		slog.DebugContext(ctx, "Entry references rewritten", "kind", kind, "from", from, "count", changed)
	}
	return changed, nil
}

func (m *EntryManager) index(id uuid.UUID) int {
	for i, e := range m.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (m *EntryManager) sort() {
	sortEntries(m.items)
}

// sortEntries orders entries newest first, breaking ties by ID.
func sortEntries(items []core.TearEntry) {
	sort.SliceStable(items, func(a, b int) bool {
		if !items[a].Date.Equal(items[b].Date) {
			return items[a].Date.After(items[b].Date)
		}
		return items[a].ID.String() < items[b].ID.String()
	})
}
