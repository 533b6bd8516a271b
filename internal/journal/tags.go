package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"icried/internal/core"
)

// TagManager holds the tags ordered by their Order field.
type TagManager struct {
	env     *env
	items   []core.TagItem
	entries *EntryManager
}

func (m *TagManager) List() []core.TagItem {
	out := make([]core.TagItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *TagManager) Len() int { return len(m.items) }

func (m *TagManager) Get(id uuid.UUID) (core.TagItem, bool) {
	i := m.index(id)
	if i < 0 {
		return core.TagItem{}, false
	}
	return m.items[i], true
}

// FindByName looks a tag up case-insensitively.
func (m *TagManager) FindByName(name string) (core.TagItem, bool) {
	key := core.TagKey(name)
	for _, t := range m.items {
		if t.Key() == key {
			return t, true
		}
	}
	return core.TagItem{}, false
}

// Add appends a tag after the existing ones.
func (m *TagManager) Add(ctx context.Context, name string) (core.TagItem, error) {
	t := core.NewTagItem(name, len(m.items))
	if err := t.Validate(); err != nil {
		return core.TagItem{}, err
	}
	if _, ok := m.FindByName(t.Name); ok {
		return core.TagItem{}, fmt.Errorf("tag %q: %w", t.Name, core.ErrDuplicate)
	}
	if err := m.env.touch(ctx, core.KindTag, t.ID); err != nil {
		return core.TagItem{}, err
	}
	if err := m.env.store.SaveTag(ctx, t); err != nil {
		return core.TagItem{}, fmt.Errorf("save tag: %w", err)
	}
	m.items = append(m.items, t)
	m.sort()

	slog.DebugContext(ctx, "Tag added", "id", t.ID, "name", t.Name)
	return t, nil
}

func (m *TagManager) Rename(ctx context.Context, id uuid.UUID, name string) (core.TagItem, error) {
	i := m.index(id)
	if i < 0 {
		return core.TagItem{}, fmt.Errorf("tag %s: %w", id, core.ErrNotFound)
	}
	t := m.items[i]
	t.Name = core.NormalizeTagName(name)
	if err := t.Validate(); err != nil {
		return core.TagItem{}, err
	}
	if other, ok := m.FindByName(t.Name); ok && other.ID != id {
		return core.TagItem{}, fmt.Errorf("tag %q: %w", t.Name, core.ErrDuplicate)
	}
	if err := m.env.touch(ctx, core.KindTag, t.ID); err != nil {
		return core.TagItem{}, err
	}
	if err := m.env.store.SaveTag(ctx, t); err != nil {
		return core.TagItem{}, fmt.Errorf("save tag: %w", err)
	}
	m.items[i] = t
	return t, nil
}

// Remove deletes a tag and clears it from every entry that used it.
func (m *TagManager) Remove(ctx context.Context, id uuid.UUID) error {
	if m.index(id) < 0 {
		return fmt.Errorf("tag %s: %w", id, core.ErrNotFound)
	}
	if _, err := m.entries.repoint(ctx, core.KindTag, id, nil); err != nil {
		return err
	}
	return m.drop(ctx, id)
}

// Move reorders tags and renumbers them 0..n-1.
func (m *TagManager) Move(ctx context.Context, from []int, to int) error {
	moved, err := moveOffsets(m.items, from, to)
	if err != nil {
		return err
	}
	m.items = moved
	return m.renumber(ctx)
}

func (m *TagManager) Reload(ctx context.Context) error {
	items, err := m.env.store.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	m.items = items
	m.sort()
	return nil
}

// Put upserts a tag without the uniqueness check.
func (m *TagManager) Put(ctx context.Context, t core.TagItem) error {
	t.Name = core.NormalizeTagName(t.Name)
	if err := t.Validate(); err != nil {
		return err
	}
	if err := m.env.store.SaveTag(ctx, t); err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	if i := m.index(t.ID); i >= 0 {
		m.items[i] = t
	} else {
		m.items = append(m.items, t)
	}
	m.sort()
	return nil
}

// drop removes a tag without touching entries.
func (m *TagManager) drop(ctx context.Context, id uuid.UUID) error {
	i := m.index(id)
	if i < 0 {
		return nil
	}
	if err := m.env.store.DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return m.env.bury(ctx, core.KindTag, id)
}

// renumber assigns orders by list position and persists changed tags.
func (m *TagManager) renumber(ctx context.Context) error {
	for i := range m.items {
		if m.items[i].Order == i {
			continue
		}
		t := m.items[i]
		t.Order = i
		if err := m.env.touch(ctx, core.KindTag, t.ID); err != nil {
			return err
		}
		if err := m.env.store.SaveTag(ctx, t); err != nil {
			return fmt.Errorf("save tag order: %w", err)
		}
		m.items[i] = t
	}
	return nil
}

func (m *TagManager) index(id uuid.UUID) int {
	for i, t := range m.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *TagManager) sort() {
	sort.SliceStable(m.items, func(a, b int) bool {
		if m.items[a].Order != m.items[b].Order {
			return m.items[a].Order < m.items[b].Order
		}
		return m.items[a].ID.String() < m.items[b].ID.String()
	})
}
