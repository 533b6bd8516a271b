package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"icried/internal/core"
)

// EmojiManager holds the emoji intensities ordered by their Order field.
type EmojiManager struct {
	env     *env
	items   []core.EmojiIntensity
	entries *EntryManager
}

func (m *EmojiManager) List() []core.EmojiIntensity {
	out := make([]core.EmojiIntensity, len(m.items))
	copy(out, m.items)
	return out
}

func (m *EmojiManager) Len() int { return len(m.items) }

func (m *EmojiManager) Get(id uuid.UUID) (core.EmojiIntensity, bool) {
	i := m.index(id)
	if i < 0 {
		return core.EmojiIntensity{}, false
	}
	return m.items[i], true
}

func (m *EmojiManager) FindBySymbol(symbol string) (core.EmojiIntensity, bool) {
	symbol = strings.TrimSpace(symbol)
	for _, e := range m.items {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return core.EmojiIntensity{}, false
}

// Add appends an intensity after the existing ones. Symbols are unique.
func (m *EmojiManager) Add(ctx context.Context, symbol, colorHex string, opacity float64) (core.EmojiIntensity, error) {
	e := core.NewEmojiIntensity(symbol, colorHex, opacity, len(m.items))
	if err := e.Validate(); err != nil {
		return core.EmojiIntensity{}, err
	}
	e.ColorHex, _ = core.NormalizeHex(e.ColorHex)
	if _, ok := m.FindBySymbol(e.Symbol); ok {
		return core.EmojiIntensity{}, fmt.Errorf("emoji %q: %w", e.Symbol, core.ErrDuplicate)
	}
	if err := m.env.touch(ctx, core.KindEmoji, e.ID); err != nil {
		return core.EmojiIntensity{}, err
	}
	if err := m.env.store.SaveEmoji(ctx, e); err != nil {
		return core.EmojiIntensity{}, fmt.Errorf("save emoji: %w", err)
	}
	m.items = append(m.items, e)
	m.sort()

	slog.DebugContext(ctx, "Emoji added", "id", e.ID, "symbol", e.Symbol)
	return e, nil
}

// Update changes symbol, colour and opacity; ID and order are kept.
func (m *EmojiManager) Update(ctx context.Context, id uuid.UUID, symbol, colorHex string, opacity float64) (core.EmojiIntensity, error) {
	i := m.index(id)
	if i < 0 {
		return core.EmojiIntensity{}, fmt.Errorf("emoji %s: %w", id, core.ErrNotFound)
	}
	e := m.items[i]
	e.Symbol = strings.TrimSpace(symbol)
	e.ColorHex = colorHex
	e.Opacity = opacity
	if err := e.Validate(); err != nil {
		return core.EmojiIntensity{}, err
	}
	e.ColorHex, _ = core.NormalizeHex(e.ColorHex)
	if other, ok := m.FindBySymbol(e.Symbol); ok && other.ID != id {
		return core.EmojiIntensity{}, fmt.Errorf("emoji %q: %w", e.Symbol, core.ErrDuplicate)
	}
	if err := m.env.touch(ctx, core.KindEmoji, e.ID); err != nil {
		return core.EmojiIntensity{}, err
	}
	if err := m.env.store.SaveEmoji(ctx, e); err != nil {
		return core.EmojiIntensity{}, fmt.Errorf("save emoji: %w", err)
	}
	m.items[i] = e
	return e, nil
}

// Remove deletes an intensity and clears it from every entry that used it.
func (m *EmojiManager) Remove(ctx context.Context, id uuid.UUID) error {
	if m.index(id) < 0 {
		return fmt.Errorf("emoji %s: %w", id, core.ErrNotFound)
	}
	if _, err := m.entries.repoint(ctx, core.KindEmoji, id, nil); err != nil {
		return err
	}
	return m.drop(ctx, id)
}

func (m *EmojiManager) Move(ctx context.Context, from []int, to int) error {
	moved, err := moveOffsets(m.items, from, to)
	if err != nil {
		return err
	}
	m.items = moved
	return m.renumber(ctx)
}

func (m *EmojiManager) Reload(ctx context.Context) error {
	items, err := m.env.store.ListEmojis(ctx)
	if err != nil {
		return fmt.Errorf("list emojis: %w", err)
	}
	m.items = items
	m.sort()
	return nil
}

// Put upserts an intensity without the uniqueness check.
func (m *EmojiManager) Put(ctx context.Context, e core.EmojiIntensity) error {
	e.Symbol = strings.TrimSpace(e.Symbol)
	if err := e.Validate(); err != nil {
		return err
	}
	e.ColorHex, _ = core.NormalizeHex(e.ColorHex)
	if err := m.env.store.SaveEmoji(ctx, e); err != nil {
		return fmt.Errorf("save emoji: %w", err)
	}
	if i := m.index(e.ID); i >= 0 {
		m.items[i] = e
	} else {
		m.items = append(m.items, e)
	}
	m.sort()
	return nil
}

func (m *EmojiManager) drop(ctx context.Context, id uuid.UUID) error {
	i := m.index(id)
	if i < 0 {
		return nil
	}
	if err := m.env.store.DeleteEmoji(ctx, id); err != nil {
		return fmt.Errorf("delete emoji: %w", err)
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return m.env.bury(ctx, core.KindEmoji, id)
}

func (m *EmojiManager) renumber(ctx context.Context) error {
	for i := range m.items {
		if m.items[i].Order == i {
			continue
		}
		e := m.items[i]
		e.Order = i
		if err := m.env.touch(ctx, core.KindEmoji, e.ID); err != nil {
			return err
		}
		if err := m.env.store.SaveEmoji(ctx, e); err != nil {
			return fmt.Errorf("save emoji order: %w", err)
		}
		m.items[i] = e
	}
	return nil
}

func (m *EmojiManager) index(id uuid.UUID) int {
	for i, e := range m.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (m *EmojiManager) sort() {
	sort.SliceStable(m.items, func(a, b int) bool {
		if m.items[a].Order != m.items[b].Order {
			return m.items[a].Order < m.items[b].Order
		}
		return m.items[a].ID.String() < m.items[b].ID.String()
	})
}
