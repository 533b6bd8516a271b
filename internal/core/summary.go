package core

import (
	"time"

	"github.com/google/uuid"
)

// EmojiCount is the number of entries for one intensity.
type EmojiCount struct {
	EmojiID uuid.UUID
	Symbol  string
	Count   int
}

// TagCount is the number of entries carrying one tag.
type TagCount struct {
	TagID uuid.UUID
	Name  string
	Count int
}

// MonthGroup is a compact listing of the entries for a specific year+month.
type MonthGroup struct {
	Year    int
	Month   int // 1-12
	Label   string
	Entries []TearEntry
}

// MonthIntensity holds per-intensity counts for one month; Counts is
// aligned with the emoji order.
type MonthIntensity struct {
	Month  time.Time
	Counts []int
}

// YearSummary bundles every yearly figure a chart needs.
type YearSummary struct {
	Year    int
	Total   int
	Emojis  []EmojiCount
	Tags    []TagCount
	Monthly []MonthIntensity
}

// DefaultEmojis are seeded when the store holds no intensities.
func DefaultEmojis() []EmojiIntensity {
	seed := []struct {
		symbol  string
		opacity float64
	}{
		{"🥲", 0.4},
		{"😢", 0.7},
		{"😭", 1.0},
	}
	out := make([]EmojiIntensity, 0, len(seed))
	for i, s := range seed {
		out = append(out, NewEmojiIntensity(s.symbol, DefaultColorHex, s.opacity, i))
	}
	return out
}

// DefaultTags are seeded when the store holds no tags.
func DefaultTags() []TagItem {
	names := []string{"#Здоровье", "#Одиночество", "#Работа", "#Семья", "#Фильмы"}
	out := make([]TagItem, 0, len(names))
	for i, n := range names {
		out = append(out, NewTagItem(n, i))
	}
	return out
}

// PlaceholderEmoji is shown for entries when no intensity exists at all.
func PlaceholderEmoji() EmojiIntensity {
	return EmojiIntensity{Symbol: "😶", ColorHex: "#808080", Opacity: 0.5}
}
