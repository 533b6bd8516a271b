// Package core holds the journal domain types and their validation.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

const (
	// MaxNoteLength bounds the free-text note of an entry (in runes).
	MaxNoteLength = 2000

	DefaultColorHex = "#0000FF"
)

type (
	// TearEntry is one journal record of a sad moment.
	TearEntry struct {
		ID      uuid.UUID
		Date    time.Time
		EmojiID *uuid.UUID // Intensity reference, optional
		TagID   *uuid.UUID // Tag reference, optional
		Note    string
	}

	// TagItem is a user-defined category label attached to an entry.
	TagItem struct {
		ID    uuid.UUID
		Name  string
		Order int
	}

	// EmojiIntensity represents how strongly the user felt.
	EmojiIntensity struct {
		ID       uuid.UUID
		Symbol   string
		ColorHex string
		Opacity  float64
		Order    int
	}

	// Signature identifies entries that are considered the same moment.
	Signature struct {
		Minute  int64
		EmojiID uuid.UUID
		TagID   uuid.UUID
		Note    string
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("duplicate")
	ErrUnknownEmoji   = errors.New("unknown emoji intensity")
	ErrUnknownTag     = errors.New("unknown tag")
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrNoteTooLong    = fmt.Errorf("note too long (max %d characters)", MaxNoteLength)
	ErrEmptyTagName   = errors.New("empty tag name")
	ErrEmptySymbol    = errors.New("empty emoji symbol")
	ErrInvalidColor   = errors.New("invalid color")
	ErrInvalidOpacity = errors.New("opacity must be between 0 and 1")
)

// IsValidation reports whether err is an entity validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{ErrZeroDate, ErrNoteTooLong, ErrEmptyTagName, ErrEmptySymbol, ErrInvalidColor, ErrInvalidOpacity} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var folder = cases.Fold()

// NewTearEntry builds an entry with a fresh ID.
func NewTearEntry(date time.Time, emojiID, tagID *uuid.UUID, note string) TearEntry {
	return TearEntry{
		ID:      uuid.New(),
		Date:    date,
		EmojiID: CloneID(emojiID),
		TagID:   CloneID(tagID),
		Note:    note,
	}
}

// NewTagItem builds a tag with a fresh ID and a trimmed name.
func NewTagItem(name string, order int) TagItem {
	return TagItem{ID: uuid.New(), Name: NormalizeTagName(name), Order: order}
}

// NewEmojiIntensity builds an emoji intensity with a fresh ID.
func NewEmojiIntensity(symbol, colorHex string, opacity float64, order int) EmojiIntensity {
	return EmojiIntensity{
		ID:       uuid.New(),
		Symbol:   strings.TrimSpace(symbol),
		ColorHex: colorHex,
		Opacity:  opacity,
		Order:    order,
	}
}

func (e TearEntry) Validate() error {
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if utf8.RuneCountInString(e.Note) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// Signature returns the duplicate-detection key: the minute of the date
// (UTC), both references and the note text.
func (e TearEntry) Signature() Signature {
	s := Signature{
		Minute: e.Date.UTC().Truncate(time.Minute).Unix(),
		Note:   e.Note,
	}
	if e.EmojiID != nil {
		s.EmojiID = *e.EmojiID
	}
	if e.TagID != nil {
		s.TagID = *e.TagID
	}
	return s
}

// Clone returns a copy that shares no pointers with e.
func (e TearEntry) Clone() TearEntry {
	e.EmojiID = CloneID(e.EmojiID)
	e.TagID = CloneID(e.TagID)
	return e
}

func (t TagItem) Validate() error {
	if NormalizeTagName(t.Name) == "" {
		return ErrEmptyTagName
	}
	return nil
}

// Key returns the case-insensitive identity of the tag name.
func (t TagItem) Key() string {
	return TagKey(t.Name)
}

func (ei EmojiIntensity) Validate() error {
	if strings.TrimSpace(ei.Symbol) == "" {
		return ErrEmptySymbol
	}
	if _, err := ParseHexColor(ei.ColorHex); err != nil {
		return err
	}
	if ei.Opacity < 0 || ei.Opacity > 1 {
		return ErrInvalidOpacity
	}
	return nil
}

// NormalizeTagName trims surrounding whitespace.
func NormalizeTagName(name string) string {
	return strings.TrimSpace(name)
}

// TagKey folds a tag name so that "#Work" and "#work" collide.
func TagKey(name string) string {
	return folder.String(NormalizeTagName(name))
}

// CloneID copies an optional reference.
func CloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// SameID reports whether two optional references point at the same entity.
func SameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Kind names an entity type. The values double as remote record types.
type Kind string

const (
	KindEntry Kind = "TearEntry"
	KindTag   Kind = "TagItem"
	KindEmoji Kind = "EmojiIntensity"
)

// Kinds lists entity kinds in dependency order.
var Kinds = []Kind{KindEmoji, KindTag, KindEntry}

// Tombstone remembers a local delete until it has been propagated remotely.
type Tombstone struct {
	Kind      Kind      `json:"kind"`
	ID        uuid.UUID `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
}

// PendingChange marks an entity written locally since its last successful
// upload. A pending entity keeps its local fields when remote records are
// merged.
type PendingChange struct {
	Kind      Kind      `json:"kind"`
	ID        uuid.UUID `json:"id"`
	ChangedAt time.Time `json:"changedAt"`
}
