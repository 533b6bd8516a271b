package cloud

import (
	"time"

	"github.com/google/uuid"

	"icried/internal/core"
)

const (
	FieldDate     = "date"
	FieldEmojiID  = "emojiId"
	FieldTagID    = "tagId"
	FieldNote     = "note"
	FieldName     = "name"
	FieldOrder    = "order"
	FieldEmoji    = "emoji"
	FieldColorHex = "colorHex"
	FieldOpacity  = "opacity"
)

// FieldNames lists the fields of a record type in column order.
func FieldNames(kind core.Kind) []string {
	switch kind {
	case core.KindEntry:
		return []string{FieldDate, FieldEmojiID, FieldTagID, FieldNote}
	case core.KindTag:
		return []string{FieldName, FieldOrder}
	case core.KindEmoji:
		return []string{FieldEmoji, FieldColorHex, FieldOpacity, FieldOrder}
	default:
		return nil
	}
}

func EntryRecord(e core.TearEntry) Record {
	return Record{
		Type: core.KindEntry,
		Name: e.ID.String(),
		Fields: map[string]any{
			FieldDate:    e.Date.UTC().Format(time.RFC3339Nano),
			FieldEmojiID: refString(e.EmojiID),
			FieldTagID:   refString(e.TagID),
			FieldNote:    e.Note,
		},
	}
}

func TagRecord(t core.TagItem) Record {
	return Record{
		Type: core.KindTag,
		Name: t.ID.String(),
		Fields: map[string]any{
			FieldName:  t.Name,
			FieldOrder: t.Order,
		},
	}
}

func EmojiRecord(e core.EmojiIntensity) Record {
	return Record{
		Type: core.KindEmoji,
		Name: e.ID.String(),
		Fields: map[string]any{
			FieldEmoji:    e.Symbol,
			FieldColorHex: e.ColorHex,
			FieldOpacity:  e.Opacity,
			FieldOrder:    e.Order,
		},
	}
}

// MergeTag overlays the fields present in r onto base.
func MergeTag(base core.TagItem, r Record) core.TagItem {
	if v, ok := r.String(FieldName); ok {
		base.Name = core.NormalizeTagName(v)
	}
	if v, ok := r.Int(FieldOrder); ok {
		base.Order = v
	}
	return base
}

// MergeEmoji overlays the fields present in r onto base.
func MergeEmoji(base core.EmojiIntensity, r Record) core.EmojiIntensity {
	if v, ok := r.String(FieldEmoji); ok {
		base.Symbol = v
	}
	if v, ok := r.String(FieldColorHex); ok && v != "" {
		base.ColorHex = v
	}
	if v, ok := r.Float(FieldOpacity); ok {
		base.Opacity = v
	}
	if v, ok := r.Int(FieldOrder); ok {
		base.Order = v
	}
	return base
}

// MergeEntry overlays the fields present in r onto base. References are
// taken as-is; the caller resolves them.
func MergeEntry(base core.TearEntry, r Record) core.TearEntry {
	base = base.Clone()
	if v, ok := r.Time(FieldDate); ok {
		base.Date = v
	}
	if id, ok := r.Ref(FieldEmojiID); ok {
		base.EmojiID = id
	}
	if id, ok := r.Ref(FieldTagID); ok {
		base.TagID = id
	}
	if v, ok := r.String(FieldNote); ok {
		base.Note = v
	}
	return base
}

func refString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
