package cloud

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icried/internal/core"
)

func TestEntryRecordRoundTrip(t *testing.T) {
	emoji := uuid.New()
	e := core.TearEntry{
		ID:      uuid.New(),
		Date:    time.Date(2025, 4, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600)),
		EmojiID: &emoji,
		Note:    "note",
	}
	r := EntryRecord(e)
	assert.Equal(t, core.KindEntry, r.Type)
	assert.Equal(t, e.ID.String(), r.Name)
	assert.Equal(t, "", r.Fields[FieldTagID])

	got := MergeEntry(core.TearEntry{ID: e.ID}, r)
	assert.True(t, got.Date.Equal(e.Date))
	require.NotNil(t, got.EmojiID)
	assert.Equal(t, emoji, *got.EmojiID)
	assert.Nil(t, got.TagID)
	assert.Equal(t, "note", got.Note)
}

func TestMergeKeepsAbsentFields(t *testing.T) {
	tag := uuid.New()
	base := core.TearEntry{ID: uuid.New(), Date: time.Now().UTC(), TagID: &tag, Note: "local"}

	got := MergeEntry(base, Record{Type: core.KindEntry, Fields: map[string]any{FieldNote: "remote"}})
	assert.Equal(t, "remote", got.Note)
	require.NotNil(t, got.TagID)
	assert.Equal(t, tag, *got.TagID)
	assert.True(t, got.Date.Equal(base.Date))

	cleared := MergeEntry(base, Record{Type: core.KindEntry, Fields: map[string]any{FieldTagID: ""}})
	assert.Nil(t, cleared.TagID)
}

func TestMergeTagAndEmojiNumericEncodings(t *testing.T) {
	tag := MergeTag(core.TagItem{Name: "#old", Order: 9}, Record{Fields: map[string]any{
		FieldName:  "  #new ",
		FieldOrder: float64(2),
	}})
	assert.Equal(t, "#new", tag.Name)
	assert.Equal(t, 2, tag.Order)

	emoji := MergeEmoji(core.EmojiIntensity{Symbol: "😢", ColorHex: "#0000FF", Opacity: 1}, Record{Fields: map[string]any{
		FieldOpacity:  "0,5",
		FieldOrder:    "3",
		FieldColorHex: "",
	}})
	assert.Equal(t, "😢", emoji.Symbol)
	assert.Equal(t, "#0000FF", emoji.ColorHex)
	assert.Equal(t, 0.5, emoji.Opacity)
	assert.Equal(t, 3, emoji.Order)
}

func TestRecordAccessors(t *testing.T) {
	r := Record{Name: " not-a-uuid ", Fields: map[string]any{
		"n":    int64(4),
		"bad":  "abc",
		"ts":   float64(0),
		"ref":  "garbage",
		"none": nil,
	}}
	n, ok := r.Int("n")
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	_, ok = r.Int("bad")
	assert.False(t, ok)
	ts, ok := r.Time("ts")
	assert.True(t, ok)
	assert.Equal(t, int64(0), ts.Unix())

	id, present := r.Ref("ref")
	assert.True(t, present)
	assert.Nil(t, id)
	_, present = r.Ref("none")
	assert.False(t, present)
	assert.False(t, r.Has("none"))

	_, err := r.ID()
	assert.Error(t, err)
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t, []string{"date", "emojiId", "tagId", "note"}, FieldNames(core.KindEntry))
	assert.Equal(t, []string{"name", "order"}, FieldNames(core.KindTag))
	assert.Equal(t, []string{"emoji", "colorHex", "opacity", "order"}, FieldNames(core.KindEmoji))
	assert.Nil(t, FieldNames("Other"))
}

func TestAccountStatusString(t *testing.T) {
	assert.Equal(t, "available", StatusAvailable.String())
	assert.Equal(t, "temporarily_unavailable", StatusTemporarilyUnavailable.String())
	assert.Equal(t, "could_not_determine", AccountStatus(42).String())
}
