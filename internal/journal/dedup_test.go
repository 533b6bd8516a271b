package journal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icried/internal/core"
)

func TestRemoveDuplicatesMergesEmojis(t *testing.T) {
	ctx := context.Background()
	j, store := newTestJournal(t)
	original := j.Emojis()[1] // 😢

	dup := core.EmojiIntensity{ID: uuid.New(), Symbol: "😢", ColorHex: "#FF0000", Opacity: 0.3, Order: 7}
	var entry core.TearEntry
	require.NoError(t, j.Apply(func(tx *Tx) error {
		require.NoError(t, tx.Emojis.Put(ctx, dup))
		entry = core.NewTearEntry(testNow, &dup.ID, nil, "")
		return tx.Entries.Put(ctx, entry)
	}))

	report, err := j.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Emojis)
	assert.Equal(t, 0, report.Tags)
	assert.Equal(t, 0, report.Entries)
	assert.Equal(t, []core.Tombstone{{Kind: core.KindEmoji, ID: dup.ID}}, report.Removed)

	emojis := j.Emojis()
	require.Len(t, emojis, 3)
	for i, e := range emojis {
		assert.Equal(t, i, e.Order)
	}

	got, err := j.Entry(entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EmojiID)
	assert.Equal(t, original.ID, *got.EmojiID)

	ts, _ := store.ListTombstones(ctx)
	require.Len(t, ts, 1)
	assert.Equal(t, dup.ID, ts[0].ID)
}

func TestRemoveDuplicatesMergesTagsCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	j, _ := newTestJournal(t, WithSeedDefaults(false))

	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	var entry core.TearEntry
	require.NoError(t, j.Apply(func(tx *Tx) error {
		require.NoError(t, tx.Tags.Put(ctx, core.TagItem{ID: high, Name: "#Work", Order: 0}))
		require.NoError(t, tx.Tags.Put(ctx, core.TagItem{ID: low, Name: " #work", Order: 0}))
		entry = core.NewTearEntry(testNow, nil, &high, "")
		return tx.Entries.Put(ctx, entry)
	}))

	report, err := j.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Tags)

	tags := j.Tags()
	require.Len(t, tags, 1)
	assert.Equal(t, low, tags[0].ID, "equal orders fall back to the lower ID")

	got, _ := j.Entry(entry.ID)
	require.NotNil(t, got.TagID)
	assert.Equal(t, low, *got.TagID)
}

func TestRemoveDuplicatesEntriesBySignature(t *testing.T) {
	ctx := context.Background()
	j, store := newTestJournal(t)
	emoji := j.Emojis()[0].ID

	a := core.TearEntry{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Date: testNow, EmojiID: &emoji, Note: "same"}
	b := core.TearEntry{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Date: testNow.Add(20 * time.Second), EmojiID: &emoji, Note: "same"}
	c := core.TearEntry{ID: uuid.New(), Date: testNow, EmojiID: &emoji, Note: "different"}
	require.NoError(t, j.Apply(func(tx *Tx) error {
		for _, e := range []core.TearEntry{a, b, c} {
			if err := tx.Entries.Put(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	report, err := j.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Entries)

	// b is newer so it comes first in display order and wins.
	_, err = j.Entry(b.ID)
	assert.NoError(t, err)
	_, err = j.Entry(a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Len(t, j.Entries(), 2)

	stored, _ := store.ListEntries(ctx)
	assert.Len(t, stored, 2)
	assert.Equal(t, []core.Tombstone{{Kind: core.KindEntry, ID: a.ID}}, report.Removed)
}

func TestRemoveDuplicatesEntriesAfterEmojiMerge(t *testing.T) {
	ctx := context.Background()
	j, _ := newTestJournal(t)
	original := j.Emojis()[0]
	dup := core.EmojiIntensity{ID: uuid.New(), Symbol: original.Symbol, ColorHex: "#0000FF", Opacity: 1, Order: 10}

	require.NoError(t, j.Apply(func(tx *Tx) error {
		require.NoError(t, tx.Emojis.Put(ctx, dup))
		require.NoError(t, tx.Entries.Put(ctx, core.NewTearEntry(testNow, &original.ID, nil, "n")))
		return tx.Entries.Put(ctx, core.NewTearEntry(testNow, &dup.ID, nil, "n"))
	}))

	report, err := j.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Emojis)
	assert.Equal(t, 1, report.Entries)
	assert.Equal(t, 2, report.Total())
	assert.Len(t, j.Entries(), 1)
}

func TestRemoveDuplicatesRepeatedIDs(t *testing.T) {
	ctx := context.Background()
	j, store := newTestJournal(t, WithSeedDefaults(false))

	id := uuid.New()
	older := core.TearEntry{ID: id, Date: testNow.Add(-time.Hour), Note: "older"}
	newer := core.TearEntry{ID: id, Date: testNow, Note: "newer"}
	require.NoError(t, store.SaveEntry(ctx, older))
	j.entries.items = []core.TearEntry{older, newer}
	sortEntries(j.entries.items)

	report, err := j.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Entries)
	assert.Empty(t, report.Removed)

	got, err := j.Entry(id)
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Note)

	stored, _ := store.ListEntries(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, "newer", stored[0].Note)

	ts, _ := store.ListTombstones(ctx)
	assert.Empty(t, ts)
}

func TestRemoveDuplicatesNoop(t *testing.T) {
	j, store := newTestJournal(t)
	report, err := j.RemoveDuplicates(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total())
	ts, _ := store.ListTombstones(context.Background())
	assert.Empty(t, ts)
}
