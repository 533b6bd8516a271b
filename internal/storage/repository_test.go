package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"icried/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "icried.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestEntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	emoji := uuid.New()
	rome := time.FixedZone("CET", 3600)
	e := core.TearEntry{
		ID:      uuid.New(),
		Date:    time.Date(2025, 2, 3, 21, 15, 7, 500, rome),
		EmojiID: &emoji,
		Note:    "film ending",
	}
	if err := repo.SaveEntry(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.ListEntries(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected list: %+v err=%v", got, err)
	}
	if got[0].ID != e.ID || !got[0].Date.Equal(e.Date) || got[0].Note != e.Note {
		t.Fatalf("round trip mismatch: %+v vs %+v", got[0], e)
	}
	if got[0].EmojiID == nil || *got[0].EmojiID != emoji || got[0].TagID != nil {
		t.Fatalf("references mismatch: %+v", got[0])
	}

	// Upsert clears the emoji and sets a note.
	e.EmojiID = nil
	e.Note = "edited"
	if err := repo.SaveEntry(ctx, e); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = repo.ListEntries(ctx)
	if len(got) != 1 || got[0].EmojiID != nil || got[0].Note != "edited" {
		t.Fatalf("unexpected after upsert: %+v", got)
	}

	if err := repo.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.ListEntries(ctx); len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestTagsAndEmojisOrdered(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i, name := range []string{"#C", "#A", "#B"} {
		if err := repo.SaveTag(ctx, core.TagItem{ID: uuid.New(), Name: name, Order: 2 - i}); err != nil {
			t.Fatalf("save tag: %v", err)
		}
	}
	tags, err := repo.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 3 || tags[0].Name != "#B" || tags[2].Name != "#C" {
		t.Fatalf("unexpected tag order: %+v", tags)
	}

	for _, e := range core.DefaultEmojis() {
		if err := repo.SaveEmoji(ctx, e); err != nil {
			t.Fatalf("save emoji: %v", err)
		}
	}
	emojis, err := repo.ListEmojis(ctx)
	if err != nil || len(emojis) != 3 {
		t.Fatalf("unexpected emojis: %+v err=%v", emojis, err)
	}
	if emojis[0].Symbol != "🥲" || emojis[2].Opacity != 1.0 || emojis[1].ColorHex != core.DefaultColorHex {
		t.Fatalf("unexpected emoji contents: %+v", emojis)
	}

	if err := repo.DeleteEmoji(ctx, emojis[0].ID); err != nil {
		t.Fatalf("delete emoji: %v", err)
	}
	if emojis, _ := repo.ListEmojis(ctx); len(emojis) != 2 {
		t.Fatalf("expected 2 emojis, got %d", len(emojis))
	}
}

func TestTombstonesAndLastRefresh(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	lr, err := repo.LastRefresh(ctx)
	if err != nil || !lr.IsZero() {
		t.Fatalf("expected zero last refresh, got %v err=%v", lr, err)
	}

	when := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	id := uuid.New()
	if err := repo.SaveTombstone(ctx, core.Tombstone{Kind: core.KindTag, ID: id, DeletedAt: when}); err != nil {
		t.Fatalf("save tombstone: %v", err)
	}
	// Saving again is an upsert.
	if err := repo.SaveTombstone(ctx, core.Tombstone{Kind: core.KindTag, ID: id, DeletedAt: when.Add(time.Hour)}); err != nil {
		t.Fatalf("resave tombstone: %v", err)
	}
	ts, err := repo.ListTombstones(ctx)
	if err != nil || len(ts) != 1 || !ts[0].DeletedAt.Equal(when.Add(time.Hour)) {
		t.Fatalf("unexpected tombstones: %+v err=%v", ts, err)
	}
	if err := repo.DeleteTombstone(ctx, core.KindTag, id); err != nil {
		t.Fatalf("delete tombstone: %v", err)
	}
	if ts, _ := repo.ListTombstones(ctx); len(ts) != 0 {
		t.Fatalf("expected no tombstones, got %+v", ts)
	}

	if err := repo.SetLastRefresh(ctx, when); err != nil {
		t.Fatalf("set last refresh: %v", err)
	}
	if err := repo.SetLastRefresh(ctx, when.Add(time.Minute)); err != nil {
		t.Fatalf("set last refresh again: %v", err)
	}
	lr, err = repo.LastRefresh(ctx)
	if err != nil || !lr.Equal(when.Add(time.Minute)) {
		t.Fatalf("unexpected last refresh %v err=%v", lr, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "icried.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tag := core.NewTagItem("#Семья", 0)
	if err := repo.SaveTag(ctx, tag); err != nil {
		t.Fatalf("save tag: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	tags, err := repo.ListTags(ctx)
	if err != nil || len(tags) != 1 || tags[0].ID != tag.ID {
		t.Fatalf("unexpected tags after reopen: %+v err=%v", tags, err)
	}
}

func TestPendingChanges(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	when := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	id := uuid.New()
	first := core.PendingChange{Kind: core.KindTag, ID: id, ChangedAt: when}
	if err := repo.MarkPending(ctx, first); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	second := first
	second.ChangedAt = when.Add(time.Second)
	if err := repo.MarkPending(ctx, second); err != nil {
		t.Fatalf("mark pending again: %v", err)
	}

	// A stale timestamp leaves the newer mark in place.
	if err := repo.MarkSynced(ctx, first); err != nil {
		t.Fatalf("mark synced stale: %v", err)
	}
	pending, err := repo.ListPending(ctx)
	if err != nil || len(pending) != 1 || !pending[0].ChangedAt.Equal(second.ChangedAt) {
		t.Fatalf("unexpected pending changes: %+v err=%v", pending, err)
	}

	if err := repo.MarkSynced(ctx, second); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if pending, _ := repo.ListPending(ctx); len(pending) != 0 {
		t.Fatalf("expected no pending changes, got %+v", pending)
	}
}

func TestBusyTimeoutConfigured(t *testing.T) {
	repo := newTestRepo(t)
	var ms int
	if err := repo.db.QueryRowContext(context.Background(), `PRAGMA busy_timeout`).Scan(&ms); err != nil {
		t.Fatalf("read busy_timeout: %v", err)
	}
	if ms != busyTimeoutMillis {
		t.Fatalf("expected busy_timeout %d, got %d", busyTimeoutMillis, ms)
	}
}
