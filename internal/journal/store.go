// Package journal keeps the in-memory lists of entries, tags and emoji
// intensities and writes every change through to a Store.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"icried/internal/core"
)

// Store persists journal entities. Save methods are upserts keyed by ID.
type Store interface {
	ListEntries(ctx context.Context) ([]core.TearEntry, error)
	SaveEntry(ctx context.Context, e core.TearEntry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error

	ListTags(ctx context.Context) ([]core.TagItem, error)
	SaveTag(ctx context.Context, t core.TagItem) error
	DeleteTag(ctx context.Context, id uuid.UUID) error

	ListEmojis(ctx context.Context) ([]core.EmojiIntensity, error)
	SaveEmoji(ctx context.Context, e core.EmojiIntensity) error
	DeleteEmoji(ctx context.Context, id uuid.UUID) error

	SaveTombstone(ctx context.Context, t core.Tombstone) error
	ListTombstones(ctx context.Context) ([]core.Tombstone, error)
	DeleteTombstone(ctx context.Context, kind core.Kind, id uuid.UUID) error

	// MarkPending upserts a pending change keyed by kind and ID.
	MarkPending(ctx context.Context, c core.PendingChange) error
	ListPending(ctx context.Context) ([]core.PendingChange, error)
	// MarkSynced drops the pending change only while its ChangedAt still
	// equals c.ChangedAt, so writes made during an upload stay pending.
	MarkSynced(ctx context.Context, c core.PendingChange) error

	// LastRefresh returns the zero time when no sync has completed yet.
	LastRefresh(ctx context.Context) (time.Time, error)
	SetLastRefresh(ctx context.Context, t time.Time) error
}
