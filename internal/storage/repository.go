package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"icried/internal/core"

	_ "modernc.org/sqlite"
)

const (
	lastRefreshKey    = "last_data_refresh"
	busyTimeoutMillis = 5000
)

// SQLiteRepository implements journal.Store on an embedded SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.TearEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, occurred_at, emoji_id, tag_id, note FROM tear_entries ORDER BY occurred_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []core.TearEntry
	for rows.Next() {
		var (
			id, occurred, note string
			emojiID, tagID     sql.NullString
		)
		if err := rows.Scan(&id, &occurred, &emojiID, &tagID, &note); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e := core.TearEntry{Note: note}
		if e.ID, err = uuid.Parse(id); err != nil {
			slog.WarnContext(ctx, "Skipping entry with invalid id", "id", id, "error", err)
			continue
		}
		if e.Date, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, fmt.Errorf("parse entry %s date: %w", id, err)
		}
		e.EmojiID = parseNullID(emojiID)
		e.TagID = parseNullID(tagID)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveEntry(ctx context.Context, e core.TearEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tear_entries (id, occurred_at, emoji_id, tag_id, note)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			occurred_at = excluded.occurred_at,
			emoji_id = excluded.emoji_id,
			tag_id = excluded.tag_id,
			note = excluded.note`,
		e.ID.String(), formatTime(e.Date), nullID(e.EmojiID), nullID(e.TagID), e.Note)
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "tear_entries", id)
}

func (r *SQLiteRepository) ListTags(ctx context.Context) ([]core.TagItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, sort_order FROM tags ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var out []core.TagItem
	for rows.Next() {
		var (
			id string
			t  core.TagItem
		)
		if err := rows.Scan(&id, &t.Name, &t.Order); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			slog.WarnContext(ctx, "Skipping tag with invalid id", "id", id, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveTag(ctx context.Context, t core.TagItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, sort_order) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, sort_order = excluded.sort_order`,
		t.ID.String(), t.Name, t.Order)
	if err != nil {
		return fmt.Errorf("upsert tag %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTag(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "tags", id)
}

func (r *SQLiteRepository) ListEmojis(ctx context.Context) ([]core.EmojiIntensity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, symbol, color_hex, opacity, sort_order FROM emoji_intensities ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query emojis: %w", err)
	}
	defer rows.Close()

	var out []core.EmojiIntensity
	for rows.Next() {
		var (
			id string
			e  core.EmojiIntensity
		)
		if err := rows.Scan(&id, &e.Symbol, &e.ColorHex, &e.Opacity, &e.Order); err != nil {
			return nil, fmt.Errorf("scan emoji: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			slog.WarnContext(ctx, "Skipping emoji with invalid id", "id", id, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveEmoji(ctx context.Context, e core.EmojiIntensity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emoji_intensities (id, symbol, color_hex, opacity, sort_order) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			symbol = excluded.symbol,
			color_hex = excluded.color_hex,
			opacity = excluded.opacity,
			sort_order = excluded.sort_order`,
		e.ID.String(), e.Symbol, e.ColorHex, e.Opacity, e.Order)
	if err != nil {
		return fmt.Errorf("upsert emoji %s: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteEmoji(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "emoji_intensities", id)
}

func (r *SQLiteRepository) SaveTombstone(ctx context.Context, t core.Tombstone) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tombstones (kind, id, deleted_at) VALUES (?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET deleted_at = excluded.deleted_at`,
		string(t.Kind), t.ID.String(), formatTime(t.DeletedAt))
	if err != nil {
		return fmt.Errorf("save tombstone %s/%s: %w", t.Kind, t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListTombstones(ctx context.Context) ([]core.Tombstone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, id, deleted_at FROM tombstones ORDER BY deleted_at, kind, id`)
	if err != nil {
		return nil, fmt.Errorf("query tombstones: %w", err)
	}
	defer rows.Close()

	var out []core.Tombstone
	for rows.Next() {
		var kind, id, deleted string
		if err := rows.Scan(&kind, &id, &deleted); err != nil {
			return nil, fmt.Errorf("scan tombstone: %w", err)
		}
		t := core.Tombstone{Kind: core.Kind(kind)}
		if t.ID, err = uuid.Parse(id); err != nil {
			continue
		}
		if t.DeletedAt, err = time.Parse(time.RFC3339Nano, deleted); err != nil {
			return nil, fmt.Errorf("parse tombstone %s time: %w", id, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteTombstone(ctx context.Context, kind core.Kind, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tombstones WHERE kind = ? AND id = ?`, string(kind), id.String()); err != nil {
		return fmt.Errorf("delete tombstone %s/%s: %w", kind, id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkPending(ctx context.Context, c core.PendingChange) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_changes (kind, id, changed_at) VALUES (?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET changed_at = excluded.changed_at`,
		string(c.Kind), c.ID.String(), formatTime(c.ChangedAt))
	if err != nil {
		return fmt.Errorf("mark pending %s/%s: %w", c.Kind, c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]core.PendingChange, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, id, changed_at FROM pending_changes ORDER BY changed_at, kind, id`)
	if err != nil {
		return nil, fmt.Errorf("query pending changes: %w", err)
	}
	defer rows.Close()

	var out []core.PendingChange
	for rows.Next() {
		var kind, id, changed string
		if err := rows.Scan(&kind, &id, &changed); err != nil {
			return nil, fmt.Errorf("scan pending change: %w", err)
		}
		c := core.PendingChange{Kind: core.Kind(kind)}
		if c.ID, err = uuid.Parse(id); err != nil {
			continue
		}
		if c.ChangedAt, err = time.Parse(time.RFC3339Nano, changed); err != nil {
			return nil, fmt.Errorf("parse pending change %s time: %w", id, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, c core.PendingChange) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE kind = ? AND id = ? AND changed_at = ?`,
		string(c.Kind), c.ID.String(), formatTime(c.ChangedAt))
	if err != nil {
		return fmt.Errorf("mark synced %s/%s: %w", c.Kind, c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) LastRefresh(ctx context.Context) (time.Time, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, lastRefreshKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last refresh: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last refresh: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) SetLastRefresh(ctx context.Context, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastRefreshKey, formatTime(t))
	if err != nil {
		return fmt.Errorf("write last refresh: %w", err)
	}
	slog.InfoContext(ctx, "Last refresh time updated", "at", t)
	return nil
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table string, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete from %s %s: %w", table, id, err)
	}
	return nil
}

// dsn makes a connection wait for a competing writer's lock instead of
// failing with SQLITE_BUSY.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(" + strconv.Itoa(busyTimeoutMillis) + ")"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullID(s sql.NullString) *uuid.UUID {
	if !s.Valid || s.String == "" {
		return nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil
	}
	return &id
}
