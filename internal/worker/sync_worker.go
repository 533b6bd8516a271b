package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"icried/internal/cloud"
	"icried/internal/core"
	"icried/internal/journal"
	applog "icried/internal/log"
	"icried/internal/metrics"
)

// KindCounts tallies what happened to the remote records of one kind.
type KindCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	// Kept counts remote records ignored because the local entity has
	// an edit that was not uploaded yet.
	Kept int `json:"kept"`
}

// SyncReport summarises one sync pass.
type SyncReport struct {
	Emojis        KindCounts          `json:"emojis"`
	Tags          KindCounts          `json:"tags"`
	Entries       KindCounts          `json:"entries"`
	Uploaded      int                 `json:"uploaded"`
	DeletedRemote int                 `json:"deletedRemote"`
	Dedup         journal.DedupReport `json:"dedup"`
	FinishedAt    time.Time           `json:"finishedAt"`
}

func (r *SyncReport) counts(kind core.Kind) *KindCounts {
	switch kind {
	case core.KindEmoji:
		return &r.Emojis
	case core.KindTag:
		return &r.Tags
	default:
		return &r.Entries
	}
}

type tombKey struct {
	kind core.Kind
	id   uuid.UUID
}

// mergeState holds what the merge must not overwrite.
type mergeState struct {
	buried  map[tombKey]bool
	pending map[tombKey]bool
}

// SyncWorker reconciles the local journal with a cloud record store.
type SyncWorker struct {
	journal *journal.Journal
	cloud   cloud.RecordStore
	clock   clockwork.Clock
	metrics *metrics.Metrics

	group singleflight.Group
}

// Option configures a SyncWorker.
type Option func(*SyncWorker)

// WithClock sets the clock used for refresh times and pass durations.
func WithClock(c clockwork.Clock) Option {
	return func(w *SyncWorker) { w.clock = c }
}

// WithMetrics records pass outcomes and merged record counts. A nil
// Metrics is a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *SyncWorker) { w.metrics = m }
}

// NewSyncWorker returns a worker reconciling j with store. It never starts
// a pass by itself; callers invoke Sync.
func NewSyncWorker(j *journal.Journal, store cloud.RecordStore, opts ...Option) *SyncWorker {
	w := &SyncWorker{journal: j, cloud: store, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sync runs one reconciliation pass. Concurrent callers share the pass
// already in flight and receive its result.
func (w *SyncWorker) Sync(ctx context.Context) (SyncReport, error) {
	v, err, shared := w.group.Do("sync", func() (any, error) {
		start := w.clock.Now()
		report, err := w.run(ctx)
		w.metrics.ObserveSync(err, w.clock.Since(start))
		return report, err
	})
	if shared {
		slog.DebugContext(ctx, "Joined sync already in progress")
	}
	return v.(SyncReport), err
}

// Status reports the cloud account status and the last refresh time.
func (w *SyncWorker) Status(ctx context.Context) (cloud.AccountStatus, time.Time, error) {
	last, err := w.journal.LastRefresh(ctx)
	if err != nil {
		return cloud.StatusCouldNotDetermine, time.Time{}, err
	}
	st, err := w.cloud.Status(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Cloud status check failed", "error", err)
		return cloud.StatusCouldNotDetermine, last, nil
	}
	return st, last, nil
}

func (w *SyncWorker) run(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	st, err := w.cloud.Status(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %v", cloud.ErrCloudUnavailable, err)
	}
	if st != cloud.StatusAvailable {
		return report, fmt.Errorf("%w: account %s", cloud.ErrCloudUnavailable, st)
	}

	remote, err := w.fetchAll(ctx)
	if err != nil {
		return report, err
	}

	var (
		tombs   []core.Tombstone
		changes []core.PendingChange
		snap    journal.Snapshot
	)
	err = w.journal.Apply(func(tx *journal.Tx) error {
		st, err := loadMergeState(ctx, tx)
		if err != nil {
			return err
		}

		if err := mergeEmojis(ctx, tx, remote[core.KindEmoji], st, &report.Emojis); err != nil {
			return err
		}
		if err := mergeTags(ctx, tx, remote[core.KindTag], st, &report.Tags); err != nil {
			return err
		}
		if err := mergeEntries(ctx, tx, remote[core.KindEntry], st, &report.Entries); err != nil {
			return err
		}

		if report.Dedup, err = tx.RemoveDuplicates(ctx); err != nil {
			return err
		}
		if tombs, err = tx.Tombstones(ctx); err != nil {
			return err
		}
		// Read after dedup so its rewrites are cleared with this upload.
		if changes, err = tx.Pending(ctx); err != nil {
			return err
		}
		snap = journal.Snapshot{
			Entries: tx.Entries.List(),
			Tags:    tx.Tags.List(),
			Emojis:  tx.Emojis.List(),
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("merge remote records: %w", err)
	}

	for _, kind := range core.Kinds {
		c := report.counts(kind)
		w.metrics.AddRecords(string(kind), "inserted", c.Inserted)
		w.metrics.AddRecords(string(kind), "updated", c.Updated)
		w.metrics.AddRecords(string(kind), "skipped", c.Skipped)
		w.metrics.AddRecords(string(kind), "kept", c.Kept)
	}
	w.metrics.AddDuplicates(string(core.KindEmoji), report.Dedup.Emojis)
	w.metrics.AddDuplicates(string(core.KindTag), report.Dedup.Tags)
	w.metrics.AddDuplicates(string(core.KindEntry), report.Dedup.Entries)

	if report.DeletedRemote, err = w.propagateDeletes(ctx, tombs); err != nil {
		return report, err
	}
	if report.Uploaded, err = w.upload(ctx, snap); err != nil {
		return report, err
	}

	report.FinishedAt = w.clock.Now().UTC()
	err = w.journal.Apply(func(tx *journal.Tx) error {
		for _, c := range changes {
			if err := tx.MarkSynced(ctx, c); err != nil {
				return err
			}
		}
		return tx.SetLastRefresh(ctx, report.FinishedAt)
	})
	if err != nil {
		return report, fmt.Errorf("store last refresh: %w", err)
	}

	slog.InfoContext(ctx, "Sync completed",
		"emojis_inserted", report.Emojis.Inserted,
		"tags_inserted", report.Tags.Inserted,
		"entries_inserted", report.Entries.Inserted,
		"updated", report.Emojis.Updated+report.Tags.Updated+report.Entries.Updated,
		"skipped", report.Emojis.Skipped+report.Tags.Skipped+report.Entries.Skipped,
		"kept_local", report.Emojis.Kept+report.Tags.Kept+report.Entries.Kept,
		"duplicates_removed", report.Dedup.Total(),
		"deleted_remote", report.DeletedRemote,
		"uploaded", report.Uploaded)
	return report, nil
}

// fetchAll queries every record type concurrently.
func (w *SyncWorker) fetchAll(ctx context.Context) (map[core.Kind][]cloud.Record, error) {
	results := make([][]cloud.Record, len(core.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range core.Kinds {
		g.Go(func() error {
			recs, err := w.cloud.Query(gctx, kind)
			if err != nil {
				return fmt.Errorf("query %s: %w", kind, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[core.Kind][]cloud.Record, len(core.Kinds))
	for i, kind := range core.Kinds {
		out[kind] = results[i]
	}
	return out, nil
}

// propagateDeletes removes the remote copy of every tombstoned entity and
// clears the tombstone once the remote delete succeeded.
func (w *SyncWorker) propagateDeletes(ctx context.Context, tombs []core.Tombstone) (int, error) {
	deleted := 0
	for _, t := range tombs {
		if err := w.cloud.Delete(ctx, t.Kind, t.ID.String()); err != nil {
			return deleted, fmt.Errorf("delete remote %s %s: %w", t.Kind, t.ID, err)
		}
		err := w.journal.Apply(func(tx *journal.Tx) error {
			return tx.ClearTombstone(ctx, t.Kind, t.ID)
		})
		if err != nil {
			return deleted, fmt.Errorf("clear tombstone: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// upload saves every local entity, one batch per kind, referenced kinds
// first.
func (w *SyncWorker) upload(ctx context.Context, snap journal.Snapshot) (int, error) {
	batches := make(map[core.Kind][]cloud.Record, len(core.Kinds))
	for _, e := range snap.Emojis {
		batches[core.KindEmoji] = append(batches[core.KindEmoji], cloud.EmojiRecord(e))
	}
	for _, t := range snap.Tags {
		batches[core.KindTag] = append(batches[core.KindTag], cloud.TagRecord(t))
	}
	for _, e := range snap.Entries {
		batches[core.KindEntry] = append(batches[core.KindEntry], cloud.EntryRecord(e))
	}

	uploaded := 0
	for _, kind := range core.Kinds {
		recs := batches[kind]
		if len(recs) == 0 {
			continue
		}
		if err := w.cloud.SaveAll(ctx, kind, recs); err != nil {
			return uploaded, fmt.Errorf("upload %d %s records: %w", len(recs), kind, err)
		}
		uploaded += len(recs)
	}
	return uploaded, nil
}

func loadMergeState(ctx context.Context, tx *journal.Tx) (mergeState, error) {
	buried, err := tx.Tombstones(ctx)
	if err != nil {
		return mergeState{}, err
	}
	pending, err := tx.Pending(ctx)
	if err != nil {
		return mergeState{}, err
	}
	st := mergeState{
		buried:  make(map[tombKey]bool, len(buried)),
		pending: make(map[tombKey]bool, len(pending)),
	}
	for _, t := range buried {
		st.buried[tombKey{t.Kind, t.ID}] = true
	}
	for _, c := range pending {
		st.pending[tombKey{c.Kind, c.ID}] = true
	}
	return st, nil
}

// recordID parses the record name, reporting whether the record should be
// merged at all.
func recordID(ctx context.Context, r cloud.Record, st mergeState) (uuid.UUID, bool) {
	id, err := r.ID()
	if err != nil {
		skipped(ctx, "Skipping remote record with invalid name", r, err)
		return uuid.Nil, false
	}
	if st.buried[tombKey{r.Type, id}] {
		slog.DebugContext(ctx, "Skipping remote record deleted locally", "kind", r.Type, "id", id)
		return uuid.Nil, false
	}
	return id, true
}

// keepLocal reports whether an existing entity has an unsent local edit
// that must win over the remote record.
func keepLocal(ctx context.Context, r cloud.Record, id uuid.UUID, existed bool, st mergeState, c *KindCounts) bool {
	if !existed || !st.pending[tombKey{r.Type, id}] {
		return false
	}
	slog.DebugContext(ctx, "Keeping local edit over remote record", "kind", r.Type, "id", id)
	c.Kept++
	return true
}

func skipped(ctx context.Context, msg string, r cloud.Record, err error) {
	fields := applog.NewFields().
		WithOperation("merge").
		WithRecord(string(r.Type), r.Name).
		WithError(err)
	applog.FromContext(ctx).WithComponent(applog.ComponentSync).WarnContext(ctx, msg, fields.ToSlice()...)
}

// put stores a merged entity. Validation failures skip the record; any
// other error aborts the pass.
func put(ctx context.Context, r cloud.Record, existed bool, c *KindCounts, save func() error) error {
	if err := save(); err != nil {
		if core.IsValidation(err) {
			skipped(ctx, "Skipping invalid remote record", r, err)
			c.Skipped++
			return nil
		}
		return err
	}
	if existed {
		c.Updated++
	} else {
		c.Inserted++
	}
	return nil
}

func mergeEmojis(ctx context.Context, tx *journal.Tx, recs []cloud.Record, st mergeState, c *KindCounts) error {
	for _, r := range recs {
		id, ok := recordID(ctx, r, st)
		if !ok {
			c.Skipped++
			continue
		}
		base, existed := tx.Emojis.Get(id)
		if keepLocal(ctx, r, id, existed, st, c) {
			continue
		}
		if !existed {
			base = core.EmojiIntensity{ID: id, ColorHex: core.DefaultColorHex, Opacity: 1, Order: tx.Emojis.Len()}
		}
		merged := cloud.MergeEmoji(base, r)
		if existed && merged == base {
			continue
		}
		if err := put(ctx, r, existed, c, func() error { return tx.Emojis.Put(ctx, merged) }); err != nil {
			return err
		}
	}
	return nil
}

func mergeTags(ctx context.Context, tx *journal.Tx, recs []cloud.Record, st mergeState, c *KindCounts) error {
	for _, r := range recs {
		id, ok := recordID(ctx, r, st)
		if !ok {
			c.Skipped++
			continue
		}
		base, existed := tx.Tags.Get(id)
		if keepLocal(ctx, r, id, existed, st, c) {
			continue
		}
		if !existed {
			base = core.TagItem{ID: id, Order: tx.Tags.Len()}
		}
		merged := cloud.MergeTag(base, r)
		if existed && merged == base {
			continue
		}
		if err := put(ctx, r, existed, c, func() error { return tx.Tags.Put(ctx, merged) }); err != nil {
			return err
		}
	}
	return nil
}

func mergeEntries(ctx context.Context, tx *journal.Tx, recs []cloud.Record, st mergeState, c *KindCounts) error {
	for _, r := range recs {
		id, ok := recordID(ctx, r, st)
		if !ok {
			c.Skipped++
			continue
		}
		base, existed := tx.Entries.Get(id)
		if keepLocal(ctx, r, id, existed, st, c) {
			continue
		}
		if !existed {
			base = core.TearEntry{ID: id}
		}
		merged := cloud.MergeEntry(base, r)
		if merged.EmojiID != nil {
			if _, ok := tx.Emojis.Get(*merged.EmojiID); !ok {
				slog.DebugContext(ctx, "Clearing unknown emoji reference", "entry", id, "emoji", *merged.EmojiID)
				merged.EmojiID = nil
			}
		}
		if merged.TagID != nil {
			if _, ok := tx.Tags.Get(*merged.TagID); !ok {
				slog.DebugContext(ctx, "Clearing unknown tag reference", "entry", id, "tag", *merged.TagID)
				merged.TagID = nil
			}
		}
		if existed && sameEntry(base, merged) {
			continue
		}
		if err := put(ctx, r, existed, c, func() error { return tx.Entries.Put(ctx, merged) }); err != nil {
			return err
		}
	}
	return nil
}

func sameEntry(a, b core.TearEntry) bool {
	return a.ID == b.ID &&
		a.Date.Equal(b.Date) &&
		core.SameID(a.EmojiID, b.EmojiID) &&
		core.SameID(a.TagID, b.TagID) &&
		a.Note == b.Note
}
