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

// DedupReport describes what a duplicate-removal pass deleted.
type DedupReport struct {
	Emojis  int `json:"emojis"`
	Tags    int `json:"tags"`
	Entries int `json:"entries"`
	// Removed lists deleted entities that now carry a tombstone. Entries
	// collapsed by a repeated ID keep their row and are not listed.
	Removed []core.Tombstone `json:"removed,omitempty"`
}

func (r DedupReport) Total() int {
	return r.Emojis + r.Tags + r.Entries
}

// removeDuplicates merges emojis by symbol and tags by folded name, then
// drops repeated entries. Winners are the lowest Order, then lowest ID;
// for entries the first one in display order wins.
func removeDuplicates(ctx context.Context, entries *EntryManager, tags *TagManager, emojis *EmojiManager) (DedupReport, error) {
	var report DedupReport

	losers := groupLosers(emojis.items,
		func(e core.EmojiIntensity) string { return strings.TrimSpace(e.Symbol) },
		func(e core.EmojiIntensity) (int, uuid.UUID) { return e.Order, e.ID })
	for _, l := range losers {
		winner := l.winner
		if _, err := entries.repoint(ctx, core.KindEmoji, l.id, &winner); err != nil {
			return report, err
		}
		if err := emojis.drop(ctx, l.id); err != nil {
			return report, err
		}
		report.Emojis++
		report.Removed = append(report.Removed, core.Tombstone{Kind: core.KindEmoji, ID: l.id})
	}
	if len(losers) > 0 {
		if err := emojis.renumber(ctx); err != nil {
			return report, err
		}
	}

	losers = groupLosers(tags.items,
		func(t core.TagItem) string { return t.Key() },
		func(t core.TagItem) (int, uuid.UUID) { return t.Order, t.ID })
	for _, l := range losers {
		winner := l.winner
		if _, err := entries.repoint(ctx, core.KindTag, l.id, &winner); err != nil {
			return report, err
		}
		if err := tags.drop(ctx, l.id); err != nil {
			return report, err
		}
		report.Tags++
		report.Removed = append(report.Removed, core.Tombstone{Kind: core.KindTag, ID: l.id})
	}
	if len(losers) > 0 {
		if err := tags.renumber(ctx); err != nil {
			return report, err
		}
	}

	removed, err := dedupEntries(ctx, entries)
	if err != nil {
		return report, err
	}
	report.Entries = removed.count
	for _, id := range removed.buried {
		report.Removed = append(report.Removed, core.Tombstone{Kind: core.KindEntry, ID: id})
	}

	if report.Total() > 0 {
		slog.InfoContext(ctx, "Duplicates removed",
			"emojis", report.Emojis,
			"tags", report.Tags,
			"entries", report.Entries)
	}
	return report, nil
}

type loser struct {
	id     uuid.UUID
	winner uuid.UUID
}

func groupLosers[T any](items []T, key func(T) string, rank func(T) (int, uuid.UUID)) []loser {
	groups := make(map[string][]T)
	var keys []string
	for _, it := range items {
		k := key(it)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], it)
	}

	var out []loser
	for _, k := range keys {
		g := groups[k]
		if len(g) < 2 {
			continue
		}
		sort.SliceStable(g, func(a, b int) bool {
			oa, ia := rank(g[a])
			ob, ib := rank(g[b])
			if oa != ob {
				return oa < ob
			}
			return ia.String() < ib.String()
		})
		_, winner := rank(g[0])
		for _, it := range g[1:] {
			_, id := rank(it)
			out = append(out, loser{id: id, winner: winner})
		}
	}
	return out
}

type entryRemoval struct {
	count  int
	buried []uuid.UUID
}

func dedupEntries(ctx context.Context, m *EntryManager) (entryRemoval, error) {
	var res entryRemoval

	seenID := make(map[uuid.UUID]bool, len(m.items))
	seenSig := make(map[core.Signature]bool, len(m.items))
	repeated := make(map[uuid.UUID]bool)
	kept := make([]core.TearEntry, 0, len(m.items))
	for _, e := range m.items {
		if seenID[e.ID] {
			repeated[e.ID] = true
			res.count++
			continue
		}
		seenID[e.ID] = true
		sig := e.Signature()
		if seenSig[sig] {
			res.buried = append(res.buried, e.ID)
			res.count++
			continue
		}
		seenSig[sig] = true
		kept = append(kept, e)
	}
	if res.count == 0 {
		return res, nil
	}
	m.items = kept

	for _, id := range res.buried {
		if err := m.env.store.DeleteEntry(ctx, id); err != nil {
			return res, fmt.Errorf("delete entry: %w", err)
		}
		if err := m.env.bury(ctx, core.KindEntry, id); err != nil {
			return res, err
		}
	}
	// The store may hold any of the repeated copies; rewrite the winner.
	for _, e := range kept {
		if !repeated[e.ID] {
			continue
		}
		if err := m.env.store.SaveEntry(ctx, e); err != nil {
			return res, fmt.Errorf("save entry: %w", err)
		}
	}
	return res, nil
}
