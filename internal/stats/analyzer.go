// Package stats computes month listings and yearly chart data from a
// journal snapshot.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"icried/internal/core"
	"icried/internal/journal"
)

var monthNames = map[language.Base][12]string{
	mustBase("ru"): {"январь", "февраль", "март", "апрель", "май", "июнь", "июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь"},
	mustBase("en"): {"january", "february", "march", "april", "may", "june", "july", "august", "september", "october", "november", "december"},
}

func mustBase(s string) language.Base {
	b, err := language.ParseBase(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Filter narrows the entries of a year. A nil TagIDs means no tag filter;
// an empty non-nil slice matches nothing.
type Filter struct {
	EmojiID *uuid.UUID
	TagIDs  []uuid.UUID
}

type Analyzer struct {
	entries []core.TearEntry
	tags    []core.TagItem
	emojis  []core.EmojiIntensity
	loc     *time.Location
	lang    language.Tag
}

type Option func(*Analyzer)

// WithLanguage selects the month label language. Russian by default;
// unsupported languages fall back to English.
func WithLanguage(tag language.Tag) Option {
	return func(a *Analyzer) { a.lang = tag }
}

// New builds an analyzer over a snapshot. Calendar fields are taken in loc.
func New(snap journal.Snapshot, loc *time.Location, opts ...Option) *Analyzer {
	if loc == nil {
		loc = time.Local
	}
	a := &Analyzer{
		entries: snap.Entries,
		tags:    snap.Tags,
		emojis:  snap.Emojis,
		loc:     loc,
		lang:    language.Russian,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AvailableYears lists the distinct years that have entries, ascending.
func (a *Analyzer) AvailableYears() []int {
	seen := make(map[int]bool)
	var years []int
	for _, e := range a.entries {
		y := e.Date.In(a.loc).Year()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

// GroupByMonth groups entries by calendar month, newest month first, with
// entries inside each group newest first.
func (a *Analyzer) GroupByMonth() []core.MonthGroup {
	type ym struct{ y, m int }
	groups := make(map[ym][]core.TearEntry)
	for _, e := range a.entries {
		d := e.Date.In(a.loc)
		k := ym{d.Year(), int(d.Month())}
		groups[k] = append(groups[k], e)
	}

	keys := make([]ym, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].y != keys[j].y {
			return keys[i].y > keys[j].y
		}
		return keys[i].m > keys[j].m
	})

	out := make([]core.MonthGroup, 0, len(keys))
	for _, k := range keys {
		list := groups[k]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
		out = append(out, core.MonthGroup{
			Year:    k.y,
			Month:   k.m,
			Label:   a.MonthLabel(k.y, time.Month(k.m)),
			Entries: list,
		})
	}
	return out
}

// MonthLabel renders "MONTH YYYY" upper-cased in the analyzer language.
func (a *Analyzer) MonthLabel(year int, month time.Month) string {
	base, _ := a.lang.Base()
	names, ok := monthNames[base]
	if !ok {
		names = monthNames[mustBase("en")]
	}
	return cases.Upper(a.lang).String(fmt.Sprintf("%s %d", names[month-1], year))
}

// EntriesForYear returns the entries of a year matching the filter.
func (a *Analyzer) EntriesForYear(year int, f Filter) []core.TearEntry {
	var tagSet map[uuid.UUID]bool
	if f.TagIDs != nil {
		tagSet = make(map[uuid.UUID]bool, len(f.TagIDs))
		for _, id := range f.TagIDs {
			tagSet[id] = true
		}
	}

	var out []core.TearEntry
	for _, e := range a.entries {
		if e.Date.In(a.loc).Year() != year {
			continue
		}
		if f.EmojiID != nil && (e.EmojiID == nil || *e.EmojiID != *f.EmojiID) {
			continue
		}
		if tagSet != nil && (e.TagID == nil || !tagSet[*e.TagID]) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (a *Analyzer) TotalForYear(year int) int {
	return len(a.EntriesForYear(year, Filter{}))
}

// EmojiStatistics counts entries per intensity in emoji order.
func (a *Analyzer) EmojiStatistics(year int, tagIDs []uuid.UUID) []core.EmojiCount {
	counts := make(map[uuid.UUID]int)
	for _, e := range a.EntriesForYear(year, Filter{TagIDs: tagIDs}) {
		if e.EmojiID != nil {
			counts[*e.EmojiID]++
		}
	}
	out := make([]core.EmojiCount, 0, len(a.emojis))
	for _, em := range a.emojis {
		out = append(out, core.EmojiCount{EmojiID: em.ID, Symbol: em.Symbol, Count: counts[em.ID]})
	}
	return out
}

// TagStatistics counts entries per tag in tag order. With a tag filter only
// the filtered tags are listed.
func (a *Analyzer) TagStatistics(year int, tagIDs []uuid.UUID) []core.TagCount {
	counts := make(map[uuid.UUID]int)
	for _, e := range a.EntriesForYear(year, Filter{TagIDs: tagIDs}) {
		if e.TagID != nil {
			counts[*e.TagID]++
		}
	}

	var wanted map[uuid.UUID]bool
	if tagIDs != nil {
		wanted = make(map[uuid.UUID]bool, len(tagIDs))
		for _, id := range tagIDs {
			wanted[id] = true
		}
	}
	out := make([]core.TagCount, 0, len(a.tags))
	for _, t := range a.tags {
		if wanted != nil && !wanted[t.ID] {
			continue
		}
		out = append(out, core.TagCount{TagID: t.ID, Name: t.Name, Count: counts[t.ID]})
	}
	return out
}

// MonthlyByIntensity returns twelve rows, one per month, with counts
// aligned to the emoji order.
func (a *Analyzer) MonthlyByIntensity(year int, f Filter) []core.MonthIntensity {
	index := make(map[uuid.UUID]int, len(a.emojis))
	for i, em := range a.emojis {
		index[em.ID] = i
	}

	rows := make([]core.MonthIntensity, 12)
	for m := range rows {
		rows[m] = core.MonthIntensity{
			Month:  time.Date(year, time.Month(m+1), 1, 0, 0, 0, 0, a.loc),
			Counts: make([]int, len(a.emojis)),
		}
	}
	for _, e := range a.EntriesForYear(year, f) {
		if e.EmojiID == nil {
			continue
		}
		i, ok := index[*e.EmojiID]
		if !ok {
			continue
		}
		rows[e.Date.In(a.loc).Month()-1].Counts[i]++
	}
	return rows
}

// Summary bundles the yearly figures for one filter.
func (a *Analyzer) Summary(year int, f Filter) core.YearSummary {
	return core.YearSummary{
		Year:    year,
		Total:   len(a.EntriesForYear(year, f)),
		Emojis:  a.EmojiStatistics(year, f.TagIDs),
		Tags:    a.TagStatistics(year, f.TagIDs),
		Monthly: a.MonthlyByIntensity(year, f),
	}
}

// EmojiFor resolves the intensity to display for an entry: the referenced
// one, else the first intensity, else a grey placeholder.
func (a *Analyzer) EmojiFor(e core.TearEntry) core.EmojiIntensity {
	if e.EmojiID != nil {
		for _, em := range a.emojis {
			if em.ID == *e.EmojiID {
				return em
			}
		}
	}
	if len(a.emojis) > 0 {
		return a.emojis[0]
	}
	return core.PlaceholderEmoji()
}

// TagFor returns the tag of an entry, if it has one that still exists.
func (a *Analyzer) TagFor(e core.TearEntry) (core.TagItem, bool) {
	if e.TagID == nil {
		return core.TagItem{}, false
	}
	for _, t := range a.tags {
		if t.ID == *e.TagID {
			return t, true
		}
	}
	return core.TagItem{}, false
}
