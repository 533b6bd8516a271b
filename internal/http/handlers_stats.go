package http

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"icried/internal/cloud"
	applog "icried/internal/log"
	"icried/internal/stats"
)

// statsKey identifies one cached summary. Keys embed the journal version,
// so any write makes older entries unreachable.
type statsKey struct {
	version uint64
	year    int
	emoji   uuid.UUID
	tags    string
}

func newStatsKey(version uint64, year int, f stats.Filter) statsKey {
	k := statsKey{version: version, year: year, tags: "*"}
	if f.EmojiID != nil {
		k.emoji = *f.EmojiID
	}
	if f.TagIDs != nil {
		ids := make([]string, 0, len(f.TagIDs))
		for _, id := range f.TagIDs {
			ids = append(ids, id.String())
		}
		slices.Sort(ids)
		k.tags = strings.Join(ids, ",")
	}
	return k
}

func (s *Server) handleStatsYears(w http.ResponseWriter, r *http.Request) {
	a := stats.New(s.journal.Snapshot(), s.loc)
	writeJSON(w, r, http.StatusOK, map[string][]int{"years": a.AvailableYears()})
}

// handleStats serves the yearly summary; without a {year} it uses the
// current year.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	year := s.clock.Now().In(s.loc).Year()
	if raw := chi.URLParam(r, "year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			writeDomainError(w, r, &requestError{message: fmt.Sprintf("invalid year %q", raw)})
			return
		}
		year = y
	}
	f, err := parseFilter(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	snap := s.journal.Snapshot()
	key := newStatsKey(snap.Version, year, f)
	if resp, ok := s.statsCache.Get(key); ok {
		s.metrics.CacheHit()
		writeJSON(w, r, http.StatusOK, resp)
		return
	}
	s.metrics.CacheMiss()

	resp := toStatsResponse(stats.New(snap, s.loc).Summary(year, f))
	s.statsCache.Set(key, resp)
	s.logger.DebugContext(r.Context(), "Stats cached", applog.FieldYear, year, applog.FieldVersion, snap.Version)
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "cloud_disabled", "cloud sync is not configured", nil)
		return
	}
	report, err := s.syncer.Sync(r.Context())
	if err != nil {
		if !errors.Is(err, cloud.ErrCloudUnavailable) {
			s.logger.ErrorContext(r.Context(), "Sync failed", "error", err)
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		last, err := s.journal.LastRefresh(r.Context())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp := toSyncStatusResponse(cloud.StatusCouldNotDetermine, last)
		resp.Account = "disabled"
		writeJSON(w, r, http.StatusOK, resp)
		return
	}
	st, last, err := s.syncer.Status(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSyncStatusResponse(st, last))
}
