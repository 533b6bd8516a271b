package http

import (
	"net/http"

	"golang.org/x/text/language"

	"icried/internal/stats"
)

// labelLanguages lists the month label languages; the first is the fallback.
var labelLanguages = language.NewMatcher([]language.Tag{language.Russian, language.English})

// labelLanguage picks the month label language from Accept-Language.
func labelLanguage(r *http.Request) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag, _, _ := labelLanguages.Match(tags...)
	return tag
}

// parseFilter reads the optional emoji and tag query filters. A present
// but empty tag parameter matches no entries.
func parseFilter(r *http.Request) (stats.Filter, error) {
	var f stats.Filter
	emojiIDs, ok, err := queryIDs(r, "emoji")
	if err != nil {
		return f, err
	}
	if ok && len(emojiIDs) > 0 {
		f.EmojiID = &emojiIDs[0]
	}
	tagIDs, ok, err := queryIDs(r, "tag")
	if err != nil {
		return f, err
	}
	if ok {
		f.TagIDs = tagIDs
	}
	return f, nil
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	year, hasYear, err := queryInt(r, "year")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entries := s.journal.Entries()
	if hasYear || f.EmojiID != nil || f.TagIDs != nil {
		a := stats.New(s.journal.Snapshot(), s.loc)
		if !hasYear {
			year = s.clock.Now().In(s.loc).Year()
		}
		entries = a.EntriesForYear(year, f)
	}
	writeJSON(w, r, http.StatusOK, toEntryResponses(entries))
}

func (s *Server) handleEntriesByMonth(w http.ResponseWriter, r *http.Request) {
	a := stats.New(s.journal.Snapshot(), s.loc, stats.WithLanguage(labelLanguage(r)))

	groups := a.GroupByMonth()
	out := make([]monthGroupResponse, 0, len(groups))
	for _, g := range groups {
		views := make([]entryView, 0, len(g.Entries))
		for _, e := range g.Entries {
			emoji := a.EmojiFor(e)
			v := entryView{
				entryResponse: toEntryResponse(e),
				Emoji:         emoji.Symbol,
				Color:         cssColor(emoji.Color()),
			}
			if tag, ok := a.TagFor(e); ok {
				v.Tag = tag.Name
			}
			views = append(views, v)
		}
		out = append(out, monthGroupResponse{Year: g.Year, Month: g.Month, Label: g.Label, Entries: views})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	date := s.clock.Now()
	if req.Date != nil {
		date = *req.Date
	}

	e, err := s.service.AddEntry(r.Context(), date, req.EmojiID, req.TagID, req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toEntryResponse(e))
}

// handleUpdateEntry replaces the entry's fields. An omitted date keeps the
// stored one; omitted references are cleared.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req entryRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	current, err := s.journal.Entry(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	date := current.Date
	if req.Date != nil {
		date = *req.Date
	}

	e, err := s.service.UpdateEntry(r.Context(), id, date, req.EmojiID, req.TagID, req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toEntryResponse(e))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.service.DeleteEntry(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.RemoveDuplicates(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}
