package http

import (
	"net/http"
)

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toTagResponses(s.journal.Tags()))
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	t, err := s.service.AddTag(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toTagResponse(t))
}

func (s *Server) handleRenameTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req tagRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	t, err := s.service.RenameTag(r.Context(), id, req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTagResponse(t))
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.service.RemoveTag(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveTags(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.service.MoveTags(r.Context(), req.From, *req.To); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTagResponses(s.journal.Tags()))
}

func (s *Server) handleListEmojis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toEmojiResponses(s.journal.Emojis()))
}

func (s *Server) handleCreateEmoji(w http.ResponseWriter, r *http.Request) {
	var req emojiRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	e, err := s.service.AddEmoji(r.Context(), req.Symbol, req.ColorHex, *req.Opacity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toEmojiResponse(e))
}

func (s *Server) handleUpdateEmoji(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req emojiRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	e, err := s.service.UpdateEmoji(r.Context(), id, req.Symbol, req.ColorHex, *req.Opacity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toEmojiResponse(e))
}

func (s *Server) handleDeleteEmoji(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.service.RemoveEmoji(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveEmojis(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := s.validator.decode(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.service.MoveEmojis(r.Context(), req.From, *req.To); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toEmojiResponses(s.journal.Emojis()))
}
