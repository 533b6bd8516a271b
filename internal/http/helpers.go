package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"icried/internal/cloud"
	"icried/internal/core"
	"icried/internal/journal"
)

const maxBodyBytes = 64 << 10

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode JSON response", "error", err, "path", r.URL.Path)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]string) {
	writeJSON(w, r, status, errorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// requestError is a client mistake detected before the journal is touched.
type requestError struct {
	message string
	details map[string]string
}

func (e *requestError) Error() string { return e.message }

// fieldError is a well-formed body whose fields break validation rules.
type fieldError struct {
	details map[string]string
}

func (e *fieldError) Error() string { return "validation failed" }

// writeDomainError maps journal and cloud errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr   *requestError
		fieldErr *fieldError
	)
	switch {
	case errors.As(err, &reqErr):
		writeError(w, r, http.StatusBadRequest, "bad_request", reqErr.message, reqErr.details)
	case errors.As(err, &fieldErr):
		writeError(w, r, http.StatusUnprocessableEntity, "validation_failed", fieldErr.Error(), fieldErr.details)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, core.ErrDuplicate):
		writeError(w, r, http.StatusConflict, "duplicate", err.Error(), nil)
	case core.IsValidation(err),
		errors.Is(err, core.ErrUnknownEmoji),
		errors.Is(err, core.ErrUnknownTag),
		errors.Is(err, journal.ErrInvalidMove):
		writeError(w, r, http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
	case errors.Is(err, cloud.ErrCloudUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "cloud_unavailable", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

// requestValidator validates DTOs and reports fields by their JSON names.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &requestValidator{v: v}
}

// decode reads a JSON body into dst and validates it.
func (rv *requestValidator) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &requestError{message: "request body is empty"}
		}
		return &requestError{message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	if dec.More() {
		return &requestError{message: "request body must hold a single JSON object"}
	}
	return rv.validate(dst)
}

func (rv *requestValidator) validate(s any) error {
	err := rv.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = friendlyMessage(fe)
	}
	return &fieldError{details: details}
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must not exceed " + fe.Param()
	case "min":
		return "must have at least " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "hexcolor":
		return "must be a #RRGGBB colour"
	default:
		return "is invalid"
	}
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &requestError{message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, &requestError{message: fmt.Sprintf("invalid %s %q", key, v)}
	}
	return n, true, nil
}

// queryIDs parses repeated or comma-separated UUID query parameters.
// The second result is false when the parameter is absent.
func queryIDs(r *http.Request, key string) ([]uuid.UUID, bool, error) {
	values, ok := r.URL.Query()[key]
	if !ok {
		return nil, false, nil
	}
	ids := []uuid.UUID{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, false, &requestError{message: fmt.Sprintf("invalid %s %q", key, part)}
			}
			ids = append(ids, id)
		}
	}
	return ids, true, nil
}
