// Package cloud defines the remote record store the journal synchronises
// with, plus the codecs between journal entities and records.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"icried/internal/core"
)

var (
	// ErrUnknownItem is returned by Fetch when no record has the name.
	ErrUnknownItem = errors.New("unknown item")
	// ErrCloudUnavailable means the account cannot be used right now.
	ErrCloudUnavailable = errors.New("cloud unavailable")
)

// AccountStatus reports whether the remote account can be used.
type AccountStatus int

const (
	StatusCouldNotDetermine AccountStatus = iota
	StatusAvailable
	StatusNoAccount
	StatusRestricted
	StatusTemporarilyUnavailable
)

func (s AccountStatus) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusNoAccount:
		return "no_account"
	case StatusRestricted:
		return "restricted"
	case StatusTemporarilyUnavailable:
		return "temporarily_unavailable"
	default:
		return "could_not_determine"
	}
}

// Record is a typed, named bag of fields. Name holds the entity UUID.
type Record struct {
	Type   core.Kind
	Name   string
	Fields map[string]any
}

// RecordStore is the remote document store.
type RecordStore interface {
	Status(ctx context.Context) (AccountStatus, error)
	Query(ctx context.Context, kind core.Kind) ([]Record, error)
	Fetch(ctx context.Context, kind core.Kind, name string) (Record, error)
	// Save creates the record or replaces the one with the same name.
	Save(ctx context.Context, r Record) error
	// SaveAll saves records of one kind as a batch, in as few remote
	// calls as the backend allows.
	SaveAll(ctx context.Context, kind core.Kind, recs []Record) error
	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, kind core.Kind, name string) error
}

// Clone copies the record and its field map.
func (r Record) Clone() Record {
	r.Fields = maps.Clone(r.Fields)
	return r
}

// Has reports whether a field is present and not nil.
func (r Record) Has(key string) bool {
	v, ok := r.Fields[key]
	return ok && v != nil
}

func (r Record) String(key string) (string, bool) {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// Int accepts integer, float and numeric string encodings.
func (r Record) Int(key string) (int, bool) {
	switch t := r.Fields[key].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// Float accepts float, integer and numeric string encodings; a decimal
// comma is tolerated.
func (r Record) Float(key string) (float64, bool) {
	switch t := r.Fields[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// Time accepts time.Time, RFC 3339 strings and Unix seconds.
func (r Record) Time(key string) (time.Time, bool) {
	switch t := r.Fields[key].(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
		if err == nil {
			return ts, true
		}
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	}
	return time.Time{}, false
}

// Ref decodes an optional reference. present is false when the field is
// missing; an empty or malformed value is present but nil.
func (r Record) Ref(key string) (id *uuid.UUID, present bool) {
	s, ok := r.String(key)
	if !ok {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return nil, true
	}
	return &parsed, true
}

// ID parses the record name.
func (r Record) ID() (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(r.Name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("record %s %q: %w", r.Type, r.Name, err)
	}
	return id, nil
}
