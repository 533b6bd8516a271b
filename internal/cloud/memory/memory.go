// Package memory is an in-process cloud.RecordStore.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"icried/internal/cloud"
	"icried/internal/core"
)

type Store struct {
	mu      sync.Mutex
	status  cloud.AccountStatus
	err     error
	records map[core.Kind]map[string]cloud.Record
	saves   int
	batches int
	deletes int
}

var _ cloud.RecordStore = (*Store)(nil)

// New returns an empty store whose account is available.
func New() *Store {
	return &Store{
		status:  cloud.StatusAvailable,
		records: make(map[core.Kind]map[string]cloud.Record),
	}
}

// SetStatus changes the reported account status.
func (s *Store) SetStatus(st cloud.AccountStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// SetError makes every subsequent call fail with err; nil clears it.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Batches returns how many SaveAll calls succeeded.
func (s *Store) Batches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// Counts returns how many records were saved and deleted.
func (s *Store) Counts() (saves, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, s.deletes
}

func (s *Store) Status(_ context.Context) (cloud.AccountStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return cloud.StatusCouldNotDetermine, s.err
	}
	return s.status, nil
}

// Query returns the records of a type sorted by name.
func (s *Store) Query(_ context.Context, kind core.Kind) ([]cloud.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]cloud.Record, 0, len(s.records[kind]))
	for _, r := range s.records[kind] {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) Fetch(_ context.Context, kind core.Kind, name string) (cloud.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return cloud.Record{}, s.err
	}
	r, ok := s.records[kind][name]
	if !ok {
		return cloud.Record{}, fmt.Errorf("%s %s: %w", kind, name, cloud.ErrUnknownItem)
	}
	return r.Clone(), nil
}

func (s *Store) Save(_ context.Context, r cloud.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.records[r.Type] == nil {
		s.records[r.Type] = make(map[string]cloud.Record)
	}
	s.records[r.Type][r.Name] = r.Clone()
	s.saves++
	return nil
}

func (s *Store) SaveAll(_ context.Context, kind core.Kind, recs []cloud.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, r := range recs {
		if r.Type != kind {
			return fmt.Errorf("save %s record in %s batch", r.Type, kind)
		}
	}
	if s.records[kind] == nil {
		s.records[kind] = make(map[string]cloud.Record)
	}
	for _, r := range recs {
		s.records[kind][r.Name] = r.Clone()
		s.saves++
	}
	s.batches++
	return nil
}

func (s *Store) Delete(_ context.Context, kind core.Kind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.records[kind][name]; ok {
		delete(s.records[kind], name)
		s.deletes++
	}
	return nil
}
