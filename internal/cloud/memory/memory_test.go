package memory

import (
	"context"
	"errors"
	"testing"

	"icried/internal/cloud"
	"icried/internal/core"
)

func TestStoreSaveFetchDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := cloud.Record{Type: core.KindTag, Name: "b", Fields: map[string]any{cloud.FieldName: "#x"}}
	if err := s.Save(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.Fields[cloud.FieldName] = "mutated"

	got, err := s.Fetch(ctx, core.KindTag, "b")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if v, _ := got.String(cloud.FieldName); v != "#x" {
		t.Fatalf("store kept caller's map, got %q", v)
	}

	_ = s.Save(ctx, cloud.Record{Type: core.KindTag, Name: "a"})
	list, _ := s.Query(ctx, core.KindTag)
	if len(list) != 2 || list[0].Name != "a" {
		t.Fatalf("unexpected query result: %+v", list)
	}
	if other, _ := s.Query(ctx, core.KindEntry); len(other) != 0 {
		t.Fatalf("types must not leak: %+v", other)
	}

	if err := s.Delete(ctx, core.KindTag, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, core.KindTag, "b"); err != nil {
		t.Fatalf("deleting twice should be fine: %v", err)
	}
	if _, err := s.Fetch(ctx, core.KindTag, "b"); !errors.Is(err, cloud.ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	if saves, deletes := s.Counts(); saves != 2 || deletes != 1 {
		t.Fatalf("unexpected counts: saves=%d deletes=%d", saves, deletes)
	}
}

func TestStoreStatusAndErrors(t *testing.T) {
	ctx := context.Background()
	s := New()
	if st, _ := s.Status(ctx); st != cloud.StatusAvailable {
		t.Fatalf("expected available, got %v", st)
	}
	s.SetStatus(cloud.StatusNoAccount)
	if st, _ := s.Status(ctx); st != cloud.StatusNoAccount {
		t.Fatalf("expected no account, got %v", st)
	}

	boom := errors.New("boom")
	s.SetError(boom)
	if _, err := s.Query(ctx, core.KindTag); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.SetError(nil)
	if _, err := s.Query(ctx, core.KindTag); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestStoreSaveAllRejectsMixedKinds(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.SaveAll(ctx, core.KindTag, []cloud.Record{
		{Type: core.KindTag, Name: "a"},
		{Type: core.KindEntry, Name: "b"},
	})
	if err == nil {
		t.Fatal("expected an error for a mixed batch")
	}
	if recs, _ := s.Query(ctx, core.KindTag); len(recs) != 0 {
		t.Fatalf("mixed batch must not be applied, got %d records", len(recs))
	}

	if err := s.SaveAll(ctx, core.KindTag, []cloud.Record{{Type: core.KindTag, Name: "a"}, {Type: core.KindTag, Name: "b"}}); err != nil {
		t.Fatalf("save all: %v", err)
	}
	if saves, _ := s.Counts(); saves != 2 || s.Batches() != 1 {
		t.Fatalf("expected 2 saves in 1 batch, got %d in %d", saves, s.Batches())
	}
}
