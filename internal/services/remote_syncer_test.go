package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"icried/internal/amqp"
	"icried/internal/cloud"
	cloudmem "icried/internal/cloud/memory"
	"icried/internal/core"
	"icried/internal/journal"
	"icried/internal/storage/memory"
	"icried/internal/worker"
)

func TestRemoteSyncer_PostsToAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sync" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(worker.SyncReport{Uploaded: 7})
	}))
	defer srv.Close()

	report, err := NewRemoteSyncer(srv.URL+"/", srv.Client()).Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Uploaded != 7 {
		t.Errorf("Uploaded = %d, want 7", report.Uploaded)
	}
}

func TestRemoteSyncer_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		unavailable bool
		rejected    bool
	}{
		{"cloud unavailable", http.StatusServiceUnavailable, `{"code":"cloud_unavailable","message":"account restricted"}`, true, false},
		{"cloud disabled", http.StatusServiceUnavailable, `{"code":"cloud_disabled","message":"cloud sync is not configured"}`, true, false},
		{"server error", http.StatusInternalServerError, `{"code":"internal_error","message":"boom"}`, false, false},
		{"rate limited", http.StatusTooManyRequests, `{"code":"rate_limited"}`, false, true},
		{"not json", http.StatusBadGateway, `<html>`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRemoteSyncer(srv.URL, srv.Client()).Sync(context.Background())
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, cloud.ErrCloudUnavailable); got != tt.unavailable {
				t.Errorf("unavailable = %v, want %v (err %v)", got, tt.unavailable, err)
			}
			if got := errors.Is(err, ErrRelayRejected); got != tt.rejected {
				t.Errorf("rejected = %v, want %v (err %v)", got, tt.rejected, err)
			}
		})
	}
}

func TestRemoteSyncer_APIDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteSyncer(url, nil).Sync(context.Background())
	if !errors.Is(err, cloud.ErrCloudUnavailable) {
		t.Fatalf("expected ErrCloudUnavailable, got %v", err)
	}
}

// The relay never opens the store: every pass runs inside the process
// serving the journal, so a delete made there cannot be undone by a second
// in-memory copy of the lists.
func TestRemoteSyncer_PassesRunInServingProcess(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	store := memory.New()
	served := journal.New(store, journal.WithClock(clock))
	if err := served.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	remote := cloudmem.New()
	w := worker.NewSyncWorker(served, remote, worker.WithClock(clock))

	api := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		report, err := w.Sync(r.Context())
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(rw).Encode(report)
	}))
	defer api.Close()
	relay := NewRemoteSyncer(api.URL, api.Client())

	e, err := served.AddEntry(ctx, clock.Now().Add(-time.Hour), nil, nil, "short-lived")
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if _, err := relay.Sync(ctx); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if err := served.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	report, err := relay.Sync(ctx)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report.DeletedRemote != 1 {
		t.Errorf("DeletedRemote = %d, want 1", report.DeletedRemote)
	}
	if _, err := remote.Fetch(ctx, core.KindEntry, e.ID.String()); !errors.Is(err, cloud.ErrUnknownItem) {
		t.Errorf("remote copy survived: %v", err)
	}

	// A second journal over the same store, as after a restart, agrees.
	reopened := journal.New(store, journal.WithClock(clock))
	if err := reopened.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, j := range []*journal.Journal{served, reopened} {
		if _, err := j.Entry(e.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("deleted entry came back: %v", err)
		}
	}
}

func TestSyncProcessor_HandleJournalChanged(t *testing.T) {
	syncer := newFakeSyncer(nil)
	config := SyncProcessorConfig{Interval: time.Hour}
	p := NewSyncProcessor(syncer, config, clockwork.NewFakeClock())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop(t, p)

	msg := amqp.NewJournalChangedMessage("entry", "abc", amqp.OpCreate, time.Now())
	if err := p.HandleJournalChanged(context.Background(), msg); err != nil {
		t.Fatalf("HandleJournalChanged: %v", err)
	}
	waitCall(t, syncer)
}
