package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"icried/internal/cloud"
	"icried/internal/worker"
)

const (
	defaultRelayTimeout = 3 * time.Minute
	maxRelayBody        = 1 << 20
)

// ErrRelayRejected is returned when the API answers a sync request with a
// client error.
var ErrRelayRejected = errors.New("sync request rejected")

// RemoteSyncer asks the API process to run a pass through POST /api/sync.
// The API process owns the journal, so it stays the only writer of the
// store while icried-sync only decides when passes happen.
type RemoteSyncer struct {
	endpoint string
	http     *http.Client
}

// NewRemoteSyncer targets the API at baseURL. A nil client gets one with a
// timeout longer than a server-side pass.
func NewRemoteSyncer(baseURL string, client *http.Client) *RemoteSyncer {
	if client == nil {
		client = &http.Client{Timeout: defaultRelayTimeout}
	}
	return &RemoteSyncer{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/sync",
		http:     client,
	}
}

type relayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *RemoteSyncer) Sync(ctx context.Context) (worker.SyncReport, error) {
	var report worker.SyncReport

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, nil)
	if err != nil {
		return report, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "icried-sync")

	resp, err := s.http.Do(req)
	if err != nil {
		return report, fmt.Errorf("%w: request sync: %v", cloud.ErrCloudUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return report, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(body, &report); err != nil {
			return report, fmt.Errorf("decode sync report: %w", err)
		}
		slog.DebugContext(ctx, "Remote sync completed", "uploaded", report.Uploaded)
		return report, nil
	}

	var apiErr relayError
	_ = json.Unmarshal(body, &apiErr)
	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return report, fmt.Errorf("%w: %s: %s", cloud.ErrCloudUnavailable, apiErr.Code, apiErr.Message)
	case resp.StatusCode >= 500:
		return report, fmt.Errorf("sync failed with status %d: %s", resp.StatusCode, apiErr.Message)
	default:
		return report, fmt.Errorf("%w: status %d %s", ErrRelayRejected, resp.StatusCode, apiErr.Code)
	}
}
