// Package google stores cloud records in a Google Sheets spreadsheet, one
// tab per record type. Row 1 of every tab is a header: "recordName"
// followed by the field names.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"icried/internal/cloud"
	"icried/internal/core"
)

// Config selects the spreadsheet and the service account.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu    sync.Mutex
	ready map[core.Kind]bool
}

var _ cloud.RecordStore = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.CredentialsJSON, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, id), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ready:         make(map[core.Kind]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither value is set.
func newSheetsService(ctx context.Context, inlineJSON, file string) (*gsheet.Service, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inlineJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(inlineJSON)
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Status reads the spreadsheet metadata and maps API failures to account states.
func (c *Client) Status(ctx context.Context) (cloud.AccountStatus, error) {
	if c.svc == nil {
		return cloud.StatusNoAccount, nil
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		if ctx.Err() != nil {
			return cloud.StatusCouldNotDetermine, ctx.Err()
		}
		st := statusFromError(err)
		slog.WarnContext(ctx, "Spreadsheet status check failed", "status", st.String(), "error", err)
		return st, nil
	}
	return cloud.StatusAvailable, nil
}

func (c *Client) Query(ctx context.Context, kind core.Kind) ([]cloud.Record, error) {
	rows, err := c.readRows(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := headerFromRow(rows[0], kind)
	out := make([]cloud.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if r, ok := rowToRecord(kind, header, row); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) Fetch(ctx context.Context, kind core.Kind, name string) (cloud.Record, error) {
	recs, err := c.Query(ctx, kind)
	if err != nil {
		return cloud.Record{}, err
	}
	for _, r := range recs {
		if r.Name == name {
			return r, nil
		}
	}
	return cloud.Record{}, fmt.Errorf("%s %s: %w", kind, name, cloud.ErrUnknownItem)
}

// Save updates the row holding the record name in place, or appends one.
func (c *Client) Save(ctx context.Context, r cloud.Record) error {
	return c.SaveAll(ctx, r.Type, []cloud.Record{r})
}

// SaveAll writes records of one kind using one read of the name column,
// one batch update for rows that already exist and one append for the
// rest, whatever the number of records.
func (c *Client) SaveAll(ctx context.Context, kind core.Kind, recs []cloud.Record) error {
	if len(recs) == 0 {
		return nil
	}
	header, err := c.ensureTab(ctx, kind)
	if err != nil {
		return err
	}
	index, err := c.rowIndex(ctx, kind)
	if err != nil {
		return err
	}
	tab := tabName(kind)

	var (
		updates  []*gsheet.ValueRange
		appended [][]any
		pending  = make(map[string]int)
	)
	for _, r := range recs {
		if r.Type != kind {
			return fmt.Errorf("save %s record in %s batch", r.Type, kind)
		}
		values := recordToRow(header, r)
		if row, ok := index[r.Name]; ok {
			updates = append(updates, &gsheet.ValueRange{
				Range:  rowRange(tab, row, len(header)),
				Values: [][]any{values},
			})
			continue
		}
		// A name repeated within the batch keeps its last value.
		if i, ok := pending[r.Name]; ok {
			appended[i] = values
			continue
		}
		pending[r.Name] = len(appended)
		appended = append(appended, values)
	}

	if len(updates) > 0 {
		req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: updates}
		if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %d %s rows: %w", len(updates), tab, err)
		}
	}
	if len(appended) > 0 {
		rng := fmt.Sprintf("%s!A1", tab)
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: appended}).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append %d rows to %s: %w", len(appended), tab, err)
		}
	}
	slog.DebugContext(ctx, "Saved records", "tab", tab, "updated", len(updates), "appended", len(appended))
	return nil
}

// Delete clears the record's row. Blank rows are skipped by Query.
func (c *Client) Delete(ctx context.Context, kind core.Kind, name string) error {
	if _, err := c.ensureTab(ctx, kind); err != nil {
		return err
	}
	index, err := c.rowIndex(ctx, kind)
	if err != nil {
		return err
	}
	row, ok := index[name]
	if !ok {
		return nil
	}
	rng := rowRange(tabName(kind), row, len(headerFor(kind)))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) readRows(ctx context.Context, kind core.Kind) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if _, err := c.ensureTab(ctx, kind); err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("%s!A:%s", tabName(kind), colName(len(headerFor(kind))))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// rowIndex maps record names to their 1-based row numbers.
func (c *Client) rowIndex(ctx context.Context, kind core.Kind) (map[string]int, error) {
	rng := fmt.Sprintf("%s!A:A", tabName(kind))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	index := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(fmt.Sprint(row[0]))
		if _, seen := index[name]; !seen {
			index[name] = i + 1
		}
	}
	return index, nil
}

// ensureTab creates the tab and its header row on first use.
func (c *Client) ensureTab(ctx context.Context, kind core.Kind) ([]string, error) {
	header := headerFor(kind)
	if header == nil {
		return nil, fmt.Errorf("unsupported record type %q", kind)
	}
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready[kind] {
		return header, nil
	}

	tab := tabName(kind)
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			exists = true
			break
		}
	}
	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return nil, fmt.Errorf("add tab %s: %w", tab, err)
		}
		slog.InfoContext(ctx, "Created spreadsheet tab", "tab", tab)
	}

	rng := rowRange(tab, 1, len(header))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		row := make([]any, len(header))
		for i, h := range header {
			row[i] = h
		}
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("write header %s: %w", rng, err)
		}
	}
	c.ready[kind] = true
	return header, nil
}
