package google

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"icried/internal/cloud"
	"icried/internal/core"
)

const nameColumn = "recordName"

func tabName(kind core.Kind) string {
	return string(kind)
}

// headerFor returns the expected header row of a record type.
func headerFor(kind core.Kind) []string {
	fields := cloud.FieldNames(kind)
	if fields == nil {
		return nil
	}
	return append([]string{nameColumn}, fields...)
}

// headerFromRow uses the sheet's own header when it looks valid, so that
// reordered columns still decode.
func headerFromRow(row []any, kind core.Kind) []string {
	if len(row) == 0 || !strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), nameColumn) {
		return headerFor(kind)
	}
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// rowToRecord decodes a data row. Rows with a blank name are skipped.
// The Sheets API drops trailing empty cells; those fields decode as "".
func rowToRecord(kind core.Kind, header []string, row []any) (cloud.Record, bool) {
	if len(row) == 0 {
		return cloud.Record{}, false
	}
	name := strings.TrimSpace(fmt.Sprint(row[0]))
	if name == "" {
		return cloud.Record{}, false
	}
	r := cloud.Record{Type: kind, Name: name, Fields: make(map[string]any, len(header)-1)}
	for i := 1; i < len(header); i++ {
		key := header[i]
		if key == "" {
			continue
		}
		if i < len(row) && row[i] != nil {
			r.Fields[key] = row[i]
		} else {
			r.Fields[key] = ""
		}
	}
	return r, true
}

// recordToRow encodes a record in header order.
func recordToRow(header []string, r cloud.Record) []any {
	row := make([]any, len(header))
	row[0] = r.Name
	for i := 1; i < len(header); i++ {
		v, ok := r.Fields[header[i]]
		if !ok || v == nil {
			row[i] = ""
			continue
		}
		row[i] = v
	}
	return row
}

// colName converts a 1-based column index to its letter name.
func colName(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func rowRange(tab string, row, cols int) string {
	return fmt.Sprintf("%s!A%d:%s%d", tab, row, colName(cols), row)
}

// statusFromError maps a Sheets API failure to an account status.
func statusFromError(err error) cloud.AccountStatus {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			return cloud.StatusNoAccount
		case gerr.Code == http.StatusForbidden:
			return cloud.StatusRestricted
		case gerr.Code == http.StatusNotFound:
			return cloud.StatusNoAccount
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return cloud.StatusTemporarilyUnavailable
		default:
			return cloud.StatusCouldNotDetermine
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return cloud.StatusTemporarilyUnavailable
	}
	return cloud.StatusCouldNotDetermine
}
