package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"life-os/internal/model"
)

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "K", columnLetter(10))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "AA", columnLetter(26))
}

type sheetsCall struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newTestSheets(t *testing.T, respond string) (*SheetsWorkbook, *[]sheetsCall) {
	t.Helper()
	var calls []sheetsCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := sheetsCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if r.Body != nil && r.Method != http.MethodGet {
			_ = json.NewDecoder(r.Body).Decode(&call.body)
		}
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond))
	}))
	t.Cleanup(srv.Close)

	wb, err := NewSheetsWorkbook(context.Background(), "sheet-1", "",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()), option.WithoutAuthentication())
	require.NoError(t, err)
	return wb, &calls
}

func TestSheetsWorkbookRows(t *testing.T) {
	wb, calls := newTestSheets(t, `{"range":"Inbox!A2:Z","values":[["c1","buy milk","2025-01-10T08:00:00Z","FALSE"],["c2","x"]]}`)

	rows, err := wb.Rows(context.Background(), model.TabInbox)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "buy milk", rows[0][1])
	assert.Equal(t, []string{"c2", "x"}, rows[1])

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Contains(t, (*calls)[0].path, "/spreadsheets/sheet-1/values/Inbox!A2:Z")
}

func TestSheetsWorkbookUpdateCell(t *testing.T) {
	wb, calls := newTestSheets(t, `{}`)

	require.NoError(t, wb.UpdateCell(context.Background(), model.TabTasks, 0, 10, "cal-1"))
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Contains(t, call.path, "Tasks!K2")
	assert.Contains(t, call.query, "valueInputOption=RAW")
	assert.Equal(t, []any{[]any{"cal-1"}}, call.body["values"])
}

func TestSheetsWorkbookAppendRow(t *testing.T) {
	wb, calls := newTestSheets(t, `{}`)

	require.NoError(t, wb.AppendRow(context.Background(), model.TabIdeas, []string{"i1", "Dune"}))
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Contains(t, call.path, "Ideas!A1:append")
	assert.Contains(t, call.query, "insertDataOption=INSERT_ROWS")
}

func TestSheetsWorkbookRequiresID(t *testing.T) {
	_, err := NewSheetsWorkbook(context.Background(), "", "")
	assert.Error(t, err)
}
