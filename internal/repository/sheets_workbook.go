package repository

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"life-os/internal/model"
)

// SheetsWorkbook reads and writes a Google Sheets spreadsheet.
type SheetsWorkbook struct {
	svc     *sheets.Service
	sheetID string
}

// NewSheetsWorkbook authenticates with a service-account credentials file.
// Extra client options are appended after the credentials.
func NewSheetsWorkbook(ctx context.Context, sheetID, credentialsPath string, opts ...option.ClientOption) (*SheetsWorkbook, error) {
	if sheetID == "" {
		return nil, fmt.Errorf("sheet id is required")
	}
	if credentialsPath != "" {
		opts = append([]option.ClientOption{
			option.WithCredentialsFile(credentialsPath),
			option.WithScopes(sheets.SpreadsheetsScope),
		}, opts...)
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init sheets service: %w", err)
	}
	return &SheetsWorkbook{svc: svc, sheetID: sheetID}, nil
}

func (w *SheetsWorkbook) Rows(ctx context.Context, tab model.Tab) ([][]string, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.sheetID, fmt.Sprintf("%s!A2:Z", tab)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	return toStrings(resp.Values), nil
}

func (w *SheetsWorkbook) AppendRow(ctx context.Context, tab model.Tab, row []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err := w.svc.Spreadsheets.Values.Append(w.sheetID, fmt.Sprintf("%s!A1", tab), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", tab, err)
	}
	return nil
}

func (w *SheetsWorkbook) UpdateCell(ctx context.Context, tab model.Tab, rowIndex, col int, value string) error {
	// +2: one for the header row, one because sheet rows are 1-based.
	cell := fmt.Sprintf("%s!%s%d", tab, columnLetter(col), rowIndex+2)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := w.svc.Spreadsheets.Values.Update(w.sheetID, cell, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", cell, err)
	}
	return nil
}

func (w *SheetsWorkbook) Header(ctx context.Context, tab model.Tab) ([]string, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.sheetID, fmt.Sprintf("%s!1:1", tab)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", tab, err)
	}
	rows := toStrings(resp.Values)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (w *SheetsWorkbook) SetHeader(ctx context.Context, tab model.Tab, header []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err := w.svc.Spreadsheets.Values.Update(w.sheetID, fmt.Sprintf("%s!A1", tab), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s header: %w", tab, err)
	}
	return nil
}

func toCells(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, raw := range values {
		row := make([]string, len(raw))
		for i, v := range raw {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows
}

// columnLetter converts a zero-based column index to A1 notation.
func columnLetter(col int) string {
	var sb []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		sb = append([]byte{byte('A' + (n-1)%26)}, sb...)
	}
	return string(sb)
}

var _ Workbook = (*SheetsWorkbook)(nil)
