package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tab names a worksheet of the Life OS spreadsheet.
type Tab string

const (
	TabInbox     Tab = "Inbox"
	TabTasks     Tab = "Tasks"
	TabEvents    Tab = "Events"
	TabIdeas     Tab = "Ideas"
	TabReference Tab = "Reference"
)

var Tabs = []Tab{TabInbox, TabTasks, TabEvents, TabIdeas, TabReference}

// Column layouts must match the existing spreadsheet exactly.
var (
	InboxColumns = []string{"id", "raw_text", "captured_at", "processed", "last_error"}

	TaskColumns = []string{
		"id", "description", "category", "subcategory", "people", "due_date",
		"urgency", "consequence", "status", "notes", "calendar_event_id", "captured_at",
	}

	EventColumns = []string{
		"id", "description", "category", "people", "event_date", "event_time",
		"location", "urgency", "consequence", "calendar_event_id", "captured_at",
	}

	IdeaColumns = []string{
		"id", "description", "category", "subcategory", "people", "source",
		"links", "notes", "captured_at",
	}

	ReferenceColumns = []string{"id", "description", "pointer", "category", "captured_at"}
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// ClarificationMarker flags items that need user input inside the notes column.
	ClarificationMarker = "[NEEDS CLARIFICATION]"
)

// Columns returns the header of tab.
func Columns(tab Tab) []string {
	switch tab {
	case TabInbox:
		return InboxColumns
	case TabTasks:
		return TaskColumns
	case TabEvents:
		return EventColumns
	case TabIdeas:
		return IdeaColumns
	case TabReference:
		return ReferenceColumns
	default:
		return nil
	}
}

// ColumnIndex returns the zero-based position of field in tab.
func ColumnIndex(tab Tab, field string) (int, bool) {
	for i, name := range Columns(tab) {
		if name == field {
			return i, true
		}
	}
	return 0, false
}

func CaptureRow(c RawCapture) []string {
	return []string{
		c.ID,
		c.Text,
		FormatTimestamp(c.CapturedAt),
		formatBool(c.Processed),
		c.LastError,
	}
}

func CaptureFromRow(row []string) (RawCapture, error) {
	row = pad(row, len(InboxColumns))
	if row[0] == "" {
		return RawCapture{}, fmt.Errorf("inbox row without id")
	}
	capturedAt, err := ParseTimestamp(row[2])
	if err != nil {
		return RawCapture{}, fmt.Errorf("inbox row %s: %w", row[0], err)
	}
	return RawCapture{
		ID:         row[0],
		Text:       row[1],
		CapturedAt: capturedAt,
		Processed:  strings.EqualFold(row[3], "TRUE"),
		LastError:  row[4],
	}, nil
}

// RowFor serializes item into the column layout of tab.
func RowFor(tab Tab, item StructuredItem) ([]string, error) {
	switch tab {
	case TabTasks:
		return TaskRow(item), nil
	case TabEvents:
		return EventRow(item), nil
	case TabIdeas:
		return IdeaRow(item), nil
	case TabReference:
		return ReferenceRow(item), nil
	default:
		return nil, fmt.Errorf("no row layout for tab %q", tab)
	}
}

// ItemFromRow reconstructs an item stored in tab.
func ItemFromRow(tab Tab, row []string) (StructuredItem, error) {
	switch tab {
	case TabTasks:
		return ItemFromTaskRow(row)
	case TabEvents:
		return ItemFromEventRow(row)
	case TabIdeas:
		return ItemFromIdeaRow(row)
	case TabReference:
		return ItemFromReferenceRow(row)
	default:
		return StructuredItem{}, fmt.Errorf("no row layout for tab %q", tab)
	}
}

func TaskRow(it StructuredItem) []string {
	return []string{
		it.ID,
		it.Description,
		string(it.Category),
		it.Subcategory,
		joinList(it.People),
		FormatDate(it.DueDate),
		string(it.Urgency),
		it.Consequence,
		string(it.Status),
		EncodeNotes(it.Notes, it.NeedsClarification, it.ClarificationQuestions),
		it.CalendarEventID,
		FormatTimestamp(it.CapturedAt),
	}
}

func ItemFromTaskRow(row []string) (StructuredItem, error) {
	row = pad(row, len(TaskColumns))
	it := StructuredItem{
		ID:              row[0],
		ItemType:        ItemTask,
		Description:     row[1],
		Category:        Category(row[2]),
		Subcategory:     row[3],
		People:          splitList(row[4]),
		Urgency:         Urgency(row[6]),
		Consequence:     row[7],
		Status:          Status(row[8]),
		CalendarEventID: row[10],
	}
	it.Notes, it.NeedsClarification, it.ClarificationQuestions = DecodeNotes(row[9])
	var err error
	if it.DueDate, err = ParseDate(row[5]); err != nil {
		return StructuredItem{}, fmt.Errorf("task %s: %w", row[0], err)
	}
	if it.CapturedAt, err = parseOptionalTimestamp(row[11]); err != nil {
		return StructuredItem{}, fmt.Errorf("task %s: %w", row[0], err)
	}
	it.ApplyDefaults()
	return it, checkID(it)
}

func EventRow(it StructuredItem) []string {
	return []string{
		it.ID,
		it.Description,
		string(it.Category),
		joinList(it.People),
		FormatDate(it.DueDate),
		FormatClock(it.DueTime),
		it.Location,
		string(it.Urgency),
		it.Consequence,
		it.CalendarEventID,
		FormatTimestamp(it.CapturedAt),
	}
}

func ItemFromEventRow(row []string) (StructuredItem, error) {
	row = pad(row, len(EventColumns))
	it := StructuredItem{
		ID:              row[0],
		ItemType:        ItemEvent,
		Description:     row[1],
		Category:        Category(row[2]),
		People:          splitList(row[3]),
		Location:        row[6],
		Urgency:         Urgency(row[7]),
		Consequence:     row[8],
		CalendarEventID: row[9],
	}
	var err error
	if it.DueDate, err = ParseDate(row[4]); err != nil {
		return StructuredItem{}, fmt.Errorf("event %s: %w", row[0], err)
	}
	if it.DueTime, err = ParseClock(row[5]); err != nil {
		return StructuredItem{}, fmt.Errorf("event %s: %w", row[0], err)
	}
	if it.CapturedAt, err = parseOptionalTimestamp(row[10]); err != nil {
		return StructuredItem{}, fmt.Errorf("event %s: %w", row[0], err)
	}
	it.ApplyDefaults()
	return it, checkID(it)
}

func IdeaRow(it StructuredItem) []string {
	return []string{
		it.ID,
		it.Description,
		string(it.Category),
		it.Subcategory,
		joinList(it.People),
		it.Source,
		joinList(it.Links),
		EncodeNotes(it.Notes, it.NeedsClarification, it.ClarificationQuestions),
		FormatTimestamp(it.CapturedAt),
	}
}

func ItemFromIdeaRow(row []string) (StructuredItem, error) {
	row = pad(row, len(IdeaColumns))
	it := StructuredItem{
		ID:          row[0],
		ItemType:    ItemIdea,
		Description: row[1],
		Category:    Category(row[2]),
		Subcategory: row[3],
		People:      splitList(row[4]),
		Source:      row[5],
		Links:       splitList(row[6]),
	}
	it.Notes, it.NeedsClarification, it.ClarificationQuestions = DecodeNotes(row[7])
	var err error
	if it.CapturedAt, err = parseOptionalTimestamp(row[8]); err != nil {
		return StructuredItem{}, fmt.Errorf("idea %s: %w", row[0], err)
	}
	it.ApplyDefaults()
	return it, checkID(it)
}

func ReferenceRow(it StructuredItem) []string {
	return []string{
		it.ID,
		it.Description,
		it.Location,
		string(it.Category),
		FormatTimestamp(it.CapturedAt),
	}
}

func ItemFromReferenceRow(row []string) (StructuredItem, error) {
	row = pad(row, len(ReferenceColumns))
	it := StructuredItem{
		ID:          row[0],
		ItemType:    ItemReference,
		Description: row[1],
		Location:    row[2],
		Category:    Category(row[3]),
	}
	var err error
	if it.CapturedAt, err = parseOptionalTimestamp(row[4]); err != nil {
		return StructuredItem{}, fmt.Errorf("reference %s: %w", row[0], err)
	}
	it.ApplyDefaults()
	return it, checkID(it)
}

// EncodeNotes appends the clarification marker and questions to notes.
func EncodeNotes(notes string, needsClarification bool, questions []string) string {
	if !needsClarification {
		return notes
	}
	marker := ClarificationMarker
	if len(questions) > 0 {
		marker += " " + strings.Join(questions, "; ")
	}
	if notes == "" {
		return marker
	}
	return notes + "\n" + marker
}

var markerPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(ClarificationMarker))

// DecodeNotes is the inverse of EncodeNotes. The marker is matched case-insensitively.
func DecodeNotes(cell string) (notes string, needsClarification bool, questions []string) {
	loc := markerPattern.FindStringIndex(cell)
	if loc == nil {
		return cell, false, nil
	}
	notes = strings.TrimSuffix(cell[:loc[0]], "\n")
	rest := strings.TrimSpace(cell[loc[1]:])
	if rest != "" {
		for _, q := range strings.Split(rest, ";") {
			if q = strings.TrimSpace(q); q != "" {
				questions = append(questions, q)
			}
		}
	}
	return notes, true, questions
}

func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(dateLayout)
}

// ParseDate returns nil for an empty cell.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", s, err)
	}
	return &d, nil
}

func FormatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

// ParseClock accepts HH:MM and HH:MM:SS and returns nil for an empty cell.
func ParseClock(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{timeLayout, "15:04:05", "3:04 PM", "3:04PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			c := ClockTime(t.Hour(), t.Minute())
			return &c, nil
		}
	}
	return nil, fmt.Errorf("parse time %q: expected HH:MM", s)
}

func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 and the naive ISO timestamps older rows carry.
// Naive values are read in the local zone.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}

func parseOptionalTimestamp(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return ParseTimestamp(s)
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func joinList(values []string) string {
	return strings.Join(values, ",")
}

func splitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(cell, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// pad extends short rows; the Sheets API drops trailing empty cells.
func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

func checkID(it StructuredItem) error {
	if it.ID == "" {
		return fmt.Errorf("%s row without id", it.ItemType)
	}
	return nil
}
