package model

import (
	"fmt"
	"strings"
	"time"
)

type ItemType string

const (
	ItemTask      ItemType = "Task"
	ItemEvent     ItemType = "Event"
	ItemIdea      ItemType = "Idea"
	ItemReference ItemType = "Reference"
)

var ItemTypes = []ItemType{ItemTask, ItemEvent, ItemIdea, ItemReference}

func (t ItemType) Valid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

var UrgencyLevels = []Urgency{UrgencyHigh, UrgencyMedium, UrgencyLow}

func (u Urgency) Valid() bool {
	return u == UrgencyHigh || u == UrgencyMedium || u == UrgencyLow
}

// Rank orders urgencies HIGH < MEDIUM < LOW. Unknown values rank as MEDIUM.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 0
	case UrgencyLow:
		return 2
	default:
		return 1
	}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Closed reports whether the item no longer needs attention.
func (s Status) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CalendarAction is the model's hint about whether the item belongs on a calendar.
type CalendarAction string

const (
	CalendarCreateEvent    CalendarAction = "CREATE_EVENT"
	CalendarCreateReminder CalendarAction = "CREATE_REMINDER"
	CalendarNone           CalendarAction = "NONE"
)

func (a CalendarAction) Valid() bool {
	return a == CalendarCreateEvent || a == CalendarCreateReminder || a == CalendarNone
}

// StructuredItem is a capture after extraction and validation.
type StructuredItem struct {
	ID      string
	RawText string

	ItemType    ItemType
	Description string
	Category    Category
	Subcategory string
	People      []string

	// DueDate is a calendar date stored at midnight UTC.
	DueDate *time.Time
	// DueTime only carries hour and minute; it is meaningless without DueDate.
	DueTime *time.Time

	Urgency     Urgency
	Consequence string

	Location string
	Source   string
	Links    []string
	Notes    string

	NeedsClarification     bool
	ClarificationQuestions []string

	Status         Status
	CalendarAction CalendarAction

	CalendarEventID string

	CapturedAt  time.Time
	ProcessedAt time.Time
	CompletedAt *time.Time
}

// ValidationError reports a structural problem with an item.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ApplyDefaults fills zero-valued enumerations with their defaults.
func (it *StructuredItem) ApplyDefaults() {
	if it.Urgency == "" {
		it.Urgency = UrgencyMedium
	}
	if it.Status == "" {
		it.Status = StatusPending
	}
	if it.CalendarAction == "" {
		it.CalendarAction = CalendarNone
	}
	if it.DueDate == nil {
		it.DueTime = nil
	}
}

// Validate enforces the item invariants. Category must already be normalized;
// a subcategory outside Ideas is rejected rather than dropped.
func (it *StructuredItem) Validate() error {
	if !it.ItemType.Valid() {
		return &ValidationError{Field: "item_type", Message: fmt.Sprintf("%q is not one of %v", it.ItemType, ItemTypes)}
	}
	if strings.TrimSpace(it.Description) == "" {
		return &ValidationError{Field: "description", Message: "must not be empty"}
	}
	if !it.Category.Valid() {
		return &ValidationError{Field: "category", Message: fmt.Sprintf("%q is not one of %v", it.Category, Categories)}
	}
	if it.Subcategory != "" {
		if it.Category != CategoryIdeas {
			return &ValidationError{Field: "subcategory", Message: "can only be set for the Ideas category"}
		}
		if !ValidIdeaSubcategory(it.Subcategory) {
			return &ValidationError{Field: "subcategory", Message: fmt.Sprintf("%q is not one of %v", it.Subcategory, IdeaSubcategories)}
		}
	}
	if !it.Urgency.Valid() {
		return &ValidationError{Field: "urgency", Message: fmt.Sprintf("%q is not one of %v", it.Urgency, UrgencyLevels)}
	}
	if !it.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("%q is not one of %v", it.Status, Statuses)}
	}
	if !it.CalendarAction.Valid() {
		return &ValidationError{Field: "calendar_action", Message: fmt.Sprintf("%q is not a calendar action", it.CalendarAction)}
	}
	return nil
}

// Date truncates t to a calendar date at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClockTime keeps only hour and minute of t.
func ClockTime(hour, minute int) time.Time {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
}

// ReminderOffset is a popup notification relative to an item's start.
type ReminderOffset struct {
	Method        string
	MinutesBefore int
}
