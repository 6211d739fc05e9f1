// Package calendar creates and removes calendar entries for routed items.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"life-os/internal/model"
)

const (
	defaultStartHour = 9
	eventDuration    = time.Hour
	otherDuration    = 30 * time.Minute
)

// Artifact is a provider-neutral calendar entry.
type Artifact struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Reminders   []model.ReminderOffset
}

// BuildArtifact lays out item on the calendar in loc. The item must carry a due date.
func BuildArtifact(item model.StructuredItem, loc *time.Location, reminders []model.ReminderOffset) (Artifact, error) {
	if item.DueDate == nil {
		return Artifact{}, fmt.Errorf("item %s has no due date", item.ID)
	}
	if loc == nil {
		loc = time.UTC
	}

	hour, minute := defaultStartHour, 0
	if item.DueTime != nil {
		hour, minute = item.DueTime.Hour(), item.DueTime.Minute()
	}
	y, m, d := item.DueDate.Date()
	start := time.Date(y, m, d, hour, minute, 0, 0, loc)

	duration := otherDuration
	if item.ItemType == model.ItemEvent {
		duration = eventDuration
	}

	return Artifact{
		Summary:     item.Description,
		Description: describe(item),
		Location:    item.Location,
		Start:       start,
		End:         start.Add(duration),
		TimeZone:    loc.String(),
		Reminders:   reminders,
	}, nil
}

func describe(item model.StructuredItem) string {
	var lines []string
	if item.Category != "" {
		lines = append(lines, fmt.Sprintf("Category: %s", item.Category))
	}
	if item.Consequence != "" {
		lines = append(lines, fmt.Sprintf("Consequence: %s", item.Consequence))
	}
	if item.Notes != "" {
		lines = append(lines, fmt.Sprintf("Notes: %s", item.Notes))
	}
	if item.NeedsClarification {
		lines = append(lines, "⚠️ Needs clarification")
	}
	return strings.Join(lines, "\n")
}
