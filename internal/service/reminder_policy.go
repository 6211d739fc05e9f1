package service

import "life-os/internal/model"

const (
	// MaxReminders is the most popup overrides a calendar entry accepts.
	MaxReminders = 5

	reminderMethod = "popup"

	weekMinutes  = 7 * 24 * 60
	travelBuffer = 120
)

var baseReminders = map[model.Urgency][]int{
	model.UrgencyHigh:   {weekMinutes, 24 * 60, 60},
	model.UrgencyMedium: {3 * 24 * 60, 24 * 60},
	model.UrgencyLow:    {60},
}

// ComputeReminders returns the popup offsets for an item. Offsets are unique,
// keep their first-seen order and never exceed MaxReminders.
func ComputeReminders(urgency model.Urgency, hasLocation, hasConsequence bool) []model.ReminderOffset {
	base, ok := baseReminders[urgency]
	if !ok {
		base = baseReminders[model.UrgencyMedium]
	}

	minutes := append([]int(nil), base...)
	if hasLocation {
		minutes = append(minutes, travelBuffer)
	}
	if hasConsequence {
		minutes = append(minutes, weekMinutes)
	}

	seen := make(map[int]bool, len(minutes))
	out := make([]model.ReminderOffset, 0, MaxReminders)
	for _, m := range minutes {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, model.ReminderOffset{Method: reminderMethod, MinutesBefore: m})
		if len(out) == MaxReminders {
			break
		}
	}
	return out
}

// RemindersFor applies ComputeReminders to an item. Only events get the
// travel buffer.
func RemindersFor(item model.StructuredItem) []model.ReminderOffset {
	hasLocation := item.Location != "" && item.ItemType == model.ItemEvent
	return ComputeReminders(item.Urgency, hasLocation, item.Consequence != "")
}
