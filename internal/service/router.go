package service

import "life-os/internal/model"

// Destination is the collection a structured item is written to.
type Destination string

const (
	DestTasks     Destination = "Tasks"
	DestEvents    Destination = "Events"
	DestIdeas     Destination = "Ideas"
	DestReference Destination = "Reference"
	DestUnknown   Destination = "Unknown"
)

// Tab maps a destination onto its worksheet.
func (d Destination) Tab() (model.Tab, bool) {
	switch d {
	case DestTasks:
		return model.TabTasks, true
	case DestEvents:
		return model.TabEvents, true
	case DestIdeas:
		return model.TabIdeas, true
	case DestReference:
		return model.TabReference, true
	default:
		return "", false
	}
}

// Route picks the destination for item from its type.
func Route(item model.StructuredItem) Destination {
	switch item.ItemType {
	case model.ItemTask:
		return DestTasks
	case model.ItemEvent:
		return DestEvents
	case model.ItemIdea:
		return DestIdeas
	case model.ItemReference:
		return DestReference
	default:
		return DestUnknown
	}
}

// NeedsCalendar reports whether item should get a calendar entry.
func NeedsCalendar(item model.StructuredItem) bool {
	if item.DueDate == nil {
		return false
	}
	switch item.ItemType {
	case model.ItemEvent:
		return true
	case model.ItemTask:
		return item.CalendarAction == model.CalendarCreateEvent || item.CalendarAction == model.CalendarCreateReminder
	default:
		return false
	}
}
