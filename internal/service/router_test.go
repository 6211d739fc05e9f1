package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"life-os/internal/model"
)

func TestRoute(t *testing.T) {
	cases := map[model.ItemType]Destination{
		model.ItemTask:      DestTasks,
		model.ItemEvent:     DestEvents,
		model.ItemIdea:      DestIdeas,
		model.ItemReference: DestReference,
		"Chore":             DestUnknown,
	}
	for typ, want := range cases {
		assert.Equal(t, want, Route(model.StructuredItem{ItemType: typ}), typ)
	}

	_, ok := DestUnknown.Tab()
	assert.False(t, ok)
	tab, ok := DestEvents.Tab()
	assert.True(t, ok)
	assert.Equal(t, model.TabEvents, tab)
}

func TestNeedsCalendar(t *testing.T) {
	due := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		item model.StructuredItem
		want bool
	}{
		{name: "event with date", item: model.StructuredItem{ItemType: model.ItemEvent, DueDate: &due}, want: true},
		{name: "event without date", item: model.StructuredItem{ItemType: model.ItemEvent}, want: false},
		{name: "task with reminder action", item: model.StructuredItem{ItemType: model.ItemTask, DueDate: &due, CalendarAction: model.CalendarCreateReminder}, want: true},
		{name: "task with event action", item: model.StructuredItem{ItemType: model.ItemTask, DueDate: &due, CalendarAction: model.CalendarCreateEvent}, want: true},
		{name: "task without action", item: model.StructuredItem{ItemType: model.ItemTask, DueDate: &due, CalendarAction: model.CalendarNone}, want: false},
		{name: "idea with date", item: model.StructuredItem{ItemType: model.ItemIdea, DueDate: &due, CalendarAction: model.CalendarCreateEvent}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsCalendar(tt.item))
		})
	}
}
