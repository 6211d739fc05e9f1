package calendar

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"life-os/internal/model"
)

// LocalCalendar keeps artifacts in the application database.
type LocalCalendar struct {
	db *gorm.DB
}

func NewLocalCalendar(db *gorm.DB) *LocalCalendar {
	return &LocalCalendar{db: db}
}

func (c *LocalCalendar) CreateArtifact(ctx context.Context, a Artifact) (string, error) {
	minutes := make([]string, 0, len(a.Reminders))
	for _, r := range a.Reminders {
		minutes = append(minutes, strconv.Itoa(r.MinutesBefore))
	}
	event := model.CalendarEvent{
		ID:          uuid.NewString(),
		Summary:     a.Summary,
		Description: a.Description,
		Location:    a.Location,
		StartAt:     a.Start,
		EndAt:       a.End,
		TimeZone:    a.TimeZone,
		Reminders:   strings.Join(minutes, ","),
	}
	if err := c.db.WithContext(ctx).Create(&event).Error; err != nil {
		return "", fmt.Errorf("create calendar event: %w", err)
	}
	return event.ID, nil
}

// DeleteArtifact is a no-op for unknown ids.
func (c *LocalCalendar) DeleteArtifact(ctx context.Context, id string) error {
	if err := c.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CalendarEvent{}).Error; err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}
