package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"life-os/internal/metrics"
	"life-os/internal/model"
)

// TaskStore reads and updates rows of the Tasks collection.
type TaskStore interface {
	Item(ctx context.Context, tab model.Tab, itemID string) (model.StructuredItem, error)
	UpdateField(ctx context.Context, tab model.Tab, itemID, field, value string) error
}

// TaskService wraps task status changes.
type TaskService struct {
	store    TaskStore
	calendar CalendarProvider
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewTaskService(store TaskStore, cal CalendarProvider, m *metrics.Metrics, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{store: store, calendar: cal, metrics: m, logger: logger.With(zap.String("component", "tasks"))}
}

// SetStatus moves a task to status. Closing a task removes its calendar entry.
func (s *TaskService) SetStatus(ctx context.Context, itemID string, status model.Status) (model.StructuredItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return model.StructuredItem{}, fmt.Errorf("task id is required")
	}
	if !status.Valid() {
		return model.StructuredItem{}, fmt.Errorf("invalid status %q", status)
	}

	task, err := s.store.Item(ctx, model.TabTasks, itemID)
	if err != nil {
		return model.StructuredItem{}, fmt.Errorf("load task %s: %w", itemID, err)
	}
	if err := s.store.UpdateField(ctx, model.TabTasks, itemID, "status", string(status)); err != nil {
		return model.StructuredItem{}, fmt.Errorf("update task %s: %w", itemID, err)
	}
	task.Status = status

	if status.Closed() && task.CalendarEventID != "" && s.calendar != nil {
		err := s.calendar.DeleteArtifact(ctx, task.CalendarEventID)
		s.metrics.CalendarArtifact("delete", err)
		if err != nil {
			s.logger.Warn("calendar entry not removed",
				zap.String("item_id", itemID),
				zap.String("calendar_event_id", task.CalendarEventID),
				zap.Error(err))
		}
	}
	s.logger.Info("task status changed", zap.String("item_id", itemID), zap.String("status", string(status)))
	return task, nil
}
