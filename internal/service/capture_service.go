package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"life-os/internal/model"
)

// DegradedSummary is shown when a capture was stored but not classified.
const DegradedSummary = "📥 Saved to inbox\nWill be processed later"

// RecheckNotice follows the summary when the item was filed but its inbox row
// is still unprocessed.
const RecheckNotice = "⚠️ Still pending in inbox, will be re-checked"

var ErrEmptyCapture = errors.New("capture text is empty")

// Inbox accepts raw captures.
type Inbox interface {
	AppendCapture(ctx context.Context, capture model.RawCapture) error
}

// CaptureProcessor classifies a single stored capture.
type CaptureProcessor interface {
	ProcessCapture(ctx context.Context, capture model.RawCapture, attempts int) Result
}

// CaptureResult is returned to the channel that submitted the capture.
type CaptureResult struct {
	ID string
	// Processed is false when classification failed and the capture waits in the inbox.
	Processed bool
	// PendingRecheck marks an item that was filed while its inbox row stayed unprocessed.
	PendingRecheck  bool
	Item            model.StructuredItem
	Destination     Destination
	CalendarCreated bool
	Summary         string
}

// CaptureService stores a capture and classifies it right away.
type CaptureService struct {
	inbox     Inbox
	processor CaptureProcessor
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewCaptureService(inbox Inbox, processor CaptureProcessor, logger *zap.Logger) *CaptureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureService{
		inbox:     inbox,
		processor: processor,
		logger:    logger.With(zap.String("component", "capture")),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *CaptureService) Capture(ctx context.Context, text string) (CaptureResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return CaptureResult{}, ErrEmptyCapture
	}

	capture := model.RawCapture{ID: s.newID(), Text: text, CapturedAt: s.now()}
	if err := s.inbox.AppendCapture(ctx, capture); err != nil {
		return CaptureResult{}, fmt.Errorf("save to inbox: %w", err)
	}

	res := s.processor.ProcessCapture(ctx, capture, 1)
	if res.Outcome != OutcomeDone && !res.Appended {
		s.logger.Warn("capture left in inbox", zap.String("capture_id", capture.ID), zap.Error(res.Err))
		return CaptureResult{
			ID:      capture.ID,
			Item:    model.StructuredItem{Description: text},
			Summary: DegradedSummary,
		}, nil
	}

	calendarCreated := res.CalendarEventID != ""
	if res.Outcome != OutcomeDone {
		s.logger.Warn("capture filed but still pending in inbox", zap.String("capture_id", capture.ID), zap.Error(res.Err))
		return CaptureResult{
			ID:              capture.ID,
			PendingRecheck:  true,
			Item:            res.Item,
			Destination:     res.Destination,
			CalendarCreated: calendarCreated,
			Summary:         Summarize(res.Item, calendarCreated) + "\n" + RecheckNotice,
		}, nil
	}
	return CaptureResult{
		ID:              capture.ID,
		Processed:       true,
		Item:            res.Item,
		Destination:     res.Destination,
		CalendarCreated: calendarCreated,
		Summary:         Summarize(res.Item, calendarCreated),
	}, nil
}

var typeEmoji = map[model.ItemType]string{
	model.ItemTask:      "✅",
	model.ItemEvent:     "📅",
	model.ItemIdea:      "💡",
	model.ItemReference: "📌",
}

var urgencyLabel = map[model.Urgency]string{
	model.UrgencyHigh:   "🔴 High",
	model.UrgencyMedium: "🟡 Medium",
	model.UrgencyLow:    "🟢 Low",
}

// Summarize renders the short notification text for a classified item.
func Summarize(item model.StructuredItem, calendarCreated bool) string {
	emoji, ok := typeEmoji[item.ItemType]
	if !ok {
		emoji = "📝"
	}
	lines := []string{fmt.Sprintf("%s %s", emoji, item.Description)}

	if item.DueDate != nil {
		when := item.DueDate.Format("Mon Jan 02")
		if item.DueTime != nil {
			when += " at " + item.DueTime.Format("3:04 PM")
		}
		lines = append(lines, when)
	}
	if item.Location != "" {
		lines = append(lines, "📍 "+item.Location)
	}

	urgency, ok := urgencyLabel[item.Urgency]
	if !ok {
		urgency = string(item.Urgency)
	}
	lines = append(lines, fmt.Sprintf("🏷️ %s | %s", item.Category, urgency))

	if calendarCreated {
		lines = append(lines, "✅ Added to calendar")
	}
	return strings.Join(lines, "\n")
}
