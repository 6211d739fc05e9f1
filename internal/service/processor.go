package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"life-os/internal/calendar"
	"life-os/internal/metrics"
	"life-os/internal/model"
)

// Store is the tabular persistence the pipeline reads and writes.
type Store interface {
	FetchUnprocessed(ctx context.Context) ([]model.RawCapture, error)
	AppendCapture(ctx context.Context, capture model.RawCapture) error
	Append(ctx context.Context, tab model.Tab, row []string) error
	MarkProcessed(ctx context.Context, captureID string) error
	MarkFailed(ctx context.Context, captureID, errText string) error
	UpdateField(ctx context.Context, tab model.Tab, itemID, field, value string) error
}

type Extractor interface {
	Extract(ctx context.Context, rawText string, referenceDate time.Time) (model.StructuredItem, error)
}

type CalendarProvider interface {
	CreateArtifact(ctx context.Context, a calendar.Artifact) (string, error)
	DeleteArtifact(ctx context.Context, id string) error
}

// Outcome is the result of a single processing attempt.
type Outcome int

const (
	OutcomeDone Outcome = iota
	// OutcomeRetryable failures may succeed on another attempt.
	OutcomeRetryable
	// OutcomeFatal failures stop processing of the capture immediately.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Result describes what happened to one capture.
type Result struct {
	Capture         model.RawCapture
	Item            model.StructuredItem
	Destination     Destination
	Appended        bool
	CalendarEventID string
	Outcome         Outcome
	Attempts        int
	Err             error
}

// Stats summarises one inbox cycle.
type Stats struct {
	Processed             int `json:"processed"`
	Failed                int `json:"failed"`
	TasksCreated          int `json:"tasks_created"`
	EventsCreated         int `json:"events_created"`
	IdeasCreated          int `json:"ideas_created"`
	ReferencesCreated     int `json:"references_created"`
	CalendarEventsCreated int `json:"calendar_events_created"`
}

func (s *Stats) add(r Result) {
	if r.Appended {
		switch r.Destination {
		case DestTasks:
			s.TasksCreated++
		case DestEvents:
			s.EventsCreated++
		case DestIdeas:
			s.IdeasCreated++
		case DestReference:
			s.ReferencesCreated++
		}
	}
	if r.CalendarEventID != "" {
		s.CalendarEventsCreated++
	}
	if r.Outcome == OutcomeDone {
		s.Processed++
	} else {
		s.Failed++
	}
}

type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	// Location is the zone used for reference dates and calendar entries.
	Location *time.Location
}

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// ProcessorDeps groups the collaborators of a Processor. Calendar and Metrics
// are optional.
type ProcessorDeps struct {
	Store     Store
	Extractor Extractor
	Calendar  CalendarProvider
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Clock     func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
}

// Processor drains the Inbox into the typed collections.
type Processor struct {
	store     Store
	extractor Extractor
	calendar  CalendarProvider
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	opts      Options

	// mu serializes store mutations between scheduled cycles and live captures.
	mu sync.Mutex
}

func NewProcessor(deps ProcessorDeps, opts Options) *Processor {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	p := &Processor{
		store:     deps.Store,
		extractor: deps.Extractor,
		calendar:  deps.Calendar,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Clock,
		sleep:     deps.Sleep,
		opts:      opts,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.With(zap.String("component", "processor"))
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// ProcessInbox runs one cycle over all unprocessed captures in order.
func (p *Processor) ProcessInbox(ctx context.Context) (Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	stats, err := p.processInbox(ctx)
	p.metrics.ObserveCycle(err, time.Since(start))
	return stats, err
}

func (p *Processor) processInbox(ctx context.Context) (Stats, error) {
	var stats Stats
	captures, err := p.store.FetchUnprocessed(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch unprocessed captures: %w", err)
	}
	if len(captures) == 0 {
		p.logger.Info("inbox is empty")
		return stats, nil
	}

	p.logger.Info("processing inbox", zap.Int("captures", len(captures)))
	for _, capture := range captures {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.add(p.processCapture(ctx, capture, p.opts.MaxRetries))
	}

	p.logger.Info("inbox cycle finished",
		zap.Int("processed", stats.Processed),
		zap.Int("failed", stats.Failed),
		zap.Int("calendar_events", stats.CalendarEventsCreated))
	return stats, nil
}

// ProcessCapture runs a single capture through the pipeline with at most
// attempts extraction tries.
func (p *Processor) ProcessCapture(ctx context.Context, capture model.RawCapture, attempts int) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processCapture(ctx, capture, attempts)
}

func (p *Processor) processCapture(ctx context.Context, capture model.RawCapture, attempts int) Result {
	if attempts <= 0 {
		attempts = 1
	}
	log := p.logger.With(zap.String("capture_id", capture.ID))

	var res Result
	for attempt := 0; ; attempt++ {
		res = p.attempt(ctx, capture)
		res.Attempts = attempt + 1
		if res.Outcome != OutcomeRetryable || attempt+1 >= attempts {
			break
		}

		delay := p.opts.RetryDelay * time.Duration(1<<attempt)
		log.Warn("extraction failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(res.Err))
		if err := p.sleep(ctx, delay); err != nil {
			res.Outcome = OutcomeFatal
			res.Err = err
			break
		}
	}

	if res.Outcome == OutcomeDone {
		p.metrics.CaptureOutcome("processed")
		log.Info("capture processed",
			zap.String("destination", string(res.Destination)),
			zap.String("item_id", res.Item.ID),
			zap.Bool("calendar", res.CalendarEventID != ""))
		return res
	}

	p.metrics.CaptureOutcome("failed")
	log.Error("capture failed",
		zap.String("outcome", res.Outcome.String()),
		zap.Int("attempts", res.Attempts),
		zap.Error(res.Err))
	if err := p.store.MarkFailed(ctx, capture.ID, res.Err.Error()); err != nil {
		log.Warn("could not record failure marker", zap.Error(err))
	}
	return res
}

func (p *Processor) attempt(ctx context.Context, capture model.RawCapture) Result {
	res := Result{Capture: capture, Destination: DestUnknown}
	fail := func(outcome Outcome, err error) Result {
		res.Outcome = outcome
		res.Err = err
		return res
	}

	now := p.now()
	item, err := p.extractor.Extract(ctx, capture.Text, now.In(p.opts.Location))
	p.metrics.ExtractAttempt(err)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fail(OutcomeFatal, err)
		}
		return fail(OutcomeRetryable, err)
	}
	item.CapturedAt = capture.CapturedAt
	item.ProcessedAt = now
	res.Item = item

	res.Destination = Route(item)
	tab, ok := res.Destination.Tab()
	if !ok {
		return fail(OutcomeFatal, fmt.Errorf("no destination for item type %q", item.ItemType))
	}
	row, err := model.RowFor(tab, item)
	if err != nil {
		return fail(OutcomeFatal, err)
	}
	if err := p.store.Append(ctx, tab, row); err != nil {
		return fail(OutcomeFatal, fmt.Errorf("append to %s: %w", tab, err))
	}
	res.Appended = true
	p.metrics.ItemCreated(string(res.Destination))

	if p.calendar != nil && NeedsCalendar(item) {
		res.CalendarEventID = p.createCalendarEntry(ctx, tab, item)
		res.Item.CalendarEventID = res.CalendarEventID
	}

	if err := p.store.MarkProcessed(ctx, capture.ID); err != nil {
		return fail(OutcomeFatal, fmt.Errorf("mark capture processed: %w", err))
	}
	res.Outcome = OutcomeDone
	return res
}

// createCalendarEntry never fails the capture; it returns "" when no entry exists.
func (p *Processor) createCalendarEntry(ctx context.Context, tab model.Tab, item model.StructuredItem) string {
	log := p.logger.With(zap.String("item_id", item.ID))

	artifact, err := calendar.BuildArtifact(item, p.opts.Location, RemindersFor(item))
	if err != nil {
		log.Warn("could not build calendar entry", zap.Error(err))
		return ""
	}
	id, err := p.calendar.CreateArtifact(ctx, artifact)
	p.metrics.CalendarArtifact("create", err)
	if err != nil {
		log.Warn("calendar entry not created", zap.Error(err))
		return ""
	}

	if err := p.store.UpdateField(ctx, tab, item.ID, "calendar_event_id", id); err != nil {
		log.Warn("could not store calendar event id", zap.String("calendar_event_id", id), zap.Error(err))
	}
	return id
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
