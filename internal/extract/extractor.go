// Package extract turns freeform captures into validated structured items
// through a language model.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"life-os/internal/model"
)

// Completer sends a prompt to a model and returns its raw text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type ErrorKind string

const (
	KindCall      ErrorKind = "call"
	KindEmpty     ErrorKind = "empty"
	KindMalformed ErrorKind = "malformed"
	KindInvalid   ErrorKind = "invalid"
)

// ExtractionError is returned for every failure of Extract.
type ExtractionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrEmptyInput is wrapped when the capture text is blank.
var ErrEmptyInput = errors.New("capture text is empty")

// Extractor builds prompts, calls the model and validates its answer.
type Extractor struct {
	completer  Completer
	repairJSON bool
	logger     *zap.Logger
	newID      func() string
}

type Option func(*Extractor)

// WithJSONRepair enables repairing near-JSON model output before decoding.
func WithJSONRepair(enabled bool) Option {
	return func(e *Extractor) { e.repairJSON = enabled }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Extractor) { e.newID = fn }
}

func NewExtractor(completer Completer, opts ...Option) *Extractor {
	e := &Extractor{
		completer: completer,
		logger:    zap.NewNop(),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "extract"))
	return e
}

// response mirrors the JSON object the model is asked to produce.
type response struct {
	ItemType               string   `json:"item_type"`
	Description            string   `json:"description"`
	Category               string   `json:"category"`
	Subcategory            *string  `json:"subcategory"`
	People                 []string `json:"people"`
	DueDate                *string  `json:"due_date"`
	DueTime                *string  `json:"due_time"`
	Urgency                *string  `json:"urgency"`
	Consequence            *string  `json:"consequence"`
	Source                 *string  `json:"source"`
	Location               *string  `json:"location"`
	Links                  []string `json:"links"`
	Notes                  *string  `json:"notes"`
	NeedsClarification     bool     `json:"needs_clarification"`
	ClarificationQuestions []string `json:"clarification_questions"`
	CalendarAction         *string  `json:"calendar_action"`
}

// Extract classifies rawText relative to referenceDate. The returned item has a
// fresh ID, status pending and no CapturedAt; the caller stamps it.
func (e *Extractor) Extract(ctx context.Context, rawText string, referenceDate time.Time) (model.StructuredItem, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return model.StructuredItem{}, &ExtractionError{Kind: KindInvalid, Err: ErrEmptyInput}
	}

	raw, err := e.completer.Complete(ctx, BuildPrompt(text, referenceDate))
	if err != nil {
		return model.StructuredItem{}, &ExtractionError{Kind: KindCall, Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		return model.StructuredItem{}, &ExtractionError{Kind: KindEmpty, Err: errors.New("model returned an empty response")}
	}

	resp, err := e.decode(raw)
	if err != nil {
		e.logger.Warn("malformed model output", zap.String("output", truncate(raw, 500)), zap.Error(err))
		return model.StructuredItem{}, &ExtractionError{Kind: KindMalformed, Err: err}
	}

	item, err := e.toItem(resp, text)
	if err != nil {
		return model.StructuredItem{}, &ExtractionError{Kind: KindInvalid, Err: err}
	}

	e.logger.Info("extracted item",
		zap.String("item_type", string(item.ItemType)),
		zap.String("category", string(item.Category)),
		zap.String("input", truncate(text, 50)))
	return item, nil
}

func (e *Extractor) decode(raw string) (response, error) {
	payload := strings.TrimSpace(raw)
	if e.repairJSON {
		payload = stripFences(payload)
		fixed, err := jsonrepair.JSONRepair(payload)
		if err != nil {
			return response{}, fmt.Errorf("repair json: %w", err)
		}
		payload = fixed
	}
	if !strings.HasPrefix(payload, "{") {
		return response{}, errors.New("expected a JSON object")
	}

	var resp response
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	if err := dec.Decode(&resp); err != nil {
		return response{}, fmt.Errorf("decode json: %w", err)
	}
	return resp, nil
}

func (e *Extractor) toItem(resp response, rawText string) (model.StructuredItem, error) {
	item := model.StructuredItem{
		ID:                     e.newID(),
		RawText:                rawText,
		ItemType:               model.ItemType(strings.TrimSpace(resp.ItemType)),
		Description:            strings.TrimSpace(resp.Description),
		Category:               model.NormalizeCategory(strings.TrimSpace(resp.Category)),
		Subcategory:            deref(resp.Subcategory),
		People:                 compact(resp.People),
		Consequence:            deref(resp.Consequence),
		Source:                 deref(resp.Source),
		Location:               deref(resp.Location),
		Links:                  compact(resp.Links),
		Notes:                  deref(resp.Notes),
		NeedsClarification:     resp.NeedsClarification,
		ClarificationQuestions: compact(resp.ClarificationQuestions),
		Urgency:                model.Urgency(strings.ToUpper(deref(resp.Urgency))),
		CalendarAction:         model.CalendarAction(strings.ToUpper(deref(resp.CalendarAction))),
	}

	var err error
	if item.DueDate, err = model.ParseDate(deref(resp.DueDate)); err != nil {
		return model.StructuredItem{}, &model.ValidationError{Field: "due_date", Message: err.Error()}
	}
	if item.DueTime, err = model.ParseClock(deref(resp.DueTime)); err != nil {
		return model.StructuredItem{}, &model.ValidationError{Field: "due_time", Message: err.Error()}
	}

	item.ApplyDefaults()
	if err := item.Validate(); err != nil {
		return model.StructuredItem{}, err
	}
	return item, nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
