package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"life-os/internal/model"
	"life-os/internal/repository"
)

const (
	staleCaptureDays = 3
	consequenceDays  = 14
	weekAheadDays    = 7
	maxFocusItems    = 3
	maxSuggestions   = 3
)

type BriefKind string

const (
	BriefMorning BriefKind = "morning"
	BriefNight   BriefKind = "night"
)

// ParseBriefKind accepts "morning" or "night".
func ParseBriefKind(s string) (BriefKind, error) {
	switch k := BriefKind(strings.ToLower(strings.TrimSpace(s))); k {
	case BriefMorning, BriefNight:
		return k, nil
	default:
		return "", fmt.Errorf("unknown brief type %q, use morning or night", s)
	}
}

// SnapshotLoader materializes the store for read-only queries.
type SnapshotLoader interface {
	Load(ctx context.Context) (*repository.Snapshot, error)
}

// Brief holds the data a daily brief is rendered from.
type Brief struct {
	Kind BriefKind
	Date time.Time

	TodayEvents  []model.StructuredItem
	TodayTasks   []model.StructuredItem
	HighPriority []model.StructuredItem
	FocusItems   []string

	TomorrowEvents       []model.StructuredItem
	ThisWeek             []model.StructuredItem
	StaleCaptures        []model.RawCapture
	NeedsClarification   []model.StructuredItem
	UpcomingConsequences []model.StructuredItem
	Suggestions          []string
}

// BriefService builds morning and night summaries.
type BriefService struct {
	loader SnapshotLoader
	logger *zap.Logger
	now    func() time.Time
}

func NewBriefService(loader SnapshotLoader, logger *zap.Logger) *BriefService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BriefService{loader: loader, logger: logger.With(zap.String("component", "brief")), now: time.Now}
}

// Generate builds and renders the brief of kind for date.
func (s *BriefService) Generate(ctx context.Context, kind BriefKind, date time.Time) (string, error) {
	var (
		b   *Brief
		err error
	)
	switch kind {
	case BriefMorning:
		b, err = s.MorningBrief(ctx, date)
	case BriefNight:
		b, err = s.NightBrief(ctx, date)
	default:
		return "", fmt.Errorf("unknown brief type %q", kind)
	}
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *BriefService) MorningBrief(ctx context.Context, date time.Time) (*Brief, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	b := &Brief{
		Kind:         BriefMorning,
		Date:         date,
		TodayEvents:  snap.EventsForDate(date),
		TodayTasks:   snap.TasksDueBy(date),
		HighPriority: snap.HighUrgencyItems(),
	}
	b.FocusItems = focusItems(b.TodayEvents, b.TodayTasks, b.HighPriority)
	s.logger.Info("morning brief built",
		zap.Int("events", len(b.TodayEvents)),
		zap.Int("tasks", len(b.TodayTasks)),
		zap.Int("high", len(b.HighPriority)))
	return b, nil
}

func (s *BriefService) NightBrief(ctx context.Context, date time.Time) (*Brief, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	tomorrow := date.AddDate(0, 0, 1)
	b := &Brief{
		Kind:                 BriefNight,
		Date:                 date,
		TomorrowEvents:       snap.EventsForDate(tomorrow),
		ThisWeek:             snap.ItemsDueBetween(tomorrow, date.AddDate(0, 0, weekAheadDays)),
		StaleCaptures:        snap.StaleCaptures(s.now(), staleCaptureDays),
		NeedsClarification:   snap.ItemsNeedingClarification(),
		UpcomingConsequences: snap.ItemsWithConsequencesSoon(date, consequenceDays),
	}
	b.Suggestions = suggestions(b.ThisWeek, b.UpcomingConsequences)
	s.logger.Info("night brief built",
		zap.Int("tomorrow", len(b.TomorrowEvents)),
		zap.Int("week", len(b.ThisWeek)),
		zap.Int("stale", len(b.StaleCaptures)))
	return b, nil
}

// focusItems picks up to three items: two high priority ones, then the first
// event and the first task not already chosen.
func focusItems(events, tasks, high []model.StructuredItem) []string {
	var focus []string
	used := map[string]bool{}
	add := func(id, text string) {
		if len(focus) >= maxFocusItems || (id != "" && used[id]) {
			return
		}
		used[id] = true
		focus = append(focus, text)
	}

	for i, item := range high {
		if i == 2 {
			break
		}
		text := item.Description
		if item.Consequence != "" {
			text = fmt.Sprintf("%s — %s", item.Description, item.Consequence)
		}
		add(item.ID, text)
	}
	if len(events) > 0 {
		add(events[0].ID, events[0].Description)
	}
	if len(tasks) > 0 {
		add(tasks[0].ID, tasks[0].Description)
	}
	return focus
}

// suggestions lists up to two consequence items, then this week's items.
func suggestions(week, consequences []model.StructuredItem) []string {
	var out []string
	covered := map[string]bool{}
	for i, item := range consequences {
		if i == 2 {
			break
		}
		covered[item.ID] = true
		out = append(out, fmt.Sprintf("Handle %s — %s", item.Description, item.Consequence))
	}
	for i, item := range week {
		if i == 3 || len(out) >= maxSuggestions {
			break
		}
		if covered[item.ID] {
			continue
		}
		out = append(out, fmt.Sprintf("Work on %s", item.Description))
	}
	return out
}

func (b *Brief) String() string {
	if b.Kind == BriefNight {
		return b.nightText()
	}
	return b.morningText()
}

func (b *Brief) morningText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("☀️ MORNING BRIEF — %s\n", b.Date.Format("Monday, January 02")))
	sb.WriteString(strings.Repeat("━", 30) + "\n\n")

	section(&sb, "TODAY'S SCHEDULE")
	if len(b.TodayEvents) == 0 {
		sb.WriteString("Nothing scheduled. Open day.\n")
	}
	for _, e := range b.TodayEvents {
		sb.WriteString(fmt.Sprintf("%s — %s\n", displayTime(e.DueTime), e.Description))
		if e.Location != "" {
			sb.WriteString(fmt.Sprintf("   📍 %s\n", e.Location))
		}
		if e.Urgency == model.UrgencyHigh && e.Consequence != "" {
			sb.WriteString(fmt.Sprintf("   ⚠️ %s\n", e.Consequence))
		}
	}

	sb.WriteString("\n")
	section(&sb, "MUST DO TODAY")
	high := map[string]bool{}
	for _, item := range b.HighPriority {
		high[item.ID] = true
		sb.WriteString(fmt.Sprintf("🚨 %s\n", item.Description))
		if item.Consequence != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", item.Consequence))
		}
	}
	others := 0
	for _, t := range b.TodayTasks {
		if high[t.ID] {
			continue
		}
		others++
		sb.WriteString(fmt.Sprintf("□ %s\n", t.Description))
		if t.Notes != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", clip(t.Notes, 60)))
		}
	}
	if len(b.HighPriority) == 0 && others == 0 {
		sb.WriteString("No deadlines today.\n")
	}

	sb.WriteString("\n")
	section(&sb, "🎯 TODAY'S FOCUS")
	if len(b.FocusItems) == 0 {
		sb.WriteString("1. Enjoy your open day!\n")
	}
	for i, f := range b.FocusItems {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, f))
	}

	sb.WriteString("\nHave a good day.")
	return sb.String()
}

func (b *Brief) nightText() string {
	var sb strings.Builder
	tomorrow := b.Date.AddDate(0, 0, 1)
	sb.WriteString(fmt.Sprintf("🌙 NIGHT BRIEF — %s\n", b.Date.Format("Monday, January 02")))
	sb.WriteString(strings.Repeat("━", 30) + "\n\n")

	section(&sb, "TOMORROW")
	sb.WriteString(tomorrow.Format("Monday, January 02") + "\n")
	if len(b.TomorrowEvents) == 0 {
		sb.WriteString("Nothing scheduled tomorrow.\n")
	}
	for _, e := range b.TomorrowEvents {
		sb.WriteString(fmt.Sprintf("%s — %s\n", displayTime(e.DueTime), e.Description))
		if e.Location != "" {
			sb.WriteString(fmt.Sprintf("   📍 %s\n", e.Location))
		}
	}

	if len(b.ThisWeek) > 0 {
		sb.WriteString("\n")
		section(&sb, "THIS WEEK")
		byDay := map[string][]model.StructuredItem{}
		var days []string
		for _, item := range b.ThisWeek {
			key := model.FormatDate(item.DueDate)
			if _, ok := byDay[key]; !ok {
				days = append(days, key)
			}
			byDay[key] = append(byDay[key], item)
		}
		sort.Strings(days)
		for _, key := range days {
			sb.WriteString(byDay[key][0].DueDate.Format("Monday (Jan 02)") + "\n")
			for _, item := range byDay[key] {
				marker := ""
				if item.Urgency == model.UrgencyHigh {
					marker = " 🚨"
				}
				sb.WriteString(fmt.Sprintf("  • %s%s\n", item.Description, marker))
				if item.Consequence != "" {
					sb.WriteString(fmt.Sprintf("    %s\n", item.Consequence))
				}
			}
		}
	}

	if len(b.StaleCaptures) > 0 {
		sb.WriteString("\n")
		section(&sb, "STUCK IN INBOX")
		for _, c := range b.StaleCaptures {
			sb.WriteString(fmt.Sprintf("• %q (since %s)\n", clip(c.Text, 60), c.CapturedAt.Format("Jan 02")))
		}
	}

	if len(b.NeedsClarification) > 0 {
		sb.WriteString("\n")
		section(&sb, "NEEDS YOUR INPUT")
		for _, item := range b.NeedsClarification {
			sb.WriteString(fmt.Sprintf("%q\n", clip(item.Description, 60)))
			for _, q := range item.ClarificationQuestions {
				sb.WriteString(fmt.Sprintf("→ %s\n", q))
			}
		}
	}

	if len(b.UpcomingConsequences) > 0 {
		sb.WriteString("\n")
		section(&sb, "HEADS UP — CONSEQUENCES APPROACHING")
		for _, item := range b.UpcomingConsequences {
			sb.WriteString(fmt.Sprintf("⚠️ %s\n", item.Description))
			sb.WriteString(fmt.Sprintf("   Due: %s\n", item.DueDate.Format("January 02")))
			sb.WriteString(fmt.Sprintf("   If you don't: %s\n", item.Consequence))
		}
	}

	sb.WriteString("\n")
	section(&sb, "CONSIDER FOR TOMORROW")
	if len(b.Suggestions) == 0 {
		sb.WriteString("1. Rest up — tomorrow looks manageable!\n")
	}
	for i, s := range b.Suggestions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
	}

	sb.WriteString("\nRest well. Tomorrow's got a plan.")
	return sb.String()
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("─", len([]rune(title))) + "\n")
}

// displayTime renders a time of day in 12-hour form, "TBD" when unset.
func displayTime(t *time.Time) string {
	if t == nil {
		return "TBD"
	}
	hour, minute := t.Hour(), t.Minute()
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	switch {
	case hour == 0:
		hour = 12
	case hour > 12:
		hour -= 12
	}
	if minute == 0 {
		return fmt.Sprintf("%d %s", hour, suffix)
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
