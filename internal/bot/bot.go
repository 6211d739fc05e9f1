package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"life-os/internal/model"
	"life-os/internal/service"
)

const (
	cbDonePrefix   = "done:"
	cbCancelPrefix = "cancel:"
)

const helpText = `Send me anything and I will file it: tasks, events, ideas or references.

/brief [morning|night] - show a brief (morning by default)
/process - classify everything still waiting in the inbox
/done <id> - mark a task completed
/cancel <id> - cancel a task
/help - this message`

// API is the part of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Capturer interface {
	Capture(ctx context.Context, text string) (service.CaptureResult, error)
}

type Briefer interface {
	Generate(ctx context.Context, kind service.BriefKind, date time.Time) (string, error)
}

type InboxProcessor interface {
	ProcessInbox(ctx context.Context) (service.Stats, error)
}

type StatusSetter interface {
	SetStatus(ctx context.Context, itemID string, status model.Status) (model.StructuredItem, error)
}

// Deps are the services behind the chat commands.
type Deps struct {
	Capture   Capturer
	Briefs    Briefer
	Processor InboxProcessor
	Tasks     StatusSetter
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api      API
	deps     Deps
	allowed  map[int64]bool
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

func New(token string, deps Deps, allowedChats []int64, loc *time.Location, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, deps, allowedChats, loc, logger)
	b.logger.Info("bot authorized", zap.String("account", api.Self.UserName))
	return b, nil
}

func newBot(api API, deps Deps, allowedChats []int64, loc *time.Location, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	allowed := make(map[int64]bool, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = true
	}
	return &Bot{
		api:      api,
		deps:     deps,
		allowed:  allowed,
		location: loc,
		logger:   logger.With(zap.String("component", "telegram")),
		now:      time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Error("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil {
			return
		}
		if !b.allowed[update.Message.Chat.ID] {
			b.logger.Warn("message from unknown chat ignored", zap.Int64("chat_id", update.Message.Chat.ID))
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error("handle message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		b.logger.Info("command", zap.Int64("chat_id", msg.Chat.ID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	return b.handleCapture(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "brief":
		return b.handleBrief(ctx, msg)
	case "process":
		return b.handleProcess(ctx, msg)
	case "done":
		return b.handleStatus(ctx, msg.Chat.ID, msg.CommandArguments(), model.StatusCompleted)
	case "cancel":
		return b.handleStatus(ctx, msg.Chat.ID, msg.CommandArguments(), model.StatusCancelled)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleCapture(ctx context.Context, msg *tgbotapi.Message) error {
	if b.deps.Capture == nil {
		return b.sendText(msg.Chat.ID, "Capture is not configured.")
	}
	res, err := b.deps.Capture.Capture(ctx, msg.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCapture) {
			return nil
		}
		b.logger.Error("capture failed", zap.Error(err))
		return b.sendText(msg.Chat.ID, "⚠️ Could not save that. Please try again.")
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, res.Summary)
	reply.ReplyToMessageID = msg.MessageID
	if res.Processed && res.Destination == service.DestTasks {
		reply.ReplyMarkup = taskKeyboard(res.Item.ID)
	}
	_, err = b.api.Send(reply)
	return err
}

func taskKeyboard(itemID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Done", cbDonePrefix+itemID),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", cbCancelPrefix+itemID),
	))
}

func (b *Bot) handleBrief(ctx context.Context, msg *tgbotapi.Message) error {
	kind := service.BriefMorning
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := service.ParseBriefKind(arg)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Usage: /brief [morning|night]")
		}
		kind = parsed
	}
	text, err := b.deps.Briefs.Generate(ctx, kind, b.now().In(b.location))
	if err != nil {
		b.logger.Error("brief failed", zap.String("kind", string(kind)), zap.Error(err))
		return b.sendText(msg.Chat.ID, "⚠️ Could not build the brief.")
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleProcess(ctx context.Context, msg *tgbotapi.Message) error {
	stats, err := b.deps.Processor.ProcessInbox(ctx)
	if err != nil {
		b.logger.Error("process cycle failed", zap.Error(err))
		return b.sendText(msg.Chat.ID, "⚠️ Processing failed, check the logs.")
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"Processed %d, failed %d.\nTasks %d · Events %d · Ideas %d · Reference %d\nCalendar entries %d",
		stats.Processed, stats.Failed,
		stats.TasksCreated, stats.EventsCreated, stats.IdeasCreated, stats.ReferencesCreated,
		stats.CalendarEventsCreated))
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, args string, status model.Status) error {
	id := strings.TrimSpace(args)
	if id == "" {
		return b.sendText(chatID, fmt.Sprintf("Usage: /%s <task id>", statusCommand(status)))
	}
	task, err := b.deps.Tasks.SetStatus(ctx, id, status)
	if err != nil {
		b.logger.Warn("status change failed", zap.String("item_id", id), zap.Error(err))
		return b.sendText(chatID, fmt.Sprintf("⚠️ Could not update task %s.", id))
	}
	if status == model.StatusCompleted {
		return b.sendText(chatID, fmt.Sprintf("✅ Done: %s", task.Description))
	}
	return b.sendText(chatID, fmt.Sprintf("✖️ Cancelled: %s", task.Description))
}

func statusCommand(status model.Status) string {
	if status == model.StatusCompleted {
		return "done"
	}
	return "cancel"
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", zap.Error(err))
	}
	if cb.Message == nil || cb.Message.Chat == nil || !b.allowed[cb.Message.Chat.ID] {
		return nil
	}
	chatID := cb.Message.Chat.ID
	switch data := cb.Data; {
	case strings.HasPrefix(data, cbDonePrefix):
		return b.handleStatus(ctx, chatID, strings.TrimPrefix(data, cbDonePrefix), model.StatusCompleted)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.handleStatus(ctx, chatID, strings.TrimPrefix(data, cbCancelPrefix), model.StatusCancelled)
	default:
		return nil
	}
}

// SendBrief delivers a scheduled brief to every allowed chat.
func (b *Bot) SendBrief(ctx context.Context, kind service.BriefKind) error {
	text, err := b.deps.Briefs.Generate(ctx, kind, b.now().In(b.location))
	if err != nil {
		return fmt.Errorf("build %s brief: %w", kind, err)
	}
	var errs []error
	for chatID := range b.allowed {
		if err := b.sendText(chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("send to %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}
