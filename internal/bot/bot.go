package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/fintrack_bot/internal/model"
	"github.com/ivanoskov/fintrack_bot/internal/service"
)

// Flow диалог, которому бот передает события
type Flow interface {
	Handle(ctx context.Context, ev service.Event) service.Reply
	ExpiredNotice(s model.Session) service.Reply
}

// UpdateLog отмечает обработанные обновления.
// Обновление отмечается только после отправки ответа, поэтому
// повторная доставка после падения процесса будет обработана.
type UpdateLog interface {
	Seen(updateID int) (bool, error)
	MarkHandled(updateID int, now time.Time) (bool, error)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	flow    Flow
	updates UpdateLog
	now     func() time.Time
}

func NewBot(api *tgbotapi.BotAPI, flow Flow, updates UpdateLog) *Bot {
	return &Bot{
		api:     api,
		flow:    flow,
		updates: updates,
		now:     time.Now,
	}
}

// Start запускает бота в режиме long polling и блокируется до отмены ctx
func (b *Bot) Start(ctx context.Context) error {
	// Polling не работает, пока установлен вебхук
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	slog.InfoContext(ctx, "Polling started", "component", "bot", "bot", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				// Логируем ошибку, но продолжаем работу
				slog.ErrorContext(ctx, "Error handling update", "component", "bot", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

// SetWebhook регистрирует адрес вебхука в Telegram
func (b *Bot) SetWebhook(ctx context.Context, link string) error {
	wh, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	slog.InfoContext(ctx, "Webhook set", "component", "bot")
	return nil
}

// HandleWebhook - точка входа для обработки входящих webhook-обновлений
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return &BadUpdateError{Err: err}
	}

	return b.handleUpdate(ctx, update)
}

// BadUpdateError тело вебхука не является обновлением Telegram
type BadUpdateError struct {
	Err error
}

func (e *BadUpdateError) Error() string {
	return "decode update: " + e.Err.Error()
}

func (e *BadUpdateError) Unwrap() error {
	return e.Err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	ev, ok := toEvent(update)
	if !ok {
		return nil
	}

	if b.updates != nil {
		seen, err := b.updates.Seen(update.UpdateID)
		if err != nil {
			slog.WarnContext(ctx, "Update log unavailable", "component", "bot", "update_id", update.UpdateID, "error", err)
		} else if seen {
			slog.InfoContext(ctx, "Duplicate update skipped", "component", "bot", "update_id", update.UpdateID)
			return nil
		}
	}

	messageID := 0
	if cq := update.CallbackQuery; cq != nil {
		// Убираем "часики" на кнопке
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			slog.WarnContext(ctx, "Failed to answer callback", "component", "bot", "error", err)
		}
		if cq.Message != nil {
			messageID = cq.Message.MessageID
		}
	}

	slog.DebugContext(ctx, "Handling update",
		"component", "bot",
		"update_id", update.UpdateID,
		"user_id", ev.UserID,
		"kind", ev.Kind)

	reply := b.flow.Handle(ctx, ev)
	if err := b.send(ev.ChatID, messageID, reply); err != nil {
		return err
	}

	if b.updates != nil {
		if _, err := b.updates.MarkHandled(update.UpdateID, b.now()); err != nil {
			slog.WarnContext(ctx, "Failed to mark update handled", "component", "bot", "update_id", update.UpdateID, "error", err)
		}
	}
	return nil
}

// NotifyExpired сообщает пользователю, что незавершенная транзакция удалена
func (b *Bot) NotifyExpired(ctx context.Context, s model.Session) {
	if err := b.send(s.ChatID, 0, b.flow.ExpiredNotice(s)); err != nil {
		slog.WarnContext(ctx, "Failed to send expiry notice", "component", "bot", "user_id", s.UserID, "error", err)
	}
}

// Router возвращает обработчик для режима вебхука
func (b *Bot) Router(webhookPath string) http.Handler {
	return newRouter(b, webhookPath)
}
