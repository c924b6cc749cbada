package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/fintrack_bot/internal/service"
)

// toEvent переводит обновление Telegram в событие диалога.
// Обновления без сообщения и callback пропускаются.
func toEvent(update tgbotapi.Update) (service.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return service.Event{}, false
		}
		ev := service.Event{
			Kind:     service.EventAction,
			UserID:   cq.From.ID,
			ChatID:   cq.From.ID,
			Username: cq.From.UserName,
			Data:     cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
		}
		return ev, true
	}

	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return service.Event{}, false
	}

	ev := service.Event{
		UserID:   message.From.ID,
		ChatID:   message.Chat.ID,
		Username: message.From.UserName,
	}

	switch {
	case message.IsCommand():
		ev.Kind = service.EventCommand
		ev.Data = message.Command()
	case len(message.Photo) > 0:
		ev.Kind = service.EventPhoto
		ev.Photos = make([]service.PhotoSize, 0, len(message.Photo))
		for _, p := range message.Photo {
			ev.Photos = append(ev.Photos, service.PhotoSize{
				FileID:   p.FileID,
				Width:    p.Width,
				Height:   p.Height,
				FileSize: p.FileSize,
			})
		}
	default:
		// Стикеры, документы и прочее идут как пустой текст
		ev.Kind = service.EventText
		ev.Data = message.Text
	}
	return ev, true
}
