package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/fintrack_bot/internal/service"
)

func inlineKeyboard(rows [][]service.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var line []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		buttons = append(buttons, line)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(buttons...)
	return &markup
}

// send отправляет ответ. Для callback (messageID != 0) сообщение с кнопками редактируется.
func (b *Bot) send(chatID int64, messageID int, reply service.Reply) error {
	keyboard := inlineKeyboard(reply.Keyboard)

	if len(reply.Image) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "chart.png", Bytes: reply.Image})
		photo.Caption = reply.Text
		if keyboard != nil {
			photo.ReplyMarkup = keyboard
		}
		if _, err := b.api.Send(photo); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
		return nil
	}

	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
		edit.ReplyMarkup = keyboard
		if _, err := b.api.Send(edit); err == nil {
			return nil
		}
		// Фото и неизмененные сообщения не редактируются, отправляем новое
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
