package repository

import (
	"context"
	"errors"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	// Транзакции. Повторная запись с тем же ID не создает дубликат.
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error)

	// Профили веб-кабинета, привязанные к Telegram по username
	ResolveUserID(ctx context.Context, telegramUsername string) (string, error)
}

// normalizeUsername приводит username к виду, в котором его сохраняет веб-кабинет: "@name"
func normalizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if username[0] != '@' {
		return "@" + username
	}
	return username
}
