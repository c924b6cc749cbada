// Package session хранит незавершенные диалоги добавления транзакций.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrExpired возвращается один раз: просроченная сессия удаляется при чтении
	ErrExpired = errors.New("session expired")
)

// Store хранилище сессий, по идентификатору пользователя
type Store interface {
	Get(ctx context.Context, userID int64) (model.Session, error)
	Put(ctx context.Context, s model.Session) error
	Delete(ctx context.Context, userID int64) error
	// ListExpired возвращает пользователей, чьи сессии просрочены на момент now. Сессии не удаляются.
	ListExpired(ctx context.Context, now time.Time) ([]int64, error)
	// DeleteExpired атомарно удаляет сессию, если она все еще просрочена на момент now
	DeleteExpired(ctx context.Context, userID int64, now time.Time) (model.Session, bool, error)
}
