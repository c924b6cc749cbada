package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

// Janitor периодически удаляет просроченные сессии и сообщает о каждой через OnExpire
type Janitor struct {
	Store    Store
	Interval time.Duration
	// Lock блокирует события пользователя на время проверки и удаления его сессии.
	// Сессия, которую обработчик успел обновить, не удаляется.
	Lock     func(userID int64) (unlock func())
	OnExpire func(ctx context.Context, s model.Session)
}

// Run блокируется до отмены контекста
func (j *Janitor) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			j.SweepOnce(ctx, now)
		}
	}
}

// SweepOnce выполняет одну очистку и возвращает число удаленных сессий
func (j *Janitor) SweepOnce(ctx context.Context, now time.Time) int {
	userIDs, err := j.Store.ListExpired(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "Session sweep failed", "component", "session", "error", err)
		return 0
	}

	removed := 0
	for _, userID := range userIDs {
		s, ok, err := j.expire(ctx, userID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to expire session", "component", "session", "user_id", userID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		removed++
		slog.InfoContext(ctx, "Session expired", "component", "session", "user_id", s.UserID, "state", s.State)
		if j.OnExpire != nil {
			j.OnExpire(ctx, s)
		}
	}
	return removed
}

func (j *Janitor) expire(ctx context.Context, userID int64, now time.Time) (model.Session, bool, error) {
	if j.Lock != nil {
		unlock := j.Lock(userID)
		defer unlock()
	}
	return j.Store.DeleteExpired(ctx, userID, now)
}
