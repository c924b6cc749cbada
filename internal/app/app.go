package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/ivanoskov/fintrack_bot/internal/bot"
	"github.com/ivanoskov/fintrack_bot/internal/charts"
	"github.com/ivanoskov/fintrack_bot/internal/config"
	"github.com/ivanoskov/fintrack_bot/internal/model"
	"github.com/ivanoskov/fintrack_bot/internal/ocr"
	"github.com/ivanoskov/fintrack_bot/internal/repository"
	"github.com/ivanoskov/fintrack_bot/internal/service"
	"github.com/ivanoskov/fintrack_bot/internal/session"
)

const (
	updatePruneInterval = time.Hour
	updateRetention     = 48 * time.Hour
)

// App собранные компоненты бота
type App struct {
	Config  *config.Config
	Bot     *bot.Bot
	Flow    *service.TransactionFlow
	Janitor *session.Janitor
	Updates *repository.UpdateLog

	closers []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := repo.(interface{ Close() }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	db, err := bolt.Open(cfg.BoltPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open bolt %s: %w", cfg.BoltPath, err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })

	if a.Updates, err = repository.NewUpdateLog(db); err != nil {
		a.Close()
		return nil, err
	}

	var sessions session.Store
	switch cfg.SessionStore {
	case config.SessionStoreBolt:
		if sessions, err = session.NewBolt(db, cfg.SessionTTL); err != nil {
			a.Close()
			return nil, err
		}
	default:
		sessions = session.NewMemory(cfg.SessionTTL)
	}

	vision, err := ocr.NewVisionClient(ctx, ocr.CredentialOptions(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)...)
	if err != nil {
		a.Close()
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}
	slog.InfoContext(ctx, "Authorized on account", "component", "app", "username", api.Self.UserName)

	catalog := model.DefaultCatalog()
	a.Flow = service.NewTransactionFlow(service.FlowConfig{
		Sessions: sessions,
		Catalog:  catalog,
		Tracker:  service.NewExpenseTracker(repo, catalog),
		Files:    bot.NewFileFetcher(api, nil),
		OCR:      vision,
		Users:    repo,
		Charts:   charts.NewChartGenerator(),
		Timeout:  cfg.ExternalTimeout,
	})
	a.Bot = bot.NewBot(api, a.Flow, a.Updates)
	a.Janitor = &session.Janitor{
		Store:    sessions,
		Interval: cfg.SessionSweepInterval,
		Lock:     a.Flow.LockUser,
		OnExpire: a.Bot.NotifyExpired,
	}
	return a, nil
}

func newRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		return repository.NewPostgresRepository(ctx, cfg.DatabaseURL, cfg.SupabaseSchema)
	default:
		return repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseSchema)
	}
}

// RunUpdatePruner удаляет старые записи журнала обновлений до отмены контекста
func (a *App) RunUpdatePruner(ctx context.Context) error {
	ticker := time.NewTicker(updatePruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			a.PruneUpdates(ctx, now)
		}
	}
}

// PruneUpdates одна очистка журнала обновлений
func (a *App) PruneUpdates(ctx context.Context, now time.Time) {
	n, err := a.Updates.Prune(now.Add(-updateRetention))
	if err != nil {
		slog.ErrorContext(ctx, "Update log prune failed", "component", "app", "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "Update log pruned", "component", "app", "removed", n)
	}
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
