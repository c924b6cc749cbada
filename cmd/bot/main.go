package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivanoskov/fintrack_bot/internal/app"
	"github.com/ivanoskov/fintrack_bot/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, a); err != nil {
		slog.Error("Bot stopped with error", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Close()
	slog.Info("Bot stopped")
}

func run(ctx context.Context, a *app.App) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Janitor.Run(ctx) })
	g.Go(func() error { return a.RunUpdatePruner(ctx) })

	if a.Config.WebhookURL == "" {
		slog.InfoContext(ctx, "Starting long polling", "component", "main")
		g.Go(func() error { return a.Bot.Start(ctx) })
		return g.Wait()
	}

	link := strings.TrimRight(a.Config.WebhookURL, "/") + a.Config.WebhookPath()
	if err := a.Bot.SetWebhook(ctx, link); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Bot.Router(a.Config.WebhookPath()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		slog.InfoContext(ctx, "Starting webhook server", "component", "main", "port", a.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
