package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/app"
	"github.com/ivanoskov/fintrack_bot/internal/bot"
	"github.com/ivanoskov/fintrack_bot/internal/config"
)

// Request структура входящего запроса от API Gateway
type Request struct {
	Body string `json:"body"`
}

// Response структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Компоненты создаются один раз на экземпляр функции и переживают вызовы
var (
	initOnce sync.Once
	instance *app.App
	initErr  error
)

func getApp(ctx context.Context) (*app.App, error) {
	initOnce.Do(func() {
		cfg, err := config.LoadConfig()
		if err != nil {
			initErr = err
			return
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
		instance, initErr = app.New(ctx, cfg)
	})
	return instance, initErr
}

func Handler(ctx context.Context, request Request) (*Response, error) {
	a, err := getApp(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to initialize", "component", "function", "error", err)
		return response(http.StatusInternalServerError, err.Error()), nil
	}

	// Фоновых горутин между вызовами нет, поэтому очистка идет на каждом вызове
	now := time.Now()
	a.Janitor.SweepOnce(ctx, now)
	a.PruneUpdates(ctx, now)

	if err := a.Bot.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		var badUpdate *bot.BadUpdateError
		if errors.As(err, &badUpdate) {
			return response(http.StatusBadRequest, err.Error()), nil
		}
		return response(http.StatusInternalServerError, err.Error()), nil
	}
	return response(http.StatusOK, ""), nil
}

func response(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// main обрабатывает один запрос из stdin для локальной проверки
func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		os.Exit(1)
	}

	resp, _ := Handler(context.Background(), req)
	if err := json.NewEncoder(os.Stdout).Encode(resp); err != nil {
		slog.Error("Failed to encode response", "error", err)
		os.Exit(1)
	}
}
