package bot

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

const maxUpdateSize = 1 << 20

func newRouter(b *Bot, webhookPath string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", handleHealth).Methods(http.MethodGet)
	r.HandleFunc(webhookPath, b.handleWebhookRequest).Methods(http.MethodPost)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (b *Bot) handleWebhookRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateSize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	err = b.HandleWebhook(r.Context(), body)
	var badUpdate *BadUpdateError
	switch {
	case errors.As(err, &badUpdate):
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	case err != nil:
		// Повторная доставка не поможет: ошибка уже показана пользователю или залогирована
		slog.ErrorContext(r.Context(), "Error handling webhook update", "component", "bot", "error", err)
	}

	w.WriteHeader(http.StatusOK)
}
