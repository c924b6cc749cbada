package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxPhotoSize ограничение Bot API на скачивание файлов
const maxPhotoSize = 20 << 20

// FileFetcher скачивает файлы пользователей с серверов Telegram
type FileFetcher struct {
	fileURL func(fileID string) (string, error)
	client  *http.Client
}

func NewFileFetcher(api *tgbotapi.BotAPI, client *http.Client) *FileFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &FileFetcher{
		fileURL: api.GetFileDirectURL,
		client:  client,
	}
}

func (f *FileFetcher) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	link, err := f.fileURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file link: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxPhotoSize {
		return nil, fmt.Errorf("file is larger than %d bytes", maxPhotoSize)
	}
	return data, nil
}
