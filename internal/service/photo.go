package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/fintrack_bot/internal/model"
	"github.com/ivanoskov/fintrack_bot/internal/ocr"
)

var (
	errNoPhoto = errors.New("message has no photo")
	errNoText  = errors.New("no text detected")
)

func (f *TransactionFlow) handlePhoto(ctx context.Context, ev Event) (Reply, error) {
	s, err := f.loadSession(ctx, ev.UserID)
	if err != nil {
		return Reply{}, err
	}
	if s.Method != model.MethodPhoto {
		return Reply{Text: photoFirstText, Keyboard: mainMenuKeyboard()}, nil
	}

	amount, err := f.detectAmount(ctx, ev.Photos)
	if err != nil {
		return f.photoFailure(ctx, ev, err), nil
	}

	s.MarkEdited()
	s.Amount = amount
	s.State = model.StateAmountCaptured
	if s.Complete() {
		return f.commit(ctx, ev, s)
	}
	if err := f.saveSession(ctx, s); err != nil {
		return Reply{}, err
	}

	detected := fmt.Sprintf("Detected amount: %s\n", amount.StringFixed(2))
	if s.Type == "" {
		return Reply{Text: detected + "Now select transaction type:", Keyboard: typeKeyboard()}, nil
	}
	return f.categoryPrompt(s, detected), nil
}

// detectAmount скачивает самое крупное фото, распознает текст и ищет в нем сумму
func (f *TransactionFlow) detectAmount(ctx context.Context, photos []PhotoSize) (decimal.Decimal, error) {
	photo, ok := largestPhoto(photos)
	if !ok {
		return decimal.Zero, errNoPhoto
	}

	fetchCtx, cancel := f.withTimeout(ctx)
	defer cancel()
	image, err := f.files.Fetch(fetchCtx, photo.FileID)
	if err != nil {
		return decimal.Zero, external("telegram", err)
	}

	ocrCtx, cancel := f.withTimeout(ctx)
	defer cancel()
	text, err := f.ocr.DetectText(ocrCtx, image)
	if err != nil {
		return decimal.Zero, external("vision", err)
	}
	if strings.TrimSpace(text) == "" {
		return decimal.Zero, errNoText
	}

	return ocr.ExtractAmount(text)
}

func (f *TransactionFlow) photoFailure(ctx context.Context, ev Event, err error) Reply {
	var message string
	switch {
	case errors.Is(err, errNoPhoto):
		message = sendPhotoText
	case errors.Is(err, errNoText):
		message = "Could not detect any text in the photo. Please try again or enter manually."
	case errors.Is(err, ocr.ErrAmountNotFound):
		message = "Could not find an amount in the photo text. Please enter manually."
	case errors.Is(err, ocr.ErrAmountInvalid):
		message = "Amount detected is not valid. Please enter manually."
	default:
		slog.ErrorContext(ctx, "Failed to process photo", "component", "flow", "user_id", ev.UserID, "error", err)
		message = "Error processing the photo. Please try again or enter manually."
	}
	return Reply{Text: message, Keyboard: photoFailureKeyboard()}
}

// largestPhoto выбирает размер с наибольшей площадью, при равенстве последний
func largestPhoto(photos []PhotoSize) (PhotoSize, bool) {
	if len(photos) == 0 {
		return PhotoSize{}, false
	}
	best := photos[0]
	for _, p := range photos[1:] {
		if p.Width*p.Height >= best.Width*best.Height {
			best = p
		}
	}
	return best, true
}
