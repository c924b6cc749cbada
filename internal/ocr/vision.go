package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const textDetectionFeature = "TEXT_DETECTION"

// VisionClient распознает текст на изображениях через Cloud Vision API
type VisionClient struct {
	svc *vision.Service
}

// NewVisionClient создает клиента Cloud Vision
func NewVisionClient(ctx context.Context, opts ...option.ClientOption) (*VisionClient, error) {
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &VisionClient{svc: svc}, nil
}

// CredentialOptions выбирает источник учетных данных сервисного аккаунта.
// Без JSON и файла используются Application Default Credentials.
func CredentialOptions(credentialsJSON, credentialsFile string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(vision.CloudVisionScope)}
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case strings.TrimSpace(credentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return opts
}

// DetectText возвращает полный распознанный текст изображения.
// Пустая строка без ошибки означает, что текст не найден.
func (c *VisionClient) DetectText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty image")
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
				Features: []*vision.Feature{{Type: textDetectionFeature}},
			},
		},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return "", fmt.Errorf("text detection failed: %s (code %d)", r.Error.Message, r.Error.Code)
	}

	// Первая аннотация содержит весь текст, остальные содержат отдельные слова
	var text string
	switch {
	case len(r.TextAnnotations) > 0:
		text = r.TextAnnotations[0].Description
	case r.FullTextAnnotation != nil:
		text = r.FullTextAnnotation.Text
	}

	slog.DebugContext(ctx, "Text detected", "component", "ocr", "length", len(text))
	return text, nil
}
