package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestVisionClient(t *testing.T, handler http.HandlerFunc) *VisionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewVisionClient(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return client
}

func TestVisionClientDetectText(t *testing.T) {
	var gotBody map[string]any
	client := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "images:annotate"), "path %s", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"textAnnotations":[{"description":"Total: 120.00 Thank you"},{"description":"Total:"}]}]}`)
	})

	text, err := client.DetectText(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Total: 120.00 Thank you", text)

	requests := gotBody["requests"].([]any)
	require.Len(t, requests, 1)
	features := requests[0].(map[string]any)["features"].([]any)
	assert.Equal(t, "TEXT_DETECTION", features[0].(map[string]any)["type"])
}

func TestVisionClientNoText(t *testing.T) {
	client := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{}]}`)
	})

	text, err := client.DetectText(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestVisionClientResponseError(t *testing.T) {
	client := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`)
	})

	_, err := client.DetectText(context.Background(), []byte("jpeg-bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad image data")
}

func TestVisionClientEmptyImage(t *testing.T) {
	client := newTestVisionClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.DetectText(context.Background(), nil)
	assert.Error(t, err)
}

func TestCredentialOptions(t *testing.T) {
	assert.Len(t, CredentialOptions("", ""), 1)
	assert.Len(t, CredentialOptions(`{"type":"service_account"}`, ""), 2)
	assert.Len(t, CredentialOptions("", "/etc/creds.json"), 2)
}
