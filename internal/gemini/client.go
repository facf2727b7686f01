package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"carpet-studio/internal/apperr"
)

const (
	DefaultModel = "gemini-3-pro-image-preview"
	FlashModel   = "gemini-2.5-flash-image"

	proImagePrefix = "gemini-3-pro-image"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ImageSizeFor picks the imageSize hint for a model. Flash ignores it.
func ImageSizeFor(model string, resolution int) string {
	if model == FlashModel {
		return ""
	}
	if resolution >= 1536 {
		return "2K"
	}
	return "1K"
}

// Generate asks the model for one background image and returns its raw bytes.
// The request key wins over the client's configured key.
func (c *Client) Generate(ctx context.Context, in ImageRequest) ([]byte, error) {
	apiKey := strings.TrimSpace(in.APIKey)
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return nil, apperr.ErrAuth
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = DefaultModel
	}

	cfg := &imageConfig{AspectRatio: in.AspectRatio}
	if strings.Contains(model, proImagePrefix) {
		cfg.ImageSize = in.ImageSize
	}

	req := generateContentRequest{
		Contents: []content{
			{Parts: []part{{Text: in.Prompt}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        cfg,
		},
	}

	resp, err := c.generateContent(ctx, apiKey, model, req)
	if err != nil {
		return nil, err
	}

	data, ok := firstInlineData(resp)
	if !ok {
		c.logger.Warn("gemini returned no image", "model", model, "candidates", len(resp.Candidates))
		return nil, apperr.ErrNoImageReturned
	}

	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return img, nil
}

func (c *Client) generateContent(ctx context.Context, apiKey, model string, payload generateContentRequest) (generateContentResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	c.logger.Debug("gemini request", "model", model, "aspect_ratio", payload.GenerationConfig.ImageConfig.AspectRatio)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return generateContentResponse{}, &apperr.UpstreamError{Status: httpResp.StatusCode, Body: string(rawBody)}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

func firstInlineData(resp generateContentResponse) (string, bool) {
	if len(resp.Candidates) == 0 {
		return "", false
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data, true
		}
	}
	return "", false
}

// IsAuthError reports whether err means the key is missing or was rejected.
func IsAuthError(err error) bool {
	if errors.Is(err, apperr.ErrAuth) {
		return true
	}
	var upstream *apperr.UpstreamError
	return errors.As(err, &upstream) && (upstream.Status == http.StatusUnauthorized || upstream.Status == http.StatusForbidden)
}
