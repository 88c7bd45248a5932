package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medpipe_backend/models"
)

// Translator turns text into the language named by targetCode. The code
// format is provider specific (DeepL "ES", Microsoft "es").
type Translator interface {
	Translate(ctx context.Context, text, targetCode string) (string, error)
	Name() string
}

type DeepLClient struct {
	apiURL string
	apiKey string
	http   *http.Client
}

func NewDeepLClient(apiURL, apiKey string) *DeepLClient {
	return &DeepLClient{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *DeepLClient) Name() string { return "deepl" }

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (c *DeepLClient) Translate(ctx context.Context, text, targetCode string) (string, error) {
	if text == "" {
		return "", nil
	}
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", targetCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("deepl: %w", err)
	}
	var out deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Translations) == 0 {
		return "", fmt.Errorf("deepl returned no translation: %w", models.ErrMalformedOutput)
	}
	return out.Translations[0].Text, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return models.ErrRateLimited
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
