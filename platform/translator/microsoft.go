package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medpipe_backend/models"
)

// MicrosoftClient calls Translator v3. Translations always go from the
// working language (English) to the target, matching how pipeline output
// is sent back to the document language.
type MicrosoftClient struct {
	baseURL string
	apiKey  string
	region  string
	http    *http.Client
}

func NewMicrosoftClient(baseURL, apiKey, region string) *MicrosoftClient {
	return &MicrosoftClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		region:  region,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *MicrosoftClient) Name() string { return "microsoft" }

type msText struct {
	Text string `json:"Text"`
}

type msTranslation struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type msDetection struct {
	Language string  `json:"language"`
	Score    float64 `json:"score"`
}

func (c *MicrosoftClient) Translate(ctx context.Context, text, targetCode string) (string, error) {
	if text == "" {
		return "", nil
	}
	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("from", "en")
	q.Set("to", targetCode)

	var out []msTranslation
	if err := c.post(ctx, "/translate?"+q.Encode(), []msText{{Text: text}}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || len(out[0].Translations) == 0 {
		return "", fmt.Errorf("microsoft returned no translation: %w", models.ErrMalformedOutput)
	}
	return out[0].Translations[0].Text, nil
}

// Detect returns the language tag Microsoft assigns to text.
func (c *MicrosoftClient) Detect(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty text: %w", models.ErrInvalidInput)
	}
	if len([]rune(text)) > 5000 {
		text = string([]rune(text)[:5000])
	}
	var out []msDetection
	if err := c.post(ctx, "/detect?api-version=3.0", []msText{{Text: text}}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || out[0].Language == "" {
		return "", fmt.Errorf("microsoft returned no language: %w", models.ErrMalformedOutput)
	}
	return out[0].Language, nil
}

func (c *MicrosoftClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	if c.region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", c.region)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("microsoft: %w", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
