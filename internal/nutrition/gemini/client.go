package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/smallbiznis/snapcount/internal/nutrition/domain"
	"go.opentelemetry.io/otel/propagation"
)

const maxErrorBody = 4 << 10

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

var ErrMissingAPIKey = errors.New("gemini api key is not configured")

func NewClient(cfg config.Config) domain.Model {
	return &Client{
		apiKey:  cfg.Gemini.APIKey,
		model:   cfg.Gemini.Model,
		baseURL: cfg.Gemini.BaseURL,
		http:    &http.Client{Timeout: cfg.Gemini.Timeout},
	}
}

func (c *Client) Name() string { return c.model }

// Generate sends the prompt as a single user turn; images travel as inline base64 data.
func (c *Client) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", &domain.TransportError{Err: ErrMissingAPIKey}
	}

	parts := []part{{Text: prompt.Text}}
	if prompt.Image != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: prompt.Image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(prompt.Image.Data),
		}})
	}
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &domain.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.TransportError{Err: redactKey(err, c.apiKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &domain.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gemini responded %s: %s", resp.Status, strings.TrimSpace(string(snippet))),
		}
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &domain.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode gemini envelope: %w", err)}
	}
	if len(decoded.Candidates) == 0 {
		// An empty candidate list means the model produced no text; let the
		// decoder report it as a normalization failure.
		return "", nil
	}

	var text strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

// redactKey keeps the API key out of *url.Error messages that end up in logs.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED"))
}
