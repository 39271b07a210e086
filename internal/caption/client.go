// Package caption asks the AI captioning endpoint for a caption and a
// hashtag set. It is best effort: every failure yields the fixed fallback.
package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	FallbackCaption = "Bu özel günün en güzel anlarından biri ✨"

	maxResponseBytes = 64 << 10
)

// FallbackHashtags is used whenever the endpoint cannot be used
var FallbackHashtags = []string{"#düğün", "#aşk", "#mutluluk", "#evlilik"}

var suggestionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "caption_suggestions_total",
		Help: "Caption suggestions served, by outcome",
	},
	[]string{"outcome"},
)

// Suggestion is the caption proposed for an image
type Suggestion struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
	Fallback bool     `json:"fallback"`
}

// Fallback returns a fresh copy of the static suggestion
func Fallback() Suggestion {
	tags := make([]string, len(FallbackHashtags))
	copy(tags, FallbackHashtags)
	return Suggestion{Caption: FallbackCaption, Hashtags: tags, Fallback: true}
}

// Client calls the captioning endpoint
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client. An empty endpoint always returns the fallback.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type suggestRequest struct {
	Image string `json:"image"`
}

// Suggest sends the inline image payload and returns the caption. It never
// fails.
func (c *Client) Suggest(ctx context.Context, imageDataURL string) Suggestion {
	s, err := c.suggest(ctx, imageDataURL)
	if err != nil {
		c.logger.Warn("caption suggestion failed, using fallback", zap.Error(err))
		suggestionsTotal.WithLabelValues("fallback").Inc()
		return Fallback()
	}
	suggestionsTotal.WithLabelValues("ok").Inc()
	return s
}

func (c *Client) suggest(ctx context.Context, imageDataURL string) (Suggestion, error) {
	if c.endpoint == "" {
		return Suggestion{}, fmt.Errorf("caption endpoint not configured")
	}
	if !strings.HasPrefix(imageDataURL, "data:image/") {
		return Suggestion{}, fmt.Errorf("caption input is not an inline image")
	}

	body, err := json.Marshal(suggestRequest{Image: imageDataURL})
	if err != nil {
		return Suggestion{}, fmt.Errorf("caption: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("caption: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("caption: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("caption: unexpected status %d", resp.StatusCode)
	}

	var out Suggestion
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return Suggestion{}, fmt.Errorf("caption: failed to parse response: %w", err)
	}
	out.Caption = strings.TrimSpace(out.Caption)
	if out.Caption == "" {
		return Suggestion{}, fmt.Errorf("caption: empty caption in response")
	}
	out.Hashtags = NormalizeHashtags(out.Hashtags)
	out.Fallback = false
	return out, nil
}

// NormalizeHashtags prefixes every tag with '#', drops blanks and
// duplicates, and keeps the first occurrence order.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimLeft(tag, "#")
		if tag == "" || strings.ContainsAny(tag, " \t\n") {
			continue
		}
		tag = "#" + strings.ToLower(tag)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
