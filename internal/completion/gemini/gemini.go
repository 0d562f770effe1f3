// Package gemini talks to the generative-language generateContent REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "gemini-1.5-flash"

	maxResponseBytes = 1 << 20
)

var errMissingKey = errors.New("api key is not set")

// Options configures a Client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	PromptTemplate string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client implements completion.Client against generateContent.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	template   string
	httpClient *http.Client
}

// New builds a Client. A missing API key is not an error here: every
// Complete call then fails with completion.ErrAuth.
func New(opts Options) *Client {
	c := &Client{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		template:   opts.PromptTemplate,
		httpClient: opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

// Complete sends one generateContent request and returns the first candidate's text.
func (c *Client) Complete(ctx context.Context, text string) (string, error) {
	if c.apiKey == "" {
		return "", completion.Wrap(completion.KindAuth, errMissingKey)
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: completion.Prompt(c.template, text)}}}},
	})
	if err != nil {
		return "", completion.Wrapf(completion.KindNetwork, "marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", completion.Wrapf(completion.KindNetwork, "create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", completion.Wrapf(completion.KindNetwork, "generate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", completion.Wrapf(completion.KindNetwork, "read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classifyStatus(resp.StatusCode, body)
	}

	return parseCandidate(body)
}

func classifyStatus(status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return completion.Wrapf(completion.KindAuth, "status %d: %s", status, msg)
	case http.StatusBadRequest:
		for _, d := range apiErr.Error.Details {
			if d.Reason == "API_KEY_INVALID" {
				return completion.Wrapf(completion.KindAuth, "status %d: %s", status, msg)
			}
		}
		if strings.Contains(string(body), "API_KEY_INVALID") {
			return completion.Wrapf(completion.KindAuth, "status %d: %s", status, msg)
		}
	}
	return completion.Wrapf(completion.KindNetwork, "status %d: %s", status, msg)
}

func parseCandidate(body []byte) (string, error) {
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", completion.Wrapf(completion.KindMalformedResponse, "decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		if out.PromptFeedback.BlockReason != "" {
			return "", completion.Wrapf(completion.KindMalformedResponse, "prompt blocked: %s", out.PromptFeedback.BlockReason)
		}
		return "", completion.Wrapf(completion.KindMalformedResponse, "no candidates")
	}
	parts := out.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", completion.Wrapf(completion.KindMalformedResponse, "candidate has no text (finish reason %q)", out.Candidates[0].FinishReason)
	}
	if strings.TrimSpace(*parts[0].Text) == "" {
		return "", completion.Wrapf(completion.KindMalformedResponse, "candidate text is empty")
	}
	return *parts[0].Text, nil
}
