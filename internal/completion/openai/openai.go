// Package openai serves completions from any OpenAI-compatible endpoint
// (hosted, local model servers, proxies) through langchaingo.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
)

var errMissingKey = errors.New("api key is not set")

// Options configures a Client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	PromptTemplate string
}

// Client implements completion.Client on top of an llms.Model.
type Client struct {
	llm      llms.Model
	template string
}

// New builds a Client. With no API key the client is still returned and
// every Complete call fails with completion.ErrAuth.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return &Client{template: opts.PromptTemplate}, nil
	}

	lcOpts := []lcopenai.Option{lcopenai.WithToken(opts.APIKey)}
	if opts.BaseURL != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(opts.BaseURL))
	}
	if opts.Model != "" {
		lcOpts = append(lcOpts, lcopenai.WithModel(opts.Model))
	}

	llm, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{llm: llm, template: opts.PromptTemplate}, nil
}

// NewWithModel wraps an existing model.
func NewWithModel(llm llms.Model, template string) *Client {
	return &Client{llm: llm, template: template}
}

// Complete sends the prompt as a single human message and returns the first choice.
func (c *Client) Complete(ctx context.Context, text string) (string, error) {
	if c.llm == nil {
		return "", completion.Wrap(completion.KindAuth, errMissingKey)
	}

	msgs := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, completion.Prompt(c.template, text)),
	}
	resp, err := c.llm.GenerateContent(ctx, msgs)
	if err != nil {
		return "", completion.Wrap(classify(err), err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", completion.Wrapf(completion.KindMalformedResponse, "no choices")
	}
	out := resp.Choices[0].Content
	if strings.TrimSpace(out) == "" {
		return "", completion.Wrapf(completion.KindMalformedResponse, "empty choice")
	}
	return out, nil
}

// classify maps langchaingo errors, which only carry the upstream status in
// their text ("API returned unexpected status code: 401: ..."), onto
// completion kinds.
func classify(err error) completion.Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status code: 401"),
		strings.Contains(msg, "status code: 403"),
		strings.Contains(msg, "invalid_api_key"),
		strings.Contains(msg, "incorrect api key"):
		return completion.KindAuth
	default:
		return completion.KindNetwork
	}
}
