// Package gemini wraps the Gemini API client with the pieces a chat
// client needs: history-aware streaming, inline image payloads, and
// proactive rate limiting so bursts of sends do not trip API quotas.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/parley-chat/parley/internal/attachment"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/log"
)

// Roles for conversation history entries, re-exported so callers do not
// import the SDK for two string constants.
const (
	RoleUser  = genai.RoleUser
	RoleModel = genai.RoleModel
)

// requestsPerSecond and requestBurst bound outbound API calls. The free
// tier allows 10 RPM on flash models; one request per second with a
// small burst stays comfortably under every tier.
const (
	requestsPerSecond = 1
	requestBurst      = 3
)

// ErrEmptyResponse indicates the model returned no usable text,
// typically because safety filters blocked the candidate.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Message is one prior conversation turn.
type Message struct {
	Role string
	Text string
}

// Request describes a single generation call: prior turns, the new user
// text, and any inline image payloads attached to it.
type Request struct {
	Model   string
	History []Message
	Text    string
	Images  []attachment.Payload
}

// Client is a rate-limited Gemini API client. Safe for concurrent use.
type Client struct {
	api         *genai.Client
	limiter     *rate.Limiter
	temperature float32
	maxTokens   int
	logger      log.Logger
}

// New creates a Client from the loaded configuration. The API key must
// already be present; call config.RequireAPIKey first.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	if logger == nil {
		logger = log.NewNop()
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Client{
		api:         api,
		limiter:     rate.NewLimiter(requestsPerSecond, requestBurst),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// Stream generates a streaming response. The returned iterator yields
// text chunks in order; a non-nil error terminates the sequence. The
// rate limiter is consulted before the request goes out, so a canceled
// context surfaces as the first iteration error.
func (c *Client) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents, err := buildContents(req)
		if err != nil {
			yield("", err)
			return
		}
		if err := c.limiter.Wait(ctx); err != nil {
			yield("", fmt.Errorf("rate limit wait: %w", err))
			return
		}

		c.logger.Debug("starting stream",
			"model", req.Model,
			"history_turns", len(req.History),
			"images", len(req.Images))

		var chunks int
		for resp, err := range c.api.Models.GenerateContentStream(ctx, req.Model, contents, c.generateConfig()) {
			if err != nil {
				yield("", fmt.Errorf("chunk %d: %w", chunks, err))
				return
			}
			if resp == nil {
				continue
			}
			for _, cand := range resp.Candidates {
				if cand == nil || cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if part == nil || part.Text == "" {
						continue
					}
					chunks++
					if !yield(part.Text, nil) {
						return
					}
				}
			}
		}

		c.logger.Debug("stream complete", "chunks", chunks)
	}
}

// Generate performs a one-shot generation and returns the full text.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	contents, err := buildContents(req)
	if err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.api.Models.GenerateContent(ctx, req.Model, contents, c.generateConfig())
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) generateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(c.maxTokens)
	}
	return cfg
}

// buildContents assembles the request contents: prior turns first, then
// a single user turn carrying the new text and any image payloads.
func buildContents(req Request) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  m.Role,
			Parts: []*genai.Part{{Text: text}},
		})
	}

	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for i, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding image %d: %w", i+1, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: img.MIMEType,
				Data:     data,
			},
		})
	}
	if text := strings.TrimSpace(req.Text); text != "" {
		parts = append(parts, &genai.Part{Text: text})
	}
	if len(parts) == 0 {
		return nil, errors.New("nothing to send")
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: parts,
	})
	return contents, nil
}
