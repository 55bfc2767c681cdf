// Package llm asks a chat model why two reported components look alike.
// Explanations are advisory: a failed call never fails the run.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"duplicalis/internal/config"
	"duplicalis/internal/models"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultModel    = openai.GPT4oMini
	defaultTimeout  = 30 * time.Second
	maxSourceRunes  = 2000
	explainedPrefix = "llm: "
)

// ErrNoCredentials is returned when no chat endpoint is configured.
var ErrNoCredentials = errors.New("explain requires API_KEY or OPENAI_API_KEY")

type Client struct {
	client   *openai.Client
	model    string
	maxPairs int
	timeout  time.Duration
}

// NewClient reuses the remote embedding endpoint settings for chat calls.
func NewClient(rc config.RemoteConfig, ec config.ExplainConfig) (*Client, error) {
	if rc.APIKey == "" {
		return nil, ErrNoCredentials
	}
	cfg := openai.DefaultConfig(rc.APIKey)
	if rc.URL != "" {
		cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(rc.URL, "/"), "/embeddings")
	}

	model := ec.Model
	if model == "" {
		model = defaultModel
	}
	timeout := rc.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		maxPairs: ec.MaxPairs,
		timeout:  timeout,
	}, nil
}

// ExplainPair returns a one-sentence reason why a and b were reported.
func (c *Client) ExplainPair(ctx context.Context, a, b *models.Component, pair models.SimilarityPair) (string, error) {
	systemPrompt := `You review UI components flagged as duplicates. Reply with JSON only:
{"reason": "<one sentence on what the two components share and whether they could be merged>"}`

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(a, b, pair)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}

	var result struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return "", fmt.Errorf("failed to decode explanation: %w", err)
	}
	reason := strings.TrimSpace(result.Reason)
	if reason == "" {
		return "", errors.New("empty explanation")
	}
	return reason, nil
}

// Annotate appends an explanation to the hints of the first maxPairs pairs
// (all pairs when maxPairs is 0) and returns how many were explained.
func (c *Client) Annotate(ctx context.Context, pairs []models.SimilarityPair, components map[string]*models.Component) int {
	explained := 0
	for i := range pairs {
		if c.maxPairs > 0 && i >= c.maxPairs {
			break
		}
		a, b := components[pairs[i].A], components[pairs[i].B]
		if a == nil || b == nil {
			continue
		}
		reason, err := c.ExplainPair(ctx, a, b, pairs[i])
		if err != nil {
			if ctx.Err() != nil {
				return explained
			}
			fmt.Fprintf(os.Stderr, "⚠ Failed to explain %s / %s: %v\n", a.Name, b.Name, err)
			continue
		}
		pairs[i].Hints = append(pairs[i].Hints, explainedPrefix+reason)
		explained++
	}
	return explained
}

func buildPrompt(a, b *models.Component, pair models.SimilarityPair) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Similarity: %.3f (%s)\n", pair.Similarity, pair.Category)
	if len(pair.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(pair.Labels, ", "))
	}
	for _, c := range []*models.Component{a, b} {
		fmt.Fprintf(&sb, "\nComponent %s (%s):\n%s\n", c.Name, c.FilePath, clip(c.Source, maxSourceRunes))
	}
	return sb.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n..."
}
