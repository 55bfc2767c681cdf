package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duplicalis/internal/config"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const defaultRemoteTimeout = 15 * time.Second

// Remote calls an OpenAI-compatible embeddings endpoint.
type Remote struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	timeout time.Duration
	limiter *rate.Limiter
}

// NewRemote validates the endpoint settings and builds the client. The URL
// may point either at the API base or directly at its /embeddings route.
func NewRemote(rc config.RemoteConfig) (*Remote, error) {
	if rc.URL == "" || rc.APIKey == "" {
		return nil, fmt.Errorf("%w: remote embedding requires API_URL and API_KEY", ErrBackend)
	}

	cfg := openai.DefaultConfig(rc.APIKey)
	cfg.BaseURL = strings.TrimSuffix(strings.TrimRight(rc.URL, "/"), "/embeddings")

	timeout := rc.Timeout()
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}

	r := &Remote{
		client:  openai.NewClientWithConfig(cfg),
		model:   openai.EmbeddingModel(rc.Model),
		timeout: timeout,
	}
	if rc.RequestsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(rc.RequestsPerSecond), 1)
	}
	return r, nil
}

func (r *Remote) Embed(ctx context.Context, text string) ([]float64, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Model: r.model,
		Input: []string{text},
	})
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: response missing embedding", ErrBackend)
	}

	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, x := range resp.Data[0].Embedding {
		vec[i] = float64(x)
	}
	return Normalize(vec), nil
}
