package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"rag-chatbot/internal/config"
)

// ErrBackend marks failures of the remote embedding backend. Callers test
// for it with errors.Is; ingestion treats it as fatal, answering converts it
// to a user-visible message.
var ErrBackend = errors.New("embedding backend error")

// batchSize bounds one request to the remote backend. Larger inputs are
// split and reassembled in order.
const batchSize = 100

// Client is the minimal surface of a remote embedding backend. The
// langchaingo ollama and openai clients both satisfy it.
type Client interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder maps batches of texts to fixed-dimension vectors, order
// preserving. The backend is chosen once at construction.
type Embedder struct {
	client Client
}

// New builds an Embedder for the configured backend.
func New(cfg *config.LLMConfig) (*Embedder, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		return &Embedder{client: llm}, nil
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		return &Embedder{client: llm}, nil
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s", cfg.Backend)
	}
}

// NewWithClient wraps an existing backend client.
func NewWithClient(client Client) *Embedder {
	return &Embedder{client: client}
}

// Embed returns one vector per input text, in input order. Any backend
// failure or malformed response fails the whole call; there are no partial
// results.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	dim := 0
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.client.CreateEmbedding(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d inputs", ErrBackend, len(vectors), end-start)
		}
		for _, v := range vectors {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: empty vector in response", ErrBackend)
			}
			if dim == 0 {
				dim = len(v)
			} else if len(v) != dim {
				return nil, fmt.Errorf("%w: inconsistent vector dimensions %d and %d", ErrBackend, dim, len(v))
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}
