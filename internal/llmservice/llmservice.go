package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"rag-chatbot/internal/config"
	"rag-chatbot/internal/models"
)

// generationTimeout bounds one language-model call. A timeout is reported
// like any other backend failure.
const generationTimeout = 120 * time.Second

const maxAnswerTokens = 1024

// Generator is the model-call surface of a langchaingo LLM client.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Synthesizer produces the final answer from a question and its grounding
// context. Every failure path yields a descriptive string instead of an
// error, so the answering pipeline can always respond.
type Synthesizer struct {
	llm     Generator
	backend string
	model   string
	timeout time.Duration
}

// New builds a Synthesizer for the configured chat backend.
func New(cfg *config.LLMConfig) (*Synthesizer, error) {
	backend := strings.ToLower(cfg.Backend)
	var llm Generator
	var err error
	switch backend {
	case "", "ollama":
		backend = "ollama"
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case "openai":
		llm, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown chat backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", backend, err)
	}
	return &Synthesizer{llm: llm, backend: backend, model: cfg.Model, timeout: generationTimeout}, nil
}

// NewWithGenerator wraps an existing model client.
func NewWithGenerator(llm Generator, backend, model string) *Synthesizer {
	return &Synthesizer{llm: llm, backend: backend, model: model, timeout: generationTimeout}
}

// Synthesize asks the model to answer the question using only the grounding
// context. The returned string is either the model output or a fallback
// message describing what went wrong.
func (s *Synthesizer) Synthesize(ctx context.Context, question, grounding string) string {
	prompt := fmt.Sprintf(models.RAGPromptTemplate, grounding, question)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}
	resp, err := s.llm.GenerateContent(callCtx, messages, llms.WithMaxTokens(maxAnswerTokens))
	if err != nil {
		log.Warn().Err(err).Str("backend", s.backend).Msg("language model call failed")
		return s.fallback(err)
	}
	if len(resp.Choices) == 0 {
		return s.fallback(fmt.Errorf("empty response from model"))
	}
	return strings.TrimSpace(resp.Choices[0].Content)
}

// fallback maps a backend failure to operator guidance.
func (s *Synthesizer) fallback(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		if s.backend == "ollama" {
			return "The language model backend is not running. Start it with `ollama serve` and check the chat_llm base_url, then ask again."
		}
		return "The language model backend refused the connection. Check the chat_llm base_url and that the service is running, then ask again."
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("The language model did not answer within %s. The backend may be overloaded; try again.", s.timeout)
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		if s.backend == "ollama" {
			return fmt.Sprintf("The model %q is not available. Pull it with `ollama pull %s` and ask again.", s.model, s.model)
		}
		return fmt.Sprintf("The model %q is not available on the configured backend.", s.model)
	default:
		return fmt.Sprintf("The language model backend returned an error: %v", err)
	}
}
