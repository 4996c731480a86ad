package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/models"
)

// Embedder maps texts to vectors, order preserving.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the similarity-search surface the engine needs.
type Index interface {
	Query(ctx context.Context, embedding []float32, k int, documentID int64) ([]models.RetrievedChunk, error)
	Count() int
}

// Synthesizer turns a question and its grounding context into an answer.
// It never fails; backend problems come back as descriptive text.
type Synthesizer interface {
	Synthesize(ctx context.Context, question, grounding string) string
}

// Engine answers a single question against the indexed documents.
// Each call is one request-scoped unit of work; the engine holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	embedder Embedder
	index    Index
	synth    Synthesizer
	topK     int
}

func NewEngine(embedder Embedder, index Index, synth Synthesizer, defaultTopK int) *Engine {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Engine{embedder: embedder, index: index, synth: synth, topK: defaultTopK}
}

// Answer retrieves the topK most relevant chunks for the question and
// grounds the model's answer on them. Sources come back most similar first,
// in the same order their texts were concatenated into the context.
// Failures below the synthesizer that have a sensible fallback are reported
// inline in the response text rather than as errors.
func (e *Engine) Answer(ctx context.Context, question string, topK int) *models.AnswerResult {
	question = strings.TrimSpace(question)
	if question == "" {
		return &models.AnswerResult{Response: "Please provide a question."}
	}
	if topK <= 0 {
		topK = e.topK
	}

	logger := log.With().Str("request_id", uuid.NewString()).Logger()
	logger.Debug().Int("top_k", topK).Msg("answering question")

	vectors, err := e.embedder.Embed(ctx, []string{question})
	if err == nil && len(vectors) != 1 {
		err = fmt.Errorf("expected one vector, got %d", len(vectors))
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to embed question")
		return &models.AnswerResult{
			Response: fmt.Sprintf("Could not embed the question: %v. Check the embedding backend configuration.", err),
		}
	}

	hits, err := e.index.Query(ctx, vectors[0], topK, 0)
	if err != nil {
		// Index outage is reported as such, not disguised as a zero match.
		logger.Error().Err(err).Msg("vector index query failed")
		return &models.AnswerResult{
			Response: fmt.Sprintf("The document index is currently unavailable: %v. Try again later.", err),
		}
	}

	if len(hits) == 0 {
		if e.index.Count() == 0 {
			return &models.AnswerResult{
				Response: "No documents have been uploaded yet. Upload a document before asking questions.",
			}
		}
		return &models.AnswerResult{
			Response: "No relevant passages were found in the uploaded documents for this question.",
		}
	}

	var grounding strings.Builder
	sources := make([]models.Source, 0, len(hits))
	for i, hit := range hits {
		if i > 0 {
			grounding.WriteString(models.ContextSeparator)
		}
		grounding.WriteString(hit.Text)
		sources = append(sources, models.Source{
			Text:     excerpt(hit.Text),
			Metadata: hit.Metadata,
		})
	}

	logger.Debug().Int("chunks", len(hits)).Msg("retrieved grounding context")
	response := e.synth.Synthesize(ctx, question, grounding.String())
	return &models.AnswerResult{Response: response, Sources: sources}
}

// excerpt truncates chunk text for citation, marking the cut with an
// ellipsis.
func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= models.SourceExcerptLen {
		return text
	}
	return string(runes[:models.SourceExcerptLen]) + "..."
}
