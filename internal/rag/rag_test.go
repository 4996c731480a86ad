package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/models"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeIndex struct {
	hits  []models.RetrievedChunk
	err   error
	count int
	gotK  int
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, k int, _ int64) ([]models.RetrievedChunk, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeIndex) Count() int { return f.count }

type fakeSynth struct {
	answer    string
	grounding string
	question  string
	called    bool
}

func (f *fakeSynth) Synthesize(_ context.Context, question, grounding string) string {
	f.called = true
	f.question = question
	f.grounding = grounding
	return f.answer
}

func hit(documentID int64, chunkIndex int, text string) models.RetrievedChunk {
	return models.RetrievedChunk{
		ID:   "1_0",
		Text: text,
		Metadata: models.ChunkMetadata{
			DocumentID: documentID,
			ChunkIndex: chunkIndex,
			PageNumber: 1,
			Filename:   "handbook.pdf",
		},
	}
}

func TestAnswerBlankQuestion(t *testing.T) {
	e := NewEngine(&fakeEmbedder{}, &fakeIndex{}, &fakeSynth{}, 5)
	result := e.Answer(context.Background(), "   ", 5)
	assert.Equal(t, "Please provide a question.", result.Response)
	assert.Empty(t, result.Sources)
}

func TestAnswerEmbeddingFailureIsInline(t *testing.T) {
	synth := &fakeSynth{}
	e := NewEngine(&fakeEmbedder{err: errors.New("connection refused")}, &fakeIndex{}, synth, 5)

	result := e.Answer(context.Background(), "What is the refund policy?", 5)
	assert.Contains(t, result.Response, "Could not embed the question")
	assert.Contains(t, result.Response, "connection refused")
	assert.Empty(t, result.Sources)
	assert.False(t, synth.called)
}

func TestAnswerEmptyIndex(t *testing.T) {
	synth := &fakeSynth{}
	e := NewEngine(&fakeEmbedder{}, &fakeIndex{count: 0}, synth, 5)

	result := e.Answer(context.Background(), "What is the refund policy?", 5)
	assert.Contains(t, result.Response, "No documents have been uploaded yet")
	assert.Empty(t, result.Sources)
	assert.False(t, synth.called)
}

func TestAnswerNoMatch(t *testing.T) {
	synth := &fakeSynth{}
	e := NewEngine(&fakeEmbedder{}, &fakeIndex{count: 7}, synth, 5)

	result := e.Answer(context.Background(), "What is the refund policy?", 5)
	assert.Contains(t, result.Response, "No relevant passages were found")
	assert.Empty(t, result.Sources)
	assert.False(t, synth.called)
}

func TestAnswerIndexErrorIsDistinctFromNoMatch(t *testing.T) {
	synth := &fakeSynth{}
	e := NewEngine(&fakeEmbedder{}, &fakeIndex{err: errors.New("collection corrupt"), count: 7}, synth, 5)

	result := e.Answer(context.Background(), "What is the refund policy?", 5)
	assert.Contains(t, result.Response, "index is currently unavailable")
	assert.NotContains(t, result.Response, "No relevant passages")
	assert.Empty(t, result.Sources)
	assert.False(t, synth.called)
}

func TestAnswerGroundsContextInRetrievalOrder(t *testing.T) {
	index := &fakeIndex{
		count: 3,
		hits: []models.RetrievedChunk{
			hit(1, 0, "Leave policy grants 20 days."),
			hit(1, 1, "Unused days roll over once."),
			hit(1, 2, "Sick leave is separate."),
		},
	}
	synth := &fakeSynth{answer: "20 days, rolling over once."}
	e := NewEngine(&fakeEmbedder{}, index, synth, 5)

	result := e.Answer(context.Background(), "What is the leave policy?", 5)
	assert.Equal(t, "20 days, rolling over once.", result.Response)
	require.Len(t, result.Sources, 3)

	expected := strings.Join([]string{
		"Leave policy grants 20 days.",
		"Unused days roll over once.",
		"Sick leave is separate.",
	}, models.ContextSeparator)
	assert.Equal(t, expected, synth.grounding)
	assert.Equal(t, "What is the leave policy?", synth.question)

	for i, src := range result.Sources {
		assert.Equal(t, index.hits[i].Text, src.Text)
		assert.Equal(t, int64(1), src.Metadata.DocumentID)
		assert.Equal(t, i, src.Metadata.ChunkIndex)
	}
}

func TestAnswerTruncatesSourceExcerpts(t *testing.T) {
	long := strings.Repeat("policy ", 60) // ~420 chars
	index := &fakeIndex{count: 1, hits: []models.RetrievedChunk{hit(1, 0, long)}}
	synth := &fakeSynth{answer: "ok"}
	e := NewEngine(&fakeEmbedder{}, index, synth, 5)

	result := e.Answer(context.Background(), "q?", 5)
	require.Len(t, result.Sources, 1)
	assert.LessOrEqual(t, len(result.Sources[0].Text), 203)
	assert.True(t, strings.HasSuffix(result.Sources[0].Text, "..."))
	// The grounding context keeps the full text.
	assert.Equal(t, long, synth.grounding)
}

func TestAnswerSynthesizerFallbackKeepsSources(t *testing.T) {
	// Retrieval succeeded; only synthesis failed. Sources still reflect the
	// retrieved chunks.
	index := &fakeIndex{count: 2, hits: []models.RetrievedChunk{
		hit(1, 0, "Refunds within 30 days."),
		hit(1, 1, "Contact support first."),
	}}
	synth := &fakeSynth{answer: "The language model backend is not running. Start it with `ollama serve` and check the chat_llm base_url, then ask again."}
	e := NewEngine(&fakeEmbedder{}, index, synth, 5)

	result := e.Answer(context.Background(), "Refund policy?", 5)
	assert.Contains(t, result.Response, "ollama serve")
	assert.Len(t, result.Sources, 2)
}

func TestAnswerDefaultTopK(t *testing.T) {
	index := &fakeIndex{count: 0}
	e := NewEngine(&fakeEmbedder{}, index, &fakeSynth{}, 7)

	e.Answer(context.Background(), "q?", 0)
	assert.Equal(t, 7, index.gotK)
}
