package embedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	batches [][]string
	fail    error
	dims    func(call int) int
}

func (f *fakeClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if f.fail != nil {
		return nil, f.fail
	}
	dim := 3
	if f.dims != nil {
		dim = f.dims(len(f.batches) - 1)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		// Encode the text's own index so order is observable.
		n, _ := strconv.Atoi(text)
		v := make([]float32, dim)
		if dim > 0 {
			v[0] = float32(n)
		}
		out[i] = v
	}
	return out, nil
}

func numberedTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	return texts
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewWithClient(&fakeClient{})
	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedSubBatches(t *testing.T) {
	client := &fakeClient{}
	e := NewWithClient(client)

	vectors, err := e.Embed(context.Background(), numberedTexts(250))
	require.NoError(t, err)
	require.Len(t, vectors, 250)

	require.Len(t, client.batches, 3)
	assert.Len(t, client.batches[0], 100)
	assert.Len(t, client.batches[1], 100)
	assert.Len(t, client.batches[2], 50)

	// Order preserved across batch reassembly.
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
	}
}

func TestEmbedBackendErrorIsAtomic(t *testing.T) {
	client := &fakeClient{fail: fmt.Errorf("connection refused")}
	e := NewWithClient(client)

	vectors, err := e.Embed(context.Background(), numberedTexts(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackend))
	assert.Nil(t, vectors)
}

func TestEmbedInconsistentDimensions(t *testing.T) {
	client := &fakeClient{dims: func(call int) int { return 3 + call }}
	e := NewWithClient(client)

	_, err := e.Embed(context.Background(), numberedTexts(150))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackend))
}

func TestEmbedMalformedResponse(t *testing.T) {
	client := &fakeClient{dims: func(int) int { return 0 }}
	e := NewWithClient(client)

	_, err := e.Embed(context.Background(), numberedTexts(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackend))
}
