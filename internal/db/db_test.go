package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/config"
	"rag-chatbot/internal/models"
)

func TestConnectDBRequiresDSN(t *testing.T) {
	_, err := ConnectDB(&config.DatabaseConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn")
}

func TestStoreChunkMetaEmptyIsNoop(t *testing.T) {
	// No records means no insert; the handle must not be touched.
	require.NoError(t, StoreChunkMeta(context.Background(), nil, 1, nil))
	require.NoError(t, StoreChunkMeta(context.Background(), nil, 1, []models.ChunkRecord{}))
}

func TestClampHistoryLimit(t *testing.T) {
	assert.Equal(t, 50, clampHistoryLimit(0))
	assert.Equal(t, 50, clampHistoryLimit(-3))
	assert.Equal(t, 50, clampHistoryLimit(500))
	assert.Equal(t, 10, clampHistoryLimit(10))
	assert.Equal(t, 100, clampHistoryLimit(100))
}
