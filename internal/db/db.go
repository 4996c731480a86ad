package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"rag-chatbot/internal/config"
	"rag-chatbot/internal/models"
)

// Document is an uploaded file's bookkeeping row. The vector index and
// embedding_meta rows hang off its id.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Filename      string    `bun:"filename,notnull"`
	UploadedBy    string    `bun:"uploaded_by"`
	UploadDate    time.Time `bun:"upload_date,nullzero,notnull,default:current_timestamp"`
}

// EmbeddingMeta is the structured copy of one indexed chunk.
type EmbeddingMeta struct {
	bun.BaseModel `bun:"table:embedding_meta,alias:em"`
	ID            int64  `bun:"id,pk,autoincrement"`
	DocumentID    int64  `bun:"document_id,notnull"`
	ChunkIndex    int    `bun:"chunk_index,notnull"`
	PageNumber    int    `bun:"page_number"`
	ChunkText     string `bun:"chunk_text,notnull"`
}

// Chat is one question/response pair.
type Chat struct {
	bun.BaseModel `bun:"table:chats,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Username      string    `bun:"username"`
	Question      string    `bun:"question,notnull"`
	Response      string    `bun:"response,notnull"`
	Timestamp     time.Time `bun:"timestamp,nullzero,notnull,default:current_timestamp"`
}

// ConnectDB opens the configured Postgres database.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is not configured")
	}
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	)
	return sql.OpenDB(connector), nil
}

// NewDB wraps the sql handle with bun.
func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// InitDB creates the tables if they do not exist yet.
func InitDB(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{
		(*Document)(nil),
		(*EmbeddingMeta)(nil),
		(*Chat)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// CreateDocument registers an upload and returns its row with the id set.
func CreateDocument(ctx context.Context, db *bun.DB, filename, uploadedBy string) (*Document, error) {
	doc := &Document{Filename: filename, UploadedBy: uploadedBy}
	if _, err := db.NewInsert().Model(doc).Returning("*").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func ListDocuments(ctx context.Context, db *bun.DB) ([]Document, error) {
	var docs []Document
	err := db.NewSelect().Model(&docs).OrderExpr("upload_date DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// StoreChunkMeta persists the chunk records returned by ingestion.
func StoreChunkMeta(ctx context.Context, db *bun.DB, documentID int64, records []models.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]EmbeddingMeta, len(records))
	for i, rec := range records {
		rows[i] = EmbeddingMeta{
			DocumentID: documentID,
			ChunkIndex: rec.ChunkIndex,
			PageNumber: rec.PageNumber,
			ChunkText:  rec.Text,
		}
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store chunk metadata: %w", err)
	}
	return nil
}

// DeleteDocument removes the document row and its chunk metadata. The caller
// is responsible for also purging the vector index.
func DeleteDocument(ctx context.Context, db *bun.DB, documentID int64) error {
	if _, err := db.NewDelete().Model((*EmbeddingMeta)(nil)).Where("document_id = ?", documentID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete chunk metadata: %w", err)
	}
	if _, err := db.NewDelete().Model((*Document)(nil)).Where("id = ?", documentID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// SaveChat records one question/response pair.
func SaveChat(ctx context.Context, db *bun.DB, username, question, response string) error {
	chat := &Chat{Username: username, Question: question, Response: response}
	if _, err := db.NewInsert().Model(chat).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// RecentChats returns up to limit chats, newest first.
func RecentChats(ctx context.Context, db *bun.DB, limit int) ([]Chat, error) {
	var chats []Chat
	err := db.NewSelect().Model(&chats).OrderExpr("timestamp DESC").Limit(clampHistoryLimit(limit)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return chats, nil
}

// clampHistoryLimit keeps history queries within a sane page size.
func clampHistoryLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}
