// Package catalog keeps a relational record of ingested documents in
// Postgres. It is bookkeeping beside the vector store, not the source
// of truth for retrieval.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// DocumentRecord is the documents table row.
type DocumentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         string    `bun:"id,pk"`
	Filename   string    `bun:"filename,notnull"`
	FileType   string    `bun:"file_type,notnull"`
	ChunkCount int       `bun:"chunk_count,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Catalog wraps the bun handle. Zero value is not usable; construct
// with Connect.
type Catalog struct {
	db *bun.DB
}

// Connect opens the Postgres connection described by cfg and verifies
// it with a ping.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*Catalog, error) {
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))

	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging catalog database: %v",
			models.ErrStorageUnavailable, err)
	}
	return &Catalog{db: db}, nil
}

// Init creates the documents table if it does not exist.
func (c *Catalog) Init(ctx context.Context) error {
	_, err := c.db.NewCreateTable().Model((*DocumentRecord)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: creating documents table: %v",
			models.ErrStorageUnavailable, err)
	}
	return nil
}

// Save upserts the document row keyed by its id.
func (c *Catalog) Save(ctx context.Context, doc models.Document) error {
	rec := &DocumentRecord{
		ID:         doc.ID,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt,
	}
	_, err := c.db.NewInsert().
		Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("filename = EXCLUDED.filename").
		Set("file_type = EXCLUDED.file_type").
		Set("chunk_count = EXCLUDED.chunk_count").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: saving document %s: %v",
			models.ErrStorageUnavailable, doc.ID, err)
	}
	return nil
}

// Delete removes the document row. Unknown ids are a no-op.
func (c *Catalog) Delete(ctx context.Context, documentID string) error {
	_, err := c.db.NewDelete().
		Model((*DocumentRecord)(nil)).
		Where("id = ?", documentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: deleting document %s: %v",
			models.ErrStorageUnavailable, documentID, err)
	}
	return nil
}

// List returns all cataloged documents, oldest first.
func (c *Catalog) List(ctx context.Context) ([]models.Document, error) {
	var recs []DocumentRecord
	err := c.db.NewSelect().
		Model(&recs).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing documents: %v",
			models.ErrStorageUnavailable, err)
	}

	docs := make([]models.Document, 0, len(recs))
	for _, r := range recs {
		docs = append(docs, models.Document{
			ID:         r.ID,
			Filename:   r.Filename,
			FileType:   r.FileType,
			ChunkCount: r.ChunkCount,
			CreatedAt:  r.CreatedAt,
		})
	}
	return docs, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
