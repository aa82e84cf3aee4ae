package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"emotion-diary/internal/domain"
)

// BlobRepository guarda audio crudo por clave.
type BlobRepository interface {
	Put(ctx context.Context, blob domain.AudioBlob) error
	Get(ctx context.Context, key string) (domain.AudioBlob, error)
}

type PgBlobRepository struct {
	pool *pgxpool.Pool
}

func NewPgBlobRepository(pool *pgxpool.Pool) *PgBlobRepository {
	return &PgBlobRepository{pool: pool}
}

func (r *PgBlobRepository) Put(ctx context.Context, blob domain.AudioBlob) error {
	const query = `
		INSERT INTO audio_blobs (key, filename, content_type, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		blob.Key,
		blob.Filename,
		blob.ContentType,
		blob.Data,
		blob.CreatedAt,
	)
	return err
}

func (r *PgBlobRepository) Get(ctx context.Context, key string) (domain.AudioBlob, error) {
	const query = `
		SELECT key, filename, content_type, data, created_at
		FROM audio_blobs
		WHERE key = $1
	`
	var b domain.AudioBlob
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&b.Key,
		&b.Filename,
		&b.ContentType,
		&b.Data,
		&b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AudioBlob{}, ErrNotFound
	}
	return b, err
}
