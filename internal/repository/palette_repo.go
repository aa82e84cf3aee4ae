package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"emotion-diary/internal/domain"
)

// ErrNotFound indica que la fila pedida no existe.
var ErrNotFound = errors.New("not found")

type PaletteRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.StoredPalette, error)
	Upsert(ctx context.Context, palette domain.StoredPalette) error
}

type PgPaletteRepository struct {
	pool *pgxpool.Pool
}

func NewPgPaletteRepository(pool *pgxpool.Pool) *PgPaletteRepository {
	return &PgPaletteRepository{pool: pool}
}

func (r *PgPaletteRepository) GetByUserID(ctx context.Context, userID string) (domain.StoredPalette, error) {
	const query = `
		SELECT uid, bright_color, energetic_color, dark_color, calm_color
		FROM user_palettes
		WHERE uid = $1
	`
	var p domain.StoredPalette
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Bright,
		&p.Energetic,
		&p.Dark,
		&p.Calm,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StoredPalette{}, ErrNotFound
	}
	return p, err
}

func (r *PgPaletteRepository) Upsert(ctx context.Context, palette domain.StoredPalette) error {
	const query = `
		INSERT INTO user_palettes (uid, bright_color, energetic_color, dark_color, calm_color, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (uid) DO UPDATE SET
			bright_color = EXCLUDED.bright_color,
			energetic_color = EXCLUDED.energetic_color,
			dark_color = EXCLUDED.dark_color,
			calm_color = EXCLUDED.calm_color,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		palette.UserID,
		palette.Bright,
		palette.Energetic,
		palette.Dark,
		palette.Calm,
	)
	return err
}
