package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"emotion-diary/internal/domain"
)

type DiaryRepository interface {
	Upsert(ctx context.Context, record domain.DiaryRecord) error
	Get(ctx context.Context, userID, date string) (domain.DiaryRecord, error)
	Similar(ctx context.Context, userID string, variant domain.Variant, affect []float32, excludeDate string, k int) ([]domain.DiaryRecord, error)
}

type PgDiaryRepository struct {
	pool *pgxpool.Pool
}

func NewPgDiaryRepository(pool *pgxpool.Pool) *PgDiaryRepository {
	return &PgDiaryRepository{pool: pool}
}

const diaryColumns = `uid, date, text, source, variant, x, y, level, fun, bright, energy, color, created_at, updated_at`

// Upsert sobreescribe por completo la fila (uid, date): gana la ultima escritura.
func (r *PgDiaryRepository) Upsert(ctx context.Context, record domain.DiaryRecord) error {
	if record.Reading == nil {
		return errors.New("diary record without reading")
	}
	const query = `
		INSERT INTO diary_entries (
			uid, date, text, source, variant, x, y, level, fun, bright, energy, color, affect, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (uid, date) DO UPDATE SET
			text = EXCLUDED.text,
			source = EXCLUDED.source,
			variant = EXCLUDED.variant,
			x = EXCLUDED.x,
			y = EXCLUDED.y,
			level = EXCLUDED.level,
			fun = EXCLUDED.fun,
			bright = EXCLUDED.bright,
			energy = EXCLUDED.energy,
			color = EXCLUDED.color,
			affect = EXCLUDED.affect,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`
	row := readingToRow(record.Reading)
	_, err := r.pool.Exec(ctx, query,
		record.UserID,
		record.Date,
		record.Text,
		string(record.Source),
		string(record.Reading.Variant()),
		row.X,
		row.Y,
		row.Level,
		row.Fun,
		row.Bright,
		row.Energy,
		record.Reading.HexColor(),
		pgvector.NewVector(record.Reading.Affect()),
		record.CreatedAt,
		record.UpdatedAt,
	)
	return err
}

func (r *PgDiaryRepository) Get(ctx context.Context, userID, date string) (domain.DiaryRecord, error) {
	query := `SELECT ` + diaryColumns + ` FROM diary_entries WHERE uid = $1 AND date = $2`
	rows, err := r.pool.Query(ctx, query, userID, date)
	if err != nil {
		return domain.DiaryRecord{}, err
	}
	defer rows.Close()

	records, err := scanDiaryRecords(rows)
	if err != nil {
		return domain.DiaryRecord{}, err
	}
	if len(records) == 0 {
		return domain.DiaryRecord{}, ErrNotFound
	}
	return records[0], nil
}

// Similar devuelve las k entradas de la misma variante mas cercanas en el espacio afectivo.
func (r *PgDiaryRepository) Similar(ctx context.Context, userID string, variant domain.Variant, affect []float32, excludeDate string, k int) ([]domain.DiaryRecord, error) {
	if k <= 0 {
		k = 5
	}
	query := `SELECT ` + diaryColumns + `
		FROM diary_entries
		WHERE uid = $1 AND variant = $2 AND date <> $3 AND affect IS NOT NULL
		ORDER BY affect <-> $4
		LIMIT $5`
	rows, err := r.pool.Query(ctx, query, userID, string(variant), excludeDate, pgvector.NewVector(affect), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDiaryRecords(rows)
}

// readingRow son las columnas numericas de diary_entries; solo las de la variante van con valor.
type readingRow struct {
	X, Y, Level, Fun, Bright, Energy *int
}

func readingToRow(reading domain.Reading) readingRow {
	var row readingRow
	switch rd := reading.(type) {
	case domain.CoordinateReading:
		row.X, row.Y = intPtr(rd.X), intPtr(rd.Y)
	case domain.LevelReading:
		row.Level = intPtr(rd.Level)
	case domain.TraitReading:
		row.Fun, row.Bright, row.Energy = intPtr(rd.Fun), intPtr(rd.Bright), intPtr(rd.Energy)
	}
	return row
}

func (row readingRow) toReading(variant domain.Variant, color string) (domain.Reading, error) {
	switch variant {
	case domain.VariantCoordinate:
		if row.X == nil || row.Y == nil {
			return nil, fmt.Errorf("coordinate entry missing x/y")
		}
		return domain.CoordinateReading{X: *row.X, Y: *row.Y, Color: color}, nil
	case domain.VariantLevel:
		if row.Level == nil {
			return nil, fmt.Errorf("level entry missing level")
		}
		return domain.LevelReading{Level: *row.Level, Color: color}, nil
	case domain.VariantTraits:
		if row.Fun == nil || row.Bright == nil || row.Energy == nil {
			return nil, fmt.Errorf("traits entry missing fun/bright/energy")
		}
		return domain.TraitReading{Fun: *row.Fun, Bright: *row.Bright, Energy: *row.Energy, Color: color}, nil
	case domain.VariantColor:
		return domain.ColorReading{Color: color}, nil
	}
	return nil, fmt.Errorf("unknown variant %q", variant)
}

func scanDiaryRecords(rows pgxRows) ([]domain.DiaryRecord, error) {
	var records []domain.DiaryRecord
	for rows.Next() {
		var (
			rec     domain.DiaryRecord
			source  string
			variant string
			color   string
			row     readingRow
		)
		if err := rows.Scan(
			&rec.UserID,
			&rec.Date,
			&rec.Text,
			&source,
			&variant,
			&row.X,
			&row.Y,
			&row.Level,
			&row.Fun,
			&row.Bright,
			&row.Energy,
			&color,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reading, err := row.toReading(domain.Variant(variant), color)
		if err != nil {
			return nil, fmt.Errorf("entry %s_%s: %w", rec.UserID, rec.Date, err)
		}
		rec.Source = domain.EntrySource(source)
		rec.Reading = reading
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func intPtr(v int) *int { return &v }

// pgxRows is a minimal interface to allow scanning from pgx rows and simplify testing.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}

var _ pgxRows = (pgx.Rows)(nil)
