package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/repository"
)

// PaletteResolver obtiene la paleta efectiva de un usuario.
type PaletteResolver interface {
	Resolve(ctx context.Context, userID string) domain.Palette
}

// PaletteService resuelve y actualiza paletas guardadas.
type PaletteService struct {
	logger *zap.Logger
	repo   repository.PaletteRepository
}

func NewPaletteService(logger *zap.Logger, repo repository.PaletteRepository) *PaletteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaletteService{logger: logger, repo: repo}
}

// Resolve nunca falla: sin fila o ante un error de lectura devuelve los defaults.
func (s *PaletteService) Resolve(ctx context.Context, userID string) domain.Palette {
	if s.repo == nil {
		return domain.DefaultPalette()
	}
	stored, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("palette lookup failed, using defaults",
				zap.String("uid", userID),
				zap.Error(err),
			)
		}
		return domain.DefaultPalette()
	}
	return stored.Resolve()
}

// Update valida los roles recibidos y los combina con la fila guardada.
func (s *PaletteService) Update(ctx context.Context, userID string, update domain.StoredPalette) (domain.Palette, error) {
	if s.repo == nil {
		return domain.Palette{}, fmt.Errorf("palette repository not configured")
	}
	canonical, err := canonicalizeStored(update)
	if err != nil {
		return domain.Palette{}, err
	}

	current, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.Palette{}, fmt.Errorf("get palette: %w", err)
	}
	merged := current.Merge(canonical)
	merged.UserID = userID

	if err := s.repo.Upsert(ctx, merged); err != nil {
		return domain.Palette{}, fmt.Errorf("upsert palette: %w", err)
	}
	return merged.Resolve(), nil
}

func canonicalizeStored(p domain.StoredPalette) (domain.StoredPalette, error) {
	fields := []**string{&p.Bright, &p.Energetic, &p.Dark, &p.Calm}
	for i, f := range fields {
		if *f == nil {
			continue
		}
		c, err := domain.CanonicalizeColor(**f)
		if err != nil {
			return domain.StoredPalette{}, fmt.Errorf("%s: %w", domain.PaletteRoles[i], err)
		}
		*f = &c
	}
	return p, nil
}
