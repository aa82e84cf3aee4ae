package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/llm"
)

// EmotionColorPipeline resuelve paleta, arma el prompt, llama una vez al modelo y parsea.
// No persiste nada.
type EmotionColorPipeline struct {
	logger        *zap.Logger
	llm           llm.LLMClient
	palettes      PaletteResolver
	builder       PromptBuilder
	parser        ReplyParser
	paletteColors bool
	blender       Blender
}

// PipelineOption ajusta la construccion del pipeline.
type PipelineOption func(*EmotionColorPipeline)

// WithPaletteColorSource reemplaza el color del modelo por la mezcla local de la paleta.
// Solo aplica a la variante de coordenadas.
func WithPaletteColorSource() PipelineOption {
	return func(p *EmotionColorPipeline) { p.paletteColors = true }
}

func NewEmotionColorPipeline(
	logger *zap.Logger,
	variant domain.Variant,
	client llm.LLMClient,
	palettes PaletteResolver,
	opts ...PipelineOption,
) (*EmotionColorPipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	parser, err := NewReplyParser(variant)
	if err != nil {
		return nil, err
	}
	p := &EmotionColorPipeline{
		logger:   logger,
		llm:      client,
		palettes: palettes,
		builder:  PromptBuilder{Variant: variant},
		parser:   parser,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Variant devuelve la variante configurada.
func (p *EmotionColorPipeline) Variant() domain.Variant {
	return p.parser.Variant()
}

// Run ejecuta una lectura completa para el texto del usuario.
func (p *EmotionColorPipeline) Run(ctx context.Context, userID, text string) (domain.Reading, error) {
	variant := p.parser.Variant()

	var palette *domain.Palette
	if variant.UsesPalette() {
		resolved := domain.DefaultPalette()
		if p.palettes != nil {
			resolved = p.palettes.Resolve(ctx, userID)
		}
		palette = &resolved
	}

	prompt := p.builder.Build(text, palette)
	raw, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm generate: %w", err)
	}

	reading, err := p.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}

	if p.paletteColors && palette != nil {
		if coord, ok := reading.(domain.CoordinateReading); ok {
			blend, err := p.blender.Blend(*palette, coord.X, coord.Y)
			if err != nil {
				return nil, fmt.Errorf("blend palette: %w", err)
			}
			coord.Color = blend.Color
			reading = coord
		}
	}

	p.logger.Debug("reading computed",
		zap.String("uid", userID),
		zap.String("variant", string(variant)),
		zap.String("color", reading.HexColor()),
	)
	return reading, nil
}
