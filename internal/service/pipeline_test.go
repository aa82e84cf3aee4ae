package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/llm"
)

func newTestPipeline(t *testing.T, variant domain.Variant, reply string, palettes PaletteResolver, opts ...PipelineOption) (*EmotionColorPipeline, *llm.MockClient) {
	t.Helper()
	mock := &llm.MockClient{Response: reply}
	p, err := NewEmotionColorPipeline(zap.NewNop(), variant, mock, palettes, opts...)
	require.NoError(t, err)
	return p, mock
}

func TestPipelineScenarioHappyCoordinate(t *testing.T) {
	p, mock := newTestPipeline(t, domain.VariantCoordinate, "x=8,y=4,color=#ffcc00", NewPaletteService(zap.NewNop(), &fakePaletteRepo{}))

	got, err := p.Run(context.Background(), "u1", "今日は楽しかった")
	require.NoError(t, err)
	assert.Equal(t, domain.CoordinateReading{X: 8, Y: 4, Color: "#FFCC00"}, got)
	assert.Equal(t, 1, mock.Calls())
	assert.Contains(t, mock.LastPrompt(), "今日は楽しかった")
}

func TestPipelineScenarioClamp(t *testing.T) {
	p, _ := newTestPipeline(t, domain.VariantCoordinate, "x=15,y=-20,color=#abc123", nil)

	got, err := p.Run(context.Background(), "u1", "text")
	require.NoError(t, err)
	assert.Equal(t, domain.CoordinateReading{X: 10, Y: -10, Color: "#ABC123"}, got)
}

func TestPipelineScenarioMalformedStrict(t *testing.T) {
	p, mock := newTestPipeline(t, domain.VariantCoordinate, "bad output with no structure", nil)

	got, err := p.Run(context.Background(), "u1", "text")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrMalformedReply)
	assert.Equal(t, 1, mock.Calls(), "no retry on malformed reply")
}

func TestPipelineScenarioDefaultPaletteInPrompt(t *testing.T) {
	repo := &fakePaletteRepo{}
	p, mock := newTestPipeline(t, domain.VariantCoordinate, "x=1,y=1,color=#000000", NewPaletteService(zap.NewNop(), repo))

	_, err := p.Run(context.Background(), "no-palette-user", "text")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads)
	def := domain.DefaultPalette()
	for _, role := range domain.PaletteRoles {
		assert.Contains(t, mock.LastPrompt(), def.Color(role))
	}
}

func TestPipelineScenarioTraits(t *testing.T) {
	repo := &fakePaletteRepo{}
	p, _ := newTestPipeline(t, domain.VariantTraits, "fun=12,bright=-3,energy=5,color=#112233", NewPaletteService(zap.NewNop(), repo))

	got, err := p.Run(context.Background(), "u1", "text")
	require.NoError(t, err)
	assert.Equal(t, domain.TraitReading{Fun: 10, Bright: 0, Energy: 5, Color: "#112233"}, got)
	assert.Zero(t, repo.reads, "traits prompt does not need a palette")
}

func TestPipelineLevelFallbackSucceeds(t *testing.T) {
	p, _ := newTestPipeline(t, domain.VariantLevel, "I cannot decide", nil)

	got, err := p.Run(context.Background(), "u1", "text")
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackLevelReading(), got)
}

func TestPipelineUpstreamErrorPropagates(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("quota exceeded")}
	p, err := NewEmotionColorPipeline(zap.NewNop(), domain.VariantCoordinate, mock, nil)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "u1", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm generate")
	assert.NotErrorIs(t, err, ErrMalformedReply)
}

func TestPipelinePaletteColorSource(t *testing.T) {
	repo := &fakePaletteRepo{}
	p, _ := newTestPipeline(t, domain.VariantCoordinate, "x=8,y=4,color=#000000",
		NewPaletteService(zap.NewNop(), repo), WithPaletteColorSource())

	got, err := p.Run(context.Background(), "u1", "text")
	require.NoError(t, err)
	assert.Equal(t, domain.CoordinateReading{X: 8, Y: 4, Color: domain.DefaultBrightColor}, got)
}

func TestNewPipelineValidates(t *testing.T) {
	_, err := NewEmotionColorPipeline(zap.NewNop(), domain.VariantCoordinate, nil, nil)
	assert.Error(t, err)
	_, err = NewEmotionColorPipeline(zap.NewNop(), "mood", &llm.MockClient{}, nil)
	assert.Error(t, err)
}
