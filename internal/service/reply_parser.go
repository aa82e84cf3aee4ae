package service

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"emotion-diary/internal/domain"
)

// ErrMalformedReply indica que la respuesta del modelo no cumple la gramatica estricta.
var ErrMalformedReply = errors.New("malformed model reply")

// MalformedReplyError lleva la respuesta cruda para el log; nunca se expone al cliente.
type MalformedReplyError struct {
	Variant domain.Variant
	Raw     string
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("malformed %s reply: %q", e.Variant, e.Raw)
}

func (e *MalformedReplyError) Is(target error) bool {
	return target == ErrMalformedReply
}

// ParsePolicy declara como reacciona un parser ante una respuesta fuera de formato.
type ParsePolicy string

const (
	// PolicyStrict falla sin lectura parcial.
	PolicyStrict ParsePolicy = "strict"
	// PolicyLenient sustituye la lectura de respaldo documentada.
	PolicyLenient ParsePolicy = "lenient"
)

// ReplyParser convierte la respuesta del modelo en una lectura normalizada.
type ReplyParser interface {
	Variant() domain.Variant
	Policy() ParsePolicy
	Parse(raw string) (domain.Reading, error)
}

// NewReplyParser devuelve el parser de la variante configurada.
func NewReplyParser(variant domain.Variant) (ReplyParser, error) {
	switch variant {
	case domain.VariantCoordinate:
		return CoordinateParser{}, nil
	case domain.VariantTraits:
		return TraitParser{}, nil
	case domain.VariantLevel:
		return LevelParser{}, nil
	case domain.VariantColor:
		return ColorParser{}, nil
	}
	return nil, fmt.Errorf("no parser for variant %q", variant)
}

var (
	coordinateReplyRe = regexp.MustCompile(`^x\s*=\s*(-?\d+)\s*,\s*y\s*=\s*(-?\d+)\s*,\s*color\s*=\s*(#[0-9A-Fa-f]{6})$`)
	traitReplyRe      = regexp.MustCompile(`^fun\s*=\s*(-?\d+)\s*,\s*bright\s*=\s*(-?\d+)\s*,\s*energy\s*=\s*(-?\d+)\s*,\s*color\s*=\s*(#[0-9A-Fa-f]{6})$`)
	anyHexColorRe     = regexp.MustCompile(`#[0-9A-Fa-f]{6}`)
	leadingIntRe      = regexp.MustCompile(`^[+-]?\d+`)
)

// CoordinateParser acepta exactamente "x=<int>,y=<int>,color=#RRGGBB".
type CoordinateParser struct{}

func (CoordinateParser) Variant() domain.Variant { return domain.VariantCoordinate }
func (CoordinateParser) Policy() ParsePolicy     { return PolicyStrict }

func (CoordinateParser) Parse(raw string) (domain.Reading, error) {
	m := coordinateReplyRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, &MalformedReplyError{Variant: domain.VariantCoordinate, Raw: raw}
	}
	color, err := domain.CanonicalizeColor(m[3])
	if err != nil {
		return nil, &MalformedReplyError{Variant: domain.VariantCoordinate, Raw: raw}
	}
	return domain.CoordinateReading{
		X:     saturatingAtoi(m[1]),
		Y:     saturatingAtoi(m[2]),
		Color: color,
	}.Normalized(), nil
}

// TraitParser acepta exactamente "fun=<int>,bright=<int>,energy=<int>,color=#RRGGBB".
type TraitParser struct{}

func (TraitParser) Variant() domain.Variant { return domain.VariantTraits }
func (TraitParser) Policy() ParsePolicy     { return PolicyStrict }

func (TraitParser) Parse(raw string) (domain.Reading, error) {
	m := traitReplyRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, &MalformedReplyError{Variant: domain.VariantTraits, Raw: raw}
	}
	color, err := domain.CanonicalizeColor(m[4])
	if err != nil {
		return nil, &MalformedReplyError{Variant: domain.VariantTraits, Raw: raw}
	}
	return domain.TraitReading{
		Fun:    saturatingAtoi(m[1]),
		Bright: saturatingAtoi(m[2]),
		Energy: saturatingAtoi(m[3]),
		Color:  color,
	}.Normalized(), nil
}

// LevelParser busca las lineas "level:" y "color:"; si falta alguna usa (2, #88E0A6).
type LevelParser struct{}

func (LevelParser) Variant() domain.Variant { return domain.VariantLevel }
func (LevelParser) Policy() ParsePolicy     { return PolicyLenient }

func (LevelParser) Parse(raw string) (domain.Reading, error) {
	level, color, ok := scanLevelReply(raw)
	if !ok {
		return domain.FallbackLevelReading(), nil
	}
	return domain.LevelReading{Level: level, Color: color}.Normalized(), nil
}

func scanLevelReply(raw string) (level int, color string, ok bool) {
	var hasLevel, hasColor bool
	for _, line := range strings.Split(cleanModelReply(raw), "\n") {
		line = strings.TrimSpace(line)
		if v, found := valueAfterPrefix(line, "level:"); found && !hasLevel {
			if digits := leadingIntRe.FindString(v); digits != "" {
				level = saturatingAtoi(digits)
				hasLevel = true
			}
			continue
		}
		if v, found := valueAfterPrefix(line, "color:"); found && !hasColor {
			if c, err := domain.CanonicalizeColor(firstField(v)); err == nil {
				color = c
				hasColor = true
			}
		}
	}
	return level, color, hasLevel && hasColor
}

// ColorParser toma el primer #RRGGBB de la respuesta; si no hay, usa el color de respaldo.
type ColorParser struct{}

func (ColorParser) Variant() domain.Variant { return domain.VariantColor }
func (ColorParser) Policy() ParsePolicy     { return PolicyLenient }

func (ColorParser) Parse(raw string) (domain.Reading, error) {
	match := anyHexColorRe.FindString(cleanModelReply(raw))
	if match == "" {
		return domain.ColorReading{Color: domain.FallbackColor}, nil
	}
	color, err := domain.CanonicalizeColor(match)
	if err != nil {
		return domain.ColorReading{Color: domain.FallbackColor}, nil
	}
	return domain.ColorReading{Color: color}, nil
}

// ReplyConforms indica si raw respeta la gramatica de la variante sin caer en el respaldo.
func ReplyConforms(variant domain.Variant, raw string) bool {
	switch variant {
	case domain.VariantCoordinate:
		return coordinateReplyRe.MatchString(strings.TrimSpace(raw))
	case domain.VariantTraits:
		return traitReplyRe.MatchString(strings.TrimSpace(raw))
	case domain.VariantLevel:
		_, _, ok := scanLevelReply(raw)
		return ok
	case domain.VariantColor:
		return anyHexColorRe.MatchString(cleanModelReply(raw))
	}
	return false
}

// valueAfterPrefix compara el prefijo sin distinguir mayusculas.
func valueAfterPrefix(line, prefix string) (string, bool) {
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}

// saturatingAtoi satura por signo los enteros que no caben en un int.
func saturatingAtoi(s string) int {
	n, err := strconv.ParseInt(s, 10, 0)
	if err == nil {
		return int(n)
	}
	if strings.HasPrefix(s, "-") {
		return math.MinInt
	}
	return math.MaxInt
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
