package domain

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Variant identifica la forma de lectura afectiva que devuelve el servicio.
type Variant string

const (
	VariantCoordinate Variant = "coordinate"
	VariantLevel      Variant = "level"
	VariantTraits     Variant = "traits"
	VariantColor      Variant = "color"
)

// Rangos de cada eje.
const (
	CoordinateMin = -10
	CoordinateMax = 10
	LevelMin      = 1
	LevelMax      = 4
	TraitMin      = 0
	TraitMax      = 10
)

// Lectura usada cuando el modelo no respeta el formato en las variantes tolerantes.
const (
	FallbackLevel = 2
	FallbackColor = "#88E0A6"
)

// ParseVariant valida el nombre de una variante configurada.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantCoordinate, VariantLevel, VariantTraits, VariantColor:
		return v, nil
	}
	return "", fmt.Errorf("unknown diary variant %q", s)
}

// UsesPalette indica si el prompt de la variante necesita la paleta del usuario.
func (v Variant) UsesPalette() bool {
	return v == VariantCoordinate || v == VariantLevel
}

// Reading es el resultado normalizado de una invocacion del modelo.
type Reading interface {
	Variant() Variant
	HexColor() string
	// Fields devuelve los campos tal como se exponen al cliente.
	Fields() map[string]any
	// Affect proyecta la lectura a un vector en [-1, 1] para busquedas por similitud.
	Affect() []float32
}

// Clamp limita v a [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CoordinateReading ubica el texto en el plano agrado (x) / activacion (y).
type CoordinateReading struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

func (r CoordinateReading) Variant() Variant { return VariantCoordinate }
func (r CoordinateReading) HexColor() string { return r.Color }

func (r CoordinateReading) Fields() map[string]any {
	return map[string]any{"x": r.X, "y": r.Y, "color": r.Color}
}

func (r CoordinateReading) Affect() []float32 {
	return []float32{float32(r.X) / CoordinateMax, float32(r.Y) / CoordinateMax}
}

// Normalized devuelve la lectura con ambos ejes dentro de [-10, 10].
func (r CoordinateReading) Normalized() CoordinateReading {
	r.X = Clamp(r.X, CoordinateMin, CoordinateMax)
	r.Y = Clamp(r.Y, CoordinateMin, CoordinateMax)
	return r
}

// LevelReading clasifica el texto en un nivel discreto de 1 a 4.
type LevelReading struct {
	Level int    `json:"level"`
	Color string `json:"color"`
}

func (r LevelReading) Variant() Variant { return VariantLevel }
func (r LevelReading) HexColor() string { return r.Color }

func (r LevelReading) Fields() map[string]any {
	return map[string]any{"level": r.Level, "color": r.Color}
}

func (r LevelReading) Affect() []float32 {
	span := float32(LevelMax - LevelMin)
	return []float32{2*float32(r.Level-LevelMin)/span - 1}
}

func (r LevelReading) Normalized() LevelReading {
	r.Level = Clamp(r.Level, LevelMin, LevelMax)
	return r
}

// FallbackLevelReading es la lectura documentada cuando la respuesta no trae las lineas requeridas.
func FallbackLevelReading() LevelReading {
	return LevelReading{Level: FallbackLevel, Color: FallbackColor}
}

// TraitReading puntua diversion, luminosidad y energia de 0 a 10.
type TraitReading struct {
	Fun    int    `json:"fun"`
	Bright int    `json:"bright"`
	Energy int    `json:"energy"`
	Color  string `json:"color"`
}

func (r TraitReading) Variant() Variant { return VariantTraits }
func (r TraitReading) HexColor() string { return r.Color }

func (r TraitReading) Fields() map[string]any {
	return map[string]any{"fun": r.Fun, "bright": r.Bright, "energy": r.Energy, "color": r.Color}
}

func (r TraitReading) Affect() []float32 {
	scale := func(v int) float32 { return 2*float32(v)/TraitMax - 1 }
	return []float32{scale(r.Fun), scale(r.Bright), scale(r.Energy)}
}

func (r TraitReading) Normalized() TraitReading {
	r.Fun = Clamp(r.Fun, TraitMin, TraitMax)
	r.Bright = Clamp(r.Bright, TraitMin, TraitMax)
	r.Energy = Clamp(r.Energy, TraitMin, TraitMax)
	return r
}

// ColorReading solo lleva el color elegido para el texto.
type ColorReading struct {
	Color string `json:"color"`
}

func (r ColorReading) Variant() Variant { return VariantColor }
func (r ColorReading) HexColor() string { return r.Color }

func (r ColorReading) Fields() map[string]any {
	return map[string]any{"color": r.Color}
}

// Affect usa los canales RGB normalizados; con un color invalido devuelve el origen.
func (r ColorReading) Affect() []float32 {
	c, err := CanonicalizeColor(r.Color)
	if err != nil {
		return []float32{0, 0, 0}
	}
	rgb, err := colorful.Hex(c)
	if err != nil {
		return []float32{0, 0, 0}
	}
	out := []float32{float32(rgb.R), float32(rgb.G), float32(rgb.B)}
	for i, v := range out {
		out[i] = 2*v - 1
	}
	return out
}
