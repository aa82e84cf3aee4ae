package domain

import (
	"errors"
	"strings"
)

var (
	ErrColorEmpty         = errors.New("color must be specified")
	ErrColorInvalidFormat = errors.New("color must be in #RRGGBB hex format")
)

// Roles de la paleta, en el orden en que se presentan al modelo.
const (
	RoleBright    = "bright"
	RoleEnergetic = "energetic"
	RoleDark      = "dark"
	RoleCalm      = "calm"
)

// PaletteRoles enumera los cuatro roles fijos de una paleta.
var PaletteRoles = []string{RoleBright, RoleEnergetic, RoleDark, RoleCalm}

// Colores por defecto de cada rol.
const (
	DefaultBrightColor    = "#FFCCCC"
	DefaultEnergeticColor = "#FFE066"
	DefaultDarkColor      = "#666699"
	DefaultCalmColor      = "#A8E6CF"
)

// Palette asocia cada rol emocional con un color #RRGGBB canonico.
type Palette struct {
	Bright    string `json:"bright" yaml:"bright"`       // Agrado + activacion
	Energetic string `json:"energetic" yaml:"energetic"` // Desagrado + activacion
	Dark      string `json:"dark" yaml:"dark"`           // Desagrado + calma
	Calm      string `json:"calm" yaml:"calm"`           // Agrado + calma
}

// DefaultPalette devuelve la paleta usada cuando el usuario no guardo preferencias.
func DefaultPalette() Palette {
	return Palette{
		Bright:    DefaultBrightColor,
		Energetic: DefaultEnergeticColor,
		Dark:      DefaultDarkColor,
		Calm:      DefaultCalmColor,
	}
}

// Color devuelve el color asignado a un rol, o "" si el rol no existe.
func (p Palette) Color(role string) string {
	switch role {
	case RoleBright:
		return p.Bright
	case RoleEnergetic:
		return p.Energetic
	case RoleDark:
		return p.Dark
	case RoleCalm:
		return p.Calm
	}
	return ""
}

// Map expone la paleta como rol -> color.
func (p Palette) Map() map[string]string {
	return map[string]string{
		RoleBright:    p.Bright,
		RoleEnergetic: p.Energetic,
		RoleDark:      p.Dark,
		RoleCalm:      p.Calm,
	}
}

// StoredPalette es la fila persistida por usuario; cada rol puede faltar.
type StoredPalette struct {
	UserID    string  `json:"uid"`
	Bright    *string `json:"bright,omitempty"`
	Energetic *string `json:"energetic,omitempty"`
	Dark      *string `json:"dark,omitempty"`
	Calm      *string `json:"calm,omitempty"`
}

// Resolve completa cada rol faltante o invalido con su default, de forma independiente.
func (s StoredPalette) Resolve() Palette {
	def := DefaultPalette()
	return Palette{
		Bright:    colorOr(s.Bright, def.Bright),
		Energetic: colorOr(s.Energetic, def.Energetic),
		Dark:      colorOr(s.Dark, def.Dark),
		Calm:      colorOr(s.Calm, def.Calm),
	}
}

// Merge aplica sobre s los roles presentes en update.
func (s StoredPalette) Merge(update StoredPalette) StoredPalette {
	if update.Bright != nil {
		s.Bright = update.Bright
	}
	if update.Energetic != nil {
		s.Energetic = update.Energetic
	}
	if update.Dark != nil {
		s.Dark = update.Dark
	}
	if update.Calm != nil {
		s.Calm = update.Calm
	}
	return s
}

func colorOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	c, err := CanonicalizeColor(*value)
	if err != nil {
		return fallback
	}
	return c
}

// CanonicalizeColor normaliza "#aabbcc" / "aabbcc" a "#AABBCC". Es idempotente.
func CanonicalizeColor(value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", ErrColorEmpty
	}
	v = strings.TrimPrefix(v, "#")
	if len(v) != 6 {
		return "", ErrColorInvalidFormat
	}
	for _, r := range v {
		if !isHexDigit(r) {
			return "", ErrColorInvalidFormat
		}
	}
	return "#" + strings.ToUpper(v), nil
}

// IsCanonicalColor indica si value ya cumple ^#[0-9A-F]{6}$.
func IsCanonicalColor(value string) bool {
	if len(value) != 7 || value[0] != '#' {
		return false
	}
	for _, r := range value[1:] {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'f':
		return true
	case r >= 'A' && r <= 'F':
		return true
	default:
		return false
	}
}
