package service

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"emotion-diary/internal/domain"
)

// Reglas de mezcla compartidas por el prompt y el calculo local.
const (
	// DominantAxisThreshold: con |x| o |y| >= 7 se usa un solo color.
	DominantAxisThreshold = 7
	// MinBlendDeltaE es la separacion minima (CIE76) para mezclar dos colores.
	MinBlendDeltaE = 20.0
)

// QuadrantRole devuelve el rol de la paleta para un punto del plano agrado/activacion.
func QuadrantRole(x, y int) string {
	switch {
	case y > 0 && x >= 0:
		return domain.RoleBright
	case y > 0:
		return domain.RoleEnergetic
	case x < 0:
		return domain.RoleDark
	default:
		return domain.RoleCalm
	}
}

// DeltaE devuelve la distancia CIE76 entre dos colores hex en escala 0-100.
func DeltaE(a, b string) (float64, error) {
	ca, cb, err := parseColorPair(a, b)
	if err != nil {
		return 0, err
	}
	return ca.DistanceCIE76(cb) * 100, nil
}

func parseColorPair(a, b string) (colorful.Color, colorful.Color, error) {
	ca, err := colorful.Hex(a)
	if err != nil {
		return colorful.Color{}, colorful.Color{}, fmt.Errorf("parse color %q: %w", a, err)
	}
	cb, err := colorful.Hex(b)
	if err != nil {
		return colorful.Color{}, colorful.Color{}, fmt.Errorf("parse color %q: %w", b, err)
	}
	return ca, cb, nil
}

// ColorPair es un par de roles con su distancia perceptual.
type ColorPair struct {
	RoleA  string  `json:"role_a" yaml:"role_a"`
	RoleB  string  `json:"role_b" yaml:"role_b"`
	DeltaE float64 `json:"delta_e" yaml:"delta_e"`
}

// NearPairs lista los pares de roles cuya distancia es menor que threshold.
func NearPairs(p domain.Palette, threshold float64) []ColorPair {
	var out []ColorPair
	roles := domain.PaletteRoles
	for i := 0; i < len(roles); i++ {
		for j := i + 1; j < len(roles); j++ {
			d, err := DeltaE(p.Color(roles[i]), p.Color(roles[j]))
			if err != nil {
				continue
			}
			if d < threshold {
				out = append(out, ColorPair{RoleA: roles[i], RoleB: roles[j], DeltaE: d})
			}
		}
	}
	return out
}

// BlendResult describe la mezcla elegida.
type BlendResult struct {
	Color   string  `json:"color" yaml:"color"`
	Primary string  `json:"primary" yaml:"primary"`
	Second  string  `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Ratio   float64 `json:"ratio" yaml:"ratio"`
}

// Blender calcula localmente el color de referencia de una coordenada.
type Blender struct{}

// Blend mezcla como maximo dos colores de la paleta en proporcion |x| : |y|.
func (Blender) Blend(p domain.Palette, x, y int) (BlendResult, error) {
	x = domain.Clamp(x, domain.CoordinateMin, domain.CoordinateMax)
	y = domain.Clamp(y, domain.CoordinateMin, domain.CoordinateMax)

	primary := QuadrantRole(x, y)
	single := func() (BlendResult, error) {
		c, err := domain.CanonicalizeColor(p.Color(primary))
		if err != nil {
			return BlendResult{}, fmt.Errorf("palette role %s: %w", primary, err)
		}
		return BlendResult{Color: c, Primary: primary, Ratio: 1}, nil
	}

	ax, ay := abs(x), abs(y)
	if ax >= DominantAxisThreshold || ay >= DominantAxisThreshold || ax+ay == 0 {
		return single()
	}

	dominant, minor := ax, ay
	if ay > ax {
		dominant, minor = ay, ax
	}
	if minor == 0 {
		return single()
	}
	weight := float64(minor) / float64(dominant+minor)

	var across, alternate string
	if ax >= ay {
		across, alternate = QuadrantRole(x, -y), QuadrantRole(-x, y)
	} else {
		across, alternate = QuadrantRole(-x, y), QuadrantRole(x, -y)
	}

	for _, second := range []string{across, alternate} {
		if second == primary {
			continue
		}
		ca, cb, err := parseColorPair(p.Color(primary), p.Color(second))
		if err != nil {
			return BlendResult{}, err
		}
		if ca.DistanceCIE76(cb)*100 < MinBlendDeltaE {
			continue
		}
		mixed := strings.ToUpper(ca.BlendLab(cb, weight).Clamped().Hex())
		return BlendResult{Color: mixed, Primary: primary, Second: second, Ratio: 1 - weight}, nil
	}
	return single()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
