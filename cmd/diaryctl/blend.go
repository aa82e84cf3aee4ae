package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/repository"
	"emotion-diary/internal/service"
)

type blendOutput struct {
	X         int                 `json:"x" yaml:"x"`
	Y         int                 `json:"y" yaml:"y"`
	Palette   domain.Palette      `json:"palette" yaml:"palette"`
	Blend     service.BlendResult `json:"blend" yaml:"blend"`
	NearPairs []service.ColorPair `json:"near_pairs" yaml:"near_pairs"`
}

func newBlendCmd(root *rootOptions) *cobra.Command {
	var (
		x, y   int
		userID string
		roles  roleFlags
	)
	cmd := &cobra.Command{
		Use:   "blend",
		Short: "Compute the reference palette blend for a coordinate",
		Long: `Blend mixes at most two palette colors in proportion |x|:|y| the same way the
server does with COLOR_SOURCE=palette. The palette starts from the defaults, or from
the stored palette of --uid, and role flags override single colors.`,
		Example: `  diaryctl blend --x 6 --y 2
  diaryctl blend --x -3 --y -8 --dark '#333366' -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			palette := domain.DefaultPalette()
			if userID != "" {
				pool, err := root.openPool(cmd.Context())
				if err != nil {
					return err
				}
				defer pool.Close()
				palette = service.NewPaletteService(root.logger, repository.NewPgPaletteRepository(pool)).
					Resolve(cmd.Context(), userID)
			}
			override, _ := roles.stored(cmd, userID)
			for role, value := range map[string]*string{
				domain.RoleBright:    override.Bright,
				domain.RoleEnergetic: override.Energetic,
				domain.RoleDark:      override.Dark,
				domain.RoleCalm:      override.Calm,
			} {
				if value == nil {
					continue
				}
				c, err := domain.CanonicalizeColor(*value)
				if err != nil {
					return fmt.Errorf("--%s: %w", role, err)
				}
				palette = setRole(palette, role, c)
			}

			result, err := service.Blender{}.Blend(palette, x, y)
			if err != nil {
				return err
			}
			return root.write(cmd.OutOrStdout(), blendOutput{
				X:         domain.Clamp(x, domain.CoordinateMin, domain.CoordinateMax),
				Y:         domain.Clamp(y, domain.CoordinateMin, domain.CoordinateMax),
				Palette:   palette,
				Blend:     result,
				NearPairs: nearPairsOrEmpty(palette),
			})
		},
	}
	cmd.Flags().IntVar(&x, "x", 0, "Pleasantness axis (-10..10)")
	cmd.Flags().IntVar(&y, "y", 0, "Arousal axis (-10..10)")
	cmd.Flags().StringVar(&userID, "uid", "", "Start from the stored palette of this user")
	roles.register(cmd)
	return cmd
}

func setRole(p domain.Palette, role, color string) domain.Palette {
	switch role {
	case domain.RoleBright:
		p.Bright = color
	case domain.RoleEnergetic:
		p.Energetic = color
	case domain.RoleDark:
		p.Dark = color
	case domain.RoleCalm:
		p.Calm = color
	}
	return p
}
