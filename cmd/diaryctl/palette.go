package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"emotion-diary/internal/domain"
	"emotion-diary/internal/repository"
	"emotion-diary/internal/service"
)

type paletteOutput struct {
	UserID    string              `json:"uid" yaml:"uid"`
	Palette   domain.Palette      `json:"palette" yaml:"palette"`
	NearPairs []service.ColorPair `json:"near_pairs" yaml:"near_pairs"`
}

func newPaletteCmd(root *rootOptions) *cobra.Command {
	var roles roleFlags
	cmd := &cobra.Command{
		Use:   "palette <uid>",
		Short: "Print or update the resolved palette of a user",
		Long: `Without role flags the command prints the palette the model would receive.
Any of --bright, --energetic, --dark or --calm updates that role; omitted roles keep their value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID := args[0]

			pool, err := root.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			palettes := service.NewPaletteService(root.logger, repository.NewPgPaletteRepository(pool))

			var palette domain.Palette
			if update, changed := roles.stored(cmd, userID); changed {
				palette, err = palettes.Update(ctx, userID, update)
				if err != nil {
					if errors.Is(err, domain.ErrColorEmpty) || errors.Is(err, domain.ErrColorInvalidFormat) {
						return err
					}
					return fmt.Errorf("update palette: %w", err)
				}
			} else {
				palette = palettes.Resolve(ctx, userID)
			}

			return root.write(cmd.OutOrStdout(), paletteOutput{
				UserID:    userID,
				Palette:   palette,
				NearPairs: nearPairsOrEmpty(palette),
			})
		},
	}
	roles.register(cmd)
	return cmd
}

// roleFlags guarda los colores pasados por linea de comandos para cada rol.
type roleFlags struct {
	bright, energetic, dark, calm string
}

func (r *roleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.bright, domain.RoleBright, "", "Color for the bright role (#RRGGBB)")
	cmd.Flags().StringVar(&r.energetic, domain.RoleEnergetic, "", "Color for the energetic role (#RRGGBB)")
	cmd.Flags().StringVar(&r.dark, domain.RoleDark, "", "Color for the dark role (#RRGGBB)")
	cmd.Flags().StringVar(&r.calm, domain.RoleCalm, "", "Color for the calm role (#RRGGBB)")
}

// stored devuelve solo los roles cuyo flag se paso explicitamente.
func (r *roleFlags) stored(cmd *cobra.Command, userID string) (domain.StoredPalette, bool) {
	out := domain.StoredPalette{UserID: userID}
	changed := false
	set := func(name string, value string, dst **string) {
		if cmd.Flags().Changed(name) {
			v := value
			*dst = &v
			changed = true
		}
	}
	set(domain.RoleBright, r.bright, &out.Bright)
	set(domain.RoleEnergetic, r.energetic, &out.Energetic)
	set(domain.RoleDark, r.dark, &out.Dark)
	set(domain.RoleCalm, r.calm, &out.Calm)
	return out, changed
}

func nearPairsOrEmpty(p domain.Palette) []service.ColorPair {
	pairs := service.NearPairs(p, service.MinBlendDeltaE)
	if pairs == nil {
		return []service.ColorPair{}
	}
	return pairs
}
