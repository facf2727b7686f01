package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"carpet-studio/internal/scene"
	"carpet-studio/internal/settings"
)

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved scene settings",
	}
	cmd.AddCommand(c.settingsShowCmd(), c.settingsResetCmd(), c.settingsPresetCmd(), c.settingsSetCmd())
	return cmd
}

func (c *cli) settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id := c.app.Studio.NewSession(ctx)
			defer c.app.Sessions.Delete(id)

			snap, err := c.app.Studio.Settings(ctx, id)
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
}

func (c *cli) settingsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the saved settings and go back to the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id := c.app.Studio.NewSession(ctx)
			defer c.app.Sessions.Delete(id)

			snap, err := c.app.Studio.ResetSettings(ctx, id)
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
}

func (c *cli) settingsPresetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "preset p1|p2|p3",
		Short:     "Apply a scene preset and save it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: presetKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.update(cmd, func(s settings.Snapshot) (settings.Snapshot, error) {
				next, err := scene.ApplyPreset(s.Settings, args[0])
				s.Settings = next
				return s, err
			})
		},
	}
}

func (c *cli) settingsSetCmd() *cobra.Command {
	var (
		ratio     string
		res       int
		stylize   int
		light     int
		color     string
		hex       string
		model     string
		watermark bool
		ornaments []string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change individual settings and save them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			return c.update(cmd, func(s settings.Snapshot) (settings.Snapshot, error) {
				if flags.Changed("ratio") {
					s.AspectRatio = ratio
				}
				if flags.Changed("res") {
					s.Resolution = res
				}
				if flags.Changed("stylize") {
					s.Stylization = stylize
				}
				if flags.Changed("light") {
					s.LightIntensity = light
				}
				if flags.Changed("color") {
					s.CarpetColor = color
				}
				if flags.Changed("hex") {
					s.CarpetColor = scene.ColorCustom
					s.CarpetColorHex = hex
				}
				if flags.Changed("model") {
					s.Model = model
				}
				if flags.Changed("watermark") {
					s.Watermark = watermark
				}
				if flags.Changed("ornament") {
					next := scene.NoOrnaments()
					for _, o := range ornaments {
						next = next.Add(o)
					}
					s.Ornaments = next
				}
				return s, nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&ratio, "ratio", "", "aspect ratio: 1:1, 4:5, 3:4, 9:16 or 16:9")
	f.IntVar(&res, "res", 0, "long side in pixels: 1024, 1536 or 2048")
	f.IntVar(&stylize, "stylize", 0, "stylization 0-100")
	f.IntVar(&light, "light", 0, "light intensity 0-100")
	f.StringVar(&color, "color", "", "carpet color from the catalog")
	f.StringVar(&hex, "hex", "", "custom carpet color as #rrggbb")
	f.StringVar(&model, "model", "", "image model id")
	f.BoolVar(&watermark, "watermark", false, "draw the watermark")
	f.StringSliceVar(&ornaments, "ornament", nil, "ornaments to place, repeatable; none clears them")
	return cmd
}

func (c *cli) update(cmd *cobra.Command, fn func(settings.Snapshot) (settings.Snapshot, error)) error {
	ctx := cmd.Context()
	id := c.app.Studio.NewSession(ctx)
	defer c.app.Sessions.Delete(id)

	snap, err := c.app.Studio.UpdateSettings(ctx, id, fn)
	if err != nil {
		return err
	}
	return printSnapshot(cmd.OutOrStdout(), snap)
}

// printSnapshot writes the settings without the API key.
func printSnapshot(w io.Writer, snap settings.Snapshot) error {
	hasKey := snap.APIKey != ""
	snap.APIKey = ""
	view := struct {
		settings.Snapshot
		HasAPIKey bool `json:"hasApiKey"`
	}{snap, hasKey}

	raw, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

func presetKeys() []string {
	var keys []string
	for _, p := range scene.Presets() {
		keys = append(keys, p.Key)
	}
	return keys
}
