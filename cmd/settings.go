package cmd

import (
	"github.com/spf13/cobra"

	"stickerkit/internal/filter"
	"stickerkit/internal/render"
)

func addSettingsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("brightness", 1, "brightness factor in [0,2]")
	f.Float64("contrast", 1, "contrast factor in [0,2]")
	f.Float64("saturation", 1, "saturation factor in [0,2]")
	f.Float64("sharpness", 1, "sharpness factor in [0,2]")
	f.String("filter", "", "filter: none, sharpen, blur, edge_enhance, emboss, contour, detail, find_edges")
	f.Float64("blur-radius", filter.DefaultBlurRadius, "blur radius in [0,10]")
	f.StringP("output", "o", "", "output folder (default from config)")
}

// renderSettings starts from the config and applies the flags that were set.
func (a *app) renderSettings(cmd *cobra.Command) (render.Settings, error) {
	s := a.cfg.Settings()
	f := cmd.Flags()

	for _, name := range []string{"brightness", "contrast", "saturation", "sharpness"} {
		if !f.Changed(name) {
			continue
		}
		v, _ := f.GetFloat64(name)
		adj, err := s.Adjustments.With(name, v)
		if err != nil {
			return s, err
		}
		s.Adjustments = adj
	}
	if f.Changed("filter") {
		name, _ := f.GetString("filter")
		kind, err := filter.Parse(name)
		if err != nil {
			return s, err
		}
		s.Filter.Kind = kind
	}
	if f.Changed("blur-radius") {
		r, _ := f.GetFloat64("blur-radius")
		s.Filter = s.Filter.WithBlurRadius(r)
	}
	return s, nil
}

func (a *app) outputDir(cmd *cobra.Command) string {
	if dir, _ := cmd.Flags().GetString("output"); dir != "" {
		return dir
	}
	return a.cfg.OutputDir
}
