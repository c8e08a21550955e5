package cli

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"riso-reel/internal/grid"
	"riso-reel/internal/pipeline"
)

func newOverlayCommand(ctx *commandContext) *cobra.Command {
	var outDir, overrides string
	var rows, cols int

	cmd := &cobra.Command{
		Use:   "overlay SCAN",
		Short: "Write each page with its resolved grid drawn on top",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outDir) == "" {
				return fmt.Errorf("--output is required")
			}
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			analyses, err := p.Analyze(cmd.Context(), pipeline.Request{
				Source:    args[0],
				Rows:      rows,
				Cols:      cols,
				Overrides: overrides,
			})
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			for _, a := range analyses {
				path := filepath.Join(outDir, overlayName(a.Page.Name))
				if err := writeOverlay(path, a); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s: %s grid, %d cells -> %s\n",
					a.Page.Name, a.Grid.Strategy, len(a.Grid.InOrder()), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory for overlay images")
	cmd.Flags().StringVar(&overrides, "overrides", "", "JSON file of hand-edited grids")
	cmd.Flags().IntVar(&rows, "rows", 0, "Grid rows for pages without a marker")
	cmd.Flags().IntVar(&cols, "cols", 0, "Grid columns for pages without a marker")
	return cmd
}

func overlayName(page string) string {
	return strings.TrimSuffix(page, filepath.Ext(page)) + "_grid.png"
}

func writeOverlay(path string, a pipeline.Analysis) error {
	img, err := grid.Overlay(a.Page.Image, a.Grid)
	if err != nil {
		return fmt.Errorf("draw overlay for %s: %w", a.Page.Name, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode overlay: %w", err)
	}
	return f.Close()
}
