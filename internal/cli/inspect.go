package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"riso-reel/internal/pipeline"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var rows, cols int
	var overrides string
	var noCrop bool

	cmd := &cobra.Command{
		Use:   "inspect SCAN",
		Short: "Show what each scanned page says about itself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			if noCrop {
				cfg.Ingest.AutoCrop = false
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
			printf(cmd.OutOrStdout(), "%s\n", renderAnalyses(analyses))
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "Grid rows for pages without a marker")
	cmd.Flags().IntVar(&cols, "cols", 0, "Grid columns for pages without a marker")
	cmd.Flags().StringVar(&overrides, "overrides", "", "JSON file of hand-edited grids")
	cmd.Flags().BoolVar(&noCrop, "no-crop", false, "Keep scanner borders")
	return cmd
}

func renderAnalyses(analyses []pipeline.Analysis) string {
	headers := []string{"#", "File", "Size", "Marker", "Label", "Corners", "Strategy", "Grid", "Cells", "Snapped"}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
	rows := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		f := a.Page.Findings
		marker := "-"
		if f.Metadata != nil {
			marker = f.Metadata.String()
		}
		label := "-"
		if f.Label != nil {
			label = fmt.Sprintf("%d/%d", f.Label.Page, f.Label.Total)
		}
		b := a.Page.Image.Bounds()
		rows = append(rows, []string{
			fmt.Sprintf("%d", a.Page.Index+1),
			a.Page.Name,
			fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			marker,
			label,
			yesNo(f.Corners != nil),
			a.Grid.Strategy.String(),
			fmt.Sprintf("%dx%d", a.Grid.Rows, a.Grid.Cols),
			fmt.Sprintf("%d", len(a.Grid.InOrder())),
			fmt.Sprintf("%d", a.Grid.Refined),
		})
	}
	return renderTable(headers, rows, aligns)
}
