// Command gridtest resolves the grid of one scanned page, prints the cells
// and optionally writes an overlay image.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"

	"riso-reel/internal/config"
	"riso-reel/internal/grid"
	"riso-reel/internal/logging"
	"riso-reel/internal/pipeline"
)

func main() {
	page := flag.String("i", "", "Path to a scanned page")
	rows := flag.Int("rows", 0, "Grid rows when the page has no marker")
	cols := flag.Int("cols", 0, "Grid columns when the page has no marker")
	overlay := flag.String("o", "", "Write a grid overlay PNG here")
	noCrop := flag.Bool("no-crop", false, "Keep scanner borders")
	noRefine := flag.Bool("no-refine", false, "Skip contour refinement")
	verbose := flag.Bool("v", false, "Log at debug level")
	flag.Parse()

	if *page == "" {
		fmt.Println("Usage: gridtest -i <page> [-rows N -cols N] [-o overlay.png] [-no-crop] [-no-refine]")
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.Scan.Cache = false
	cfg.Ingest.AutoCrop = !*noCrop
	cfg.Grid.Refine = !*noRefine

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	p, err := pipeline.New(&cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up pipeline: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	analyses, err := p.Analyze(context.Background(), pipeline.Request{Source: *page, Rows: *rows, Cols: *cols})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to analyze %s: %v\n", *page, err)
		os.Exit(1)
	}
	if len(analyses) == 0 {
		fmt.Fprintln(os.Stderr, "No page could be resolved")
		os.Exit(1)
	}

	a := analyses[0]
	b := a.Page.Image.Bounds()
	fmt.Printf("=== %s (%dx%d) ===\n", a.Page.Name, b.Dx(), b.Dy())
	if m := a.Page.Findings.Metadata; m != nil {
		fmt.Printf("Marker: %s\n", m)
	} else {
		fmt.Println("Marker: none")
	}

	g := a.Grid
	fmt.Printf("Strategy: %s\n", g.Strategy)
	fmt.Printf("Grid: %d rows x %d cols, cell %dx%d, origin (%d,%d), spacing %d/%d\n",
		g.Rows, g.Cols, g.CellWidth, g.CellHeight, g.Origin.X, g.Origin.Y, g.SpacingX, g.SpacingY)
	fmt.Printf("Refined: %d of %d cells\n", g.Refined, len(g.Cells))

	for i, c := range g.InOrder() {
		fmt.Printf("  %3d  r%d c%d  x=%d y=%d w=%d h=%d\n",
			i+1, c.Row, c.Col, c.Rect.X, c.Rect.Y, c.Rect.Width, c.Rect.Height)
	}

	if *overlay == "" {
		return
	}
	img, err := grid.Overlay(a.Page.Image, g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to draw overlay: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(*overlay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *overlay, err)
		os.Exit(1)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write overlay: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nOverlay written to %s\n", *overlay)
}
