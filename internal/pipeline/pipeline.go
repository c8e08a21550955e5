// Package pipeline runs a reconstruction from scanned contact sheets to an
// exported video, one stage after another.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"riso-reel/internal/assemble"
	"riso-reel/internal/config"
	"riso-reel/internal/extract"
	"riso-reel/internal/grid"
	"riso-reel/internal/ingest"
	"riso-reel/internal/logging"
	"riso-reel/internal/metadata"
	"riso-reel/internal/ocr"
	"riso-reel/internal/scancache"
	"riso-reel/pkg/geometry"
)

// PageResult describes what happened to one page.
type PageResult struct {
	Index    int                     `json:"index"`
	Name     string                  `json:"name"`
	Number   int                     `json:"number"`
	Metadata *metadata.SheetMetadata `json:"metadata,omitempty"`
	Label    *ocr.Label              `json:"label,omitempty"`
	Strategy string                  `json:"strategy"`
	Cells    int                     `json:"cells"`
	Refined  int                     `json:"refined"`
	Frames   int                     `json:"frames"`
}

// Result is the outcome of a run.
type Result struct {
	Pages  []PageResult `json:"pages"`
	Frames int          `json:"frames"`
	// Missing lists page numbers absent from an otherwise unbroken run.
	Missing []int         `json:"missing,omitempty"`
	Format  string        `json:"format"`
	Outputs []string      `json:"outputs"`
	Info    assemble.Info `json:"info"`
}

// Analysis is a loaded page and the grid resolved for it.
type Analysis struct {
	Page ingest.Page
	Grid grid.Grid
}

// Pipeline owns the stages and the resources they share. Close releases them.
type Pipeline struct {
	cfg       *config.Config
	loader    *ingest.Loader
	resolver  *grid.Resolver
	extractor *extract.Extractor
	closers   []io.Closer
	base      *slog.Logger
	logger    *slog.Logger
}

// New builds the stages from configuration. The marker detector is always
// attached; the OCR engine and findings cache only when enabled.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	p := &Pipeline{
		cfg:       cfg,
		resolver:  grid.NewResolver(grid.ParamsFromConfig(cfg.Grid), logger),
		extractor: extract.New(extract.OptionsFromConfig(cfg.Extract), logger),
		base:      logger,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}

	opts := ingest.OptionsFromConfig(cfg.Ingest)
	opts.DetectCorners = cfg.Extract.Perspective
	p.loader = ingest.NewLoader(opts, logger)

	corner, err := metadata.ParseCorner(cfg.Scan.MarkerCorner)
	if err != nil {
		return nil, err
	}
	detector := metadata.NewQRDetector()
	p.closers = append(p.closers, detector)
	p.loader.WithMarkerScanner(metadata.NewScanner(detector, corner, logger))

	if cfg.Scan.OCRLabels {
		engine, err := ocr.NewEngine()
		if err != nil {
			p.logger.Warn("page label OCR unavailable", logging.Error(err))
		} else {
			p.closers = append(p.closers, engine)
			p.loader.WithLabelReader(engine)
		}
	}

	if cfg.Scan.Cache && cfg.Paths.CacheDir != "" {
		store, err := scancache.Open(cfg.Paths.CacheDir)
		if err != nil {
			p.logger.Warn("findings cache unavailable", logging.Error(err))
		} else {
			p.closers = append(p.closers, store)
			p.loader.WithCache(store)
		}
	}
	return p, nil
}

// Loader exposes the ingest stage so callers can attach collaborators.
func (p *Pipeline) Loader() *ingest.Loader {
	return p.loader
}

// Close releases the detector, OCR engine and cache.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Analyze loads the source and resolves a grid for every page. A page with an
// override uses it instead of detection.
func (p *Pipeline) Analyze(ctx context.Context, req Request) ([]Analysis, error) {
	overrides, err := p.overrides(req)
	if err != nil {
		return nil, err
	}
	pages, err := p.loader.Load(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	out := make([]Analysis, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := p.resolve(page, req, overrides)
		if err != nil {
			p.logger.Warn("grid resolution failed, page skipped",
				logging.String("page", page.Name),
				logging.Error(err))
			continue
		}
		out = append(out, Analysis{Page: page, Grid: g})
	}
	return out, nil
}

func (p *Pipeline) overrides(req Request) (map[int]grid.Override, error) {
	if req.Overrides == "" {
		return nil, nil
	}
	return grid.LoadOverrides(req.Overrides)
}

func (p *Pipeline) resolve(page ingest.Page, req Request, overrides map[int]grid.Override) (grid.Grid, error) {
	if o, ok := overrides[page.Index]; ok {
		p.logger.Debug("using grid override",
			logging.String("page", page.Name),
			logging.Int("cells", len(o.Cells)))
		return o.Grid(), nil
	}
	return p.resolver.Detect(page.Image, req.hints(page.Findings.Metadata))
}

// Run executes the whole reconstruction and writes the output.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	started := time.Now()

	analyses, err := p.Analyze(ctx, req)
	if err != nil {
		return Result{}, err
	}

	pages := make([]ingest.Page, len(analyses))
	for i, a := range analyses {
		pages[i] = a.Page
	}
	var combined *ingest.Settings
	if s, ok := ingest.CombinedSettings(pages); ok {
		combined = &s
		p.logger.Info("sheet markers found",
			logging.Int("pages", len(s.PageOrder)),
			logging.Int("total_pages", s.TotalPages),
			logging.Int("total_frames", s.TotalFrames))
	}

	asm := assemble.New(req.exportSettings(assemble.SettingsFromConfig(p.cfg.Export), combined), p.base)
	result := Result{Format: FormatFor(req.Output).String()}
	for i, a := range analyses {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		var corners *[4]geometry.Point2D
		if p.extractor.Options().Perspective {
			corners = a.Page.Findings.Corners
		}
		frames := p.extractor.Extract(a.Page.Image, a.Grid, corners)

		pr := PageResult{
			Index:    a.Page.Index,
			Name:     a.Page.Name,
			Metadata: a.Page.Findings.Metadata,
			Label:    a.Page.Findings.Label,
			Strategy: a.Grid.Strategy.String(),
			Cells:    len(a.Grid.Cells),
			Refined:  a.Grid.Refined,
			Frames:   len(frames),
		}
		pr.Number = p.addPage(asm, a.Page, frames)
		result.Pages = append(result.Pages, pr)
		result.Frames += len(frames)

		if req.Progress != nil {
			req.Progress(i+1, len(analyses))
		}
	}

	if result.Frames == 0 {
		return result, ErrNoFramesExtracted
	}
	result.Missing = asm.AssemblePages()

	outputs, err := p.export(ctx, asm, req)
	if err != nil {
		return result, err
	}
	result.Outputs = outputs
	result.Info = asm.Info()

	p.logger.Info("reconstruction complete",
		logging.Int("pages", len(result.Pages)),
		logging.Int("frames", result.Frames),
		logging.String("format", result.Format),
		logging.String("duration", result.Info.DurationFormatted),
		logging.Duration("elapsed", time.Since(started)))
	return result, nil
}

// addPage stores a page's frames under its declared page number, or the next
// free number when it has none or repeats one already used.
func (p *Pipeline) addPage(asm *assemble.Assembler, page ingest.Page, frames []*image.RGBA) int {
	n, ok := page.Findings.PageNumber()
	if ok {
		for _, used := range asm.Pages().PageNumbers() {
			if used == n {
				p.logger.Warn("page number repeated, appending instead",
					logging.String("page", page.Name),
					logging.Int("number", n))
				ok = false
				break
			}
		}
	}
	if !ok {
		return asm.AddPage(frames, nil)
	}
	return asm.AddPage(frames, &n)
}

func (p *Pipeline) export(ctx context.Context, asm *assemble.Assembler, req Request) ([]string, error) {
	switch FormatFor(req.Output) {
	case FormatGIF:
		if err := asm.ExportGIF(ctx, req.Output); err != nil {
			return nil, fmt.Errorf("export gif: %w", err)
		}
		return []string{req.Output}, nil
	case FormatSequence:
		paths, err := asm.ExportSequence(ctx, req.Output)
		if err != nil {
			return paths, fmt.Errorf("export sequence: %w", err)
		}
		return paths, nil
	default:
		if err := asm.ExportVideo(ctx, req.Output, req.Audio); err != nil {
			return nil, fmt.Errorf("export video: %w", err)
		}
		return []string{req.Output}, nil
	}
}
