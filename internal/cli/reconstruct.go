package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"riso-reel/internal/config"
	"riso-reel/internal/job"
	"riso-reel/internal/pipeline"
)

type reconstructFlags struct {
	output        string
	audio         string
	overrides     string
	rows          int
	cols          int
	frames        int
	fps           float64
	frameDuration float64
	upscale       int
	loop          int
	prefix        string
	whiteBalance  bool
	noCrop        bool
	noRotate      bool
	sharpen       bool
	contrast      bool
	perspective   bool
	ocr           bool
	noCache       bool
}

func (f *reconstructFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.output, "output", "o", "", "Output video, .gif file or sequence directory")
	fs.StringVar(&f.audio, "audio", "", "Audio track to mux into video output")
	fs.StringVar(&f.overrides, "overrides", "", "JSON file of hand-edited grids")
	fs.IntVar(&f.rows, "rows", 0, "Grid rows for pages without a marker")
	fs.IntVar(&f.cols, "cols", 0, "Grid columns for pages without a marker")
	fs.IntVar(&f.frames, "frames", 0, "Frames per page for pages without a marker")
	fs.Float64Var(&f.fps, "fps", 0, "Output frame rate (default: marker, then config)")
	fs.Float64Var(&f.frameDuration, "frame-duration", 0, "Seconds to hold each frame")
	fs.IntVar(&f.upscale, "upscale", 1, "Upscale factor 1-4")
	fs.IntVar(&f.loop, "loop", 0, "GIF loop count (0 loops forever)")
	fs.StringVar(&f.prefix, "prefix", "", "File name prefix for image sequences")
	fs.BoolVar(&f.whiteBalance, "white-balance", false, "Stretch each colour channel to paper white")
	fs.BoolVar(&f.noCrop, "no-crop", false, "Keep scanner borders")
	fs.BoolVar(&f.noRotate, "no-rotate", false, "Ignore EXIF orientation")
	fs.BoolVar(&f.sharpen, "sharpen", false, "Sharpen extracted frames")
	fs.BoolVar(&f.contrast, "contrast", false, "Boost contrast of extracted frames")
	fs.BoolVar(&f.perspective, "perspective", false, "Correct perspective using corner marks")
	fs.BoolVar(&f.ocr, "ocr", false, "Read printed page labels when a page has no marker")
	fs.BoolVar(&f.noCache, "no-cache", false, "Skip the scan findings cache")
}

// apply copies the flags the user set onto cfg.
func (f *reconstructFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("frame-duration") {
		cfg.Export.FrameDuration = f.frameDuration
	}
	if fs.Changed("upscale") {
		cfg.Export.Upscale = f.upscale
	}
	if fs.Changed("loop") {
		cfg.Export.Loop = f.loop
	}
	if fs.Changed("prefix") {
		cfg.Export.Prefix = f.prefix
	}
	if fs.Changed("white-balance") {
		cfg.Ingest.WhiteBalance = f.whiteBalance
	}
	if f.noCrop {
		cfg.Ingest.AutoCrop = false
	}
	if f.noRotate {
		cfg.Ingest.AutoRotate = false
	}
	if fs.Changed("sharpen") {
		cfg.Extract.Sharpen = f.sharpen
	}
	if fs.Changed("contrast") {
		cfg.Extract.Contrast = f.contrast
	}
	if fs.Changed("perspective") {
		cfg.Extract.Perspective = f.perspective
	}
	if fs.Changed("ocr") {
		cfg.Scan.OCRLabels = f.ocr
	}
	if f.noCache {
		cfg.Scan.Cache = false
	}
}

func (f *reconstructFlags) request(fs *pflag.FlagSet, source string) pipeline.Request {
	req := pipeline.Request{
		Source:    source,
		Output:    f.output,
		Audio:     f.audio,
		Overrides: f.overrides,
		Rows:      f.rows,
		Cols:      f.cols,
	}
	if fs.Changed("frames") {
		n := f.frames
		req.FrameCount = &n
	}
	if fs.Changed("fps") {
		fps := f.fps
		req.FPS = &fps
	}
	return req
}

func newReconstructCommand(ctx *commandContext) *cobra.Command {
	flags := &reconstructFlags{}
	cmd := &cobra.Command{
		Use:   "reconstruct SCAN",
		Short: "Rebuild a video from scanned sheets",
		Long: "Rebuild a video from a scanned image, a folder of scans or a PDF.\n" +
			"The output format follows the output path: .gif writes an animated GIF,\n" +
			"a path without an extension writes a numbered PNG sequence and anything\n" +
			"else a video.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(flags.output) == "" {
				return fmt.Errorf("--output is required")
			}
			cfg, err := ctx.configCopy()
			if err != nil {
				return err
			}
			flags.apply(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			req := flags.request(cmd.Flags(), args[0])
			if err := req.Validate(); err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			var bar *progressbar.ProgressBar
			if shouldColorize(stderr) {
				req.Progress = func(done, total int) {
					if bar == nil {
						bar = newPageBar(stderr, total)
					}
					_ = bar.Set(done)
				}
			}

			runner := job.NewRunner(job.PipelineFactory(cfg), logger)
			res, err := runner.Submit(cmd.Context(), req, nil).Wait()
			if bar != nil {
				_ = bar.Finish()
				printf(stderr, "\n")
			}
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newPageBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Extracting pages"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSummary(w io.Writer, res pipeline.Result) {
	fields := [][2]string{
		{"Pages", fmt.Sprintf("%d", len(res.Pages))},
		{"Frames", fmt.Sprintf("%d", res.Frames)},
		{"Format", res.Format},
		{"Frame rate", fmt.Sprintf("%.2f fps", res.Info.FPS)},
		{"Duration", res.Info.DurationFormatted},
		{"Size", fmt.Sprintf("%dx%d", res.Info.Width, res.Info.Height)},
	}
	if len(res.Missing) > 0 {
		fields = append(fields, [2]string{"Missing pages", joinInts(res.Missing)})
	}
	fields = append(fields, [2]string{"Output", outputSummary(res.Outputs)})
	printf(w, "%s\n", renderFields(fields))
}

func outputSummary(outputs []string) string {
	if len(outputs) == 0 {
		return "-"
	}
	var total uint64
	for _, p := range outputs {
		if info, err := os.Stat(p); err == nil {
			total += uint64(info.Size())
		}
	}
	if len(outputs) == 1 {
		return fmt.Sprintf("%s (%s)", outputs[0], humanize.Bytes(total))
	}
	return fmt.Sprintf("%d files (%s)", len(outputs), humanize.Bytes(total))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
