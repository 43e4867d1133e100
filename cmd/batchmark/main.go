// batchmark applies text watermarks to a folder of raster images.
//
// Usage:
//
//	batchmark -dir <folder> [-text "© Studio"] [-count 4] [options]
//	batchmark -dir <folder> -template <name>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"batchmark/internal/domain"
	"batchmark/internal/fileservice"
	"batchmark/internal/repository/template"
	"batchmark/internal/usecase/batch"
	"batchmark/internal/usecase/render"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("batchmark", flag.ExitOnError)

	var (
		dir          string
		destDir      string
		text         string
		count        int
		opacity      float64
		rotation     float64
		fontSize     int
		ratio        float64
		color        string
		format       string
		quality      int
		nameRule     string
		suffix       string
		templateName string
		templatesDir string
		saveTemplate string
		parallel     int
	)

	fs.StringVar(&dir, "dir", "", "Source folder with images")
	fs.StringVar(&destDir, "out", "", "Destination folder (default <dir>/watermarked)")
	fs.StringVar(&text, "text", domain.DefaultWatermarkText, "Watermark text, use \\n for a second line")
	fs.IntVar(&count, "count", 1, "Watermarks per image (1-20)")
	fs.Float64Var(&opacity, "opacity", domain.DefaultOpacity, "Watermark opacity (0-1)")
	fs.Float64Var(&rotation, "rotation", domain.DefaultRotation, "Rotation in degrees (0-359)")
	fs.IntVar(&fontSize, "font-size", 0, "Fixed font size in px (0 = adaptive)")
	fs.Float64Var(&ratio, "ratio", domain.DefaultAdaptiveRatio, "Adaptive font ratio of the smaller image side")
	fs.StringVar(&color, "color", "#FFFFFF", "Watermark color as #RRGGBB")
	fs.StringVar(&format, "format", "jpeg", "Output format: jpeg or png")
	fs.IntVar(&quality, "quality", domain.DefaultJPEGQuality, "JPEG quality (50-100)")
	fs.StringVar(&nameRule, "name-rule", "suffix", "Output naming: original, numbered or suffix")
	fs.StringVar(&suffix, "suffix", domain.DefaultSuffix, "Filename suffix for the suffix rule")
	fs.StringVar(&templateName, "template", "", "Load settings from a saved template")
	fs.StringVar(&templatesDir, "templates-dir", "templates", "Folder with saved templates")
	fs.StringVar(&saveTemplate, "save-template", "", "Save the resolved settings under this name")
	fs.IntVar(&parallel, "parallel", 1, "Images processed concurrently")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dir == "" {
		fs.Usage()
		return fmt.Errorf("source folder is required (-dir)")
	}

	zlog.Init()
	logger := &zlog.Logger

	wm := domain.DefaultWatermarkConfig()
	out := domain.DefaultOutputConfig()

	store, err := template.NewStore(templatesDir, logger)
	if err != nil {
		return err
	}

	if templateName != "" {
		tpl, err := store.Load(templateName)
		if err != nil {
			return err
		}
		wm = tpl.Watermark
		out = tpl.Output
	}

	applyFlags(fs, &wm, &out, flagValues{
		text: text, count: count, opacity: opacity, rotation: rotation,
		fontSize: fontSize, ratio: ratio, color: color,
		format: format, quality: quality, nameRule: nameRule, suffix: suffix,
	})
	if destDir != "" {
		out.DestinationDir = destDir
	}

	if err := domain.ValidateWatermarkConfig(wm); err != nil {
		return err
	}
	if err := domain.ValidateOutputConfig(out); err != nil {
		return err
	}

	if saveTemplate != "" {
		tpl := domain.Template{Name: saveTemplate, Watermark: wm, Output: out}
		if err := store.Save(tpl); err != nil {
			return err
		}
		fmt.Printf("Template saved: %s\n", saveTemplate)
	}

	files := fileservice.New(logger)

	sources, err := files.ScanDirectory(dir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}

	jobs, err := files.BuildJobs(sources, out)
	if err != nil {
		return err
	}

	space, err := files.CheckDiskSpace(destForJobs(jobs), sources, out)
	if err == nil && !space.Sufficient {
		return fmt.Errorf("not enough disk space: need about %d MB, %d MB available",
			space.EstimatedOutput>>20, space.Available>>20)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		return err
	}

	strategy := retry.Strategy{Attempts: 3, Delay: 0, Backoff: 1}
	scheduler := batch.NewScheduler(fileservice.NewLocalStore(strategy), renderer, logger, parallel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nCanceling, finishing the current image...")
		cancel()
	}()

	fmt.Printf("Processing %d images from %s\n", len(jobs), dir)
	result, err := scheduler.Run(ctx, jobs, wm, out, consoleSink{})
	if err != nil {
		return err
	}

	printSummary(result, len(jobs))
	if result.Status == domain.StatusFailed {
		os.Exit(1)
	}
	return nil
}

type flagValues struct {
	text     string
	count    int
	opacity  float64
	rotation float64
	fontSize int
	ratio    float64
	color    string
	format   string
	quality  int
	nameRule string
	suffix   string
}

// applyFlags overlays flags the user actually set on top of the defaults or
// the loaded template.
func applyFlags(fs *flag.FlagSet, wm *domain.WatermarkConfig, out *domain.OutputConfig, v flagValues) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["text"] {
		wm.Text = strings.ReplaceAll(v.text, `\n`, "\n")
	}
	if set["count"] {
		wm.Count = v.count
	}
	if set["opacity"] {
		wm.Opacity = v.opacity
	}
	if set["rotation"] {
		wm.RotationDegrees = v.rotation
	}
	if set["font-size"] && v.fontSize > 0 {
		wm.FontSizeMode = domain.FontSizeManual
		wm.ManualFontSize = v.fontSize
		wm.AdaptiveRatio = 0
	}
	if set["ratio"] {
		wm.FontSizeMode = domain.FontSizeAdaptive
		wm.AdaptiveRatio = v.ratio
		wm.ManualFontSize = 0
	}
	if set["color"] {
		if c, err := parseHexColor(v.color); err == nil {
			wm.Color = c
		}
	}
	if set["format"] {
		out.Format = domain.OutputFormat(v.format)
	}
	if set["quality"] {
		out.JPEGQuality = v.quality
	}
	if set["name-rule"] {
		out.NameRule = domain.NameRule(v.nameRule)
	}
	if set["suffix"] {
		out.Suffix = v.suffix
	}
}

func parseHexColor(s string) (domain.RGB, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return domain.RGB{}, fmt.Errorf("color must be #RRGGBB, got %q", s)
	}
	var c domain.RGB
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return domain.RGB{}, fmt.Errorf("color must be #RRGGBB, got %q", s)
	}
	return c, nil
}

func destForJobs(jobs []domain.ImageJob) string {
	if len(jobs) == 0 {
		return "."
	}
	return filepath.Dir(jobs[0].DestinationPath)
}

type consoleSink struct{}

func (c consoleSink) Update(completed, total int, currentPath string) {
	fmt.Printf("\r[%d/%d] %s", completed, total, currentPath)
	if completed == total {
		fmt.Println()
	}
}

func printSummary(result domain.BatchResult, total int) {
	fmt.Println()
	switch result.Status {
	case domain.StatusCanceled:
		fmt.Printf("Canceled: %d of %d done, %d succeeded\n",
			result.Succeeded+len(result.Failed), total, result.Succeeded)
	default:
		fmt.Printf("Done: %d succeeded, %d failed\n", result.Succeeded, len(result.Failed))
	}
	for _, f := range result.Failed {
		fmt.Printf("  %s: %s (%s)\n", f.Path, f.Message, f.Kind)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
