package fileservice

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"batchmark/internal/domain"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sys/unix"
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Service scans input directories, validates destinations, and turns source
// files into batch jobs with deterministic output names.
type Service struct {
	logger *zlog.Zerolog
}

func New(logger *zlog.Zerolog) *Service {
	return &Service{logger: logger}
}

// ScanDirectory lists the supported image files directly under dir, sorted
// by name so batch order is stable across runs.
func (s *Service) ScanDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if supportedExtensions[ext] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	s.logger.Debug().Str("dir", dir).Int("files", len(files)).Msg("Directory scanned")
	return files, nil
}

// BuildJobs pairs every source with its destination path under the output
// config's naming rule. The destination directory is created and probed for
// writability first.
func (s *Service) BuildJobs(sources []string, out domain.OutputConfig) ([]domain.ImageJob, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	destDir := out.DestinationDir
	if destDir == "" {
		destDir = filepath.Join(filepath.Dir(sources[0]), "watermarked")
	}
	if err := s.ValidateDestination(destDir); err != nil {
		return nil, err
	}

	jobs := make([]domain.ImageJob, 0, len(sources))
	for i, src := range sources {
		jobs = append(jobs, domain.ImageJob{
			SourcePath:      src,
			DestinationPath: filepath.Join(destDir, OutputName(src, out, i)),
		})
	}
	return jobs, nil
}

// OutputName derives the output file name for one source under the naming
// rule: "original" keeps the stem, "numbered" appends a 3-digit index,
// "suffix" (the default) appends the configured suffix.
func OutputName(sourcePath string, out domain.OutputConfig, index int) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	switch out.NameRule {
	case domain.NameRuleOriginal:
	case domain.NameRuleNumbered:
		stem = fmt.Sprintf("%s_%03d", stem, index+1)
	default:
		suffix := out.Suffix
		if suffix == "" {
			suffix = domain.DefaultSuffix
		}
		stem += suffix
	}

	ext := ".jpg"
	if out.Format == domain.FormatPNG {
		ext = ".png"
	}
	return stem + ext
}

// ValidateDestination creates the directory if needed and probes write
// permission with a throwaway file.
func (s *Service) ValidateDestination(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("destination %s is a file, not a directory", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	probe := filepath.Join(dir, ".batchmark_write_probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return fmt.Errorf("destination directory is not writable: %w", err)
	}
	os.Remove(probe)
	return nil
}

// DiskSpace reports the estimated output size of a batch against the free
// space at the destination.
type DiskSpace struct {
	EstimatedOutput int64
	Available       int64
	Sufficient      bool
}

// CheckDiskSpace estimates output size from input sizes and the output
// format (JPEG shrinks with quality, PNG tends to grow) and compares it with
// the free space on the destination filesystem.
func (s *Service) CheckDiskSpace(destDir string, sources []string, out domain.OutputConfig) (DiskSpace, error) {
	var totalInput int64
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			continue
		}
		totalInput += info.Size()
	}

	factor := 1.2
	if out.Format == domain.FormatJPEG {
		quality := out.JPEGQuality
		if quality == 0 {
			quality = domain.DefaultJPEGQuality
		}
		factor = 0.8 * float64(quality) / 100
	}
	estimated := int64(float64(totalInput) * factor)

	var stat unix.Statfs_t
	if err := unix.Statfs(destDir, &stat); err != nil {
		return DiskSpace{}, fmt.Errorf("failed to stat destination filesystem: %w", err)
	}
	available := int64(stat.Bavail) * stat.Bsize

	return DiskSpace{
		EstimatedOutput: estimated,
		Available:       available,
		Sufficient:      available > estimated,
	}, nil
}
