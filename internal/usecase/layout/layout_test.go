package layout

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"batchmark/internal/domain"
)

func baseConfig() domain.WatermarkConfig {
	cfg := domain.DefaultWatermarkConfig()
	cfg.Text = "confidential"
	return cfg
}

func TestComputeReferenceExample(t *testing.T) {
	cfg := baseConfig()
	cfg.Count = 4
	cfg.AdaptiveRatio = 0.04

	l, err := Compute(1920, 1080, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if l.FontSize != 43 {
		t.Errorf("font size = %d, want 43", l.FontSize)
	}
	if l.Rows != 2 || l.Cols != 2 {
		t.Errorf("grid = %dx%d, want 2x2", l.Rows, l.Cols)
	}
	if l.Margin != 108 {
		t.Errorf("margin = %v, want 108", l.Margin)
	}
	if len(l.Placements) != 4 {
		t.Fatalf("placements = %d, want 4", len(l.Placements))
	}

	wantCenters := [][2]float64{{534, 324}, {1386, 324}, {534, 756}, {1386, 756}}
	for i, want := range wantCenters {
		got := l.Placements[i]
		if math.Abs(got.CenterX-want[0]) > 1e-9 || math.Abs(got.CenterY-want[1]) > 1e-9 {
			t.Errorf("placement %d = (%v,%v), want (%v,%v)", i, got.CenterX, got.CenterY, want[0], want[1])
		}
	}
}

func TestComputeGridShapes(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		count      int
		rows, cols int
	}{
		{"single centered", 1000, 1000, 1, 1, 1},
		{"pair landscape", 1920, 1080, 2, 1, 2},
		{"pair portrait", 1080, 1920, 2, 2, 1},
		{"five landscape", 1920, 1080, 5, 2, 3},
		{"max count square", 1000, 1000, 20, 5, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Count = tt.count
			l, err := Compute(tt.w, tt.h, cfg)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if l.Rows != tt.rows || l.Cols != tt.cols {
				t.Errorf("grid = %dx%d, want %dx%d", l.Rows, l.Cols, tt.rows, tt.cols)
			}
			if l.Rows*l.Cols < tt.count {
				t.Errorf("grid holds %d cells for %d tiles", l.Rows*l.Cols, tt.count)
			}
			if len(l.Placements) != tt.count {
				t.Errorf("placements = %d, want %d", len(l.Placements), tt.count)
			}
		})
	}
}

func TestFontSizeClamped(t *testing.T) {
	cfg := baseConfig()
	cfg.AdaptiveRatio = 0.01
	l, err := Compute(50, 50, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if l.FontSize != domain.MinFontSize {
		t.Errorf("font size = %d, want clamped to %d", l.FontSize, domain.MinFontSize)
	}

	cfg.AdaptiveRatio = 0.2
	l, err = Compute(20000, 20000, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if l.FontSize != domain.MaxFontSize {
		t.Errorf("font size = %d, want clamped to %d", l.FontSize, domain.MaxFontSize)
	}
}

func TestManualFontSize(t *testing.T) {
	cfg := baseConfig()
	cfg.FontSizeMode = domain.FontSizeManual
	cfg.ManualFontSize = 72
	l, err := Compute(640, 480, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if l.FontSize != 72 {
		t.Errorf("font size = %d, want 72", l.FontSize)
	}
}

func TestComputeIdempotent(t *testing.T) {
	cfg := baseConfig()
	cfg.Count = 7
	cfg.RotationDegrees = 30

	first, err := Compute(1280, 720, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := Compute(1280, 720, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different layouts")
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	cfg := baseConfig()

	if _, err := Compute(0, 1080, cfg); !errors.Is(err, domain.ErrInvalidImageDimensions) {
		t.Errorf("zero width: err = %v, want ErrInvalidImageDimensions", err)
	}
	if _, err := Compute(1920, -5, cfg); !errors.Is(err, domain.ErrInvalidImageDimensions) {
		t.Errorf("negative height: err = %v, want ErrInvalidImageDimensions", err)
	}

	bad := cfg
	bad.Count = 0
	if _, err := Compute(1920, 1080, bad); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("zero count: err = %v, want ErrInvalidConfig", err)
	}

	bad = cfg
	bad.Count = 21
	if _, err := Compute(1920, 1080, bad); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("count over limit: err = %v, want ErrInvalidConfig", err)
	}

	bad = cfg
	bad.Opacity = 1.5
	if _, err := Compute(1920, 1080, bad); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("opacity over 1: err = %v, want ErrInvalidConfig", err)
	}
}
