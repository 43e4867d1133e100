package domain

import (
	"errors"
	"testing"
)

func TestValidateOutputConfigQuality(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OutputConfig
		wantErr bool
	}{
		// Quality is ignored for PNG, so leaving it unset must pass.
		{"png unset quality", OutputConfig{Format: FormatPNG}, false},
		{"jpeg unset quality", OutputConfig{Format: FormatJPEG}, false},
		{"jpeg explicit quality", OutputConfig{Format: FormatJPEG, JPEGQuality: 75}, false},
		{"jpeg quality below range", OutputConfig{Format: FormatJPEG, JPEGQuality: 30}, true},
		{"jpeg quality above range", OutputConfig{Format: FormatJPEG, JPEGQuality: 101}, true},
		{"unknown format", OutputConfig{Format: "webp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputConfig(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("err = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateWatermarkConfigCount(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{"minimum", MinWatermarkCount, false},
		{"maximum", MaxWatermarkCount, false},
		{"zero", 0, true},
		{"above maximum", MaxWatermarkCount + 1, true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultWatermarkConfig()
			cfg.Count = tt.count

			err := ValidateWatermarkConfig(cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("err = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateWatermarkConfigText(t *testing.T) {
	cfg := DefaultWatermarkConfig()
	cfg.Text = "one\ntwo\nthree"
	if err := ValidateWatermarkConfig(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("three lines: err = %v, want ErrInvalidConfig", err)
	}

	cfg = DefaultWatermarkConfig()
	cfg.Text = "   "
	if err := ValidateWatermarkConfig(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("blank text: err = %v, want ErrInvalidConfig", err)
	}
}
