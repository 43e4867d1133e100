package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateWatermarkConfig checks the parameter domains from the config
// schema. Violations are fatal for the whole batch, so callers must reject
// before any rendering starts.
func ValidateWatermarkConfig(cfg WatermarkConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Count < MinWatermarkCount || cfg.Count > MaxWatermarkCount {
		return fmt.Errorf("%w: count %d outside [%d,%d]", ErrInvalidConfig, cfg.Count, MinWatermarkCount, MaxWatermarkCount)
	}
	if strings.Count(cfg.Text, "\n") > MaxTextLines-1 {
		return fmt.Errorf("%w: text exceeds %d lines", ErrInvalidConfig, MaxTextLines)
	}
	if strings.TrimSpace(cfg.Text) == "" {
		return fmt.Errorf("%w: text is blank", ErrInvalidConfig)
	}
	return nil
}

func ValidateOutputConfig(cfg OutputConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateTemplate gates configs loaded from disk. Templates with missing or
// out-of-domain fields must fail fast here rather than be silently defaulted.
func ValidateTemplate(t Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is blank", ErrInvalidConfig)
	}
	if err := ValidateWatermarkConfig(t.Watermark); err != nil {
		return err
	}
	return ValidateOutputConfig(t.Output)
}
