package domain

type FontSizeMode string

const (
	FontSizeAdaptive FontSizeMode = "adaptive"
	FontSizeManual   FontSizeMode = "manual"
)

type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpeg"
	FormatPNG  OutputFormat = "png"
)

type NameRule string

const (
	NameRuleOriginal NameRule = "original"
	NameRuleNumbered NameRule = "numbered"
	NameRuleSuffix   NameRule = "suffix"
)

// RGB is the watermark fill color. The alpha channel is always derived from
// WatermarkConfig.Opacity, never stored here.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// WatermarkConfig is the immutable parameter bundle for one layout+render
// call. Text may hold at most MaxTextLines newline-separated lines.
type WatermarkConfig struct {
	Text            string       `json:"text" validate:"required"`
	FontSizeMode    FontSizeMode `json:"font_size_mode" validate:"oneof=adaptive manual"`
	AdaptiveRatio   float64      `json:"adaptive_ratio" validate:"required_if=FontSizeMode adaptive,omitempty,gte=0.01,lte=0.2"`
	ManualFontSize  int          `json:"manual_font_size" validate:"required_if=FontSizeMode manual,omitempty,gte=12,lte=200"`
	Color           RGB          `json:"color"`
	Opacity         float64      `json:"opacity" validate:"gte=0,lte=1"`
	RotationDegrees float64      `json:"rotation_degrees" validate:"gte=0,lt=360"`
	Count           int          `json:"count"`
}

type OutputConfig struct {
	Format         OutputFormat `json:"format" validate:"oneof=jpeg png"`
	JPEGQuality    int          `json:"jpeg_quality" validate:"omitempty,gte=50,lte=100"`
	DestinationDir string       `json:"destination_dir"`
	NameRule       NameRule     `json:"name_rule" validate:"omitempty,oneof=original numbered suffix"`
	Suffix         string       `json:"suffix"`
}

// Template is a named, persisted pair of configs.
type Template struct {
	Name      string          `json:"name" validate:"required"`
	Watermark WatermarkConfig `json:"watermark_config" validate:"required"`
	Output    OutputConfig    `json:"output_config" validate:"required"`
}

const (
	MinFontSize = 12
	MaxFontSize = 200

	MinWatermarkCount = 1
	MaxWatermarkCount = 20

	MaxTextLines = 2

	// MarginRatio is the inset on each image side, as a fraction of the
	// shorter image dimension.
	MarginRatio = 0.10

	// TilePaddingRatio pads the text surface so anti-aliased edges are not
	// clipped, as a fraction of the font size.
	TilePaddingRatio = 0.15

	DefaultAdaptiveRatio = 0.04
	DefaultJPEGQuality   = 90
	DefaultOpacity       = 0.7
	DefaultRotation      = 45
	DefaultSuffix        = "_watermarked"
	DefaultPreviewSize   = 800

	DefaultWatermarkText = "© BatchMark"
)

func DefaultWatermarkConfig() WatermarkConfig {
	return WatermarkConfig{
		Text:            DefaultWatermarkText,
		FontSizeMode:    FontSizeAdaptive,
		AdaptiveRatio:   DefaultAdaptiveRatio,
		ManualFontSize:  36,
		Color:           RGB{R: 255},
		Opacity:         DefaultOpacity,
		RotationDegrees: DefaultRotation,
		Count:           1,
	}
}

func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Format:      FormatJPEG,
		JPEGQuality: DefaultJPEGQuality,
		NameRule:    NameRuleSuffix,
		Suffix:      DefaultSuffix,
	}
}
