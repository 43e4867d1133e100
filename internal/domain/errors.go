package domain

import "errors"

var (
	// ErrInvalidConfig is fatal for the whole batch and is raised before
	// any job executes.
	ErrInvalidConfig = errors.New("invalid config")

	// Per-job failures. They are recorded by the scheduler and never abort
	// the batch.
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	ErrTextRender             = errors.New("text render failed")
	ErrIOFailure              = errors.New("i/o failure")
)

type ErrorKind string

const (
	KindInvalidConfig          ErrorKind = "invalid_config"
	KindInvalidImageDimensions ErrorKind = "invalid_image_dimensions"
	KindUnsupportedImageFormat ErrorKind = "unsupported_image_format"
	KindTextRender             ErrorKind = "text_render_error"
	KindIOFailure              ErrorKind = "io_failure"
)

// KindOf maps an error to its taxonomy kind. Anything outside the known
// sentinels is reported as an I/O failure, the catch-all for collaborator
// errors surfacing inside a job.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, ErrInvalidImageDimensions):
		return KindInvalidImageDimensions
	case errors.Is(err, ErrUnsupportedImageFormat):
		return KindUnsupportedImageFormat
	case errors.Is(err, ErrTextRender):
		return KindTextRender
	default:
		return KindIOFailure
	}
}
