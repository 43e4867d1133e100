package batch

import (
	"context"
	"io"
)

// imageStore abstracts where job images live: the local filesystem for the
// CLI, MinIO for the worker.
type imageStore interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Save(ctx context.Context, path string, data io.Reader, size int64, contentType string) error
}

// ProgressSink receives one update after every job, success or failure.
// Updates are serialized and completed is monotonically increasing.
// Implementations must return promptly; the scheduler does not guard against
// a blocking sink.
type ProgressSink interface {
	Update(completed, total int, currentPath string)
}
