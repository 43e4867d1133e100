package domain

import "time"

// ImageJob is one unit of batch work. Paths are storage keys: filesystem
// paths for the CLI, object keys for the MinIO-backed worker.
type ImageJob struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
}

type Failure struct {
	Path    string    `json:"path"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type BatchStatus string

const (
	StatusIdle      BatchStatus = "idle"
	StatusRunning   BatchStatus = "running"
	StatusCompleted BatchStatus = "completed"
	StatusCanceled  BatchStatus = "canceled"
	StatusFailed    BatchStatus = "failed"
)

// BatchResult summarizes one run. Failed preserves job submission order.
type BatchResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    []Failure   `json:"failed"`
	Canceled  bool        `json:"canceled"`
	Status    BatchStatus `json:"status"`
}

// Batch is the persisted record of a run.
type Batch struct {
	ID        string
	Status    BatchStatus
	Total     int
	Completed int
	Succeeded int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BatchTask is the broker message handed from the API to the worker.
type BatchTask struct {
	ID        string          `json:"id"`
	Jobs      []ImageJob      `json:"jobs"`
	Watermark WatermarkConfig `json:"watermark_config"`
	Output    OutputConfig    `json:"output_config"`
}
