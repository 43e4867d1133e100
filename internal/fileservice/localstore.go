package fileservice

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wb-go/wbf/retry"
)

// LocalStore is the filesystem implementation of the scheduler's image
// store. It is what the CLI runs batches against.
type LocalStore struct {
	retries retry.Strategy
}

func NewLocalStore(retries retry.Strategy) *LocalStore {
	return &LocalStore{retries: retries}
}

func (l *LocalStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

func (l *LocalStore) Save(_ context.Context, path string, data io.Reader, _ int64, _ string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read output data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = retry.Do(func() error {
		return os.WriteFile(path, body, 0o644)
	}, l.retries)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
