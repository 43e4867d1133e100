package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"

	"batchmark/internal/domain"
	"batchmark/internal/usecase/render"

	"github.com/wb-go/wbf/zlog"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type fakeStore struct {
	mu    sync.Mutex
	files map[string][]byte
	saved map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files: make(map[string][]byte),
		saved: make(map[string][]byte),
	}
}

func (f *fakeStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Save(_ context.Context, path string, data io.Reader, _ int64, _ string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[path] = body
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	updates []int
	total   int
	onEach  func(completed int)
}

func (r *recordingSink) Update(completed, total int, _ string) {
	r.mu.Lock()
	r.updates = append(r.updates, completed)
	r.total = total
	cb := r.onEach
	r.mu.Unlock()
	if cb != nil {
		cb(completed)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func testScheduler(t *testing.T, store *fakeStore, concurrency int) *Scheduler {
	t.Helper()
	renderer, err := render.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return NewScheduler(store, renderer, &zlog.Logger, concurrency)
}

func seedJobs(t *testing.T, store *fakeStore, n int) []domain.ImageJob {
	t.Helper()
	jobs := make([]domain.ImageJob, 0, n)
	for i := 0; i < n; i++ {
		src := fmt.Sprintf("in/img%02d.png", i)
		store.files[src] = pngBytes(t, 320, 240)
		jobs = append(jobs, domain.ImageJob{
			SourcePath:      src,
			DestinationPath: fmt.Sprintf("out/img%02d.jpeg", i),
		})
	}
	return jobs
}

func testConfigs() (domain.WatermarkConfig, domain.OutputConfig) {
	wm := domain.DefaultWatermarkConfig()
	wm.Text = "sample"
	wm.Count = 2
	return wm, domain.DefaultOutputConfig()
}

func TestRunSurvivesFailedJob(t *testing.T) {
	store := newFakeStore()
	jobs := seedJobs(t, store, 5)
	store.files[jobs[2].SourcePath] = []byte("corrupt data, not an image")

	wm, out := testConfigs()
	sink := &recordingSink{}

	result, err := testScheduler(t, store, 1).Run(context.Background(), jobs, wm, out, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Succeeded != 4 {
		t.Errorf("succeeded = %d, want 4", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(result.Failed))
	}
	if result.Failed[0].Path != jobs[2].SourcePath {
		t.Errorf("failed path = %q, want %q", result.Failed[0].Path, jobs[2].SourcePath)
	}
	if result.Failed[0].Kind != domain.KindUnsupportedImageFormat {
		t.Errorf("failure kind = %q, want %q", result.Failed[0].Kind, domain.KindUnsupportedImageFormat)
	}
	if result.Canceled || result.Status != domain.StatusCompleted {
		t.Errorf("status = %v canceled = %v, want completed/false", result.Status, result.Canceled)
	}
	if len(store.saved) != 4 {
		t.Errorf("saved outputs = %d, want 4", len(store.saved))
	}
	for _, data := range store.saved {
		if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
			t.Error("saved output is not jpeg")
		}
	}
}

func TestRunCancellation(t *testing.T) {
	store := newFakeStore()
	jobs := seedJobs(t, store, 6)
	wm, out := testConfigs()

	ctx, cancel := context.WithCancel(context.Background())
	const stopAfter = 2
	sink := &recordingSink{onEach: func(completed int) {
		if completed == stopAfter {
			cancel()
		}
	}}

	result, err := testScheduler(t, store, 1).Run(ctx, jobs, wm, out, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !result.Canceled {
		t.Error("canceled = false, want true")
	}
	if result.Status != domain.StatusCanceled {
		t.Errorf("status = %v, want canceled", result.Status)
	}
	if got := result.Succeeded + len(result.Failed); got != stopAfter {
		t.Errorf("succeeded+failed = %d, want %d", got, stopAfter)
	}
}

func TestRunRejectsInvalidConfigBeforeProcessing(t *testing.T) {
	store := newFakeStore()
	jobs := seedJobs(t, store, 3)

	wm, out := testConfigs()
	wm.Count = 0
	sink := &recordingSink{}

	_, err := testScheduler(t, store, 1).Run(context.Background(), jobs, wm, out, sink)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if len(sink.updates) != 0 {
		t.Errorf("progress updates = %d, want 0 (nothing processed)", len(sink.updates))
	}
	if len(store.saved) != 0 {
		t.Errorf("saved outputs = %d, want 0", len(store.saved))
	}
}

func TestRunProgressMonotonic(t *testing.T) {
	store := newFakeStore()
	jobs := seedJobs(t, store, 4)
	wm, out := testConfigs()
	sink := &recordingSink{}

	if _, err := testScheduler(t, store, 1).Run(context.Background(), jobs, wm, out, sink); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sink.total != len(jobs) {
		t.Errorf("total = %d, want %d", sink.total, len(jobs))
	}
	if len(sink.updates) != len(jobs) {
		t.Fatalf("updates = %d, want %d", len(sink.updates), len(jobs))
	}
	for i, completed := range sink.updates {
		if completed != i+1 {
			t.Errorf("update %d reported completed = %d, want %d", i, completed, i+1)
		}
	}
}

func TestRunParallel(t *testing.T) {
	store := newFakeStore()
	jobs := seedJobs(t, store, 8)
	store.files[jobs[5].SourcePath] = []byte("broken")

	wm, out := testConfigs()
	sink := &recordingSink{}

	result, err := testScheduler(t, store, 4).Run(context.Background(), jobs, wm, out, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Succeeded != 7 || len(result.Failed) != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 7/1", result.Succeeded, len(result.Failed))
	}
	if result.Failed[0].Path != jobs[5].SourcePath {
		t.Errorf("failed path = %q, want %q", result.Failed[0].Path, jobs[5].SourcePath)
	}

	if len(sink.updates) != len(jobs) {
		t.Fatalf("updates = %d, want %d", len(sink.updates), len(jobs))
	}
	for i, completed := range sink.updates {
		if completed != i+1 {
			t.Errorf("update %d reported completed = %d, want %d (not monotonic)", i, completed, i+1)
		}
	}
}

func TestRunAllJobsFailed(t *testing.T) {
	store := newFakeStore()
	jobs := []domain.ImageJob{
		{SourcePath: "in/missing-a.png", DestinationPath: "out/a.jpeg"},
		{SourcePath: "in/missing-b.png", DestinationPath: "out/b.jpeg"},
	}
	wm, out := testConfigs()

	result, err := testScheduler(t, store, 1).Run(context.Background(), jobs, wm, out, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != domain.StatusFailed {
		t.Errorf("status = %v, want failed", result.Status)
	}
	for _, f := range result.Failed {
		if f.Kind != domain.KindIOFailure {
			t.Errorf("failure kind = %q, want %q", f.Kind, domain.KindIOFailure)
		}
	}
}
