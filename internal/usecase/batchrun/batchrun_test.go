package batchrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
	"testing"

	"batchmark/internal/domain"
	"batchmark/internal/repository/batches"
	"batchmark/internal/usecase/render"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type fakeBatchRepo struct {
	mu       sync.Mutex
	records  map[string]*domain.Batch
	failures map[string][]domain.Failure
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{
		records:  make(map[string]*domain.Batch),
		failures: make(map[string][]domain.Failure),
	}
}

func (r *fakeBatchRepo) Save(_ context.Context, b *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.records[b.ID] = &cp
	return nil
}

func (r *fakeBatchRepo) GetByID(_ context.Context, id string) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.records[id]
	if !ok {
		return nil, batches.ErrBatchNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBatchRepo) UpdateStatus(_ context.Context, id string, status domain.BatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.records[id]
	if !ok {
		return batches.ErrBatchNotFound
	}
	b.Status = status
	return nil
}

func (r *fakeBatchRepo) ListFailures(_ context.Context, batchID string) ([]domain.Failure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[batchID], nil
}

func (r *fakeBatchRepo) List(_ context.Context, limit, offset int) ([]domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Batch
	for _, b := range r.records {
		out = append(out, *b)
	}
	return out, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	sent  [][]byte
	keys  []string
	fail  bool
	calls int
}

func (p *fakePublisher) Send(_ context.Context, _ retry.Strategy, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail {
		return fmt.Errorf("broker unavailable")
	}
	p.keys = append(p.keys, string(key))
	p.sent = append(p.sent, value)
	return nil
}

type fakeTemplates struct {
	store map[string]domain.Template
}

func (t *fakeTemplates) Save(tpl domain.Template) error {
	t.store[tpl.Name] = tpl
	return nil
}

func (t *fakeTemplates) Load(name string) (domain.Template, error) {
	tpl, ok := t.store[name]
	if !ok {
		return domain.Template{}, errors.New("template not found")
	}
	return tpl, nil
}

func (t *fakeTemplates) List() ([]string, error) { return nil, nil }
func (t *fakeTemplates) Delete(string) error     { return nil }

func newUsecase(t *testing.T, repo *fakeBatchRepo, pub *fakePublisher) *BatchUsecase {
	t.Helper()
	renderer, err := render.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	tpls := &fakeTemplates{store: make(map[string]domain.Template)}
	strategy := retry.Strategy{Attempts: 1, Delay: 0, Backoff: 1}
	return NewBatchUsecase(repo, pub, tpls, renderer, &zlog.Logger, strategy)
}

func testJobs(n int) []domain.ImageJob {
	jobs := make([]domain.ImageJob, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, domain.ImageJob{
			SourcePath:      fmt.Sprintf("in/%d.jpg", i),
			DestinationPath: fmt.Sprintf("out/%d.jpg", i),
		})
	}
	return jobs
}

func TestSubmitQueuesTask(t *testing.T) {
	repo := newFakeBatchRepo()
	pub := &fakePublisher{}
	uc := newUsecase(t, repo, pub)

	batch, err := uc.Submit(context.Background(), testJobs(3), domain.DefaultWatermarkConfig(), domain.DefaultOutputConfig())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if batch.Status != domain.StatusRunning {
		t.Errorf("status = %s, want %s", batch.Status, domain.StatusRunning)
	}
	if batch.Total != 3 {
		t.Errorf("total = %d, want 3", batch.Total)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.sent))
	}
	if pub.keys[0] != batch.ID {
		t.Errorf("message key = %q, want batch id %q", pub.keys[0], batch.ID)
	}

	stored, err := repo.GetByID(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.StatusRunning {
		t.Errorf("stored status = %s, want %s", stored.Status, domain.StatusRunning)
	}
}

func TestSubmitRejectsInvalidConfig(t *testing.T) {
	repo := newFakeBatchRepo()
	pub := &fakePublisher{}
	uc := newUsecase(t, repo, pub)

	wm := domain.DefaultWatermarkConfig()
	wm.Count = 50

	_, err := uc.Submit(context.Background(), testJobs(1), wm, domain.DefaultOutputConfig())
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if len(repo.records) != 0 {
		t.Errorf("record saved for rejected batch")
	}
	if pub.calls != 0 {
		t.Errorf("message published for rejected batch")
	}
}

func TestSubmitRejectsEmptyJobs(t *testing.T) {
	uc := newUsecase(t, newFakeBatchRepo(), &fakePublisher{})

	_, err := uc.Submit(context.Background(), nil, domain.DefaultWatermarkConfig(), domain.DefaultOutputConfig())
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestSubmitMarksFailedWhenQueueDown(t *testing.T) {
	repo := newFakeBatchRepo()
	pub := &fakePublisher{fail: true}
	uc := newUsecase(t, repo, pub)

	_, err := uc.Submit(context.Background(), testJobs(2), domain.DefaultWatermarkConfig(), domain.DefaultOutputConfig())
	if err == nil {
		t.Fatal("want error when broker is down")
	}

	for _, b := range repo.records {
		if b.Status != domain.StatusFailed {
			t.Errorf("status = %s, want %s", b.Status, domain.StatusFailed)
		}
	}
}

func TestPreviewScalesDown(t *testing.T) {
	uc := newUsecase(t, newFakeBatchRepo(), &fakePublisher{})

	var buf bytes.Buffer
	src := image.NewNRGBA(image.Rect(0, 0, 1600, 1200))
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png encode: %v", err)
	}

	data, scale, err := uc.Preview(&buf, domain.DefaultWatermarkConfig(), 800)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if scale != 0.5 {
		t.Errorf("scale = %v, want 0.5", scale)
	}
	if len(data) < 8 || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("preview is not a PNG")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Errorf("preview = %dx%d, want 800x600", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPreviewRejectsGarbage(t *testing.T) {
	uc := newUsecase(t, newFakeBatchRepo(), &fakePublisher{})

	_, _, err := uc.Preview(bytes.NewReader([]byte("not an image")), domain.DefaultWatermarkConfig(), 800)
	if !errors.Is(err, domain.ErrUnsupportedImageFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedImageFormat", err)
	}
}

func TestListFailuresUnknownBatch(t *testing.T) {
	uc := newUsecase(t, newFakeBatchRepo(), &fakePublisher{})

	_, err := uc.ListFailures(context.Background(), "nope")
	if !errors.Is(err, batches.ErrBatchNotFound) {
		t.Fatalf("err = %v, want ErrBatchNotFound", err)
	}
}
