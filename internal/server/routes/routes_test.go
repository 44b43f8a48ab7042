package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dropview/dropview/internal/cache"
	"github.com/dropview/dropview/internal/control"
	"github.com/dropview/dropview/internal/metrics"
)

func TestControlAcceptsFileList(t *testing.T) {
	env := newRoutesEnv(t)

	body := `{"type":"FILE_LIST","files":{"index.html":"PGgxPmhpPC9oMT4=","data/a.json":{"content":"e30=","type":"application/json"}}}`
	resp := env.do(t, "POST", "/-/control", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var payload acceptedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.JobID == "" || payload.Kind != string(control.KindReplaceAll) || payload.Files != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if env.volatile.Len() != 2 {
		t.Fatalf("volatile tier should hold 2 entries, got %d", env.volatile.Len())
	}

	env.drain(t)
	if _, err := env.store.Get(context.Background(), "data/a.json"); err != nil {
		t.Fatalf("durable store should contain data/a.json: %v", err)
	}
}

func TestControlIgnoresMalformedPayload(t *testing.T) {
	env := newRoutesEnv(t)

	for _, body := range []string{`not json`, `{"type":"FILE_LIST"}`, `{"type":"RELOAD"}`, `[]`} {
		resp := env.do(t, "POST", "/-/control", body)
		if resp.StatusCode != fiber.StatusNoContent {
			t.Fatalf("payload %s: expected 204, got %d", body, resp.StatusCode)
		}
	}
	if env.volatile.Len() != 0 {
		t.Fatalf("ignored payloads must not touch the volatile tier")
	}
}

func TestControlReportsSkippedEntries(t *testing.T) {
	env := newRoutesEnv(t)

	resp := env.do(t, "POST", "/-/control", `{"type":"FILE_LIST","files":{"ok.css":"Ym9keXt9","bad.png":42}}`)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var payload acceptedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Files != 1 || len(payload.Skipped) != 1 || payload.Skipped[0] != "bad.png" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestControlClearPersistence(t *testing.T) {
	env := newRoutesEnv(t)
	env.do(t, "POST", "/-/control", `{"type":"FILE_LIST","files":{"index.html":"aGk="}}`)

	resp := env.do(t, "POST", "/-/control", `{"type":"CLEAR_PERSISTENCE"}`)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if env.volatile.Len() != 0 {
		t.Fatalf("volatile tier should be empty after clear")
	}
	env.drain(t)
	if env.store.len() != 0 {
		t.Fatalf("durable store should be empty after clear")
	}
}

func TestControlReturns503WhenClosed(t *testing.T) {
	env := newRoutesEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := env.ctrl.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	resp := env.do(t, "POST", "/-/control", `{"type":"CLEAR_PERSISTENCE"}`)
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestDiagnosticsStatus(t *testing.T) {
	env := newRoutesEnv(t)
	env.do(t, "POST", "/-/control", `{"type":"FILE_LIST","files":{"b.js":"","a.html":"aGk="}}`)
	env.drain(t)

	resp := env.do(t, "GET", "/-/status", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if payload.Backend != "memory-test" {
		t.Fatalf("unexpected backend %q", payload.Backend)
	}
	if payload.Volatile.Entries != 2 || payload.Volatile.Paths[0] != "a.html" {
		t.Fatalf("unexpected volatile payload: %+v", payload.Volatile)
	}
	if payload.Sync.LastJob == nil || payload.Sync.LastJob.Kind != control.KindReplaceAll {
		t.Fatalf("expected last job to be replace_all, got %+v", payload.Sync.LastJob)
	}
}

func TestDiagnosticsMetrics(t *testing.T) {
	env := newRoutesEnv(t)
	env.do(t, "POST", "/-/control", `{"type":"FILE_LIST","files":{"a.html":"aGk="}}`)
	env.drain(t)

	resp := env.do(t, "GET", "/-/metrics", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "dropview_volatile_entries 1") {
		t.Fatalf("metrics output missing volatile gauge:\n%s", string(body))
	}
	if !strings.Contains(string(body), `dropview_sync_total{command="replace_all",result="ok"} 1`) {
		t.Fatalf("metrics output missing sync counter:\n%s", string(body))
	}
}

type routesEnv struct {
	app      *fiber.App
	volatile *cache.Volatile
	store    *memoryStore
	ctrl     *control.Controller
}

func newRoutesEnv(t *testing.T) *routesEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	volatile := cache.NewVolatile()
	store := newMemoryStore()
	collector := metrics.New()
	ctrl, err := control.New(control.Options{
		Volatile: volatile,
		Store:    store,
		Logger:   logger,
		Metrics:  collector,
	})
	if err != nil {
		t.Fatalf("control.New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ctrl.Close(ctx)
	})

	app := fiber.New()
	RegisterControlRoutes(app, ctrl, logger)
	RegisterDiagnosticsRoutes(app, DiagnosticsOptions{
		Backend:    "memory-test",
		Volatile:   volatile,
		Controller: ctrl,
		Metrics:    collector,
	})

	return &routesEnv{app: app, volatile: volatile, store: store, ctrl: ctrl}
}

func (e *routesEnv) do(t *testing.T, method, target, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://localhost"+target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	return resp
}

// drain 等待所有已排队的持久层任务执行完毕。
func (e *routesEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		if e.ctrl.Status().Pending == 0 {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for durable jobs")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type memoryStore struct {
	mu    sync.Mutex
	files map[string]cache.StoredFile
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: map[string]cache.StoredFile{}}
}

func (s *memoryStore) Initialize(context.Context) error { return nil }
func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) PutAll(_ context.Context, files []cache.StoredFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		s.files[f.Path] = f
	}
	return nil
}

func (s *memoryStore) Get(_ context.Context, path string) (*cache.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return &f, nil
}

func (s *memoryStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = map[string]cache.StoredFile{}
	return nil
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
