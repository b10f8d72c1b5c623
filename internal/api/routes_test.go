package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/db"
	"github.com/fireshare/trim-agent/internal/gallery"
	"github.com/fireshare/trim-agent/internal/hover"
	"github.com/fireshare/trim-agent/internal/logging"
	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/thumbnail"
	"github.com/fireshare/trim-agent/internal/trim"
)

const testToken = "test-token-0123456789"

type fakeGallery struct {
	mu     sync.Mutex
	videos map[string]media.Video
}

func (g *fakeGallery) GetVideo(ctx context.Context, id string) (*media.Video, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.videos[id]
	if !ok {
		return nil, &gallery.APIError{StatusCode: http.StatusNotFound, Message: "video not found"}
	}
	return &v, nil
}

func (g *fakeGallery) ListVideos(ctx context.Context) ([]media.Video, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]media.Video, 0, len(g.videos))
	for _, v := range g.videos {
		out = append(out, v)
	}
	return out, nil
}

type fakeExtractor struct {
	count int

	mu       sync.Mutex
	gates    map[string]chan struct{}
	returned chan string
}

func newFakeExtractor(count int) *fakeExtractor {
	return &fakeExtractor{count: count, gates: make(map[string]chan struct{}), returned: make(chan string, 16)}
}

// hold blocks extractions of id until the returned func is called.
func (f *fakeExtractor) hold(id string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[id] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeExtractor) Extract(ctx context.Context, d media.Descriptor, height int) ([]thumbnail.Sample, error) {
	f.mu.Lock()
	gate := f.gates[d.ID]
	f.mu.Unlock()
	defer func() {
		select {
		case f.returned <- d.ID:
		default:
		}
	}()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([]thumbnail.Sample, f.count)
	for i := range out {
		out[i] = thumbnail.Sample{
			Time:  float64(i) * d.Duration / float64(f.count),
			Image: []byte(fmt.Sprintf("frame-%d", i)),
		}
	}
	return out, nil
}

type fakeTrimmer struct {
	mu       sync.Mutex
	requests []gallery.TrimRequest
	err      error
}

func (f *fakeTrimmer) Trim(ctx context.Context, req gallery.TrimRequest) (*gallery.TrimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &gallery.TrimResult{VideoID: req.VideoID}, nil
}

func (f *fakeTrimmer) Requests() []gallery.TrimRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gallery.TrimRequest(nil), f.requests...)
}

type testEnv struct {
	cfg       ServerConfig
	service   *catalog.Service
	gallery   *fakeGallery
	trimmer   *fakeTrimmer
	extractor *fakeExtractor
}

func testVideo(id, title string, duration float64, views int, age time.Duration) media.Video {
	return media.Video{
		VideoID:   id,
		Extension: ".mp4",
		Info:      media.Info{Title: title, Duration: duration, Width: 1920, Height: 1080, Has720p: true},
		ViewCount: views,
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(-age),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := catalog.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), catalog.KeyAuthToken, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	g := &fakeGallery{videos: map[string]media.Video{
		"a": testVideo("a", "Clutch", 10, 10, 3*time.Hour),
		"b": testVideo("b", "Ace", 30, 50, time.Hour),
		"c": testVideo("c", "Bomb", 60, 0, 2*time.Hour),
	}}
	logger := logging.Discard()
	locator := media.Locator{BaseURL: "http://gallery", ServedBy: media.ServedByNginx}
	svc := catalog.NewService(repo, g, locator, logger)
	trimmer := &fakeTrimmer{}
	extractor := newFakeExtractor(10)

	sessions := trim.NewManager()
	t.Cleanup(sessions.CloseAll)

	return &testEnv{
		cfg: ServerConfig{
			Catalog:         svc,
			Repository:      repo,
			Sessions:        sessions,
			Extractor:       extractor,
			Trimmer:         trimmer,
			Locator:         locator,
			ThumbnailHeight: thumbnail.DefaultHeight,
			SuccessDelay:    time.Millisecond,
			Logger:          logger,
			StartTime:       time.Now(),
		},
		service:   svc,
		gallery:   g,
		trimmer:   trimmer,
		extractor: extractor,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	NewRouter(e.cfg).ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body = %s", err, rr.Body.String())
	}
	return body
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	NewRouter(env.cfg).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["sessions"] != float64(0) {
		t.Errorf("sessions = %v, want 0", body["sessions"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestListVideos_Sorts(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, http.MethodPost, "/videos/refresh", nil); rr.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", rr.Code, rr.Body.String())
	}

	tests := []struct {
		sort string
		want []string
	}{
		{"", []string{"b", "c", "a"}},
		{"oldest", []string{"a", "c", "b"}},
		{"az", []string{"b", "c", "a"}},
		{"most_views", []string{"b", "a", "c"}},
		{"least_views", []string{"c", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run("sort="+tt.sort, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/videos?sort="+tt.sort, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			var resp VideosResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Videos) != len(tt.want) {
				t.Fatalf("videos = %d, want %d", len(resp.Videos), len(tt.want))
			}
			for i, v := range resp.Videos {
				if v.VideoID != tt.want[i] {
					t.Fatalf("video[%d] = %s, want %s", i, v.VideoID, tt.want[i])
				}
			}
		})
	}
}

func TestListVideos_Fields(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/videos/refresh", nil)

	rr := env.do(t, http.MethodGet, "/videos?sort=za", nil)
	var resp VideosResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sort != "za" {
		t.Errorf("sort = %q, want za", resp.Sort)
	}
	first := resp.Videos[0]
	if first.VideoID != "a" || first.DurationClock != "00:00:10" {
		t.Errorf("first video = %+v", first)
	}
	if first.PosterURL != "http://gallery/_content/derived/a/poster.jpg" {
		t.Errorf("poster_url = %q", first.PosterURL)
	}
}

func TestListVideos_BadSort(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/videos?sort=random", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "BAD_REQUEST" {
		t.Errorf("code = %v, want BAD_REQUEST", body["code"])
	}
}

func TestListVideos_Gzip(t *testing.T) {
	env := newTestEnv(t)
	env.gallery.mu.Lock()
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("v%02d", i)
		env.gallery.videos[id] = testVideo(id, "Round "+id, 45, i, time.Duration(i)*time.Minute)
	}
	env.gallery.mu.Unlock()
	env.do(t, http.MethodPost, "/videos/refresh", nil)

	rr := env.do(t, http.MethodGet, "/videos", map[string]string{"Accept-Encoding": "gzip"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	var resp VideosResponse
	if err := json.NewDecoder(zr).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Videos) != 43 {
		t.Errorf("videos = %d, want 43", len(resp.Videos))
	}
}

func TestHoverHandlers(t *testing.T) {
	env := newTestEnv(t)
	p := hover.NewPrefetcher(context.Background(), time.Hour, env.service.Prefetch, logging.Discard())
	t.Cleanup(p.Stop)
	env.cfg.Prefetcher = p

	if rr := env.do(t, http.MethodPost, "/videos/a/hover", nil); rr.Code != http.StatusAccepted {
		t.Fatalf("enter status = %d", rr.Code)
	}
	rr := env.do(t, http.MethodDelete, "/videos/a/hover", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("leave status = %d", rr.Code)
	}
	if body := decodeJSONBody(t, rr); body["pending"] != true {
		t.Errorf("pending = %v, want true", body["pending"])
	}

	rr = env.do(t, http.MethodDelete, "/videos/a/hover", nil)
	if body := decodeJSONBody(t, rr); body["pending"] != false {
		t.Errorf("second leave pending = %v, want false", body["pending"])
	}
}

func TestHoverHandlers_Disabled(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, http.MethodPost, "/videos/a/hover", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestListTrims(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.service.Record(ctx, trim.Outcome{
		ID:       "t1",
		Request:  gallery.TrimRequest{VideoID: "a", StartTime: 4, EndTime: 7},
		Finished: true,
		Err:      &gallery.APIError{StatusCode: 500, Message: "disk full"},
	})

	rr := env.do(t, http.MethodGet, "/trims", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp TrimsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Trims) != 1 || resp.Trims[0].Status != catalog.TrimStatusFailed {
		t.Fatalf("trims = %+v", resp.Trims)
	}

	status := env.do(t, http.MethodGet, "/status", nil)
	if body := decodeJSONBody(t, status); body["state"] != "error" || body["last_error"] == "" {
		t.Errorf("status = %v", body)
	}

	for _, q := range []string{"limit=abc", "limit=1000", "limit=-1"} {
		if rr := env.do(t, http.MethodGet, "/trims?"+q, nil); rr.Code != http.StatusBadRequest {
			t.Errorf("/trims?%s status = %d, want 400", q, rr.Code)
		}
	}
}

func TestStatusHandler_Idle(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Refresher = catalog.NewRefresher(env.service, time.Hour, logging.Discard())

	rr := env.do(t, http.MethodGet, "/status", nil)
	body := decodeJSONBody(t, rr)
	if body["state"] != "idle" {
		t.Errorf("state = %v, want idle", body["state"])
	}

	env.cfg.Refresher.Pause()
	rr = env.do(t, http.MethodGet, "/status", nil)
	if body := decodeJSONBody(t, rr); body["state"] != "paused" {
		t.Errorf("state = %v, want paused", body["state"])
	}
}

func TestSessionRoutes_NotFound(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/sessions/nope", "/sessions/nope/thumbnails/0", "/sessions/nope/edl"} {
		rr := env.do(t, http.MethodGet, path, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rr.Code)
		}
	}
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
