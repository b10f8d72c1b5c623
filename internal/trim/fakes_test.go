package trim

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/fireshare/trim-agent/internal/gallery"
	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/thumbnail"
	"github.com/fireshare/trim-agent/internal/timeline"
)

type fakePlayer struct {
	mu    sync.Mutex
	calls []string
	fn    func(float64)
	pos   float64
}

func newFakePlayer() *fakePlayer { return &fakePlayer{} }

func (p *fakePlayer) record(c string) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

func (p *fakePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *fakePlayer) Seek(t float64) {
	p.mu.Lock()
	p.pos = t
	p.mu.Unlock()
	p.record("seek:" + strconv.FormatFloat(t, 'g', -1, 64))
}

func (p *fakePlayer) Play()  { p.record("play") }
func (p *fakePlayer) Pause() { p.record("pause") }

func (p *fakePlayer) OnTimeUpdate(fn func(float64)) func() {
	p.mu.Lock()
	p.fn = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.fn = nil
		p.mu.Unlock()
	}
}

// tick delivers a position update the way a real player would: from
// outside any player method.
func (p *fakePlayer) tick(t float64) {
	p.mu.Lock()
	fn := p.fn
	p.pos = t
	p.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (p *fakePlayer) subscribed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fn != nil
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlayer) Reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

type fakeTrimmer struct {
	mu    sync.Mutex
	reqs  []gallery.TrimRequest
	gate  chan struct{}
	err   error
	newID string
}

func (f *fakeTrimmer) Trim(ctx context.Context, req gallery.TrimRequest) (*gallery.TrimResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	id := req.VideoID
	if req.SaveAsNew {
		id = f.newID
	}
	return &gallery.TrimResult{VideoID: id}, nil
}

func (f *fakeTrimmer) Requests() []gallery.TrimRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gallery.TrimRequest(nil), f.reqs...)
}

type alertLog struct {
	mu     sync.Mutex
	alerts []Alert
}

func (l *alertLog) Notify(a Alert) {
	l.mu.Lock()
	l.alerts = append(l.alerts, a)
	l.mu.Unlock()
}

func (l *alertLog) All() []Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Alert(nil), l.alerts...)
}

// gatedExtractor blocks each extraction until its video is released.
type gatedExtractor struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	count int
	err   error
}

func newGatedExtractor() *gatedExtractor {
	return &gatedExtractor{gates: make(map[string]chan struct{}), count: 10}
}

func (g *gatedExtractor) gate(id string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[id]
	if !ok {
		ch = make(chan struct{})
		g.gates[id] = ch
	}
	return ch
}

func (g *gatedExtractor) release(id string) { close(g.gate(id)) }

func (g *gatedExtractor) Extract(ctx context.Context, d media.Descriptor, height int) ([]thumbnail.Sample, error) {
	select {
	case <-g.gate(d.ID):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	out := make([]thumbnail.Sample, g.count)
	for i := range out {
		out[i] = thumbnail.Sample{
			Time:  float64(i) * d.Duration / float64(g.count),
			Image: []byte(fmt.Sprintf("%s-%d", d.ID, i)),
		}
	}
	return out, nil
}

type fakeSurface struct {
	mu        sync.Mutex
	listeners map[int]timeline.Listener
	next      int
	attached  int
	released  int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{listeners: make(map[int]timeline.Listener)}
}

func (f *fakeSurface) Listen(l timeline.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.listeners[id] = l
	f.attached++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.listeners[id]; ok {
			delete(f.listeners, id)
			f.released++
		}
	}
}

func (f *fakeSurface) snapshot() []timeline.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]timeline.Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		out = append(out, l)
	}
	return out
}

func (f *fakeSurface) move(x float64) {
	for _, l := range f.snapshot() {
		l.Move(x, track)
	}
}

func (f *fakeSurface) up() {
	for _, l := range f.snapshot() {
		l.Up()
	}
}

func (f *fakeSurface) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

var track = timeline.Bounds{Left: 0, Width: 100}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for submission to finish")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
