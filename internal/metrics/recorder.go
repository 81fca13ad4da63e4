// Runtime counters for the capture and render path
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metric names exposed by Snapshot.
const (
	FramesCaptured  = "frames_captured"
	FramesDropped   = "frames_dropped"
	SessionsStarted = "sessions_started"
	SessionFailures = "session_failures"
	Renders         = "renders"
	RenderFailures  = "render_failures"
	LastRenderMs    = "last_render_ms"
	AvgRenderMs     = "avg_render_ms"
	LastFaceCount   = "last_face_count"
)

// Recorder collects counters from the frame source and the render pipeline.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	framesCaptured  atomic.Uint64
	framesDropped   atomic.Uint64
	sessionsStarted atomic.Uint64
	sessionFailures atomic.Uint64
	renders         atomic.Uint64
	renderFailures  atomic.Uint64

	mu          sync.Mutex
	lastRender  time.Duration
	totalRender time.Duration
	lastFaces   int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) FrameCaptured() {
	if r == nil {
		return
	}
	r.framesCaptured.Add(1)
}

// SetDropped records the drop total reported by the frame slot.
func (r *Recorder) SetDropped(n uint64) {
	if r == nil {
		return
	}
	r.framesDropped.Store(n)
}

func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.sessionsStarted.Add(1)
}

func (r *Recorder) SessionFailed() {
	if r == nil {
		return
	}
	r.sessionFailures.Add(1)
}

// RenderDone records one render pass.
func (r *Recorder) RenderDone(d time.Duration, faces int, failed bool) {
	if r == nil {
		return
	}
	r.renders.Add(1)
	if failed {
		r.renderFailures.Add(1)
	}

	r.mu.Lock()
	r.lastRender = d
	r.totalRender += d
	r.lastFaces = faces
	r.mu.Unlock()
}

// Snapshot returns the current values keyed by metric name.
func (r *Recorder) Snapshot() map[string]float64 {
	if r == nil {
		return map[string]float64{}
	}

	renders := r.renders.Load()

	r.mu.Lock()
	last := r.lastRender
	total := r.totalRender
	faces := r.lastFaces
	r.mu.Unlock()

	avg := 0.0
	if renders > 0 {
		avg = float64(total.Microseconds()) / 1000 / float64(renders)
	}

	return map[string]float64{
		FramesCaptured:  float64(r.framesCaptured.Load()),
		FramesDropped:   float64(r.framesDropped.Load()),
		SessionsStarted: float64(r.sessionsStarted.Load()),
		SessionFailures: float64(r.sessionFailures.Load()),
		Renders:         float64(renders),
		RenderFailures:  float64(r.renderFailures.Load()),
		LastRenderMs:    float64(last.Microseconds()) / 1000,
		AvgRenderMs:     avg,
		LastFaceCount:   float64(faces),
	}
}
