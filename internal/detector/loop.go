// internal/detector/loop.go

// Package detector runs the periodic detection loop: pull the latest
// frame, preprocess, infer, postprocess, suppress, publish.
package detector

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/modelportal/detection-service/internal/inference"
	"github.com/modelportal/detection-service/internal/metrics"
	"github.com/modelportal/detection-service/internal/model"
	"github.com/modelportal/detection-service/internal/pipeline"
)

var tracer = otel.Tracer("detection-service/detector")

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("detector already running")

// Status is the coarse state the loop reports to consumers.
type Status int32

const (
	// StatusIdle means the loop is not scheduled.
	StatusIdle Status = iota
	// StatusLoading means the model load sequence is in progress.
	StatusLoading
	// StatusRunning means the model is loaded and the loop is ticking.
	StatusRunning
	// StatusError means the model load failed; terminal until the
	// caller retries explicitly.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusRunning:
		return "running"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// FrameSource supplies the current frame on demand. ok=false means the
// source is not ready (e.g. no frame ingested yet); the loop treats that
// as a skipped tick, not an error.
type FrameSource interface {
	Next() (*pipeline.Frame, bool)
}

// Publisher receives each completed detection set. Publish must not
// block for long and must not fail the tick.
type Publisher interface {
	Publish(set Set)
}

// Set is one tick's detections. It replaces the previous set atomically;
// readers never observe a partially-updated set.
type Set struct {
	Detections []pipeline.Detection `json:"detections"`
	Seq        uint64               `json:"seq"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Runner owns one detection session: a single goroutine ticking on the
// configured interval. Ticks never overlap; a tick whose work outlasts
// the interval causes the next scheduled tick to be skipped, not queued.
type Runner struct {
	cfg        *model.Config
	frames     FrameSource
	loader     func() (inference.Engine, error)
	settings   *Settings
	publishers []Publisher

	mu      sync.Mutex
	engine  inference.Engine
	running bool
	stop    chan struct{}
	done    chan struct{}

	status  atomic.Int32
	loadErr atomic.Value // string

	latest atomic.Value // Set
	seq    atomic.Uint64
}

// New creates a Runner. loader is invoked at most once per successful
// run start, the first time a model is needed; the loaded engine is
// reused for the process lifetime. Publishers receive every completed
// detection set.
func New(cfg *model.Config, frames FrameSource, loader func() (inference.Engine, error), settings *Settings, publishers ...Publisher) *Runner {
	r := &Runner{
		cfg:        cfg,
		frames:     frames,
		loader:     loader,
		settings:   settings,
		publishers: publishers,
	}
	r.loadErr.Store("")
	return r
}

// Start transitions the loop from Idle to Running. If the model is not
// yet loaded the load sequence runs first; ticking does not begin until
// it finishes. Returns ErrAlreadyRunning if the loop is active.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.run(r.stop, r.done)
	return nil
}

// Stop cancels the schedule and waits for the loop goroutine to exit.
// No tick fires after Stop returns; an in-flight tick is allowed to
// complete but its result is discarded. Stopping an idle runner is a
// no-op, so cancellation is idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done

	if Status(r.status.Load()) == StatusRunning {
		r.setStatus(StatusIdle, "")
	}
}

// Retry clears a terminal load error and starts a new run, which retries
// the model load.
func (r *Runner) Retry() error {
	return r.Start()
}

// Running reports whether the loop is scheduled.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status returns the loop's coarse state and, in the error state, the
// load failure message.
func (r *Runner) Status() (Status, string) {
	return Status(r.status.Load()), r.loadErr.Load().(string)
}

// Latest returns the most recently published detection set. Before the
// first completed tick it returns an empty set.
func (r *Runner) Latest() Set {
	if v := r.latest.Load(); v != nil {
		return v.(Set)
	}
	return Set{Detections: []pipeline.Detection{}}
}

// Close stops the loop and releases the loaded engine, if any.
func (r *Runner) Close() error {
	r.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return nil
	}
	err := r.engine.Close()
	r.engine = nil
	return err
}

func (r *Runner) setStatus(s Status, errMsg string) {
	r.status.Store(int32(s))
	r.loadErr.Store(errMsg)
}

func (r *Runner) run(stop, done chan struct{}) {
	defer close(done)

	engine, err := r.ensureEngine()
	if err != nil {
		log.Printf("Model load failed: %v", err)
		r.setStatus(StatusError, err.Error())
		metrics.SetUnhealthy()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return
	}
	r.setStatus(StatusRunning, "")
	metrics.SetHealthy()

	_, _, interval := r.settings.Snapshot()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			r.tick(engine, stop)
			// Re-arm only after the tick completes: a slow tick causes
			// the next scheduled one to be skipped rather than queued,
			// and interval changes take effect here.
			_, _, interval = r.settings.Snapshot()
			timer.Reset(interval)
		}
	}
}

// ensureEngine loads the model on the first run and reuses the session
// on subsequent runs. The session is shared read-only across all ticks.
func (r *Runner) ensureEngine() (inference.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine != nil {
		return r.engine, nil
	}
	r.setStatus(StatusLoading, "")
	engine, err := r.loader()
	if err != nil {
		return nil, err
	}
	r.engine = engine
	return engine, nil
}

// tick runs one full pipeline pass. Every per-tick failure is contained
// here: logged, counted, and converted into a skipped tick.
func (r *Runner) tick(engine inference.Engine, stop chan struct{}) {
	_, span := tracer.Start(context.Background(), "detector.tick")
	defer span.End()

	start := time.Now()

	frame, ok := r.frames.Next()
	if !ok {
		metrics.RecordTickSkipped("frame_not_ready")
		return
	}

	confThreshold, iouThreshold, _ := r.settings.Snapshot()

	tensor, err := pipeline.Preprocess(frame, r.cfg)
	if err != nil {
		log.Printf("Tick skipped: %v", err)
		metrics.RecordTickSkipped("invalid_frame")
		span.RecordError(err)
		return
	}

	inferStart := time.Now()
	raw, err := engine.Run(tensor)
	metrics.RecordInferenceLatency(time.Since(inferStart).Seconds())
	if err != nil {
		log.Printf("Tick skipped: %v", err)
		metrics.RecordTickSkipped("inference_error")
		span.RecordError(err)
		return
	}

	candidates := pipeline.Postprocess(raw, r.cfg, frame.Width, frame.Height, confThreshold)
	detections := pipeline.Suppress(candidates, iouThreshold)
	if detections == nil {
		detections = []pipeline.Detection{}
	}

	// Discard the result if the schedule was cancelled mid-tick, so no
	// detection published after stop is ever observed.
	select {
	case <-stop:
		return
	default:
	}

	set := Set{
		Detections: detections,
		Seq:        r.seq.Add(1),
		Timestamp:  time.Now(),
	}
	r.latest.Store(set)
	for _, p := range r.publishers {
		p.Publish(set)
	}

	span.SetAttributes(
		attribute.Int("detections.candidates", len(candidates)),
		attribute.Int("detections.kept", len(detections)),
	)
	metrics.RecordTick(time.Since(start).Seconds(), len(detections))
}
