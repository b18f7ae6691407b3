// Package app runs the acquire, estimate and publish loop of the cone
// steering pipeline.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/conesteer/internal/capture"
	"github.com/ayusman/conesteer/internal/hub"
	"github.com/ayusman/conesteer/internal/steering"
	"github.com/ayusman/conesteer/internal/store"
	"github.com/ayusman/conesteer/internal/telemetry"
	"github.com/ayusman/conesteer/internal/vision"
)

// Loop timing constants.
const (
	// PausedPoll is how often a disabled loop checks whether it was re-enabled.
	PausedPoll = 100 * time.Millisecond
	// RetryDelay is the wait after a transient read failure on a device.
	RetryDelay = 50 * time.Millisecond
)

// Viewer displays annotated frames. *vision.Viewer implements it.
type Viewer interface {
	Show(frame gocv.Mat)
}

// Config holds configuration options for the application.
type Config struct {
	Source    string
	Width     int
	Height    int
	FPS       int
	SessionID int

	Vision   vision.Config
	Steering steering.Config

	// Label is the text at the end of the bottom overlay line.
	Label string
	// FrameInterval paces the loop; zero reads frames back to back.
	FrameInterval time.Duration

	// FreezeThreshold enables freeze detection when positive.
	FreezeThreshold float64
	FreezeFrames    int

	// Store records every run when set.
	Store     *store.Store
	BatchSize int
	// Settings is stored with each run as its configuration.
	Settings string

	Sinks  []telemetry.Sink
	Hub    *hub.Hub
	Viewer Viewer

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// App owns the frame source, the detector and the only steering state.
type App struct {
	config    Config
	camera    capture.Camera
	detector  vision.Detector
	estimator *steering.Estimator
	freeze    *capture.FreezeDetector
	sinks     telemetry.MultiSink

	mu        sync.RWMutex
	state     steering.State
	frames    int64
	runID     string
	runSink   *telemetry.StoreSink
	frozen    bool
	enabled   bool
	callbacks []func(telemetry.Sample)

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Clock == nil {
		config.Clock = time.Now
	}

	a := &App{
		config:    config,
		camera:    capture.NewCamera(config.Source, config.Width, config.Height),
		detector:  vision.NewConeDetector(config.Vision),
		estimator: steering.NewEstimator(config.Steering),
		state:     steering.InitialState(),
		enabled:   true,
	}
	if config.FPS > 0 {
		a.camera.SetFPS(config.FPS)
	}
	if config.FreezeThreshold > 0 {
		a.freeze = capture.NewFreezeDetector(config.FreezeThreshold, config.FreezeFrames)
	}

	a.sinks = append(a.sinks, config.Sinks...)
	if config.Hub != nil {
		a.sinks = append(a.sinks, config.Hub)
	}

	return a
}

// SetCamera replaces the frame source.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetDetector replaces the cone detector, closing the previous one.
func (a *App) SetDetector(d vision.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detector != nil && a.detector != d {
		a.detector.Close()
	}
	a.detector = d
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the cone detector.
func (a *App) Detector() vision.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetEnabled pauses or resumes processing. A paused loop reads no frames
// and keeps its steering state.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// State returns a copy of the current steering state.
func (a *App) State() steering.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Frames returns the number of frames processed in the current or most
// recent run.
func (a *App) Frames() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// RunID returns the ID of the current run, or "" outside a run.
func (a *App) RunID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.runID
}

// OnSample registers a callback invoked after every processed frame.
func (a *App) OnSample(fn func(telemetry.Sample)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// Start runs the loop on a goroutine until Stop is called or the source
// ends. Calling Start while the loop is running does nothing. Run opens the
// camera; a failure to open it ends the loop and closes Done.
func (a *App) Start() {
	a.mu.Lock()
	if a.cancel != nil {
		select {
		case <-a.done:
			a.cancel()
		default:
			a.mu.Unlock()
			return
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		if err := a.Run(ctx); err != nil {
			log.Printf("Steering loop stopped: %v", err)
		}
	}()

	log.Println("Steering loop started")
}

// Done returns a channel closed when the loop started by Start returns.
// It is nil when no loop has been started.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Stop halts a loop started with Start and waits for it to finish.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	log.Println("Steering loop stopped")
}

// Close releases the detector, the freeze detector and every sink.
func (a *App) Close() error {
	a.Stop()

	var errs []error
	if d := a.Detector(); d != nil {
		errs = append(errs, d.Close())
	}
	if a.freeze != nil {
		a.freeze.Close()
	}
	errs = append(errs, a.sinks.Close())
	return errors.Join(errs...)
}
