package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/conesteer/internal/capture"
	"github.com/ayusman/conesteer/internal/steering"
	"github.com/ayusman/conesteer/internal/store"
	"github.com/ayusman/conesteer/internal/telemetry"
	"github.com/ayusman/conesteer/internal/vision"
)

// Run processes frames one at a time until ctx is cancelled or a finite
// source runs out. It opens the camera and closes it on return. Frame numbers
// restart at 1 for every run.
//
// Loop logic:
// 1. Wait for the pacing tick when a frame interval is configured
// 2. Skip reading while disabled
// 3. Read a frame; end of stream finishes the run
// 4. ProcessFrame: detect, estimate, annotate, publish
func (a *App) Run(ctx context.Context) error {
	camera := a.Camera()
	if err := camera.Open(); err != nil {
		return err
	}
	defer func() {
		if err := camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}()

	if err := a.beginRun(); err != nil {
		return err
	}
	defer a.endRun()

	var tick <-chan time.Time
	if a.config.FrameInterval > 0 {
		ticker := time.NewTicker(a.config.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		if !a.IsEnabled() {
			if !sleep(ctx, PausedPoll) {
				return nil
			}
			continue
		}

		frame, err := camera.ReadFrame()
		switch {
		case errors.Is(err, capture.ErrEndOfStream):
			log.Println("Frame source ended")
			return nil
		case errors.Is(err, capture.ErrCameraNotOpen):
			return err
		case err != nil:
			log.Printf("Error reading frame: %v", err)
			if !sleep(ctx, RetryDelay) {
				return nil
			}
			continue
		}

		_, err = a.ProcessFrame(frame, a.config.Clock())
		frame.Close()
		if err != nil {
			log.Printf("Error processing frame: %v", err)
		}
	}
}

// ProcessFrame runs one frame through detection and the estimator,
// annotates it in place and publishes the result. A frame the detector
// cannot use counts as one with no cones, so the angle is held.
func (a *App) ProcessFrame(frame *gocv.Mat, now time.Time) (telemetry.Sample, error) {
	if frame == nil || frame.Empty() {
		return a.publish(nil, now, vision.Detection{}, vision.ErrEmptyFrame)
	}
	if err := capture.ToBGR(frame); err != nil {
		return a.publish(nil, now, vision.Detection{Width: frame.Cols()}, err)
	}

	a.checkFreeze(frame)

	det, err := a.Detector().Detect(frame)
	if err != nil {
		det = vision.Detection{Width: frame.Cols()}
	}
	return a.publish(frame, now, det, err)
}

func (a *App) publish(frame *gocv.Mat, now time.Time, det vision.Detection, detectErr error) (telemetry.Sample, error) {
	if detectErr != nil {
		log.Printf("Detection failed, holding angle: %v", detectErr)
	}

	in := steering.Input{
		Width:  det.Width,
		Blue:   steering.Cone{Present: det.Blue.Present, X: det.Blue.X()},
		Yellow: steering.Cone{Present: det.Yellow.Present, X: det.Yellow.X()},
	}
	ts := now.UnixMicro()

	a.mu.Lock()
	next, d := a.estimator.Step(a.state, in)
	a.state = next
	a.frames++
	sample := telemetry.NewSample(a.runID, a.frames, ts, in, next, d)
	runSink := a.runSink
	callbacks := a.callbacks
	a.mu.Unlock()

	if frame != nil {
		if in.Blue.Present && in.Yellow.Present {
			vision.AnnotateSteering(frame, in.Blue.X, in.Yellow.X, next.Angle)
		}
		vision.AnnotateLabel(frame, now, ts, a.config.Label)
	}

	var errs []error
	if err := a.sinks.Write(sample); err != nil {
		errs = append(errs, err)
	}
	if runSink != nil {
		if err := runSink.Write(sample); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("Sink error: %v", err)
	}

	if frame != nil {
		a.showFrame(frame)
	}

	for _, fn := range callbacks {
		fn(sample)
	}

	return sample, detectErr
}

func (a *App) showFrame(frame *gocv.Mat) {
	if h := a.config.Hub; h != nil && h.WantsFrames() {
		buf, err := gocv.IMEncode(".jpg", *frame)
		if err != nil {
			log.Printf("Error encoding frame: %v", err)
		} else {
			jpeg := make([]byte, len(buf.GetBytes()))
			copy(jpeg, buf.GetBytes())
			buf.Close()
			h.PublishFrame(jpeg)
		}
	}

	if a.config.Viewer != nil {
		a.config.Viewer.Show(*frame)
	}
}

func (a *App) checkFreeze(frame *gocv.Mat) {
	if a.freeze == nil {
		return
	}
	frozen, change := a.freeze.Detect(frame)

	a.mu.Lock()
	changed := frozen != a.frozen
	a.frozen = frozen
	a.mu.Unlock()

	if !changed {
		return
	}
	if frozen {
		log.Printf("Frame source appears frozen (%d unchanged frames)", a.freeze.Still())
	} else {
		log.Printf("Frame source live again (%.2f%% changed)", change)
	}
}

// beginRun opens a new run record when a store is configured.
func (a *App) beginRun() error {
	id := uuid.New().String()

	var sink *telemetry.StoreSink
	if s := a.config.Store; s != nil {
		settings := a.config.Settings
		err := s.Runs().Create(&store.Run{
			ID:        id,
			SessionID: a.config.SessionID,
			Source:    a.config.Source,
			Width:     a.config.Width,
			Height:    a.config.Height,
			Config:    settings,
			StartedAt: a.config.Clock(),
		})
		if err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		sink = telemetry.NewStoreSink(s.Samples(), a.config.BatchSize)
		log.Printf("Recording run %s", id)
	}

	a.mu.Lock()
	a.runID = id
	a.runSink = sink
	a.frames = 0
	a.frozen = false
	a.mu.Unlock()

	if a.freeze != nil {
		a.freeze.Reset()
	}
	return nil
}

// endRun flushes the run's samples and records its end time.
func (a *App) endRun() {
	a.mu.Lock()
	id, sink := a.runID, a.runSink
	a.runID, a.runSink = "", nil
	a.mu.Unlock()

	if sink == nil {
		return
	}
	if err := sink.Close(); err != nil {
		log.Printf("Error flushing run %s: %v", id, err)
	}
	if err := a.config.Store.Runs().Finish(id, a.config.Clock()); err != nil {
		log.Printf("Error finishing run %s: %v", id, err)
	}
}

// sleep waits for d or until ctx is done, reporting whether it slept fully.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
