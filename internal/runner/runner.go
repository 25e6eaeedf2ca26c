// Package runner ties a frame source to the detection pipeline.
package runner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/ironsheep/shape-vision/internal/capture"
	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/persist"
)

// Processor turns one frame into identified shapes. *detection.Pipeline
// implements it.
type Processor interface {
	Process(img image.Image) []detection.IdentifiedShape
}

// Display shows a processed frame. Show reports quit=true when the user
// asked to stop.
type Display interface {
	Show(img image.Image, shapes []detection.IdentifiedShape) (quit bool, err error)
}

// StopReason says why Run returned.
type StopReason string

const (
	StopEndOfStream StopReason = "end of stream"
	StopCancelled   StopReason = "cancelled"
	StopQuit        StopReason = "quit requested"
	StopMaxFrames   StopReason = "frame limit reached"
	StopError       StopReason = "error"
)

// Stats summarizes a run.
type Stats struct {
	Frames   int
	Shapes   int
	Failures int
	Reason   StopReason
}

// Runner drives the acquisition loop: read a frame, process it, record the
// shapes, show the result. It holds no state between runs.
type Runner struct {
	Source   capture.Source
	Pipeline Processor

	// Optional collaborators.
	Recorder *persist.Recorder
	Display  Display
	OnFrame  func(frame int, img image.Image, shapes []detection.IdentifiedShape)

	// MaxFrames stops after that many processed frames; 0 means no limit.
	MaxFrames int

	// SkipFailedReads logs a failed read and carries on instead of
	// returning it. MaxConsecutiveFailures (0 = unlimited) bounds how many
	// failures in a row are tolerated.
	SkipFailedReads        bool
	MaxConsecutiveFailures int

	// Debug logs every detection.
	Debug bool
}

// Run loops until the source ends, ctx is done, the display asks to quit,
// MaxFrames is reached or a failure is not tolerated. Cancellation is a
// clean stop and returns a nil error.
//
// The pipeline is never invoked for a failed read.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.Source == nil || r.Pipeline == nil {
		return Stats{Reason: StopError}, errors.New("runner needs a source and a pipeline")
	}

	name := capture.NameOf(r.Source)
	var stats Stats
	consecutive := 0

	for {
		if ctx.Err() != nil {
			stats.Reason = StopCancelled
			return stats, nil
		}
		if r.MaxFrames > 0 && stats.Frames >= r.MaxFrames {
			stats.Reason = StopMaxFrames
			return stats, nil
		}

		img, err := r.Source.Read(ctx)
		if err != nil {
			switch {
			case errors.Is(err, capture.ErrEndOfStream):
				stats.Reason = StopEndOfStream
				return stats, nil
			case ctx.Err() != nil:
				stats.Reason = StopCancelled
				return stats, nil
			}

			stats.Failures++
			consecutive++
			if !r.SkipFailedReads {
				stats.Reason = StopError
				return stats, fmt.Errorf("failed to acquire frame from %s: %w", name, err)
			}
			log.Printf("Skipping failed read from %s (%d in a row): %v", name, consecutive, err)
			if r.MaxConsecutiveFailures > 0 && consecutive >= r.MaxConsecutiveFailures {
				stats.Reason = StopError
				return stats, fmt.Errorf("giving up after %d consecutive failed reads from %s: %w", consecutive, name, err)
			}
			continue
		}
		consecutive = 0

		shapes := r.Pipeline.Process(img)
		frame := stats.Frames
		stats.Frames++
		stats.Shapes += len(shapes)

		if r.Recorder != nil {
			r.Recorder.Add(shapes)
		}
		if r.Debug {
			logShapes(frame, shapes)
		}
		if r.OnFrame != nil {
			r.OnFrame(frame, img, shapes)
		}
		if r.Display != nil {
			quit, err := r.Display.Show(img, shapes)
			if err != nil {
				stats.Reason = StopError
				return stats, fmt.Errorf("failed to display frame %d: %w", frame, err)
			}
			if quit {
				stats.Reason = StopQuit
				return stats, nil
			}
		}
	}
}

func logShapes(frame int, shapes []detection.IdentifiedShape) {
	log.Printf("Frame %d: %d shapes", frame, len(shapes))
	for _, s := range shapes {
		log.Printf("  %s at (%d, %d) area=%.0f vertices=%d circularity=%.3f",
			s.Caption(), s.Coordinates.DX, s.Coordinates.DY, s.Area, s.VertexCount, s.Circularity)
	}
}
