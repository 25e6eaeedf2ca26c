package runner

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/shape-vision/internal/capture"
	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/persist"
)

// step is one scripted Read result.
type step struct {
	img image.Image
	err error
}

type scriptedSource struct {
	steps  []step
	reads  int
	closed bool
}

func (s *scriptedSource) Read(ctx context.Context) (image.Image, error) {
	if s.reads >= len(s.steps) {
		return nil, capture.ErrEndOfStream
	}
	st := s.steps[s.reads]
	s.reads++
	return st.img, st.err
}

func (s *scriptedSource) Close() error { s.closed = true; return nil }

type countingProcessor struct {
	calls  int
	shapes []detection.IdentifiedShape
}

func (p *countingProcessor) Process(img image.Image) []detection.IdentifiedShape {
	if img == nil {
		panic("pipeline invoked without a frame")
	}
	p.calls++
	return p.shapes
}

type quitAfter struct {
	n     int
	shown int
	err   error
}

func (d *quitAfter) Show(image.Image, []detection.IdentifiedShape) (bool, error) {
	d.shown++
	if d.err != nil {
		return false, d.err
	}
	return d.shown >= d.n, nil
}

func frame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	return img
}

func failure() error {
	return &capture.ReadError{Source: "test", Err: errors.New("sensor glitch")}
}

func oneShape() []detection.IdentifiedShape {
	return []detection.IdentifiedShape{{Label: detection.Square, Color: "Red"}}
}

func TestRun_EndOfStream(t *testing.T) {
	src := &scriptedSource{steps: []step{{img: frame()}, {img: frame()}, {img: frame()}}}
	proc := &countingProcessor{shapes: oneShape()}
	rec := persist.NewRecorder(nil)

	var seen []int
	r := &Runner{Source: src, Pipeline: proc, Recorder: rec, Debug: true,
		OnFrame: func(n int, _ image.Image, _ []detection.IdentifiedShape) { seen = append(seen, n) }}

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopEndOfStream, stats.Reason)
	assert.Equal(t, 3, stats.Frames)
	assert.Equal(t, 3, stats.Shapes)
	assert.Equal(t, 3, proc.calls)
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, 3, rec.Frames())
	assert.Len(t, rec.Records(), 3)
}

func TestRun_ReadFailureIsDistinct(t *testing.T) {
	src := &scriptedSource{steps: []step{{img: frame()}, {err: failure()}, {img: frame()}}}
	proc := &countingProcessor{}

	stats, err := (&Runner{Source: src, Pipeline: proc}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrFrameUnavailable)
	assert.NotErrorIs(t, err, capture.ErrEndOfStream)
	assert.Equal(t, StopError, stats.Reason)
	assert.Equal(t, 1, proc.calls, "the pipeline never sees a failed read")
	assert.Equal(t, 1, stats.Failures)
}

func TestRun_SkipFailedReads(t *testing.T) {
	src := &scriptedSource{steps: []step{
		{err: failure()}, {img: frame()}, {err: failure()}, {err: failure()}, {img: frame()},
	}}
	proc := &countingProcessor{}

	stats, err := (&Runner{Source: src, Pipeline: proc, SkipFailedReads: true, MaxConsecutiveFailures: 3}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopEndOfStream, stats.Reason)
	assert.Equal(t, 2, proc.calls)
	assert.Equal(t, 3, stats.Failures)
}

func TestRun_ConsecutiveFailureLimit(t *testing.T) {
	src := &scriptedSource{steps: []step{{err: failure()}, {err: failure()}, {img: frame()}}}
	proc := &countingProcessor{}

	stats, err := (&Runner{Source: src, Pipeline: proc, SkipFailedReads: true, MaxConsecutiveFailures: 2}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrFrameUnavailable)
	assert.Contains(t, err.Error(), "2 consecutive")
	assert.Equal(t, 0, proc.calls)
	assert.Equal(t, StopError, stats.Reason)
}

func TestRun_MaxFrames(t *testing.T) {
	steps := make([]step, 10)
	for i := range steps {
		steps[i] = step{img: frame()}
	}
	src := &scriptedSource{steps: steps}

	stats, err := (&Runner{Source: src, Pipeline: &countingProcessor{}, MaxFrames: 4}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopMaxFrames, stats.Reason)
	assert.Equal(t, 4, stats.Frames)
	assert.Equal(t, 4, src.reads)
}

func TestRun_DisplayQuit(t *testing.T) {
	steps := []step{{img: frame()}, {img: frame()}, {img: frame()}, {img: frame()}}
	display := &quitAfter{n: 2}

	stats, err := (&Runner{Source: &scriptedSource{steps: steps}, Pipeline: &countingProcessor{}, Display: display}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopQuit, stats.Reason)
	assert.Equal(t, 2, stats.Frames)
}

func TestRun_DisplayError(t *testing.T) {
	display := &quitAfter{err: errors.New("no display")}

	stats, err := (&Runner{Source: &scriptedSource{steps: []step{{img: frame()}}}, Pipeline: &countingProcessor{}, Display: display}).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StopError, stats.Reason)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &countingProcessor{}
	r := &Runner{
		Source:   &scriptedSource{steps: []step{{img: frame()}, {img: frame()}, {img: frame()}}},
		Pipeline: proc,
		OnFrame:  func(int, image.Image, []detection.IdentifiedShape) { cancel() },
	}

	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, stats.Reason)
	assert.Equal(t, 1, proc.calls)
}

func TestRun_RequiresSourceAndPipeline(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background())
	assert.Error(t, err)
}

func TestRun_WithRealPipeline(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	for y := 78; y <= 122; y++ {
		for x := 78; x <= 122; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	p, err := detection.NewPipeline(detection.DefaultOptions())
	require.NoError(t, err)
	rec := persist.NewRecorder(nil)

	stats, err := (&Runner{Source: &scriptedSource{steps: []step{{img: img}}}, Pipeline: p, Recorder: rec}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Shapes)

	records := rec.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Square", records[0].Label)
	assert.Equal(t, "Red", records[0].Color)
	assert.Equal(t, persist.Point{0, 0}, records[0].Coordinates)
}
