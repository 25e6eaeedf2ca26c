package capture

import (
	"context"
	"image"
	"sync"

	"github.com/vova616/screenshot"
)

// ScreenSource grabs the screen, or a rectangle of it, on every Read. It
// never ends on its own.
type ScreenSource struct {
	rect    image.Rectangle
	capture func(image.Rectangle) (*image.RGBA, error)

	mu    sync.Mutex
	index int
}

// NewScreenSource captures rect, or the whole primary screen when rect is
// empty.
func NewScreenSource(rect image.Rectangle) *ScreenSource {
	return &ScreenSource{rect: rect, capture: captureScreen}
}

func captureScreen(rect image.Rectangle) (*image.RGBA, error) {
	if rect.Empty() {
		return screenshot.CaptureScreen()
	}
	return screenshot.CaptureRect(rect)
}

func (s *ScreenSource) Name() string { return "screen" }

func (s *ScreenSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	index := s.index
	s.index++
	s.mu.Unlock()

	img, err := s.capture(s.rect)
	if err != nil {
		return nil, &ReadError{Source: "screen", Index: index, Err: err}
	}
	if img == nil || img.Bounds().Empty() {
		return nil, &ReadError{Source: "screen", Index: index, Err: ErrFrameUnavailable}
	}
	return img, nil
}

func (s *ScreenSource) Close() error { return nil }
