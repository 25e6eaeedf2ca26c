package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
)

var (
	// ErrEndOfStream reports that a source has no more frames. It ends an
	// acquisition loop cleanly.
	ErrEndOfStream = errors.New("end of stream")

	// ErrFrameUnavailable reports that a frame could not be acquired. It is
	// never signalled by returning an empty frame.
	ErrFrameUnavailable = errors.New("frame unavailable")
)

// ReadError wraps an acquisition failure for frame Index.
type ReadError struct {
	Source string
	Index  int
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: failed to read frame %d: %v", e.Source, e.Index, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is makes every ReadError match ErrFrameUnavailable.
func (e *ReadError) Is(target error) bool { return target == ErrFrameUnavailable }

// Source yields frames one at a time.
//
// Read returns the next frame, ErrEndOfStream when the source is exhausted,
// or an error matching ErrFrameUnavailable when one frame could not be
// acquired; a source may still produce frames after such an error.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Named is implemented by sources that can describe themselves for logs.
type Named interface {
	Name() string
}

// NameOf returns a log-friendly name for s.
func NameOf(s Source) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
