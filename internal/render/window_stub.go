//go:build !gocv

package render

import (
	"errors"
	"image"

	"github.com/ironsheep/shape-vision/internal/detection"
)

// DisplaySupported reports whether the binary was built with display support.
const DisplaySupported = false

// ErrDisplayUnsupported is returned by OpenWindow in builds without the gocv
// tag.
var ErrDisplayUnsupported = errors.New("display window requires building with -tags gocv")

// Window is unavailable in this build.
type Window struct{}

func OpenWindow(title string, style Style) (*Window, error) {
	return nil, ErrDisplayUnsupported
}

func (w *Window) Show(img image.Image, shapes []detection.IdentifiedShape) (bool, error) {
	return false, ErrDisplayUnsupported
}

func (w *Window) Close() error { return nil }
