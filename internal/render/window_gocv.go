//go:build gocv

package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ironsheep/shape-vision/internal/detection"
)

// DisplaySupported reports whether the binary was built with display support.
const DisplaySupported = true

// Window shows annotated frames in a desktop window.
type Window struct {
	win   *gocv.Window
	style Style
}

// OpenWindow creates a window titled title.
func OpenWindow(title string, style Style) (*Window, error) {
	return &Window{win: gocv.NewWindow(title), style: style}, nil
}

// Show annotates img and displays it, then polls the keyboard for one
// millisecond. It reports true when the user pressed q or closed the window.
func (w *Window) Show(img image.Image, shapes []detection.IdentifiedShape) (bool, error) {
	annotated := Annotate(img, shapes, w.style)

	// gocv converts the RGBA input to its BGR layout.
	mat, err := gocv.ImageToMatRGB(annotated)
	if err != nil {
		return false, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	key := w.win.WaitKey(1)
	return key&0xFF == 'q' || !w.win.IsOpen(), nil
}

func (w *Window) Close() error {
	return w.win.Close()
}
