//go:build gocv

package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// CameraSupported reports whether the binary was built with camera support.
const CameraSupported = true

// CameraSource reads frames from a webcam.
type CameraSource struct {
	index int

	mu     sync.Mutex
	device *gocv.VideoCapture
	frame  gocv.Mat
	count  int
}

// OpenCamera opens the camera with the given device index. A camera that
// cannot be opened is reported here, before any frame is read.
func OpenCamera(index int) (*CameraSource, error) {
	device, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !device.IsOpened() {
		device.Close()
		return nil, fmt.Errorf("camera %d is not opened", index)
	}
	return &CameraSource{index: index, device: device, frame: gocv.NewMat()}, nil
}

func (c *CameraSource) Name() string { return fmt.Sprintf("camera %d", c.index) }

// Read grabs the next frame. gocv delivers BGR; ToImage converts to RGB.
func (c *CameraSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.count
	c.count++

	if ok := c.device.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, &ReadError{Source: c.Name(), Index: n, Err: ErrFrameUnavailable}
	}
	img, err := c.frame.ToImage()
	if err != nil {
		return nil, &ReadError{Source: c.Name(), Index: n, Err: err}
	}
	return img, nil
}

func (c *CameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
	return c.device.Close()
}
