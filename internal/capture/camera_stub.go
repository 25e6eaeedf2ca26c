//go:build !gocv

package capture

import (
	"context"
	"errors"
	"image"
)

// CameraSupported reports whether the binary was built with camera support.
const CameraSupported = false

// ErrCameraUnsupported is returned by OpenCamera in builds without the gocv
// tag.
var ErrCameraUnsupported = errors.New("camera capture requires building with -tags gocv")

// CameraSource is unavailable in this build.
type CameraSource struct{}

func OpenCamera(index int) (*CameraSource, error) {
	return nil, ErrCameraUnsupported
}

func (c *CameraSource) Read(ctx context.Context) (image.Image, error) {
	return nil, ErrCameraUnsupported
}

func (c *CameraSource) Close() error { return nil }
