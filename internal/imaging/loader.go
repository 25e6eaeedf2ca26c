package imaging

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"sync"

	dimg "github.com/disintegration/imaging"
)

// ImageCache keeps decoded frames keyed by file path so that repeated tool
// calls on the same file skip the decode.
//
// Frames are decoded with EXIF auto-orientation applied, so a phone photo taken
// in portrait is analysed upright. The cache never mutates a stored frame;
// callers that draw on a frame must clone it first (render.Annotate does).
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/frame.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Evict("/path/to/frame.png")
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the cached frame for path, decoding it from disk on first use.
//
// Supported formats are those registered with disintegration/imaging: PNG,
// JPEG, GIF, BMP and TIFF. The cache key is the exact path string, so a
// relative and an absolute path to the same file are cached separately.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := dimg.Open(path, dimg.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached frames.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear drops every cached frame.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict drops one cached frame. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Decode reads one frame from r with EXIF auto-orientation applied.
//
// Used for frames that never touch the disk: HTTP uploads, base64 payloads
// and ffmpeg pipe output.
func Decode(r io.Reader) (image.Image, error) {
	img, err := dimg.Decode(r, dimg.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (image.Image, error) {
	return Decode(bytes.NewReader(data))
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels after auto-orientation.
	Width int `json:"width"`

	// Height is the image height in pixels after auto-orientation.
	Height int `json:"height"`

	// Format is derived from the file extension ("png", "jpeg", "gif",
	// "bmp", "tiff") or "unknown".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the decoded image carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	if f, err := dimg.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image, loading it into the cache
// if needed.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
