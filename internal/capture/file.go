package capture

import (
	"context"
	"image"
	"sync"

	"github.com/ironsheep/shape-vision/internal/imaging"
)

// FileSource yields one frame per image path, in order. Decoded images are
// kept in the shared cache so repeated runs over the same files are cheap.
type FileSource struct {
	paths []string
	cache *imaging.ImageCache

	mu   sync.Mutex
	next int
}

// NewFileSource returns a source over paths. A nil cache gets a private one.
func NewFileSource(paths []string, cache *imaging.ImageCache) *FileSource {
	if cache == nil {
		cache = imaging.NewImageCache()
	}
	return &FileSource{paths: append([]string(nil), paths...), cache: cache}
}

func (s *FileSource) Name() string { return "file" }

// Read decodes the next path. A path that fails to decode is reported as a
// ReadError and skipped on the following call.
func (s *FileSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.next >= len(s.paths) {
		s.mu.Unlock()
		return nil, ErrEndOfStream
	}
	index := s.next
	path := s.paths[index]
	s.next++
	s.mu.Unlock()

	img, err := s.cache.Load(path)
	if err != nil {
		return nil, &ReadError{Source: path, Index: index, Err: err}
	}
	return img, nil
}

func (s *FileSource) Close() error { return nil }
