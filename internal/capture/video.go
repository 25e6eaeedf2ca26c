package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoSource decodes a video file into frames by piping ffmpeg's PNG
// image2pipe output. ffmpeg must be on PATH.
type VideoSource struct {
	path string

	mu     sync.Mutex
	reader *bufio.Reader
	index  int
	stop   func() error
}

// OpenVideo starts ffmpeg on path, sampling fps frames per second. The
// decoder runs until the stream ends, ctx is cancelled or Close is called.
func OpenVideo(ctx context.Context, path string, fps int) (*VideoSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	if fps <= 0 {
		fps = 1
	}

	r, w := io.Pipe()
	runCtx, cancel := context.WithCancel(ctx)

	stream := ffmpeg.Input(path).
		Output("pipe:1", ffmpeg.KwArgs{
			"format": "image2pipe",
			"vcodec": "png",
			"r":      strconv.Itoa(fps),
		}).
		WithOutput(w).
		WithErrorOutput(io.Discard)
	stream.Context = runCtx

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := stream.Run(); err != nil {
			w.CloseWithError(fmt.Errorf("ffmpeg: %w", err))
			return
		}
		w.Close()
	}()

	stop := func() error {
		cancel()
		r.Close()
		<-done
		return nil
	}
	return newVideoSource(path, r, stop), nil
}

func newVideoSource(path string, r io.Reader, stop func() error) *VideoSource {
	return &VideoSource{path: path, reader: bufio.NewReader(r), stop: stop}
}

func (s *VideoSource) Name() string { return "video " + s.path }

// Read decodes the next PNG frame from the pipe. A closed pipe ends the
// stream; a corrupt frame or an ffmpeg failure is a ReadError.
func (s *VideoSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.index
	s.index++

	if _, err := s.reader.Peek(1); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return nil, ErrEndOfStream
		}
		return nil, &ReadError{Source: s.path, Index: index, Err: err}
	}

	// png.Decode consumes exactly one image, leaving the next in the buffer.
	img, err := png.Decode(s.reader)
	if err != nil {
		return nil, &ReadError{Source: s.path, Index: index, Err: err}
	}
	return img, nil
}

// Close stops ffmpeg and releases the pipe.
func (s *VideoSource) Close() error {
	if s.stop == nil {
		return nil
	}
	stop := s.stop
	s.stop = nil
	return stop()
}

// VideoInfo is the subset of ffprobe output used for logging.
type VideoInfo struct {
	Width     int
	Height    int
	Frames    int
	FrameRate float64
}

type probeResult struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		NbFrames     string `json:"nb_frames"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// ProbeVideo runs ffprobe on path and reports the first video stream.
func ProbeVideo(path string) (VideoInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("failed to probe video: %w", err)
	}
	return parseProbe([]byte(out))
}

func parseProbe(data []byte) (VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return VideoInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		info := VideoInfo{Width: s.Width, Height: s.Height}
		if n, err := strconv.Atoi(s.NbFrames); err == nil {
			info.Frames = n
		}
		if num, den, ok := strings.Cut(s.AvgFrameRate, "/"); ok {
			n, _ := strconv.ParseFloat(num, 64)
			d, _ := strconv.ParseFloat(den, 64)
			if d != 0 {
				info.FrameRate = n / d
			}
		}
		return info, nil
	}
	return VideoInfo{}, errors.New("no video stream found")
}
