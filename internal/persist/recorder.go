package persist

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/shape-vision/internal/detection"
)

// Recorder accumulates the shapes of every processed frame of one session
// and writes them to a sink on Flush.
type Recorder struct {
	session string
	sink    Sink

	mu      sync.Mutex
	frames  int
	records []Record
}

// NewRecorder starts a session with a fresh id. sink may be nil, in which
// case Flush only reports success.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{session: uuid.NewString(), sink: sink}
}

// Session returns the session id stamped on every record.
func (r *Recorder) Session() string { return r.session }

// Add records the shapes of the next frame and returns that frame's number,
// starting at 0. Frames without shapes still advance the count.
func (r *Recorder) Add(shapes []detection.IdentifiedShape) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	frame := r.frames
	r.frames++
	r.records = append(r.records, Records(shapes, frame, r.session)...)
	return frame
}

// Frames returns how many frames have been added.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record{}, r.records...)
}

// Flush writes all records to the sink. It can be called more than once;
// each call writes the full session.
func (r *Recorder) Flush(ctx context.Context) error {
	if r.sink == nil {
		return nil
	}
	if err := r.sink.Write(ctx, r.Records()); err != nil {
		return fmt.Errorf("failed to flush session %s: %w", r.session, err)
	}
	return nil
}
