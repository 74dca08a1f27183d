package capture

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/store"
)

// recorderFlushSize is how many frames are buffered before a database write.
const recorderFlushSize = 30

// Recorder is a FrameSink that stores landmark frames as a recording.
type Recorder struct {
	repo *store.RecordingRepository
	id   string

	mu      sync.Mutex
	start   time.Time
	pending []store.Frame
	err     error
}

// NewRecorder creates a recording called name and returns a Recorder that
// appends to it.
func NewRecorder(repo *store.RecordingRepository, name string) (*Recorder, error) {
	rec := &store.Recording{Name: name}
	if err := repo.Create(rec); err != nil {
		return nil, err
	}
	return &Recorder{repo: repo, id: rec.ID}, nil
}

// ID returns the recording ID.
func (r *Recorder) ID() string {
	return r.id
}

// Record implements FrameSink. Offsets are measured from the first frame.
func (r *Recorder) Record(hand *detector.HandLandmarks, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.start.IsZero() {
		r.start = at
	}
	r.pending = append(r.pending, store.Frame{
		OffsetMs: at.Sub(r.start).Milliseconds(),
		Hand:     hand.Clone(),
	})

	if len(r.pending) >= recorderFlushSize {
		if err := r.flushLocked(); err != nil {
			log.Printf("Error saving recording %s: %v", r.id, err)
		}
	}
}

// Flush writes buffered frames to the store.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

// Close flushes and reports the first write error seen, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.flushLocked(); err != nil {
		return err
	}
	return r.err
}

func (r *Recorder) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.repo.AppendFrames(r.id, r.pending); err != nil {
		err = fmt.Errorf("append %d frames: %w", len(r.pending), err)
		if r.err == nil {
			r.err = err
		}
		return err
	}
	r.pending = r.pending[:0]
	return nil
}
