package capture

import (
	"context"
	"time"

	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/store"
)

// Replay publishes the frames of a stored recording into a Mailbox, either
// in real time (Run) or one frame at a time (Next).
type Replay struct {
	frames  []store.Frame
	mailbox *detector.Mailbox
	speed   float64
	next    int
}

// NewReplay creates a replay of frames. A non-positive speed plays in real
// time.
func NewReplay(frames []store.Frame, mailbox *detector.Mailbox, speed float64) *Replay {
	if mailbox == nil {
		mailbox = detector.NewMailbox()
	}
	if speed <= 0 {
		speed = 1
	}
	return &Replay{frames: frames, mailbox: mailbox, speed: speed}
}

// LoadReplay reads a recording from the store.
func LoadReplay(repo *store.RecordingRepository, id string, mailbox *detector.Mailbox, speed float64) (*Replay, error) {
	frames, err := repo.Frames(id)
	if err != nil {
		return nil, err
	}
	return NewReplay(frames, mailbox, speed), nil
}

// Mailbox returns the mailbox frames are published to.
func (r *Replay) Mailbox() *detector.Mailbox {
	return r.mailbox
}

// Len returns the number of frames in the replay.
func (r *Replay) Len() int {
	return len(r.frames)
}

// Next publishes the next frame. It returns false once every frame has been
// published.
func (r *Replay) Next() bool {
	if r.next >= len(r.frames) {
		return false
	}
	r.mailbox.Publish(r.frames[r.next].Hand.Clone())
	r.next++
	return true
}

// Run publishes the remaining frames at their recorded offsets scaled by the
// replay speed. It returns when all frames are published or ctx is done.
func (r *Replay) Run(ctx context.Context) error {
	start := time.Now()
	var base int64
	if r.next < len(r.frames) {
		base = r.frames[r.next].OffsetMs
	}

	for r.next < len(r.frames) {
		offset := time.Duration(float64(r.frames[r.next].OffsetMs-base)/r.speed) * time.Millisecond
		if wait := time.Until(start.Add(offset)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		r.Next()
	}
	return nil
}
