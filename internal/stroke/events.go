package stroke

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ayusman/pinchdraw/internal/mode"
)

// EventKind identifies what happened to a stroke.
type EventKind int

const (
	Created EventKind = iota + 1
	Appended
	Sealed
	Cleared
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Appended:
		return "appended"
	case Sealed:
		return "sealed"
	case Cleared:
		return "cleared"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is delivered to listeners for every stroke mutation. Vertex is set
// for Created and Appended. Count is the stroke's vertex count after the
// change, or the number of strokes discarded for Cleared.
type Event struct {
	Kind     EventKind `json:"kind"`
	StrokeID uuid.UUID `json:"stroke_id,omitzero"`
	Space    mode.Mode `json:"space"`
	Vertex   *Vertex   `json:"vertex,omitempty"`
	Count    int       `json:"count"`
}

// Listener receives events synchronously on the goroutine that caused them.
type Listener func(Event)
