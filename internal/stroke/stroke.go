// Package stroke builds polylines from successive pinch positions.
package stroke

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/ayusman/pinchdraw/internal/mode"
)

// Vertex is one polyline point. Pos is in the stroke's own space (metres for
// world strokes, pixels for screen strokes); World is where it renders.
type Vertex struct {
	Pos   mgl64.Vec3 `json:"pos"`
	World mgl64.Vec3 `json:"world"`
}

// Stroke is one continuous line from pinch start to pinch stop.
type Stroke struct {
	ID        uuid.UUID `json:"id"`
	Space     mode.Mode `json:"space"`
	Vertices  []Vertex  `json:"vertices"`
	Sealed    bool      `json:"sealed"`
	CreatedAt time.Time `json:"created_at"`
	SealedAt  time.Time `json:"sealed_at,omitzero"`
}

// Len returns the vertex count, including the duplicated first vertex.
func (s *Stroke) Len() int {
	return len(s.Vertices)
}

// Last returns the most recent vertex.
func (s *Stroke) Last() Vertex {
	if len(s.Vertices) == 0 {
		return Vertex{}
	}
	return s.Vertices[len(s.Vertices)-1]
}

func (s *Stroke) clone() Stroke {
	out := *s
	out.Vertices = append([]Vertex(nil), s.Vertices...)
	return out
}
