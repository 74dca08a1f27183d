package stroke

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/pinchdraw/internal/mode"
)

var (
	// ErrStrokeSealed is returned when extending a stroke that has ended.
	ErrStrokeSealed = errors.New("stroke is sealed")
	// ErrUnknownStroke is returned for IDs the builder never issued or has
	// already discarded.
	ErrUnknownStroke = errors.New("unknown stroke")
)

// Config tunes the builder.
type Config struct {
	// MinWorldDistance is the decimation distance for world strokes, in metres.
	MinWorldDistance float64
	// MinScreenDistance is the decimation distance for screen strokes, in pixels.
	MinScreenDistance float64
	Logger            *slog.Logger
}

// DefaultConfig returns the standard decimation thresholds.
func DefaultConfig() Config {
	return Config{
		MinWorldDistance:  0.01,
		MinScreenDistance: 5,
	}
}

// Builder owns every stroke in a session. It is safe for concurrent use;
// listeners run after the builder's lock is released.
type Builder struct {
	config Config
	log    *slog.Logger

	mu        sync.Mutex
	strokes   map[uuid.UUID]*Stroke
	order     []uuid.UUID
	active    uuid.UUID
	listeners []Listener
}

// NewBuilder creates a Builder. Non-positive distances take the defaults.
func NewBuilder(config Config) *Builder {
	def := DefaultConfig()
	if config.MinWorldDistance <= 0 {
		config.MinWorldDistance = def.MinWorldDistance
	}
	if config.MinScreenDistance <= 0 {
		config.MinScreenDistance = def.MinScreenDistance
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		config:  config,
		log:     logger,
		strokes: make(map[uuid.UUID]*Stroke),
	}
}

// MinDistance returns the decimation threshold for space.
func (b *Builder) MinDistance(space mode.Mode) float64 {
	if space == mode.ScreenSpace {
		return b.config.MinScreenDistance
	}
	return b.config.MinWorldDistance
}

// Subscribe registers fn for all future events.
func (b *Builder) Subscribe(fn Listener) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Begin starts a new stroke at v. The first vertex is stored twice so the
// stroke is drawable immediately. An unsealed previous stroke is sealed
// first; strokes are never merged.
func (b *Builder) Begin(space mode.Mode, v Vertex) uuid.UUID {
	b.mu.Lock()

	var events []Event
	if prev, ok := b.strokes[b.active]; ok && !prev.Sealed {
		b.log.Warn("beginning stroke while another is open; sealing it", "stroke", prev.ID)
		events = append(events, b.seal(prev))
	}

	s := &Stroke{
		ID:        uuid.New(),
		Space:     space,
		Vertices:  []Vertex{v, v},
		CreatedAt: time.Now(),
	}
	b.strokes[s.ID] = s
	b.order = append(b.order, s.ID)
	b.active = s.ID

	first := v
	events = append(events, Event{Kind: Created, StrokeID: s.ID, Space: space, Vertex: &first, Count: s.Len()})
	listeners := b.listeners
	b.mu.Unlock()

	b.log.Debug("stroke created", "stroke", s.ID, "space", space)
	emit(listeners, events)
	return s.ID
}

// Extend appends v to the stroke if it lies farther than MinDistance from
// the last vertex. Closer points are dropped and reported as (false, nil).
// Extending a sealed or unknown stroke changes nothing and returns an error.
func (b *Builder) Extend(id uuid.UUID, v Vertex) (bool, error) {
	b.mu.Lock()

	s, ok := b.strokes[id]
	if !ok {
		b.mu.Unlock()
		b.log.Warn("extend on unknown stroke", "stroke", id)
		return false, fmt.Errorf("extend %s: %w", id, ErrUnknownStroke)
	}
	if s.Sealed {
		b.mu.Unlock()
		b.log.Warn("extend on sealed stroke", "stroke", id)
		return false, fmt.Errorf("extend %s: %w", id, ErrStrokeSealed)
	}
	if !finiteVec(v) {
		b.mu.Unlock()
		b.log.Warn("dropping non-finite vertex", "stroke", id, "pos", v.Pos)
		return false, nil
	}
	if s.Last().Pos.Sub(v.Pos).Len() <= b.MinDistance(s.Space) {
		b.mu.Unlock()
		return false, nil
	}

	s.Vertices = append(s.Vertices, v)
	appended := v
	ev := Event{Kind: Appended, StrokeID: id, Space: s.Space, Vertex: &appended, Count: s.Len()}
	listeners := b.listeners
	b.mu.Unlock()

	emit(listeners, []Event{ev})
	return true, nil
}

// End seals the stroke. Ending a sealed stroke logs a warning and does
// nothing.
func (b *Builder) End(id uuid.UUID) error {
	b.mu.Lock()

	s, ok := b.strokes[id]
	if !ok {
		b.mu.Unlock()
		b.log.Warn("end on unknown stroke", "stroke", id)
		return fmt.Errorf("end %s: %w", id, ErrUnknownStroke)
	}
	if s.Sealed {
		b.mu.Unlock()
		b.log.Warn("stroke already sealed", "stroke", id)
		return nil
	}

	ev := b.seal(s)
	listeners := b.listeners
	b.mu.Unlock()

	b.log.Debug("stroke sealed", "stroke", id, "vertices", ev.Count)
	emit(listeners, []Event{ev})
	return nil
}

// ClearAll seals and discards every stroke. It returns how many were
// dropped.
func (b *Builder) ClearAll() int {
	b.mu.Lock()
	n := len(b.order)
	for _, s := range b.strokes {
		s.Sealed = true
	}
	b.strokes = make(map[uuid.UUID]*Stroke)
	b.order = nil
	b.active = uuid.Nil
	listeners := b.listeners
	b.mu.Unlock()

	b.log.Info("strokes cleared", "count", n)
	emit(listeners, []Event{{Kind: Cleared, Count: n}})
	return n
}

// Strokes returns copies of all strokes in creation order.
func (b *Builder) Strokes() []Stroke {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Stroke, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.strokes[id].clone())
	}
	return out
}

// Get returns a copy of one stroke.
func (b *Builder) Get(id uuid.UUID) (Stroke, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.strokes[id]
	if !ok {
		return Stroke{}, false
	}
	return s.clone(), true
}

// Active returns the open stroke, if any.
func (b *Builder) Active() (uuid.UUID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.strokes[b.active]
	if !ok || s.Sealed {
		return uuid.Nil, false
	}
	return s.ID, true
}

// seal must be called with b.mu held.
func (b *Builder) seal(s *Stroke) Event {
	s.Sealed = true
	s.SealedAt = time.Now()
	if b.active == s.ID {
		b.active = uuid.Nil
	}
	return Event{Kind: Sealed, StrokeID: s.ID, Space: s.Space, Count: s.Len()}
}

func emit(listeners []Listener, events []Event) {
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

func finiteVec(v Vertex) bool {
	for _, c := range [6]float64{v.Pos[0], v.Pos[1], v.Pos[2], v.World[0], v.World[1], v.World[2]} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
