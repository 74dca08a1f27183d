package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/pinchdraw/internal/detector"
)

// Recording is a captured sequence of landmark frames that can be replayed
// through the drawing pipeline.
type Recording struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Frames     int       `json:"frames"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Frame is one recorded landmark frame. Hand is nil when no hand was seen.
type Frame struct {
	Sequence int                     `json:"sequence"`
	OffsetMs int64                   `json:"offset_ms"`
	Hand     *detector.HandLandmarks `json:"hand"`
}

// RecordingRepository provides CRUD operations for recordings.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a new, empty recording. An empty ID is filled with a new
// UUID.
func (r *RecordingRepository) Create(rec *Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO recordings (id, name, frames, duration_ms, created_at) VALUES (?, ?, 0, 0, ?)`,
		rec.ID, rec.Name, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	rec.Frames = 0
	rec.DurationMs = 0
	return nil
}

// AppendFrames adds frames to a recording in a single transaction and
// updates its frame count and duration. Sequence numbers continue from the
// frames already stored.
func (r *RecordingRepository) AppendFrames(id string, frames []Frame) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	var duration int64
	err = tx.QueryRow(`SELECT frames, duration_ms FROM recordings WHERE id = ?`, id).Scan(&count, &duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO recording_frames (recording_id, sequence, offset_ms, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		var data sql.NullString
		if f.Hand != nil {
			raw, err := json.Marshal(f.Hand)
			if err != nil {
				return fmt.Errorf("encode frame %d: %w", count, err)
			}
			data = sql.NullString{String: string(raw), Valid: true}
		}
		if _, err := stmt.Exec(id, count, f.OffsetMs, data); err != nil {
			return err
		}
		count++
		if f.OffsetMs > duration {
			duration = f.OffsetMs
		}
	}

	if _, err := tx.Exec(`UPDATE recordings SET frames = ?, duration_ms = ? WHERE id = ?`, count, duration, id); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	rec := &Recording{}
	err := r.db.QueryRow(
		`SELECT id, name, frames, duration_ms, created_at FROM recordings WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.Name, &rec.Frames, &rec.DurationMs, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns all recordings, newest first.
func (r *RecordingRepository) List() ([]*Recording, error) {
	rows, err := r.db.Query(
		`SELECT id, name, frames, duration_ms, created_at FROM recordings ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec := &Recording{}
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Frames, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// Frames returns every frame of a recording in sequence order.
func (r *RecordingRepository) Frames(id string) ([]Frame, error) {
	if _, err := r.GetByID(id); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT sequence, offset_ms, data
		 FROM recording_frames
		 WHERE recording_id = ?
		 ORDER BY sequence`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var data sql.NullString
		if err := rows.Scan(&f.Sequence, &f.OffsetMs, &data); err != nil {
			return nil, err
		}
		if data.Valid {
			f.Hand = &detector.HandLandmarks{}
			if err := json.Unmarshal([]byte(data.String), f.Hand); err != nil {
				return nil, fmt.Errorf("decode frame %d: %w", f.Sequence, err)
			}
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Delete removes a recording and its frames.
func (r *RecordingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
