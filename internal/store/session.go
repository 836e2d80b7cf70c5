package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session summarizes one run of the tracking loop.
type Session struct {
	ID           string     `json:"id"`
	Mode         string     `json:"mode"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Frames       int64      `json:"frames"`
	FramesFound  int64      `json:"frames_found"`
	ModeSwitches int64      `json:"mode_switches"`
	Calibrations int64      `json:"calibrations"`
}

// SessionRepository records run summaries.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a new open session in the given mode.
func (r *SessionRepository) Start(mode string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, mode, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Mode, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Save writes the counters, mode and end time of sess.
func (r *SessionRepository) Save(sess *Session) error {
	var ended sql.NullTime
	if sess.EndedAt != nil {
		ended = sql.NullTime{Time: *sess.EndedAt, Valid: true}
	}

	res, err := r.db.Exec(
		`UPDATE sessions SET mode = ?, ended_at = ?, frames = ?, frames_found = ?, mode_switches = ?, calibrations = ?
		 WHERE id = ?`,
		sess.Mode, ended, sess.Frames, sess.FramesFound, sess.ModeSwitches, sess.Calibrations, sess.ID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Finish stamps the end time and saves sess.
func (r *SessionRepository) Finish(sess *Session) error {
	now := time.Now().UTC()
	sess.EndedAt = &now
	return r.Save(sess)
}

// Get returns the session with id or ErrNotFound.
func (r *SessionRepository) Get(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, mode, started_at, ended_at, frames, frames_found, mode_switches, calibrations
		 FROM sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns up to limit sessions, newest first.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, mode, started_at, ended_at, frames, frames_found, mode_switches, calibrations
		 FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSession(s scanner) (*Session, error) {
	var sess Session
	var ended sql.NullTime
	err := s.Scan(&sess.ID, &sess.Mode, &sess.StartedAt, &ended,
		&sess.Frames, &sess.FramesFound, &sess.ModeSwitches, &sess.Calibrations)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return &sess, nil
}
