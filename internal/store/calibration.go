package store

import (
	"database/sql"
	"errors"
	"time"
)

// Calibration is one recorded focal-length calibration.
type Calibration struct {
	ID              int64     `json:"id"`
	FocalLengthPx   float64   `json:"focal_length_px"`
	WidthPx         int       `json:"width_px"`
	KnownWidthCM    float64   `json:"known_width_cm"`
	CalibDistanceCM float64   `json:"calib_distance_cm"`
	Mode            string    `json:"mode"`
	CreatedAt       time.Time `json:"created_at"`
}

// CalibrationRepository stores calibration history.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Create inserts c and fills in its ID and CreatedAt.
func (r *CalibrationRepository) Create(c *Calibration) error {
	now := time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO calibrations (focal_length_px, width_px, known_width_cm, calib_distance_cm, mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.FocalLengthPx, c.WidthPx, c.KnownWidthCM, c.CalibDistanceCM, c.Mode, now,
	)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

// Latest returns the most recent calibration or ErrNotFound.
func (r *CalibrationRepository) Latest() (*Calibration, error) {
	row := r.db.QueryRow(
		`SELECT id, focal_length_px, width_px, known_width_cm, calib_distance_cm, mode, created_at
		 FROM calibrations ORDER BY id DESC LIMIT 1`,
	)

	c, err := scanCalibration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// List returns up to limit calibrations, newest first. A non-positive limit
// returns all of them.
func (r *CalibrationRepository) List(limit int) ([]*Calibration, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, focal_length_px, width_px, known_width_cm, calib_distance_cm, mode, created_at
		 FROM calibrations ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Calibration
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalibration(s scanner) (*Calibration, error) {
	var c Calibration
	var created sql.NullTime
	if err := s.Scan(&c.ID, &c.FocalLengthPx, &c.WidthPx, &c.KnownWidthCM, &c.CalibDistanceCM, &c.Mode, &created); err != nil {
		return nil, err
	}
	if created.Valid {
		c.CreatedAt = created.Time
	}
	return &c, nil
}
