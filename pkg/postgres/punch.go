package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

// GetPunches retrieves all punch records in the order they were written
func (d *DB) GetPunches(ctx context.Context) ([]db.Punch, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT name, service, direction, recorded_at, location
		FROM punch
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var punches []db.Punch
	for rows.Next() {
		var p db.Punch
		var recordedAt time.Time
		if err := rows.Scan(&p.Name, &p.Service, &p.Direction, &recordedAt, &p.Location); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		p.Timestamp = recordedAt.Format(model.TimestampLayout)
		punches = append(punches, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating punches: %w", err)
	}

	return punches, nil
}

// InsertPunch inserts a new punch record
func (d *DB) InsertPunch(ctx context.Context, punch *db.Punch) error {
	recordedAt, err := parseTimestamp(punch.Timestamp)
	if err != nil {
		return err
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO punch (name, service, direction, recorded_at, location)
		VALUES ($1, $2, $3, $4, $5)
	`, punch.Name, punch.Service, punch.Direction, recordedAt, punch.Location)
	if err != nil {
		return fmt.Errorf("failed to insert punch: %w", err)
	}
	return nil
}

// parseTimestamp reads a stored wall-clock timestamp; TIMESTAMP columns carry no zone
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(model.TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
