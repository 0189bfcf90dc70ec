package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/stanthony/volunteer-hours/pkg/core/model"
	"github.com/stanthony/volunteer-hours/pkg/db"
)

// GetRegistrations retrieves all registration records
func (d *DB) GetRegistrations(ctx context.Context) ([]db.Registration, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT first_name, last_name, phone, email, age_bracket, emergency_contact,
		       experience, availability, notes, submitted_at
		FROM registration
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer rows.Close()

	var registrations []db.Registration
	for rows.Next() {
		var r db.Registration
		var submittedAt time.Time
		if err := rows.Scan(&r.FirstName, &r.LastName, &r.Phone, &r.Email, &r.AgeBracket,
			&r.EmergencyContact, &r.Experience, &r.Availability, &r.Notes, &submittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		r.SubmittedAt = submittedAt.Format(model.TimestampLayout)
		registrations = append(registrations, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}

	return registrations, nil
}

// InsertRegistration inserts a new registration record
func (d *DB) InsertRegistration(ctx context.Context, registration *db.Registration) error {
	submittedAt, err := parseTimestamp(registration.SubmittedAt)
	if err != nil {
		return err
	}

	// NULL is reserved; an empty selection is an empty array
	availability := registration.Availability
	if availability == nil {
		availability = []string{}
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO registration (first_name, last_name, phone, email, age_bracket,
		                          emergency_contact, experience, availability, notes, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, registration.FirstName, registration.LastName, registration.Phone, registration.Email,
		registration.AgeBracket, registration.EmergencyContact, registration.Experience,
		availability, registration.Notes, submittedAt)
	if err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}
