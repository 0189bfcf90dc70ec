package db

import (
	"context"
	"fmt"

	"github.com/stanthony/volunteer-hours/pkg/sheetssql"
)

// GetRegistrations retrieves all registration records
func (db *DB) GetRegistrations(ctx context.Context) ([]Registration, error) {
	registrations, err := sheetssql.GetTableAs[Registration](ctx, db.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	return registrations, nil
}

// InsertRegistration appends a registration record
func (db *DB) InsertRegistration(ctx context.Context, registration *Registration) error {
	if err := sheetssql.InsertModel(ctx, db.ssql, *registration); err != nil {
		return fmt.Errorf("failed to insert registration: %w", err)
	}
	return nil
}
