package db

import (
	"context"
	"fmt"

	"github.com/stanthony/volunteer-hours/pkg/sheetssql"
)

// GetPunches retrieves all punch records
func (db *DB) GetPunches(ctx context.Context) ([]Punch, error) {
	punches, err := sheetssql.GetTableAs[Punch](ctx, db.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get punches: %w", err)
	}
	return punches, nil
}

// InsertPunch appends a punch record
func (db *DB) InsertPunch(ctx context.Context, punch *Punch) error {
	if err := sheetssql.InsertModel(ctx, db.ssql, *punch); err != nil {
		return fmt.Errorf("failed to insert punch: %w", err)
	}
	return nil
}
