package db

import (
	"context"
	"fmt"

	"github.com/stanthony/volunteer-hours/pkg/sheetssql"
)

// DB provides database operations using SheetsSQL
type DB struct {
	ssql *sheetssql.DB
}

// NewDB creates a new database instance
func NewDB(ssql *sheetssql.DB) *DB {
	return &DB{
		ssql: ssql,
	}
}

// Schema returns the SheetsSQL schema for every table this package stores
func Schema() (*sheetssql.Schema, error) {
	return sheetssql.SchemaFromModels(Punch{}, Registration{})
}

// Layout places the logical tables in the spreadsheet
type Layout struct {
	PunchTab        string
	RegistrationTab string
	// AvailabilityColumns spreads registration availability over one column
	// per entry, e.g. one per festival day. Empty keeps a single column.
	AvailabilityColumns []string
}

// Open ensures the punch and registration tabs exist in the spreadsheet and returns a DB over them
func Open(ctx context.Context, client sheetssql.SheetsClient, spreadsheetID string, layout Layout) (*DB, error) {
	schema, err := Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}

	ssql, err := sheetssql.NewDB(ctx, client, spreadsheetID, schema,
		sheetssql.WithTab(TablePunch, layout.PunchTab),
		sheetssql.WithTab(TableRegistration, layout.RegistrationTab),
		sheetssql.WithSpread(TableRegistration, "availability", layout.AvailabilityColumns...),
	)
	if err != nil {
		return nil, err
	}

	return NewDB(ssql), nil
}

// HeaderlessTables lists tables kept in pre-existing tabs without header rows
func (db *DB) HeaderlessTables() []string {
	var tables []string
	for _, t := range []string{TablePunch, TableRegistration} {
		if db.ssql.Headerless(t) {
			tables = append(tables, t)
		}
	}
	return tables
}
