package db

import "context"

// PunchStore defines the interface for punch database operations
type PunchStore interface {
	InsertPunch(ctx context.Context, punch *Punch) error
	GetPunches(ctx context.Context) ([]Punch, error)
}

// RegistrationStore defines the interface for registration database operations
type RegistrationStore interface {
	InsertRegistration(ctx context.Context, registration *Registration) error
	GetRegistrations(ctx context.Context) ([]Registration, error)
}

// Database defines the interface for all database operations.
// Both the SheetsSQL-backed db.DB and postgres.DB implement this interface.
type Database interface {
	PunchStore
	RegistrationStore
}
