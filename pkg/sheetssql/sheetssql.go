package sheetssql

import (
	"context"
	"fmt"

	"github.com/stanthony/volunteer-hours/pkg/clients/sheetsclient"
)

// SheetsClient defines the interface for sheets operations
type SheetsClient interface {
	GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
	AppendRows(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) error
	CreateSheet(ctx context.Context, spreadsheetID, sheetTitle string) (int64, error)
	ListSheets(ctx context.Context, spreadsheetID string) ([]string, error)
}

// Column defines a column with name and type
type Column struct {
	Name string
	Type string // e.g., "text", "timestamp", "int", "bool", "uuid"
	// Spread marks a []string field stored across several columns, see WithSpread
	Spread bool
}

// TableSchema defines the structure of a table
type TableSchema struct {
	Name    string
	Columns []Column
}

// Schema defines the database schema
type Schema struct {
	Tables []TableSchema
}

// Option configures a DB
type Option func(*DB)

// WithTab stores the logical table in a tab with a different title,
// e.g. the punch table living in an existing "Sheet1" tab
func WithTab(table, tab string) Option {
	return func(db *DB) {
		if tab != "" {
			db.tabs[table] = tab
		}
	}
}

// WithSpread stores the []string field headed header in table across the
// given columns, one element per column, e.g. one column per festival day
func WithSpread(table, header string, columns ...string) Option {
	return func(db *DB) {
		if len(columns) == 0 {
			return
		}
		if db.spreads[table] == nil {
			db.spreads[table] = make(map[string][]string)
		}
		db.spreads[table][header] = append([]string(nil), columns...)
	}
}

// DB represents a connection to a Google Sheets "database"
type DB struct {
	client        SheetsClient
	spreadsheetID string
	schema        *Schema
	tabs          map[string]string
	spreads       map[string]map[string][]string
	// headerless tabs predate this tool: rows are appended and read positionally
	headerless map[string]bool
}

// NewDB creates a new Sheets SQL database connection and ensures schema exists
func NewDB(ctx context.Context, client SheetsClient, spreadsheetID string, schema *Schema, opts ...Option) (*DB, error) {
	db := &DB{
		client:        client,
		spreadsheetID: spreadsheetID,
		schema:        schema,
		tabs:          make(map[string]string),
		spreads:       make(map[string]map[string][]string),
		headerless:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// TabFor returns the tab title a logical table is stored in
func (db *DB) TabFor(tableName string) string {
	if tab, ok := db.tabs[tableName]; ok {
		return tab
	}
	return tableName
}

// Headerless reports whether a table lives in a tab without header and type rows
func (db *DB) Headerless(tableName string) bool {
	return db.headerless[tableName]
}

// Columns returns the sheet columns of a table after spreading
func (db *DB) Columns(table TableSchema) []Column {
	return expandColumns(table.Columns, db.spreads[table.Name])
}

func (db *DB) layoutFor(c *rowCodec) *tableLayout {
	return c.layout(db.spreads[c.table], db.headerless[c.table])
}

func (db *DB) tabRange(tableName, cells string) string {
	r := sheetsclient.QuoteTab(db.TabFor(tableName))
	if cells != "" {
		r += "!" + cells
	}
	return r
}

// InsertRows appends rows to the tab backing tableName
func (db *DB) InsertRows(ctx context.Context, tableName string, rows [][]interface{}) error {
	return db.client.AppendRows(ctx, db.spreadsheetID, db.tabRange(tableName, ""), rows)
}
