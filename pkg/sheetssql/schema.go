package sheetssql

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// SchemaFromModels builds a Schema with one table per struct.
// Every field needs `ssql_header` and `ssql_type` tags.
func SchemaFromModels(models ...interface{}) (*Schema, error) {
	schema := &Schema{Tables: make([]TableSchema, 0, len(models))}
	for _, m := range models {
		c, err := codecFor(reflect.TypeOf(m))
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, c.schema())
	}
	return schema, nil
}

// TableName returns the logical table name for a model type
func TableName(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return toSnakeCase(t.Name())
}

func toSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ensureSchema creates missing tabs and checks existing ones.
// An existing tab with nothing in it gets its header and type rows. A tab
// whose first row carries none of the expected headers predates this
// layout; it is kept as is and written and read by column position.
func (db *DB) ensureSchema(ctx context.Context) error {
	titles, err := db.client.ListSheets(ctx, db.spreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to get existing sheets: %w", err)
	}

	present := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		present[title] = struct{}{}
	}

	for _, table := range db.schema.Tables {
		tab := db.TabFor(table.Name)
		if _, ok := present[tab]; !ok {
			if _, err := db.client.CreateSheet(ctx, db.spreadsheetID, tab); err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.Name, err)
			}
			if err := db.writeHeaders(ctx, table); err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.Name, err)
			}
			continue
		}
		if err := db.verifyTableSchema(ctx, table); err != nil {
			return fmt.Errorf("table %s (tab %q) schema mismatch: %w", table.Name, tab, err)
		}
	}

	return nil
}

func (db *DB) verifyTableSchema(ctx context.Context, table TableSchema) error {
	head, err := db.client.GetValues(ctx, db.spreadsheetID, db.tabRange(table.Name, "A1:ZZ2"))
	if err != nil {
		return fmt.Errorf("failed to read table headers: %w", err)
	}

	columns := db.Columns(table)
	names := make([]string, len(columns))
	types := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
		types[i] = col.Type
	}

	if len(head) == 0 {
		return db.writeHeaders(ctx, table)
	}
	if !sharesHeader(head[0], names) {
		db.headerless[table.Name] = true
		return nil
	}
	if len(head) == 1 {
		return fmt.Errorf("table missing header or type row")
	}

	if len(head[0]) != len(names) {
		return fmt.Errorf("expected %d columns, found %d", len(names), len(head[0]))
	}
	if err := matchRow(head[0], names, "header"); err != nil {
		return err
	}
	return matchRow(head[1], types, "type")
}

// sharesHeader reports whether any cell of row is one of the expected headers
func sharesHeader(row []interface{}, names []string) bool {
	for _, cell := range row {
		s, ok := cell.(string)
		if !ok {
			continue
		}
		for _, n := range names {
			if strings.TrimSpace(s) == n {
				return true
			}
		}
	}
	return false
}

// matchRow compares one schema row of a tab against the expected cells
func matchRow(got []interface{}, want []string, what string) error {
	for i, w := range want {
		if i >= len(got) {
			return fmt.Errorf("column %d: missing %s, expected '%s'", i, what, w)
		}
		if s, ok := got[i].(string); !ok || s != w {
			return fmt.Errorf("column %d: expected %s '%s', got '%v'", i, what, w, got[i])
		}
	}
	return nil
}

func (db *DB) writeHeaders(ctx context.Context, table TableSchema) error {
	columns := db.Columns(table)
	names := make([]interface{}, 0, len(columns))
	types := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
		types = append(types, col.Type)
	}

	if err := db.InsertRows(ctx, table.Name, [][]interface{}{names, types}); err != nil {
		return fmt.Errorf("failed to write headers and types: %w", err)
	}
	return nil
}
