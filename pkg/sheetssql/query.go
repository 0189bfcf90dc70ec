package sheetssql

import (
	"context"
	"fmt"
	"reflect"
)

// GetTableAs reads every data row of the table backing T.
// Columns are matched by header, so extra organiser columns are ignored
// and rows cleared by hand are skipped. Header-less tabs are read by position.
func GetTableAs[T any](ctx context.Context, db *DB) ([]T, error) {
	c, err := codecFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	l := db.layoutFor(c)

	values, err := db.client.GetValues(ctx, db.spreadsheetID, db.tabRange(c.table, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", c.table, err)
	}

	start := l.firstDataRow()
	if len(values) <= start {
		return []T{}, nil
	}

	var header []interface{}
	if !l.headerless {
		header = values[0]
	}
	pos := l.positions(header)

	results := make([]T, 0, len(values)-start)
	for i, row := range values[start:] {
		if blankRow(row) {
			continue
		}
		v, err := l.decode(row, pos)
		if err != nil {
			// Sheet rows are 1-based
			return nil, fmt.Errorf("table %s row %d: %w", c.table, start+i+1, err)
		}
		results = append(results, v.Interface().(T))
	}

	return results, nil
}

// RowFromModel flattens a struct into a row in column order.
// Spread fields occupy one column per element.
func RowFromModel[T any](model T) []interface{} {
	c, err := codecFor(reflect.TypeOf(model))
	if err != nil {
		return nil
	}
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	spread := make(map[string][]string)
	for _, bc := range c.columns {
		if bc.Spread {
			values := v.Field(bc.field).Interface().([]string)
			spread[bc.Name] = make([]string, max(len(values), 1))
		}
	}
	return c.layout(spread, false).encode(v)
}

// InsertModel appends a struct as a row to its corresponding table
func InsertModel[T any](ctx context.Context, db *DB, model T) error {
	return InsertModels(ctx, db, []T{model})
}

// InsertModels appends structs as rows to their table in a single append
func InsertModels[T any](ctx context.Context, db *DB, models []T) error {
	if len(models) == 0 {
		return nil
	}

	c, err := codecFor(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	l := db.layoutFor(c)

	rows := make([][]interface{}, len(models))
	for i := range models {
		rows[i] = l.encode(reflect.ValueOf(models[i]))
	}
	return db.InsertRows(ctx, c.table, rows)
}
