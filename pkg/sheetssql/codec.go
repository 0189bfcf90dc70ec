package sheetssql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Struct tags read by the codec
const (
	tagHeader = "ssql_header"
	tagType   = "ssql_type"
)

// A tab is laid out as one header row, one type row, then data
const dataStartRow = 2

var stringsType = reflect.TypeOf([]string(nil))

// boundColumn ties a sheet column to the struct field it fills.
// A []string field spreads over one sheet column per element.
type boundColumn struct {
	Column
	field int
	kind  reflect.Kind
}

// rowCodec converts between one model type and its sheet rows
type rowCodec struct {
	typ     reflect.Type
	table   string
	columns []boundColumn
}

var codecs sync.Map // reflect.Type -> *rowCodec

// codecFor returns the cached codec for a model type, building it on first use
func codecFor(t reflect.Type) (*rowCodec, error) {
	if t == nil {
		return nil, fmt.Errorf("model must be a struct, got nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := codecs.Load(t); ok {
		return cached.(*rowCodec), nil
	}

	c, err := buildCodec(t)
	if err != nil {
		return nil, err
	}
	actual, _ := codecs.LoadOrStore(t, c)
	return actual.(*rowCodec), nil
}

func buildCodec(t reflect.Type) (*rowCodec, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", t.Kind())
	}

	c := &rowCodec{typ: t, table: TableName(t)}
	for i := range t.NumField() {
		f := t.Field(i)
		header, hasHeader := f.Tag.Lookup(tagHeader)
		if !hasHeader || header == "" {
			return nil, fmt.Errorf("field %s.%s missing '%s' tag", t.Name(), f.Name, tagHeader)
		}
		colType, hasType := f.Tag.Lookup(tagType)
		if !hasType || colType == "" {
			return nil, fmt.Errorf("field %s.%s missing '%s' tag", t.Name(), f.Name, tagType)
		}
		spread := f.Type == stringsType
		if _, ok := cellParsers[f.Type.Kind()]; !ok && !spread {
			return nil, fmt.Errorf("field %s.%s has unsupported type %s", t.Name(), f.Name, f.Type)
		}
		c.columns = append(c.columns, boundColumn{
			Column: Column{Name: header, Type: colType, Spread: spread},
			field:  i,
			kind:   f.Type.Kind(),
		})
	}

	if len(c.columns) == 0 {
		return nil, fmt.Errorf("struct %s has no fields", t.Name())
	}
	return c, nil
}

func (c *rowCodec) schema() TableSchema {
	cols := make([]Column, len(c.columns))
	for i, bc := range c.columns {
		cols[i] = bc.Column
	}
	return TableSchema{Name: c.table, Columns: cols}
}

// expandColumns replaces each spread column with its configured sheet
// columns. A spread column with nothing configured keeps its own name.
func expandColumns(cols []Column, spread map[string][]string) []Column {
	out := make([]Column, 0, len(cols))
	for _, col := range cols {
		names := spread[col.Name]
		if !col.Spread || len(names) == 0 {
			out = append(out, col)
			continue
		}
		for _, n := range names {
			out = append(out, Column{Name: n, Type: col.Type})
		}
	}
	return out
}

// tableLayout is a codec bound to the sheet columns of one tab
type tableLayout struct {
	*rowCodec
	columns    []Column
	spans      []int
	headerless bool
}

func (c *rowCodec) layout(spread map[string][]string, headerless bool) *tableLayout {
	l := &tableLayout{rowCodec: c, headerless: headerless, spans: make([]int, len(c.columns))}
	for i, bc := range c.columns {
		expanded := expandColumns([]Column{bc.Column}, spread)
		l.spans[i] = len(expanded)
		l.columns = append(l.columns, expanded...)
	}
	return l
}

// firstDataRow is the zero-based index of the first data row in the tab
func (l *tableLayout) firstDataRow() int {
	if l.headerless {
		return 0
	}
	return dataStartRow
}

// encode flattens a model value into a row in sheet column order
func (l *tableLayout) encode(v reflect.Value) []interface{} {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	row := make([]interface{}, 0, len(l.columns))
	for i, bc := range l.rowCodec.columns {
		f := v.Field(bc.field)
		if !bc.Spread {
			row = append(row, f.Interface())
			continue
		}
		values := f.Interface().([]string)
		for k := range l.spans[i] {
			cell := ""
			if k < len(values) {
				cell = values[k]
			}
			row = append(row, cell)
		}
	}
	return row
}

// positions finds each sheet column in a header row. Columns the
// sheet does not carry get -1 and are left at their zero value.
// A header-less tab is read positionally.
func (l *tableLayout) positions(headerRow []interface{}) []int {
	pos := make([]int, len(l.columns))
	if l.headerless {
		for i := range pos {
			pos[i] = i
		}
		return pos
	}

	at := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		if name, ok := h.(string); ok {
			at[strings.TrimSpace(name)] = i
		}
	}
	for i, col := range l.columns {
		if idx, ok := at[col.Name]; ok {
			pos[i] = idx
		} else {
			pos[i] = -1
		}
	}
	return pos
}

// decode fills a new model value from one data row.
// The returned error names the failing column.
func (l *tableLayout) decode(row []interface{}, pos []int) (reflect.Value, error) {
	cell := func(j int) (interface{}, bool) {
		idx := pos[j]
		if idx < 0 || idx >= len(row) || row[idx] == nil {
			return nil, false
		}
		return row[idx], true
	}

	out := reflect.New(l.typ).Elem()
	j := 0
	for i, bc := range l.rowCodec.columns {
		if bc.Spread {
			values := make([]string, l.spans[i])
			filled := false
			for k := range values {
				if v, ok := cell(j + k); ok {
					values[k] = cellText(v)
					filled = filled || values[k] != ""
				}
			}
			if filled {
				out.Field(bc.field).Set(reflect.ValueOf(values))
			}
			j += l.spans[i]
			continue
		}

		v, ok := cell(j)
		j++
		if !ok {
			continue
		}
		if err := cellParsers[bc.kind](out.Field(bc.field), cellText(v)); err != nil {
			return reflect.Value{}, fmt.Errorf("column %s: %w", l.columns[j-1].Name, err)
		}
	}
	return out, nil
}

// blankRow reports whether every cell is empty, as left behind when
// an organiser clears a row by hand
func blankRow(row []interface{}) bool {
	for _, cell := range row {
		if cell != nil && strings.TrimSpace(cellText(cell)) != "" {
			return false
		}
	}
	return true
}

// cellText renders a cell the way Sheets displays it. Formatted reads
// return strings; unformatted numbers arrive as float64.
func cellText(cell interface{}) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

type cellParser func(field reflect.Value, text string) error

var cellParsers = map[reflect.Kind]cellParser{
	reflect.String: func(f reflect.Value, s string) error {
		f.SetString(s)
		return nil
	},
	reflect.Int:     parseSigned,
	reflect.Int8:    parseSigned,
	reflect.Int16:   parseSigned,
	reflect.Int32:   parseSigned,
	reflect.Int64:   parseSigned,
	reflect.Uint:    parseUnsigned,
	reflect.Uint8:   parseUnsigned,
	reflect.Uint16:  parseUnsigned,
	reflect.Uint32:  parseUnsigned,
	reflect.Uint64:  parseUnsigned,
	reflect.Float32: parseFloat,
	reflect.Float64: parseFloat,
	reflect.Bool:    parseBool,
}

func parseSigned(f reflect.Value, s string) error {
	if s == "" {
		f.SetInt(0)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, f.Type().Bits())
	if err != nil {
		return fmt.Errorf("failed to parse int: %w", err)
	}
	f.SetInt(n)
	return nil
}

func parseUnsigned(f reflect.Value, s string) error {
	if s == "" {
		f.SetUint(0)
		return nil
	}
	n, err := strconv.ParseUint(s, 10, f.Type().Bits())
	if err != nil {
		return fmt.Errorf("failed to parse uint: %w", err)
	}
	f.SetUint(n)
	return nil
}

func parseFloat(f reflect.Value, s string) error {
	if s == "" {
		f.SetFloat(0)
		return nil
	}
	n, err := strconv.ParseFloat(s, f.Type().Bits())
	if err != nil {
		return fmt.Errorf("failed to parse float: %w", err)
	}
	f.SetFloat(n)
	return nil
}

func parseBool(f reflect.Value, s string) error {
	if s == "" {
		f.SetBool(false)
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return fmt.Errorf("failed to parse bool: %w", err)
	}
	f.SetBool(b)
	return nil
}
