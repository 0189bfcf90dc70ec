package sheetssql

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type typedRow struct {
	Label   string  `ssql_header:"label" ssql_type:"text"`
	Count   int     `ssql_header:"count" ssql_type:"int"`
	Small   uint8   `ssql_header:"small" ssql_type:"int"`
	Ratio   float64 `ssql_header:"ratio" ssql_type:"float"`
	Enabled bool    `ssql_header:"enabled" ssql_type:"bool"`
}

func typedCodec(t *testing.T) *tableLayout {
	t.Helper()
	c, err := codecFor(reflect.TypeOf(typedRow{}))
	require.NoError(t, err)
	return c.layout(nil, false)
}

type dayRow struct {
	Name string   `ssql_header:"name" ssql_type:"text"`
	Days []string `ssql_header:"days" ssql_type:"text"`
	Note string   `ssql_header:"note" ssql_type:"text"`
}

func dayLayout(t *testing.T, headerless bool, days ...string) *tableLayout {
	t.Helper()
	c, err := codecFor(reflect.TypeOf(dayRow{}))
	require.NoError(t, err)
	return c.layout(map[string][]string{"days": days}, headerless)
}

func TestCodecFor_IsCached(t *testing.T) {
	a, err := codecFor(reflect.TypeOf(typedRow{}))
	require.NoError(t, err)
	b, err := codecFor(reflect.TypeOf(&typedRow{}))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "typed_row", a.table)
}

func TestCodecFor_UnsupportedField(t *testing.T) {
	type withSlice struct {
		Tags []int `ssql_header:"tags" ssql_type:"int"`
	}

	_, err := codecFor(reflect.TypeOf(withSlice{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestDecode_ByHeaderPosition(t *testing.T) {
	c := typedCodec(t)
	pos := c.positions([]interface{}{"enabled", "notes", "label", " count ", "ratio", "small"})

	v, err := c.decode([]interface{}{"TRUE", "ignored", "Parking", "42", "0.5", "7"}, pos)
	require.NoError(t, err)

	assert.Equal(t, typedRow{Label: "Parking", Count: 42, Small: 7, Ratio: 0.5, Enabled: true}, v.Interface())
}

func TestDecode_MissingAndShortCells(t *testing.T) {
	c := typedCodec(t)
	pos := c.positions([]interface{}{"label", "count"})

	v, err := c.decode([]interface{}{"Food Stand"}, pos)
	require.NoError(t, err)
	assert.Equal(t, typedRow{Label: "Food Stand"}, v.Interface())
}

func TestDecode_UnformattedNumber(t *testing.T) {
	c := typedCodec(t)
	pos := c.positions([]interface{}{"count", "ratio"})

	v, err := c.decode([]interface{}{float64(7), 39.8637}, pos)
	require.NoError(t, err)

	row := v.Interface().(typedRow)
	assert.Equal(t, 7, row.Count)
	assert.Equal(t, 39.8637, row.Ratio)
}

func TestDecode_Errors(t *testing.T) {
	c := typedCodec(t)

	tests := []struct {
		name    string
		header  string
		cell    string
		message string
	}{
		{"int", "count", "not a number", "failed to parse int"},
		{"uint overflow", "small", "300", "failed to parse uint"},
		{"float", "ratio", "half", "failed to parse float"},
		{"bool", "enabled", "maybe", "failed to parse bool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := c.positions([]interface{}{tt.header})
			_, err := c.decode([]interface{}{tt.cell}, pos)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "column "+tt.header)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestBlankRow(t *testing.T) {
	assert.True(t, blankRow(nil))
	assert.True(t, blankRow([]interface{}{"", "  ", nil}))
	assert.False(t, blankRow([]interface{}{"", "In"}))
}

func TestRowFromModel(t *testing.T) {
	row := RowFromModel(TestPunch{Name: "Maria Lopez", Direction: "In", Timestamp: "2025-10-10 17:02:11"})
	assert.Equal(t, []interface{}{"Maria Lopez", "In", "2025-10-10 17:02:11"}, row)

	assert.Equal(t, row, RowFromModel(&TestPunch{Name: "Maria Lopez", Direction: "In", Timestamp: "2025-10-10 17:02:11"}))
}

func TestLayout_SpreadsOneColumnPerElement(t *testing.T) {
	l := dayLayout(t, false, "Thursday", "Friday", "Saturday")

	assert.Equal(t, []Column{
		{Name: "name", Type: "text"},
		{Name: "Thursday", Type: "text"},
		{Name: "Friday", Type: "text"},
		{Name: "Saturday", Type: "text"},
		{Name: "note", Type: "text"},
	}, l.columns)

	row := l.encode(reflect.ValueOf(dayRow{Name: "Alex", Days: []string{"Other", "5:00 pm - 11:00 pm"}, Note: "tall"}))
	assert.Equal(t, []interface{}{"Alex", "Other", "5:00 pm - 11:00 pm", "", "tall"}, row)

	pos := l.positions([]interface{}{"name", "Thursday", "Friday", "Saturday", "note"})
	v, err := l.decode(row, pos)
	require.NoError(t, err)
	assert.Equal(t, dayRow{Name: "Alex", Days: []string{"Other", "5:00 pm - 11:00 pm", ""}, Note: "tall"}, v.Interface())
}

func TestLayout_SpreadWithoutColumnsKeepsOneCell(t *testing.T) {
	l := dayLayout(t, false)

	assert.Equal(t, []interface{}{"Alex", "Fri: Cosmetology", ""},
		l.encode(reflect.ValueOf(dayRow{Name: "Alex", Days: []string{"Fri: Cosmetology"}})))

	v, err := l.decode([]interface{}{"Sam", ""}, l.positions([]interface{}{"name", "days"}))
	require.NoError(t, err)
	assert.Nil(t, v.Interface().(dayRow).Days)
}

func TestLayout_HeaderlessReadsByPosition(t *testing.T) {
	l := dayLayout(t, true)

	assert.Equal(t, 0, l.firstDataRow())
	pos := l.positions(nil)
	assert.Equal(t, []int{0, 1, 2}, pos)

	v, err := l.decode([]interface{}{"Alex", "Parking"}, pos)
	require.NoError(t, err)
	assert.Equal(t, dayRow{Name: "Alex", Days: []string{"Parking"}}, v.Interface())
}

func TestRowFromModel_Spread(t *testing.T) {
	assert.Equal(t, []interface{}{"Alex", "Other", "Other", ""},
		RowFromModel(dayRow{Name: "Alex", Days: []string{"Other", "Other"}}))
}
