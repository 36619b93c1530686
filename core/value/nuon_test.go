package value

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ExampleToNuon() {
	table := List{
		RecordOf("a", Int(1), "b", Int(1), "b_", Int(2)),
		RecordOf("a", Int(3), "b", Nothing{}, "b_", Int(4)),
	}

	out, _ := ToNuon(table)
	fmt.Println(out)

	// Output: [[a, b, b_]; [1, 1, 2], [3, null, 4]]
}

func TestToNuon(t *testing.T) {
	cases := map[string]struct {
		in       Value
		expected string
	}{
		"nothing":       {Nothing{}, "null"},
		"nil":           {nil, "null"},
		"bool":          {Bool(true), "true"},
		"int":           {Int(-42), "-42"},
		"float":         {Float(1.5), "1.5"},
		"whole-float":   {Float(2), "2.0"},
		"nan":           {Float(math.NaN()), "NaN"},
		"inf":           {Float(math.Inf(-1)), "-inf"},
		"bare-string":   {String("missing"), "missing"},
		"spaced-string": {String("hello world"), `"hello world"`},
		"number-string": {String("12"), `"12"`},
		"keyword":       {String("null"), `"null"`},
		"empty-string":  {String(""), `""`},
		"escapes":       {String("a\"b\n"), `"a\"b\n"`},
		"binary":        {Binary{0x0a, 0xff}, "0x[0aff]"},
		"duration":      {Duration(time.Second), "1000000000ns"},
		"date":          {Date(time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)), "2006-01-02T03:04:05Z"},
		"empty-list":    {List{}, "[]"},
		"list":          {List{Int(1), String("a b"), Nothing{}}, `[1, "a b", null]`},
		"empty-record":  {NewRecord(), "{}"},
		"record":        {RecordOf("a", Int(1), "my col", Bool(false)), `{a: 1, "my col": false}`},
		"table":         {List{RecordOf("a", Int(1)), RecordOf("a", Int(2))}, "[[a]; [1], [2]]"},
		"ragged-table": {
			List{RecordOf("a", Int(1)), RecordOf("b", Int(2))},
			"[{a: 1}, {b: 2}]",
		},
		"reordered-table": {
			List{RecordOf("a", Int(1), "b", Int(2)), RecordOf("b", Int(2), "a", Int(1))},
			"[{a: 1, b: 2}, {b: 2, a: 1}]",
		},
		"columnless-rows": {List{NewRecord()}, "[{}]"},
		"nested": {
			RecordOf("rows", List{RecordOf("x", List{})}),
			"{rows: [[x]; [[]]]}",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			actual, err := ToNuon(tc.in)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestToNuon_unsupported(t *testing.T) {
	_, err := ToNuon(List{Block{ID: 3}})
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = ToNuon(List{Int(1), Error{Err: boom}})
	assert.ErrorIs(t, err, boom)
}
