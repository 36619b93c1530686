package value

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	now := time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := map[string]struct {
		a, b     Value
		expected bool
	}{
		"same-int":          {Int(1), Int(1), true},
		"different-int":     {Int(1), Int(2), false},
		"int-vs-float":      {Int(1), Float(1), false},
		"int-vs-string":     {Int(1), String("1"), false},
		"nil-vs-nothing":    {nil, Nothing{}, true},
		"nothing-vs-int":    {Nothing{}, Int(0), false},
		"date-zones":        {Date(now), Date(now.In(time.FixedZone("x", 3600))), true},
		"binary":            {Binary("ab"), Binary("ab"), true},
		"lists":             {List{Int(1), String("a")}, List{Int(1), String("a")}, true},
		"list-lengths":      {List{Int(1)}, List{Int(1), Int(1)}, false},
		"records":           {RecordOf("a", Int(1)), RecordOf("a", Int(1)), true},
		"record-col-order":  {RecordOf("a", Int(1), "b", Int(2)), RecordOf("b", Int(2), "a", Int(1)), false},
		"record-vs-list":    {RecordOf("a", Int(1)), List{Int(1)}, false},
		"errors-by-message": {Error{Err: errors.New("x")}, Error{Err: errors.New("x")}, true},
		"blocks":            {Block{ID: 1}, Block{ID: 2}, false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.expected, Equal(tc.a, tc.b))
			assert.Equal(t, tc.expected, Equal(tc.b, tc.a))
		})
	}
}

func TestKeyOf(t *testing.T) {
	keyable := []Value{
		Nothing{},
		Bool(true),
		Int(1),
		Float(1),
		Float(math.Copysign(0, -1)),
		String("1"),
		Binary("1"),
		Duration(1),
		Date(time.Unix(1, 0)),
		List{Int(1), String("x")},
		RecordOf("a", Int(1)),
	}

	for _, a := range keyable {
		for _, b := range keyable {
			ka, err := KeyOf(a)
			require.NoError(t, err)
			kb, err := KeyOf(b)
			require.NoError(t, err)

			assert.Equal(t, Equal(a, b), ka == kb, "%#v vs %#v", a, b)
		}
	}

	t.Run("negative-zero", func(t *testing.T) {
		a, _ := KeyOf(Float(0))
		b, _ := KeyOf(Float(math.Copysign(0, -1)))
		assert.Equal(t, a, b)
	})

	for tn, v := range map[string]Value{
		"block":       Block{ID: 1},
		"closure":     Closure{BlockID: 1},
		"error":       Error{Err: errors.New("x")},
		"nan":         Float(math.NaN()),
		"nested-nan":  List{Float(math.NaN())},
		"nested-func": RecordOf("f", Closure{}),
	} {
		t.Run(tn, func(t *testing.T) {
			_, err := KeyOf(v)
			var incomparable *IncomparableError
			assert.ErrorAs(t, err, &incomparable)
		})
	}
}

func TestRecordInsert(t *testing.T) {
	r := RecordOf("a", Int(1), "b", Int(2))
	r.Insert("a", Int(3))
	r.Insert("c", Int(4))

	assert.Equal(t, []string{"a", "b", "c"}, r.Columns())
	assert.Equal(t, []Value{Int(3), Int(2), Int(4)}, r.Values())
	assert.True(t, r.Has("c"))
	assert.False(t, r.Has("d"))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "table", TypeName(List{RecordOf("a", Int(1))}))
	assert.Equal(t, "list", TypeName(List{}))
	assert.Equal(t, "nothing", TypeName(nil))
	assert.Equal(t, "error", TypeName(Error{}))
}

func TestProtoRoundTrip(t *testing.T) {
	in := RecordOf(
		"a", Int(1),
		"b", Float(1.5),
		"c", List{String("x"), Nothing{}, Bool(true)},
		"d", RecordOf("z", Int(-3)),
	)

	pv, err := ToProto(in)
	require.NoError(t, err)
	assert.True(t, Equal(in, FromProto(pv)))

	_, err = ToProto(Closure{})
	assert.Error(t, err)
}
