package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// IncomparableError is returned when a value can't take part in equality
// based matching.
type IncomparableError struct {
	Value Value
}

func (e *IncomparableError) Error() string {
	return fmt.Sprintf("values of type %s can't be compared", TypeName(e.Value))
}

// Equal reports whether a and b are the same variant holding the same data.
// Values of different variants are never equal.
func Equal(a, b Value) bool {
	if IsNothing(a) || IsNothing(b) {
		return IsNothing(a) && IsNothing(b)
	}

	switch a := a.(type) {
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Int:
		b, ok := b.(Int)
		return ok && a == b
	case Float:
		b, ok := b.(Float)
		return ok && a == b
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Binary:
		b, ok := b.(Binary)
		return ok && bytes.Equal(a, b)
	case Duration:
		b, ok := b.(Duration)
		return ok && a == b
	case Date:
		b, ok := b.(Date)
		return ok && time.Time(a).Equal(time.Time(b))
	case List:
		b, ok := b.(List)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case *Record:
		b, ok := b.(*Record)
		if !ok || !a.SameColumns(b) {
			return false
		}
		for i := range a.vals {
			if !Equal(a.vals[i], b.vals[i]) {
				return false
			}
		}
		return true
	case Block:
		b, ok := b.(Block)
		return ok && a == b
	case Closure:
		b, ok := b.(Closure)
		return ok && a == b
	case Error:
		b, ok := b.(Error)
		return ok && a.Error() == b.Error()
	default:
		panic(fmt.Sprintf("value: unhandled variant %T", a))
	}
}

// Key is a hashable identity for a value; two values have the same Key
// exactly when they are Equal.
type Key struct {
	kind string
	repr string
}

func (k Key) String() string {
	return k.kind + ":" + k.repr
}

// KeyOf computes the hashable identity of v. Blocks, closures, errors and NaN
// floats have no identity and produce an *IncomparableError.
func KeyOf(v Value) (Key, error) {
	repr, err := keyRepr(v)
	if err != nil {
		return Key{}, err
	}
	return Key{kind: TypeName(v), repr: repr}, nil
}

func keyRepr(v Value) (string, error) {
	switch v := v.(type) {
	case nil, Nothing:
		return "", nil
	case Bool:
		return strconv.FormatBool(bool(v)), nil
	case Int:
		return strconv.FormatInt(int64(v), 10), nil
	case Float:
		f := float64(v)
		if math.IsNaN(f) {
			return "", &IncomparableError{Value: v}
		}
		if f == 0 {
			f = 0 // fold negative zero
		}
		return strconv.FormatUint(math.Float64bits(f), 16), nil
	case String:
		return string(v), nil
	case Binary:
		return string(v), nil
	case Duration:
		return strconv.FormatInt(int64(v), 10), nil
	case Date:
		return strconv.FormatInt(time.Time(v).UnixNano(), 10), nil
	case List:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			k, err := KeyOf(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, strconv.Quote(k.String()))
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	case *Record:
		parts := make([]string, 0, v.Len())
		for i, col := range v.cols {
			k, err := KeyOf(v.vals[i])
			if err != nil {
				return "", err
			}
			parts = append(parts, strconv.Quote(col)+"="+strconv.Quote(k.String()))
		}
		return "{" + strings.Join(parts, ",") + "}", nil
	case Block, Closure, Error:
		return "", &IncomparableError{Value: v}
	default:
		panic(fmt.Sprintf("value: unhandled variant %T", v))
	}
}
