package value

import (
	"encoding/base64"
	"fmt"
	"math"
	"sort"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToProto converts v to a protobuf Value so it can travel through protobuf
// encoders such as protojson.
//
// The protobuf model is smaller than ours: binary becomes base64 text,
// durations become nanosecond counts, dates become RFC 3339 text and record
// column order is lost.
func ToProto(v Value) (*structpb.Value, error) {
	switch v := v.(type) {
	case nil, Nothing:
		return structpb.NewNullValue(), nil
	case Bool:
		return structpb.NewBoolValue(bool(v)), nil
	case Int:
		return structpb.NewNumberValue(float64(v)), nil
	case Float:
		return structpb.NewNumberValue(float64(v)), nil
	case String:
		return structpb.NewStringValue(string(v)), nil
	case Binary:
		return structpb.NewStringValue(base64.StdEncoding.EncodeToString(v)), nil
	case Duration:
		return structpb.NewNumberValue(float64(v)), nil
	case Date:
		return structpb.NewStringValue(time.Time(v).Format(time.RFC3339Nano)), nil
	case List:
		out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(v))}
		for _, item := range v {
			pv, err := ToProto(item)
			if err != nil {
				return nil, err
			}
			out.Values = append(out.Values, pv)
		}
		return structpb.NewListValue(out), nil
	case *Record:
		out := &structpb.Struct{Fields: make(map[string]*structpb.Value, v.Len())}
		for i, col := range v.cols {
			pv, err := ToProto(v.vals[i])
			if err != nil {
				return nil, err
			}
			out.Fields[col] = pv
		}
		return structpb.NewStructValue(out), nil
	case Block, Closure:
		return nil, fmt.Errorf("can't convert %s to protobuf", TypeName(v))
	case Error:
		return nil, v.Err
	default:
		panic(fmt.Sprintf("value: unhandled variant %T", v))
	}
}

// FromProto converts a protobuf Value back. Numbers without a fractional part
// that fit in 64 bits become Int, struct fields are ordered by name.
func FromProto(pv *structpb.Value) Value {
	switch kind := pv.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return Nothing{}
	case *structpb.Value_BoolValue:
		return Bool(kind.BoolValue)
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return Int(int64(f))
		}
		return Float(f)
	case *structpb.Value_StringValue:
		return String(kind.StringValue)
	case *structpb.Value_ListValue:
		out := make(List, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			out = append(out, FromProto(item))
		}
		return out
	case *structpb.Value_StructValue:
		fields := kind.StructValue.GetFields()
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		out := NewRecord()
		for _, name := range names {
			out.Insert(name, FromProto(fields[name]))
		}
		return out
	default:
		panic(fmt.Sprintf("value: unhandled protobuf kind %T", kind))
	}
}
