package value

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToNuon renders v in the shell's object notation. The output is
// deterministic: records keep their column order, a non-empty list of records
// sharing one column order is written in table form and floats always carry
// a decimal point.
//
// Error values can't be rendered, their underlying error is returned instead.
func ToNuon(v Value) (string, error) {
	var sb strings.Builder
	if err := writeNuon(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeNuon(sb *strings.Builder, v Value) error {
	switch v := v.(type) {
	case nil, Nothing:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(v)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case Float:
		sb.WriteString(formatFloat(float64(v)))
	case String:
		sb.WriteString(QuoteIfNeeded(string(v)))
	case Binary:
		sb.WriteString("0x[")
		sb.WriteString(hex.EncodeToString(v))
		sb.WriteString("]")
	case Duration:
		fmt.Fprintf(sb, "%dns", int64(v))
	case Date:
		sb.WriteString(time.Time(v).Format(time.RFC3339Nano))
	case List:
		if isUniformTable(v) {
			return writeTable(sb, v)
		}
		sb.WriteString("[")
		for i, item := range v {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := writeNuon(sb, item); err != nil {
				return err
			}
		}
		sb.WriteString("]")
	case *Record:
		sb.WriteString("{")
		for i, col := range v.cols {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(QuoteIfNeeded(col))
			sb.WriteString(": ")
			if err := writeNuon(sb, v.vals[i]); err != nil {
				return err
			}
		}
		sb.WriteString("}")
	case Block, Closure:
		return fmt.Errorf("can't convert %s to nuon", TypeName(v))
	case Error:
		return v.Err
	default:
		panic(fmt.Sprintf("value: unhandled variant %T", v))
	}
	return nil
}

func isUniformTable(l List) bool {
	if !l.IsTable() {
		return false
	}
	first := l[0].(*Record)
	if first.Len() == 0 {
		return false
	}
	for _, row := range l[1:] {
		if !first.SameColumns(row.(*Record)) {
			return false
		}
	}
	return true
}

func writeTable(sb *strings.Builder, l List) error {
	first := l[0].(*Record)
	sb.WriteString("[[")
	for i, col := range first.cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(QuoteIfNeeded(col))
	}
	sb.WriteString("]; ")
	for i, row := range l {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j, cell := range row.(*Record).vals {
			if j > 0 {
				sb.WriteString(", ")
			}
			if err := writeNuon(sb, cell); err != nil {
				return err
			}
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return nil
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// QuoteIfNeeded returns s unchanged when it reads back as the same bare
// string, otherwise a double quoted, escaped form.
func QuoteIfNeeded(s string) string {
	if !needsQuotes(s) {
		return s
	}
	return Quote(s)
}

// Quote returns s as a double quoted string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func needsQuotes(s string) bool {
	switch s {
	case "", "true", "false", "null":
		return true
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return true
		}
	}
	return false
}
