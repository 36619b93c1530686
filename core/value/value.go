// Package value holds the structured data model shared by every command in
// the shell.
package value

import (
	"fmt"
	"time"
)

// Value is a structured datum. The set of implementations is closed: every
// variant is declared in this file and consumers switch over them.
type Value interface {
	isValue()
}

// Nothing is the absence of a value, rendered as null.
type Nothing struct{}

type Bool bool

type Int int64

type Float float64

type String string

type Binary []byte

type Duration time.Duration

type Date time.Time

// List is an ordered sequence of values. A list of records is a table.
type List []Value

// Block references a compiled block by ID.
type Block struct {
	ID int
}

// Closure references a compiled block that accepts parameters.
type Closure struct {
	BlockID int
}

// Error is a captured failure carried as data.
type Error struct {
	Err error
}

func (Nothing) isValue()  {}
func (Bool) isValue()     {}
func (Int) isValue()      {}
func (Float) isValue()    {}
func (String) isValue()   {}
func (Binary) isValue()   {}
func (Duration) isValue() {}
func (Date) isValue()     {}
func (List) isValue()     {}
func (*Record) isValue()  {}
func (Block) isValue()    {}
func (Closure) isValue()  {}
func (Error) isValue()    {}

func (e Error) Error() string {
	if e.Err == nil {
		return "error"
	}
	return e.Err.Error()
}

func (e Error) Unwrap() error {
	return e.Err
}

// TypeName returns the user facing name of the value's variant.
func TypeName(v Value) string {
	switch v := v.(type) {
	case nil, Nothing:
		return "nothing"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Binary:
		return "binary"
	case Duration:
		return "duration"
	case Date:
		return "date"
	case List:
		if v.IsTable() {
			return "table"
		}
		return "list"
	case *Record:
		return "record"
	case Block:
		return "block"
	case Closure:
		return "closure"
	case Error:
		return "error"
	default:
		panic(fmt.Sprintf("value: unhandled variant %T", v))
	}
}

// IsTable reports whether the list is non-empty and holds only records.
func (l List) IsTable() bool {
	if len(l) == 0 {
		return false
	}
	for _, v := range l {
		if _, ok := v.(*Record); !ok {
			return false
		}
	}
	return true
}

// IsNothing reports whether v is nil or Nothing.
func IsNothing(v Value) bool {
	switch v.(type) {
	case nil, Nothing:
		return true
	}
	return false
}
