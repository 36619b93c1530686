// Package pipeline holds the data passed between commands: nothing, a single
// value, a lazy stream of values or the output of an external process.
package pipeline

import (
	"bytes"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/josephlewis42/pipesh/core/value"
)

// Data flows from one pipeline element to the next. The implementations are
// closed and each is consumed at most once.
type Data interface {
	isData()
}

// Empty carries no data.
type Empty struct{}

// Value carries exactly one value.
type Value struct {
	Value value.Value
}

// Stream carries a lazy sequence of values.
type Stream struct {
	Stream *ListStream
}

// External carries the output of an external process. All streams share one
// interrupt. A nil Stdout means the output went somewhere else (usually the
// terminal) and is no longer available.
type External struct {
	Stdout   *RawStream
	Stderr   *RawStream
	ExitCode *ListStream

	// Span of the call that started the process.
	Span value.Span
	// TrimEndNewline drops one trailing newline when stdout becomes a string.
	TrimEndNewline bool
}

func (Empty) isData()    {}
func (Value) isData()    {}
func (Stream) isData()   {}
func (External) isData() {}

// FromValue wraps v as pipeline data.
func FromValue(v value.Value) Data {
	return Value{Value: v}
}

// IntoValue materializes d. Streams become lists, external processes become
// their stdout as a string (binary if it isn't valid UTF-8) after stderr and
// the exit codes are drained.
func IntoValue(d Data) value.Value {
	switch d := d.(type) {
	case nil, Empty:
		return value.Nothing{}
	case Value:
		if d.Value == nil {
			return value.Nothing{}
		}
		return d.Value
	case Stream:
		return d.Stream.Collect()
	case External:
		var out value.Value = value.Nothing{}
		drainExternal(d, func(stdout *RawStream) {
			out = bytesToValue(stdout.ReadAll(), d.TrimEndNewline)
		})
		return out
	default:
		panic(fmt.Sprintf("pipeline: unhandled variant %T", d))
	}
}

// IntoStream presents d as a stream of values. A list is streamed element by
// element, any other single value becomes a one element stream.
func IntoStream(d Data, interrupt *Interrupt) *ListStream {
	switch d := d.(type) {
	case nil, Empty:
		return FromValues(nil, interrupt)
	case Value:
		if list, ok := d.Value.(value.List); ok {
			return FromValues(list, interrupt)
		}
		return FromValues([]value.Value{d.Value}, interrupt)
	case Stream:
		return d.Stream
	case External:
		pending := true
		return NewListStream(func() (value.Value, bool) {
			if !pending {
				return nil, false
			}
			pending = false
			return IntoValue(d), true
		}, interrupt)
	default:
		panic(fmt.Sprintf("pipeline: unhandled variant %T", d))
	}
}

// Drain consumes d and discards it.
func Drain(d Data) {
	switch d := d.(type) {
	case nil, Empty, Value:
	case Stream:
		d.Stream.Drain()
	case External:
		drainExternal(d, (*RawStream).Drain)
	default:
		panic(fmt.Sprintf("pipeline: unhandled variant %T", d))
	}
}

// drainExternal consumes stdout with readStdout while stderr is drained in
// parallel so a process filling one pipe can't stall the other, then waits
// for the exit codes.
func drainExternal(d External, readStdout func(*RawStream)) {
	var wg sync.WaitGroup
	if d.Stderr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Stderr.Drain()
		}()
	}
	if d.Stdout != nil {
		readStdout(d.Stdout)
	}
	wg.Wait()
	if d.ExitCode != nil {
		d.ExitCode.Drain()
	}
}

func bytesToValue(b []byte, trimEndNewline bool) value.Value {
	if trimEndNewline {
		b = bytes.TrimSuffix(b, []byte("\n"))
		b = bytes.TrimSuffix(b, []byte("\r"))
	}
	if utf8.Valid(b) {
		return value.String(b)
	}
	return value.Binary(b)
}
