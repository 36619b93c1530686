package pipeline

import (
	"fmt"

	"github.com/josephlewis42/pipesh/core/value"
)

// TooManyValuesError is returned by CollectBounded when a stream yields more
// values than allowed.
type TooManyValuesError struct {
	Limit int
}

func (e *TooManyValuesError) Error() string {
	return fmt.Sprintf("stream produced more than %d values", e.Limit)
}

// ListStream is a lazy, single pass sequence of values. The interrupt is
// checked before every element; once triggered or exhausted the stream stays
// finished.
type ListStream struct {
	next      func() (value.Value, bool)
	interrupt *Interrupt
	done      bool
}

// NewListStream creates a stream pulling from next until it reports false.
func NewListStream(next func() (value.Value, bool), interrupt *Interrupt) *ListStream {
	return &ListStream{next: next, interrupt: interrupt}
}

// FromValues creates a stream over already materialized values.
func FromValues(values []value.Value, interrupt *Interrupt) *ListStream {
	i := 0
	return NewListStream(func() (value.Value, bool) {
		if i >= len(values) {
			return nil, false
		}
		i++
		return values[i-1], true
	}, interrupt)
}

// FromChannel creates a stream fed by a producer goroutine. The producer
// closes ch when finished.
func FromChannel(ch <-chan value.Value, interrupt *Interrupt) *ListStream {
	return NewListStream(func() (value.Value, bool) {
		select {
		case v, ok := <-ch:
			return v, ok
		case <-interrupt.Done():
			return nil, false
		}
	}, interrupt)
}

// Interrupt returns the flag shared with the stream's producer.
func (s *ListStream) Interrupt() *Interrupt {
	return s.interrupt
}

// Next returns the next value or false when the stream is finished.
func (s *ListStream) Next() (value.Value, bool) {
	if s.done {
		return nil, false
	}
	if s.interrupt.Triggered() {
		s.done = true
		return nil, false
	}
	v, ok := s.next()
	if !ok {
		s.done = true
		return nil, false
	}
	return v, true
}

// Collect reads the remaining values.
func (s *ListStream) Collect() value.List {
	out := value.List{}
	for v, ok := s.Next(); ok; v, ok = s.Next() {
		out = append(out, v)
	}
	return out
}

// CollectBounded reads the remaining values, failing once more than limit
// values have been produced. Values past the limit are left unread.
func (s *ListStream) CollectBounded(limit int) (value.List, error) {
	out := value.List{}
	for v, ok := s.Next(); ok; v, ok = s.Next() {
		if len(out) == limit {
			return out, &TooManyValuesError{Limit: limit}
		}
		out = append(out, v)
	}
	return out, nil
}

// Drain discards the remaining values.
func (s *ListStream) Drain() {
	for _, ok := s.Next(); ok; _, ok = s.Next() {
	}
}
