package pipeline

import (
	"bytes"
	"io"
)

// ChunkSize is the largest chunk a fed RawStream yields.
const ChunkSize = 8192

// RawStream is a lazy, single pass sequence of byte chunks, usually the
// output of an external process.
type RawStream struct {
	chunks    <-chan []byte
	interrupt *Interrupt
	done      bool
}

// NewRawStream creates a stream over chunks produced by another goroutine
// which closes the channel when finished.
func NewRawStream(chunks <-chan []byte, interrupt *Interrupt) *RawStream {
	return &RawStream{chunks: chunks, interrupt: interrupt}
}

// Feed starts a producer goroutine copying r into a new stream. At most
// buffer chunks are queued ahead of the consumer. The producer stops when r
// is exhausted or the interrupt is triggered, r is closed on exit if it is an
// io.Closer.
func Feed(r io.Reader, interrupt *Interrupt, buffer int) *RawStream {
	ch := make(chan []byte, buffer)

	go func() {
		defer close(ch)
		if closer, ok := r.(io.Closer); ok {
			defer closer.Close()
		}

		buf := make([]byte, ChunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				if interrupt.Triggered() {
					return
				}
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case ch <- chunk:
				case <-interrupt.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	return NewRawStream(ch, interrupt)
}

// Interrupt returns the flag shared with the stream's producer.
func (s *RawStream) Interrupt() *Interrupt {
	return s.interrupt
}

// Next returns the next chunk or false when the stream is finished.
func (s *RawStream) Next() ([]byte, bool) {
	if s.done {
		return nil, false
	}
	if s.interrupt.Triggered() {
		s.done = true
		return nil, false
	}

	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			s.done = true
		}
		return chunk, ok
	case <-s.interrupt.Done():
		s.done = true
		return nil, false
	}
}

// ReadAll concatenates the remaining chunks.
func (s *RawStream) ReadAll() []byte {
	var buf bytes.Buffer
	for chunk, ok := s.Next(); ok; chunk, ok = s.Next() {
		buf.Write(chunk)
	}
	return buf.Bytes()
}

// Drain discards the remaining chunks.
func (s *RawStream) Drain() {
	for _, ok := s.Next(); ok; _, ok = s.Next() {
	}
}

// Reader adapts the remaining chunks to an io.Reader.
func (s *RawStream) Reader() io.Reader {
	return &rawReader{stream: s}
}

type rawReader struct {
	stream  *RawStream
	pending []byte
}

func (r *rawReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		chunk, ok := r.stream.Next()
		if !ok {
			return 0, io.EOF
		}
		r.pending = chunk
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
