package pipeline

import "context"

// Interrupt is a cancellation flag shared by every producer feeding one
// pipeline. Once triggered it stays triggered.
//
// A nil *Interrupt is valid and is never triggered.
type Interrupt struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewInterrupt creates an interrupt that is also triggered when parent is
// cancelled.
func NewInterrupt(parent context.Context) *Interrupt {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Interrupt{ctx: ctx, cancel: cancel}
}

// Child creates an interrupt triggered by i but which can be triggered on its
// own without affecting i.
func (i *Interrupt) Child() *Interrupt {
	return NewInterrupt(i.Context())
}

// Trigger sets the flag.
func (i *Interrupt) Trigger() {
	if i != nil {
		i.cancel()
	}
}

// Triggered reports whether the flag is set.
func (i *Interrupt) Triggered() bool {
	if i == nil {
		return false
	}
	return i.ctx.Err() != nil
}

// Done returns a channel closed when the flag is set. The channel of a nil
// interrupt is nil and blocks forever.
func (i *Interrupt) Done() <-chan struct{} {
	if i == nil {
		return nil
	}
	return i.ctx.Done()
}

// Context returns a context cancelled along with the interrupt.
func (i *Interrupt) Context() context.Context {
	if i == nil {
		return context.Background()
	}
	return i.ctx
}
