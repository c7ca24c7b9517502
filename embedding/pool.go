package embedding

import (
	"context"
	"runtime"
)

// Pool bounds the number of extractions running at once. Extraction is CPU
// bound, so admitting more work than cores only adds latency.
type Pool struct {
	slots chan struct{}
}

// NewPool creates a pool with size slots; size <= 0 uses runtime.NumCPU()
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Submit runs fn in the calling goroutine once a slot is free. It returns
// ctx.Err() without running fn if ctx ends first.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context) error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slots }()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return cap(p.slots)
}

// InFlight returns the number of occupied slots
func (p *Pool) InFlight() int {
	return len(p.slots)
}
