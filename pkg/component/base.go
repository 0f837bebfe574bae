package component

import (
	"context"
	"sync"
)

// Base carries the context and goroutine bookkeeping every component
// embeds. Goroutines started with Go observe Ctx and are joined by
// StopContext.
type Base struct {
	name   string
	Ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBase(name string) *Base {
	return &Base{name: name, Ctx: context.Background()}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) StartContext(parent context.Context) {
	if parent == nil {
		parent = context.Background()
	}
	b.Ctx, b.cancel = context.WithCancel(parent)
}

// StopContext cancels Ctx and waits for every goroutine started with Go.
func (b *Base) StopContext() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

func (b *Base) Go(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}
