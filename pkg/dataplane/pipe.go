package dataplane

import (
	"context"
	"sync"
)

// Pipe is an in-process PacketIO. Inject feeds Frames and every Emit is
// delivered on Emitted.
type Pipe struct {
	frames  chan Frame
	emitted chan Frame
	once    sync.Once
	done    chan struct{}
}

var _ PacketIO = (*Pipe)(nil)

func NewPipe(buffer int) *Pipe {
	return &Pipe{
		frames:  make(chan Frame, buffer),
		emitted: make(chan Frame, buffer),
		done:    make(chan struct{}),
	}
}

func (p *Pipe) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-p.done:
	}
	return nil
}

func (p *Pipe) Frames() <-chan Frame { return p.frames }

func (p *Pipe) Emitted() <-chan Frame { return p.emitted }

func (p *Pipe) Inject(f Frame) {
	p.frames <- f
}

func (p *Pipe) Emit(f Frame) error {
	select {
	case <-p.done:
		return ErrClosed
	case p.emitted <- Frame{Port: f.Port, Data: append([]byte(nil), f.Data...)}:
		return nil
	}
}

func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
