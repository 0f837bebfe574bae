// Package dataplane moves raw Ethernet frames between relay ports and the
// packet handlers.
package dataplane

import (
	"context"
	"errors"

	"github.com/veesix-networks/dhcprelay/pkg/models"
)

var ErrClosed = errors.New("dataplane closed")

// Frame is a raw Ethernet frame with the port it arrived on or leaves by.
type Frame struct {
	Port models.ConnectPoint
	Data []byte
}

type Emitter interface {
	Emit(f Frame) error
}

type PacketIO interface {
	Emitter
	// Run receives on every port until ctx is done or a port fails.
	Run(ctx context.Context) error
	Frames() <-chan Frame
	Close() error
}
