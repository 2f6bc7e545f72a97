package core

import "errors"

// Frame is one encoded JSON message bound for a client.
type Frame []byte

// ErrBackpressure is returned by TrySend when the client's send buffer is full.
var ErrBackpressure = errors.New("backpressure: send buffer full")

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend must never block.
	TrySend(Frame) error
	Close()
}
