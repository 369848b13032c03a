package socket

import (
	"time"

	"github.com/cellsock/cellsock/nif"
)

// MaxPollEntries is the native limit on sockets per poll call.
const MaxPollEntries = 8

// Events is a requested-events mask for one poll entry.
type Events int16

// Requested event bits.
const (
	In  Events = nif.PollIn
	Out Events = nif.PollOut
)

// Revents is the observed-events mask the native layer wrote back for one
// entry.
type Revents int16

// Readable reports the socket has data to read.
func (r Revents) Readable() bool { return r&nif.PollIn != 0 }

// Writable reports the socket can accept a write.
func (r Revents) Writable() bool { return r&nif.PollOut != 0 }

// Errored reports the socket is in an error state.
func (r Revents) Errored() bool { return r&nif.PollErr != 0 }

// HungUp reports the peer closed the connection.
func (r Revents) HungUp() bool { return r&nif.PollHup != 0 }

// Invalid reports the descriptor was not open when polled.
func (r Revents) Invalid() bool { return r&nif.PollNval != 0 }

// Pollable is anything holding a live native descriptor. Every socket
// variant satisfies it through the embedded base Socket.
type Pollable interface {
	PollFD() int
}

// PollEntry names one socket to wait on. The entry borrows the socket; it
// does not own it and must not outlive it. Revents is overwritten by each
// Poll call.
type PollEntry struct {
	Socket  Pollable
	Events  Events
	Revents Revents
}

// Poll blocks until at least one entry's requested events are ready, the
// timeout elapses (returning 0), or a native error occurs. Observed events
// are written back into entries in the order supplied; entries with no
// event keep a zero Revents. Which entry is reported first when several are
// ready simultaneously is up to the native layer and must not be relied on.
//
// All entries must reference sockets opened on layer. A negative timeout
// blocks indefinitely.
func Poll(layer nif.Layer, entries []PollEntry, timeout time.Duration) (int, error) {
	if len(entries) > MaxPollEntries {
		return 0, ErrTooManyEntries
	}

	fds := make([]nif.PollFD, len(entries))
	for i := range entries {
		entries[i].Revents = 0
		fds[i] = nif.PollFD{
			FD:        int32(entries[i].Socket.PollFD()),
			Requested: int16(entries[i].Events),
		}
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	n := layer.Poll(fds, ms)
	if n < 0 {
		return 0, NativeError{Op: "poll", Errno: -n}
	}
	if n == 0 {
		return 0, nil
	}
	for i := range entries {
		entries[i].Revents = Revents(fds[i].Returned)
	}
	return n, nil
}
