// Package socket is the safe socket layer over the native baseband stack.
// It owns descriptor lifecycle (open exactly once, close exactly once, on
// every exit path), maps negative native returns into the error taxonomy in
// errors.go, and provides the polling primitive used to wait on several
// sockets at once. The AT, GNSS, and credential packages build on it.
//
// Sockets are not internally synchronized. Each socket must be driven by one
// goroutine at a time; closing from another goroutine is the only supported
// out-of-band operation and is how a blocked peer is kicked loose.
package socket

import (
	"io"
	"net"

	"github.com/cellsock/cellsock/nif"
)

// Socket wraps a Handle with the read/write/close operations common to
// every variant. Variant packages embed it.
type Socket struct {
	h *Handle
}

// New opens a native descriptor of the given domain/type/protocol and wraps
// it.
func New(layer nif.Layer, domain, typ, proto int) (*Socket, error) {
	h, err := OpenHandle(layer, domain, typ, proto)
	if err != nil {
		return nil, err
	}
	return &Socket{h: h}, nil
}

// Read performs a blocking read. A zero-length return on a stream socket
// means the peer closed and is reported as io.EOF, not as an error state.
func (s *Socket) Read(p []byte) (int, error) {
	return s.read(p, 0)
}

// ReadNoWait performs a non-blocking read. When nothing is pending it
// returns ErrWouldBlock.
func (s *Socket) ReadNoWait(p []byte) (int, error) {
	return s.read(p, nif.MsgDontWait)
}

func (s *Socket) read(p []byte, flags int) (int, error) {
	if !s.h.ok() {
		return 0, ErrInvalidState
	}
	n := s.h.layer.Read(s.h.fd, p, flags)
	switch {
	case n == -nif.EAgain:
		if flags&nif.MsgDontWait != 0 {
			return 0, ErrWouldBlock
		}
		return 0, ErrTimeout
	case n < 0:
		return 0, NativeError{Op: "read", Errno: -n}
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// Write writes p and returns the count the native layer accepted. Short
// writes are returned as-is; retry policy belongs to the caller, matching
// non-blocking socket semantics.
func (s *Socket) Write(p []byte) (int, error) {
	if !s.h.ok() {
		return 0, ErrInvalidState
	}
	n := s.h.layer.Write(s.h.fd, p)
	if n < 0 {
		return 0, NativeError{Op: "write", Errno: -n}
	}
	return n, nil
}

// SetOption applies one typed option to the socket.
func (s *Socket) SetOption(opt Option) error {
	if !s.h.ok() {
		return ErrInvalidState
	}
	ret := s.h.layer.SetSockOpt(s.h.fd, opt.level(), opt.name(), opt.value())
	if ret < 0 {
		return NativeError{Op: "setsockopt", Errno: -ret}
	}
	return nil
}

// Close releases the descriptor. Exactly one Close succeeds; further calls
// fail with ErrInvalidState.
func (s *Socket) Close() error {
	return s.h.Close()
}

// PollFD returns the raw descriptor so the socket can be registered with
// Poll. Implements Pollable.
func (s *Socket) PollFD() int {
	return s.h.fd
}

// Layer returns the native layer this socket was opened on.
func (s *Socket) Layer() nif.Layer {
	return s.h.layer
}

// connect resolves host (unless it is a literal IPv4 address) and tries
// each result in turn, in the order the resolver returned them. Shared by
// the TCP and TLS variants.
func (s *Socket) connect(host string, port uint16) error {
	if !s.h.ok() {
		return ErrInvalidState
	}

	addrs, err := resolve(s.h.layer, host, port)
	if err != nil {
		return err
	}

	var last nif.Addr
	ret := -nif.EHostUnr
	for _, addr := range addrs {
		last = addr
		ret = s.h.layer.Connect(s.h.fd, addr)
		if ret == 0 {
			return nil
		}
	}
	return ConnectError{Addr: last, Errno: -ret}
}

// resolve turns host into one or more IPv4 addresses carrying port. A
// dotted-quad literal bypasses the native resolver.
func resolve(layer nif.Layer, host string, port uint16) ([]nif.Addr, error) {
	if ip := net.ParseIP(host); ip != nil {
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, DNSError{Host: host, Errno: nif.EInval}
		}
		var a nif.Addr
		copy(a.IP[:], ip4)
		a.Port = port
		return []nif.Addr{a}, nil
	}

	addrs, code := layer.Resolve(host)
	if code < 0 {
		return nil, DNSError{Host: host, Errno: -code}
	}
	if len(addrs) == 0 {
		return nil, DNSError{Host: host, Errno: nif.ENoEnt}
	}
	for i := range addrs {
		addrs[i].Port = port
	}
	return addrs, nil
}
