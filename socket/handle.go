package socket

import "github.com/cellsock/cellsock/nif"

// Handle owns one native descriptor. It is created by OpenHandle, used
// through exactly one Socket, and released exactly once -- either by an
// explicit Close or by the cleanup path of a constructor that failed after
// the native open succeeded. Handles are never copied; pass the pointer.
type Handle struct {
	layer  nif.Layer
	fd     int
	closed bool
}

// OpenHandle issues the native socket call and wraps the resulting
// descriptor.
func OpenHandle(layer nif.Layer, domain, typ, proto int) (*Handle, error) {
	fd := layer.Socket(domain, typ, proto)
	if fd < 0 {
		return nil, NativeError{Op: "socket", Errno: -fd}
	}
	return &Handle{layer: layer, fd: fd}, nil
}

// FD returns the raw descriptor for poll registration. The caller must not
// close it out from under the handle.
func (h *Handle) FD() int {
	return h.fd
}

// Layer returns the native layer this handle was opened on.
func (h *Handle) Layer() nif.Layer {
	return h.layer
}

// Close releases the native descriptor. The release is issued at most once;
// a second Close fails with ErrInvalidState and does not touch the
// descriptor again.
func (h *Handle) Close() error {
	if h.closed {
		return ErrInvalidState
	}
	h.closed = true
	if ret := h.layer.Close(h.fd); ret < 0 {
		return NativeError{Op: "close", Errno: -ret}
	}
	return nil
}

// ok reports whether the handle is still live.
func (h *Handle) ok() bool {
	return h != nil && !h.closed
}
