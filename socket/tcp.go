package socket

import "github.com/cellsock/cellsock/nif"

// TCPSocket is a plain TCP stream connection to a remote host.
type TCPSocket struct {
	*Socket
}

// NewTCP opens an unconnected TCP socket.
func NewTCP(layer nif.Layer) (*TCPSocket, error) {
	s, err := New(layer, nif.AFInet, nif.SockStream, nif.ProtoTCP)
	if err != nil {
		return nil, err
	}
	return &TCPSocket{Socket: s}, nil
}

// Connect resolves host (a hostname or a dotted-quad literal) and tries
// each returned address until one accepts. Resolution failures surface as
// DNSError, connection failures as ConnectError.
func (t *TCPSocket) Connect(host string, port uint16) error {
	return t.connect(host, port)
}

// DialTCP opens a TCP socket and connects it. If the connect fails the
// descriptor is closed before the error is returned, so no descriptor
// leaks.
func DialTCP(layer nif.Layer, host string, port uint16) (*TCPSocket, error) {
	t, err := NewTCP(layer)
	if err != nil {
		return nil, err
	}
	if err := t.Connect(host, port); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}
