package socket

import (
	"errors"
	"io"
	"testing"

	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/sim"
)

func poweredLayer(t *testing.T) *sim.Layer {
	t.Helper()
	l := sim.New()
	l.ModemPower(true)
	return l
}

func TestHandleCloseExactlyOnce(t *testing.T) {
	l := poweredLayer(t)

	h, err := OpenHandle(l, nif.AFLTE, nif.SockDgram, nif.ProtoAT)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	fd := h.FD()

	if err := h.Close(); err != nil {
		t.Fatal("Error: ", err)
	}

	if err := h.Close(); !errors.Is(err, ErrInvalidState) {
		t.Fatal("second close should fail with ErrInvalidState, got: ", err)
	}

	if count := l.CloseCount(fd); count != 1 {
		t.Fatal("close count should be 1, got: ", count)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	l := poweredLayer(t)

	s, err := New(l, nif.AFLTE, nif.SockDgram, nif.ProtoAT)
	if err != nil {
		t.Fatal("Error: ", err)
	}

	if err := s.Close(); err != nil {
		t.Fatal("Error: ", err)
	}

	buf := make([]byte, 16)
	if _, err := s.Read(buf); !errors.Is(err, ErrInvalidState) {
		t.Fatal("read after close should fail with ErrInvalidState, got: ", err)
	}
	if _, err := s.Write([]byte("x")); !errors.Is(err, ErrInvalidState) {
		t.Fatal("write after close should fail with ErrInvalidState, got: ", err)
	}
	if err := s.SetOption(ReceiveTimeout(0)); !errors.Is(err, ErrInvalidState) {
		t.Fatal("setopt after close should fail with ErrInvalidState, got: ", err)
	}
}

func TestReadPeerClosed(t *testing.T) {
	l := poweredLayer(t)
	l.SetDNS("example.com", sim.Addr(10, 1, 1, 1))

	s, err := DialTCP(l, "example.com", 443)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	defer s.Close()

	l.Feed(s.PollFD(), []byte("tail"))
	l.PeerClose(s.PollFD())

	buf := make([]byte, 16)
	n, err := s.Read(buf)
	if err != nil || string(buf[:n]) != "tail" {
		t.Fatal("expected pending data first, got: ", n, err)
	}

	// Drained: now the zero-length read signals peer-closed, not an error.
	n, err = s.Read(buf)
	if n != 0 || err != io.EOF {
		t.Fatal("expected EOF after peer close, got: ", n, err)
	}
}

func TestPartialWrite(t *testing.T) {
	l := poweredLayer(t)
	l.SetDNS("example.com", sim.Addr(10, 1, 1, 1))
	l.SetWriteLimit(4)

	s, err := DialTCP(l, "example.com", 80)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	defer s.Close()

	n, err := s.Write([]byte("0123456789"))
	if err != nil {
		t.Fatal("Error: ", err)
	}
	if n != 4 {
		t.Fatal("short write should report actual count, got: ", n)
	}
}

func TestDialTCPLiteralAddress(t *testing.T) {
	l := poweredLayer(t)

	// No DNS entry: a literal must bypass the resolver.
	s, err := DialTCP(l, "192.168.7.2", 8883)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	s.Close()
}

func TestDialTCPDNSError(t *testing.T) {
	l := poweredLayer(t)

	_, err := DialTCP(l, "nosuch.example.com", 443)
	var dnsErr DNSError
	if !errors.As(err, &dnsErr) {
		t.Fatal("expected DNSError, got: ", err)
	}
	if dnsErr.Host != "nosuch.example.com" {
		t.Fatal("wrong host in error: ", dnsErr.Host)
	}
	if open := l.OpenDescriptors(); open != 0 {
		t.Fatal("descriptor leaked on DNS failure: ", open)
	}
}

func TestDialTCPConnectError(t *testing.T) {
	l := poweredLayer(t)
	l.SetDNS("example.com", sim.Addr(10, 1, 1, 1))
	l.FailConnect(nif.EConnRef)

	_, err := DialTCP(l, "example.com", 443)
	var connErr ConnectError
	if !errors.As(err, &connErr) {
		t.Fatal("expected ConnectError, got: ", err)
	}
	if connErr.Errno != nif.EConnRef {
		t.Fatal("wrong errno: ", connErr.Errno)
	}
	if open := l.OpenDescriptors(); open != 0 {
		t.Fatal("descriptor leaked on connect failure: ", open)
	}
}

func TestConnectRequiresPower(t *testing.T) {
	l := sim.New()

	_, err := DialTCP(l, "192.168.7.2", 80)
	var connErr ConnectError
	if !errors.As(err, &connErr) {
		t.Fatal("expected ConnectError, got: ", err)
	}
	if connErr.Errno != nif.ENetDown {
		t.Fatal("wrong errno: ", connErr.Errno)
	}
}
