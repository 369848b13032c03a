package socket

import (
	"github.com/cellsock/cellsock/nif"
	"github.com/pkg/errors"
)

// Transport selects the secure transport for a TLSSocket.
type Transport int

// Supported secure transports.
const (
	TransportTLS12 Transport = iota
	TransportTLS13
	TransportDTLS12
)

// TLSConfig describes a secure socket before it is opened. Tags reference
// credentials previously written by the creds package; the tags must be
// provisioned before Connect, and they persist in modem storage across
// reboots.
type TLSConfig struct {
	// Tags lists the provisioned credential tags to present/verify with.
	// May be empty only when PeerVerify is not VerifyRequired.
	Tags []uint32

	// PeerVerify selects the certificate verification policy. The zero
	// value is VerifyNone.
	PeerVerify PeerVerify

	// Transport selects TLS 1.2 (default), TLS 1.3, or DTLS 1.2.
	Transport Transport

	// DisableSessionCache turns off TLS session caching. Caching is on by
	// default to speed up reconnects.
	DisableSessionCache bool
}

// TLSSocket is a TLS or DTLS connection to a remote host. The secure
// options are fixed at construction; once Connect has succeeded the tag
// list can no longer change.
type TLSSocket struct {
	*Socket
	connected bool
}

// NewTLS opens a secure socket and applies the configuration in order:
// peer verification, session cache, tag list. If any option call fails
// after the native open succeeded, the descriptor is closed before the
// error is returned.
func NewTLS(layer nif.Layer, cfg TLSConfig) (*TLSSocket, error) {
	if cfg.PeerVerify == VerifyRequired && len(cfg.Tags) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "mandatory peer verification needs a security tag list")
	}

	typ := nif.SockStream
	proto := nif.ProtoTLS1v2
	switch cfg.Transport {
	case TransportTLS13:
		proto = nif.ProtoTLS1v3
	case TransportDTLS12:
		typ = nif.SockDgram
		proto = nif.ProtoDTLS1v2
	}

	s, err := New(layer, nif.AFInet, typ, proto)
	if err != nil {
		return nil, err
	}

	if err := s.SetOption(cfg.PeerVerify); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "setting peer verification")
	}
	if err := s.SetOption(TLSSessionCache(!cfg.DisableSessionCache)); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "setting session cache")
	}
	if len(cfg.Tags) > 0 {
		if err := s.SetOption(TLSTagList(cfg.Tags)); err != nil {
			s.Close()
			return nil, errors.Wrap(err, "setting security tags")
		}
	}

	return &TLSSocket{Socket: s}, nil
}

// SetSecurityTags replaces the tag list. Valid only before Connect; after a
// successful connect it fails with ErrInvalidState and leaves the socket
// usable for read and write.
func (t *TLSSocket) SetSecurityTags(tags []uint32) error {
	if t.connected {
		return ErrInvalidState
	}
	return t.SetOption(TLSTagList(tags))
}

// Connect sets the certificate hostname, resolves host, and tries each
// returned address until one accepts.
func (t *TLSSocket) Connect(host string, port uint16) error {
	if t.connected {
		return ErrInvalidState
	}
	if err := t.SetOption(TLSHostname(host)); err != nil {
		return errors.Wrap(err, "setting hostname")
	}
	if err := t.connect(host, port); err != nil {
		return err
	}
	t.connected = true
	return nil
}

// DialTLS opens a secure socket per cfg and connects it. On any failure
// after the native open the descriptor is closed before the error is
// returned.
func DialTLS(layer nif.Layer, host string, port uint16, cfg TLSConfig) (*TLSSocket, error) {
	t, err := NewTLS(layer, cfg)
	if err != nil {
		return nil, err
	}
	if err := t.Connect(host, port); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}
