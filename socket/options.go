package socket

import (
	"encoding/binary"
	"time"

	"github.com/cellsock/cellsock/nif"
)

// Option is one typed socket option. Each option knows its native level,
// name, and wire encoding; Socket.SetOption hands the encoded value to the
// native setsockopt-equivalent.
type Option interface {
	level() int
	name() int
	value() []byte
}

// PeerVerify selects how the peer certificate is checked on a secure
// socket.
type PeerVerify int

// Peer verification policies, in the native encoding.
const (
	VerifyNone     PeerVerify = 0
	VerifyOptional PeerVerify = 1
	VerifyRequired PeerVerify = 2
)

func (o PeerVerify) level() int    { return nif.SolSecure }
func (o PeerVerify) name() int     { return nif.SOSecPeerVerify }
func (o PeerVerify) value() []byte { return u32le(uint32(o)) }

// ReceiveTimeout bounds blocking reads. Zero means block indefinitely.
type ReceiveTimeout time.Duration

func (o ReceiveTimeout) level() int { return nif.SolSocket }
func (o ReceiveTimeout) name() int  { return nif.SOReceiveTimeout }
func (o ReceiveTimeout) value() []byte {
	return u32le(uint32(time.Duration(o) / time.Millisecond))
}

// TLSHostname sets the hostname the peer certificate must match.
type TLSHostname string

func (o TLSHostname) level() int    { return nif.SolSecure }
func (o TLSHostname) name() int     { return nif.SOSecHostname }
func (o TLSHostname) value() []byte { return []byte(o) }

// TLSSessionCache enables or disables TLS session caching. The native
// encoding is inverted: 0 enables the cache, 1 disables it.
type TLSSessionCache bool

func (o TLSSessionCache) level() int { return nif.SolSecure }
func (o TLSSessionCache) name() int  { return nif.SOSecSessionCache }
func (o TLSSessionCache) value() []byte {
	if o {
		return u32le(0)
	}
	return u32le(1)
}

// TLSTagList selects which provisioned credential tags a secure socket
// uses.
type TLSTagList []uint32

func (o TLSTagList) level() int { return nif.SolSecure }
func (o TLSTagList) name() int  { return nif.SOSecTagList }
func (o TLSTagList) value() []byte {
	buf := make([]byte, 4*len(o))
	for i, tag := range o {
		binary.LittleEndian.PutUint32(buf[4*i:], tag)
	}
	return buf
}

// GNSSFixInterval sets seconds between fixes. 0 selects single-fix mode.
type GNSSFixInterval uint16

func (o GNSSFixInterval) level() int    { return nif.SolGNSS }
func (o GNSSFixInterval) name() int     { return nif.SOGNSSFixInterval }
func (o GNSSFixInterval) value() []byte { return u16le(uint16(o)) }

// GNSSFixRetry sets how long (seconds) the receiver tries for a fix. 0
// means wait forever.
type GNSSFixRetry uint16

func (o GNSSFixRetry) level() int    { return nif.SolGNSS }
func (o GNSSFixRetry) name() int     { return nif.SOGNSSFixRetry }
func (o GNSSFixRetry) value() []byte { return u16le(uint16(o)) }

// GNSSNMEAMask selects which NMEA sentence types the receiver emits.
type GNSSNMEAMask uint16

func (o GNSSNMEAMask) level() int    { return nif.SolGNSS }
func (o GNSSNMEAMask) name() int     { return nif.SOGNSSNMEAMask }
func (o GNSSNMEAMask) value() []byte { return u16le(uint16(o)) }

// GNSSStart starts the receiver, deleting the non-volatile data selected by
// the mask first.
type GNSSStart uint32

func (o GNSSStart) level() int    { return nif.SolGNSS }
func (o GNSSStart) name() int     { return nif.SOGNSSStart }
func (o GNSSStart) value() []byte { return u32le(uint32(o)) }

// GNSSStop stops the receiver.
type GNSSStop struct{}

func (o GNSSStop) level() int    { return nif.SolGNSS }
func (o GNSSStop) name() int     { return nif.SOGNSSStop }
func (o GNSSStop) value() []byte { return nil }

func u32le(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func u16le(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}
