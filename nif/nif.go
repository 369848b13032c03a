// Package nif defines the native interface -- the capability surface the
// vendor baseband stack exposes to the rest of this library. The real stack
// lives on the modem core and is reached through generated bindings; this
// package only pins down the calls we consume and the constants that go with
// them, so everything above it can run against the simulated layer in the
// sim package.
//
// All calls follow the vendor convention: the return value is a signed
// integer where negative encodes an errno (the call returns -errno), and
// anything else is a success value (a descriptor, a byte count, a ready
// count, or zero).
package nif

// Address families.
const (
	AFLocal = 1 // library-local services (GNSS)
	AFInet  = 2 // IPv4
	AFLTE   = 3 // the LTE modem itself (AT commands)
)

// Socket types.
const (
	SockNone   = 0
	SockStream = 1
	SockDgram  = 2
)

// Socket protocols.
const (
	ProtoTCP     = 6
	ProtoUDP     = 17
	ProtoTLS1v2  = 258
	ProtoTLS1v3  = 259
	ProtoDTLS1v2 = 273
	ProtoAT      = 513
	ProtoGNSS    = 515
)

// Socket option levels.
const (
	SolSocket = 1
	SolSecure = 282
	SolGNSS   = 287
)

// Socket option names at level SolSocket.
const (
	SOReceiveTimeout = 66
)

// Socket option names at level SolSecure.
const (
	SOSecTagList      = 1
	SOSecHostname     = 2
	SOSecPeerVerify   = 5
	SOSecSessionCache = 12
)

// Socket option names at level SolGNSS.
const (
	SOGNSSFixInterval = 1
	SOGNSSFixRetry    = 2
	SOGNSSNMEAMask    = 4
	SOGNSSStart       = 5
	SOGNSSStop        = 6
)

// Read flags.
const (
	MsgDontWait = 0x40
)

// Poll event bits.
const (
	PollIn   = 0x0001
	PollOut  = 0x0004
	PollErr  = 0x0008
	PollHup  = 0x0010
	PollNval = 0x0020
)

// Errno values the layer above cares about. The native stack can return
// others; they are passed through untranslated.
const (
	ENoEnt     = 2
	EBadF      = 9
	EAgain     = 11
	EBusy      = 16
	EInval     = 22
	EMFile     = 24
	EOpNotSupp = 95
	ENetDown   = 100
	ETimedOut  = 110
	EConnRef   = 111
	EHostUnr   = 113
)

// Credential object kinds for the modem key store.
const (
	CredRootCA     = 0
	CredClientCert = 1
	CredClientKey  = 2
)

// System mode flags. Combinations are validated by the native stack.
const (
	ModeLTEM  = 1 << 0
	ModeNBIoT = 1 << 1
	ModeGNSS  = 1 << 2
)

// Addr is an IPv4 address/port pair as the native resolver and connect
// calls see it.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// PollFD is one entry in a native poll call: a descriptor, the events
// requested, and the events the native layer observed.
type PollFD struct {
	FD        int32
	Requested int16
	Returned  int16
}

// Layer is the native capability surface. Exactly one implementation talks
// to the real baseband; the sim package provides an in-memory one for tests
// and development on the bench.
type Layer interface {
	// Socket opens a descriptor of the given domain/type/protocol and
	// returns it, or -errno.
	Socket(domain, typ, proto int) int

	// Close releases a descriptor. Returns 0 or -errno.
	Close(fd int) int

	// Connect connects a descriptor to the given address. Returns 0 or
	// -errno.
	Connect(fd int, addr Addr) int

	// Read reads up to len(p) bytes. flags may include MsgDontWait, in
	// which case -EAgain is returned when nothing is pending. A return of
	// 0 on a stream socket means the peer closed.
	Read(fd int, p []byte, flags int) int

	// Write writes p and returns the number of bytes accepted, which may
	// be short, or -errno. Retrying the remainder is the caller's job.
	Write(fd int, p []byte) int

	// SetSockOpt sets one option. The value encoding per option is fixed
	// by the socket package. Returns 0 or -errno.
	SetSockOpt(fd, level, name int, value []byte) int

	// Resolve looks up an IPv4 host. The second return is 0 on success or
	// -errno.
	Resolve(host string) ([]Addr, int)

	// Poll blocks until an entry is ready or timeoutMS elapses. Observed
	// events are written into fds. Returns the ready count, 0 on timeout,
	// or -errno. A negative timeout blocks indefinitely.
	Poll(fds []PollFD, timeoutMS int) int

	// CredWrite stores one credential object keyed by (tag, kind) in
	// persistent modem storage. Returns 0 or -errno.
	CredWrite(tag uint32, kind int, data []byte) int

	// CredDelete removes one credential object. Returns 0 or -errno.
	CredDelete(tag uint32, kind int) int

	// ModemPower powers the baseband on or off. Powering on applies the
	// staged system mode and begins network registration. Idempotent.
	ModemPower(on bool) int

	// SetSystemMode stages the radio/GNSS enablement flags. The staged
	// mode takes effect on the next power-on cycle. Returns 0, or -errno
	// if the combination is rejected.
	SetSystemMode(flags int) int
}
