// Package sim is an in-memory implementation of nif.Layer used by the test
// suites and the demo binary. It models the pieces of the vendor baseband
// the socket layer depends on: a descriptor table, scripted AT command
// responses, queued GNSS sentences, a DNS table, the persistent credential
// store, and the staged-versus-active system mode. Close calls are counted
// per descriptor so tests can prove exactly-once release.
package sim

import (
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/cellsock/cellsock/nif"
)

type credKey struct {
	tag  uint32
	kind int
}

type sock struct {
	fd        int
	domain    int
	typ       int
	proto     int
	inbuf     []byte   // stream data waiting to be read
	frames    [][]byte // datagram frames waiting to be read (AT, GNSS)
	sent      []byte   // everything the app wrote
	connected bool
	peerClose bool
	hostname  string
	tags      []uint32
	verify    uint32
	rcvTimeMS int
	started   bool // GNSS receiver running
}

func (s *sock) readable() bool {
	return len(s.inbuf) > 0 || len(s.frames) > 0 || s.peerClose
}

func (s *sock) secure() bool {
	switch s.proto {
	case nif.ProtoTLS1v2, nif.ProtoTLS1v3, nif.ProtoDTLS1v2:
		return true
	}
	return false
}

// Layer is a simulated baseband. The zero value is not usable; call New.
// All methods are safe for concurrent use.
type Layer struct {
	mu          sync.Mutex
	nextFD      int
	socks       map[int]*sock
	closeCounts map[int]int
	dns         map[string][]nif.Addr
	creds       map[credKey][]byte
	busy        map[uint32]int // tag -> open secure sockets using it

	powered    bool
	staged     int
	active     int
	registered bool
	gnssChip   bool

	atScript    map[string][]string
	failSockOpt map[int]int
	failCred    map[int]int
	connectErr  int
	writeLimit  int
}

// New creates a simulated baseband. It starts powered off with LTE-M
// staged, GNSS hardware present, and nothing provisioned.
func New() *Layer {
	return &Layer{
		nextFD:      3,
		socks:       make(map[int]*sock),
		closeCounts: make(map[int]int),
		dns:         make(map[string][]nif.Addr),
		creds:       make(map[credKey][]byte),
		busy:        make(map[uint32]int),
		staged:      nif.ModeLTEM,
		gnssChip:    true,
		atScript:    make(map[string][]string),
		failSockOpt: make(map[int]int),
		failCred:    make(map[int]int),
	}
}

// Socket implements nif.Layer.
func (l *Layer) Socket(domain, typ, proto int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	fd := l.nextFD
	l.nextFD++
	l.socks[fd] = &sock{fd: fd, domain: domain, typ: typ, proto: proto}
	return fd
}

// Close implements nif.Layer. Every call is counted, valid or not.
func (l *Layer) Close(fd int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closeCounts[fd]++
	s, ok := l.socks[fd]
	if !ok {
		return -nif.EBadF
	}
	if s.connected && s.secure() {
		for _, tag := range s.tags {
			if l.busy[tag] > 0 {
				l.busy[tag]--
			}
		}
	}
	delete(l.socks, fd)
	return 0
}

// Connect implements nif.Layer. Requires the modem to be powered.
func (l *Layer) Connect(fd int, addr nif.Addr) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.socks[fd]
	if !ok {
		return -nif.EBadF
	}
	if !l.powered {
		return -nif.ENetDown
	}
	if s.connected {
		return -nif.EInval
	}
	if l.connectErr != 0 {
		return -l.connectErr
	}
	s.connected = true
	if s.secure() {
		for _, tag := range s.tags {
			l.busy[tag]++
		}
	}
	return 0
}

// Read implements nif.Layer. Without MsgDontWait it blocks until data
// arrives, the peer closes, the receive timeout (if set) elapses, or the
// descriptor is closed out-of-band.
func (l *Layer) Read(fd int, p []byte, flags int) int {
	var deadline time.Time
	l.mu.Lock()
	if s, ok := l.socks[fd]; ok && s.rcvTimeMS > 0 {
		deadline = time.Now().Add(time.Duration(s.rcvTimeMS) * time.Millisecond)
	}
	l.mu.Unlock()

	for {
		l.mu.Lock()
		s, ok := l.socks[fd]
		if !ok {
			l.mu.Unlock()
			return -nif.EBadF
		}
		if len(s.frames) > 0 {
			frame := s.frames[0]
			s.frames = s.frames[1:]
			n := copy(p, frame)
			l.mu.Unlock()
			return n
		}
		if len(s.inbuf) > 0 {
			n := copy(p, s.inbuf)
			s.inbuf = s.inbuf[n:]
			l.mu.Unlock()
			return n
		}
		if s.peerClose {
			l.mu.Unlock()
			return 0
		}
		l.mu.Unlock()

		if flags&nif.MsgDontWait != 0 {
			return -nif.EAgain
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return -nif.EAgain
		}
		time.Sleep(time.Millisecond)
	}
}

// Write implements nif.Layer. Writes to an AT socket are interpreted as a
// command and a scripted response is queued; stream writes are captured and
// may be truncated to the configured write limit to model partial writes.
func (l *Layer) Write(fd int, p []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.socks[fd]
	if !ok {
		return -nif.EBadF
	}

	switch s.proto {
	case nif.ProtoAT:
		s.sent = append(s.sent, p...)
		l.respondAT(s, strings.TrimSpace(string(p)))
		return len(p)
	case nif.ProtoGNSS:
		return -nif.EOpNotSupp
	}

	n := len(p)
	if l.writeLimit > 0 && n > l.writeLimit {
		n = l.writeLimit
	}
	s.sent = append(s.sent, p[:n]...)
	return n
}

// SetSockOpt implements nif.Layer.
func (l *Layer) SetSockOpt(fd, level, name int, value []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.socks[fd]
	if !ok {
		return -nif.EBadF
	}
	if errno, ok := l.failSockOpt[name]; ok {
		return -errno
	}

	switch level {
	case nif.SolSocket:
		if name == nif.SOReceiveTimeout && len(value) == 4 {
			s.rcvTimeMS = int(binary.LittleEndian.Uint32(value))
			return 0
		}
	case nif.SolSecure:
		switch name {
		case nif.SOSecHostname:
			s.hostname = string(value)
			return 0
		case nif.SOSecPeerVerify:
			if len(value) != 4 {
				return -nif.EInval
			}
			s.verify = binary.LittleEndian.Uint32(value)
			return 0
		case nif.SOSecSessionCache:
			return 0
		case nif.SOSecTagList:
			if s.connected {
				return -nif.EInval
			}
			if len(value) == 0 || len(value)%4 != 0 {
				return -nif.EInval
			}
			tags := make([]uint32, len(value)/4)
			for i := range tags {
				tags[i] = binary.LittleEndian.Uint32(value[4*i:])
				if !l.tagProvisioned(tags[i]) {
					return -nif.ENoEnt
				}
			}
			s.tags = tags
			return 0
		}
	case nif.SolGNSS:
		if s.proto != nif.ProtoGNSS {
			return -nif.EInval
		}
		switch name {
		case nif.SOGNSSFixInterval, nif.SOGNSSFixRetry, nif.SOGNSSNMEAMask:
			return 0
		case nif.SOGNSSStart:
			if !l.gnssChip {
				return -nif.EOpNotSupp
			}
			if !l.powered || l.active&nif.ModeGNSS == 0 {
				return -nif.EOpNotSupp
			}
			s.started = true
			return 0
		case nif.SOGNSSStop:
			s.started = false
			return 0
		}
	}
	return -nif.EInval
}

func (l *Layer) tagProvisioned(tag uint32) bool {
	for kind := nif.CredRootCA; kind <= nif.CredClientKey; kind++ {
		if _, ok := l.creds[credKey{tag, kind}]; ok {
			return true
		}
	}
	return false
}

// Resolve implements nif.Layer.
func (l *Layer) Resolve(host string) ([]nif.Addr, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.powered {
		return nil, -nif.ENetDown
	}
	addrs, ok := l.dns[host]
	if !ok {
		return nil, -nif.ENoEnt
	}
	out := make([]nif.Addr, len(addrs))
	copy(out, addrs)
	return out, 0
}

// Poll implements nif.Layer. Readiness is re-checked every millisecond
// until something is ready or the timeout elapses.
func (l *Layer) Poll(fds []nif.PollFD, timeoutMS int) int {
	var deadline time.Time
	if timeoutMS >= 0 {
		deadline = time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	}

	for {
		l.mu.Lock()
		n := l.scan(fds)
		l.mu.Unlock()
		if n > 0 {
			return n
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return 0
		}
		time.Sleep(time.Millisecond)
	}
}

// scan fills in Returned for each entry and counts entries with any event.
// Entries are visited in the order given; no reordering happens here.
func (l *Layer) scan(fds []nif.PollFD) int {
	count := 0
	for i := range fds {
		fds[i].Returned = 0
		s, ok := l.socks[int(fds[i].FD)]
		if !ok {
			fds[i].Returned = nif.PollNval
			count++
			continue
		}
		if fds[i].Requested&nif.PollIn != 0 && s.readable() {
			fds[i].Returned |= nif.PollIn
		}
		if fds[i].Requested&nif.PollOut != 0 && !s.peerClose {
			fds[i].Returned |= nif.PollOut
		}
		if s.peerClose {
			fds[i].Returned |= nif.PollHup
		}
		if fds[i].Returned != 0 {
			count++
		}
	}
	return count
}
