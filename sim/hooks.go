package sim

import "github.com/cellsock/cellsock/nif"

// Test and bench hooks. None of these exist on the real baseband; they let
// a test arrange traffic, inject failures, and inspect what the layer saw.

// SetDNS maps a hostname to one or more dotted-quad IPv4 addresses.
func (l *Layer) SetDNS(host string, addrs ...nif.Addr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dns[host] = append([]nif.Addr{}, addrs...)
}

// Addr is a convenience constructor for DNS entries.
func Addr(a, b, c, d byte) nif.Addr {
	return nif.Addr{IP: [4]byte{a, b, c, d}}
}

// SetRegistered controls whether a +CEREG subscription reports the modem as
// registered on the network.
func (l *Layer) SetRegistered(reg bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registered = reg
}

// SetGNSSHardware controls whether the simulated part has a GNSS receiver.
// Without one, staging a GNSS mode or starting the receiver is rejected.
func (l *Layer) SetGNSSHardware(present bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gnssChip = present
}

// ScriptAT sets the response lines for one exact command, terminal line
// included. Overrides the default OK.
func (l *Layer) ScriptAT(cmd string, lines ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.atScript[cmd] = append([]string{}, lines...)
}

// PushATLine delivers one unsolicited line to every open AT socket.
func (l *Layer) PushATLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.socks {
		if s.proto == nif.ProtoAT {
			s.frames = append(s.frames, []byte(line+"\r\n"))
		}
	}
}

// PushNMEA delivers one NMEA sentence to every started GNSS socket.
func (l *Layer) PushNMEA(sentence string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.socks {
		if s.proto == nif.ProtoGNSS && s.started {
			s.frames = append(s.frames, []byte(sentence+"\r\n"))
		}
	}
}

// Feed appends stream data to a descriptor's receive buffer.
func (l *Layer) Feed(fd int, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.socks[fd]; ok {
		s.inbuf = append(s.inbuf, data...)
	}
}

// PeerClose marks a descriptor's remote end as closed; pending data still
// drains, then reads return 0.
func (l *Layer) PeerClose(fd int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.socks[fd]; ok {
		s.peerClose = true
	}
}

// FailSetSockOpt makes every set of the named option fail with errno.
func (l *Layer) FailSetSockOpt(name, errno int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failSockOpt[name] = errno
}

// FailCredWrite makes writes of one credential kind fail with errno.
func (l *Layer) FailCredWrite(kind, errno int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failCred[kind] = errno
}

// FailConnect makes every connect fail with errno. Zero restores normal
// behavior.
func (l *Layer) FailConnect(errno int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connectErr = errno
}

// SetWriteLimit caps how many bytes a single stream write accepts, to model
// partial writes. Zero means unlimited.
func (l *Layer) SetWriteLimit(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeLimit = n
}

// CloseCount reports how many times Close was called on a descriptor,
// whether or not the call was valid.
func (l *Layer) CloseCount(fd int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeCounts[fd]
}

// OpenDescriptors reports how many descriptors are currently live.
func (l *Layer) OpenDescriptors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.socks)
}

// Sent returns everything written to a descriptor so far.
func (l *Layer) Sent(fd int) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.socks[fd]; ok {
		return append([]byte{}, s.sent...)
	}
	return nil
}

// Credential returns one stored credential object.
func (l *Layer) Credential(tag uint32, kind int) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.creds[credKey{tag, kind}]
	if !ok {
		return nil, false
	}
	return append([]byte{}, data...), true
}

// Powered reports modem power state.
func (l *Layer) Powered() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.powered
}

// ActiveMode reports the system mode currently in effect.
func (l *Layer) ActiveMode() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// StagedMode reports the system mode that will apply at the next power-on.
func (l *Layer) StagedMode() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.staged
}
