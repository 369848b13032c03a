package sim

import "github.com/cellsock/cellsock/nif"

// ModemPower implements nif.Layer. Powering on applies the staged system
// mode; powering on an already-powered modem is a no-op.
func (l *Layer) ModemPower(on bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if on {
		if !l.powered {
			l.powered = true
			l.active = l.staged
		}
		return 0
	}
	l.powered = false
	return 0
}

// SetSystemMode implements nif.Layer. The combination is validated here but
// only becomes active on the next power-on.
func (l *Layer) SetSystemMode(flags int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if flags == 0 || flags&^(nif.ModeLTEM|nif.ModeNBIoT|nif.ModeGNSS) != 0 {
		return -nif.EInval
	}
	if flags&nif.ModeGNSS != 0 && !l.gnssChip {
		return -nif.EOpNotSupp
	}
	l.staged = flags
	return 0
}

// CredWrite implements nif.Layer. Rejected while any open secure socket
// references the tag.
func (l *Layer) CredWrite(tag uint32, kind int, data []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy[tag] > 0 {
		return -nif.EBusy
	}
	if errno, ok := l.failCred[kind]; ok {
		return -errno
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	l.creds[credKey{tag, kind}] = buf
	return 0
}

// CredDelete implements nif.Layer.
func (l *Layer) CredDelete(tag uint32, kind int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy[tag] > 0 {
		return -nif.EBusy
	}
	if _, ok := l.creds[credKey{tag, kind}]; !ok {
		return -nif.ENoEnt
	}
	delete(l.creds, credKey{tag, kind})
	return 0
}

// respondAT queues the scripted response for one AT command. Unknown
// commands answer OK, matching a modem with every feature enabled. Called
// with the layer lock held.
func (l *Layer) respondAT(s *sock, cmd string) {
	lines, ok := l.atScript[cmd]
	if !ok {
		lines = []string{"OK"}
		if cmd == "AT+CEREG=2" && l.registered {
			lines = []string{"OK", "+CEREG: 1"}
		}
	}
	for _, line := range lines {
		s.frames = append(s.frames, []byte(line+"\r\n"))
	}
}
