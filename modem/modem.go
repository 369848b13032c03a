// Package modem controls baseband power, system mode, and network
// registration. Bringing the modem up is the precondition for any socket
// work: power on, wait for registration, then open sockets.
package modem

import (
	"strings"
	"time"

	"github.com/cellsock/cellsock/at"
	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/socket"
	"github.com/pkg/errors"
)

// Mode selects which radio access technologies, and optionally GNSS, are
// enabled.
type Mode int

// Mode flags. Combine with bitwise or; the native stack validates the
// combination.
const (
	ModeLTEM  Mode = nif.ModeLTEM
	ModeNBIoT Mode = nif.ModeNBIoT
	ModeGNSS  Mode = nif.ModeGNSS
)

func (m Mode) String() string {
	var parts []string
	if m&ModeLTEM != 0 {
		parts = append(parts, "LTE-M")
	}
	if m&ModeNBIoT != 0 {
		parts = append(parts, "NB-IoT")
	}
	if m&ModeGNSS != 0 {
		parts = append(parts, "GNSS")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Modem is the process-wide power and mode controller. Create one per
// native layer; it holds no descriptor of its own and opens short-lived AT
// sockets for the helpers that talk to the command interface.
type Modem struct {
	layer nif.Layer
	on    bool
}

// New creates a modem controller for layer. The modem starts off.
func New(layer nif.Layer) *Modem {
	return &Modem{layer: layer}
}

// On powers the baseband and begins network registration. Idempotent if
// already on. The most recently staged system mode takes effect here.
func (m *Modem) On() error {
	if m.on {
		return nil
	}
	if ret := m.layer.ModemPower(true); ret < 0 {
		return socket.NativeError{Op: "modem power", Errno: -ret}
	}
	m.on = true
	return nil
}

// Off powers the baseband down.
func (m *Modem) Off() error {
	if ret := m.layer.ModemPower(false); ret < 0 {
		return socket.NativeError{Op: "modem power", Errno: -ret}
	}
	m.on = false
	return nil
}

// Restart cycles power so a staged system mode takes effect.
func (m *Modem) Restart() error {
	if err := m.Off(); err != nil {
		return err
	}
	return m.On()
}

// SetSystemMode stages the radio/GNSS enablement. The native stack
// validates the combination now, but the active mode only changes on the
// next On cycle -- calling this while on does not retroactively change the
// running configuration.
func (m *Modem) SetSystemMode(mode Mode) error {
	if ret := m.layer.SetSystemMode(int(mode)); ret < 0 {
		return socket.NativeError{Op: "system mode", Errno: -ret}
	}
	return nil
}

// Registration indications accepted as "on the network": registered home
// and registered roaming.
var registeredIndications = []string{"+CEREG: 1", "+CEREG:1", "+CEREG: 5", "+CEREG:5"}

// WaitForRegistration subscribes to registration indications over a
// dedicated AT socket and blocks until the network accepts the modem or
// timeout elapses (socket.ErrTimeout).
func (m *Modem) WaitForRegistration(timeout time.Duration) error {
	skt, err := at.Open(m.layer)
	if err != nil {
		return err
	}
	defer skt.Close()

	deadline := time.Now().Add(timeout)

	lines, err := skt.SendCommand("AT+CEREG=2")
	if err != nil {
		return errors.Wrap(err, "subscribing to registration indications")
	}
	if registered(lines) {
		return nil
	}

	// Unsolicited indications arrive on their own schedule.
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return socket.ErrTimeout
		}

		entries := []socket.PollEntry{{Socket: skt, Events: socket.In}}
		n, err := socket.Poll(m.layer, entries, remaining)
		if err != nil {
			return err
		}
		if n == 0 {
			return socket.ErrTimeout
		}

		buf := make([]byte, 128)
		count, err := skt.ReadNoWait(buf)
		if err == socket.ErrWouldBlock {
			continue
		}
		if err != nil {
			return err
		}
		if registered(strings.Split(string(buf[:count]), "\n")) {
			return nil
		}
	}
}

func registered(lines []string) bool {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, ind := range registeredIndications {
			if strings.HasPrefix(line, ind) {
				return true
			}
		}
	}
	return false
}

// FlightMode disables the radios without powering the baseband down, via
// the command interface.
func (m *Modem) FlightMode() error {
	return m.atCheck("AT+CFUN=4")
}

// ConfigureGNSSAntenna routes the off-chip GNSS RF switch for boards that
// gate the antenna on a MAGPIO pin. Board-specific; harmless elsewhere.
func (m *Modem) ConfigureGNSSAntenna() error {
	return m.atCheck("AT%XMAGPIO=1,0,0,1,1,1574,1577")
}

// atCheck runs one command on a short-lived AT socket and expects OK.
func (m *Modem) atCheck(cmd string) error {
	skt, err := at.Open(m.layer)
	if err != nil {
		return err
	}
	defer skt.Close()
	return skt.Check(cmd)
}
