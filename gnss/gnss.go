// Package gnss drives the positioning receiver through its dedicated
// socket. The receiver is started and configured through socket options and
// delivers NMEA sentences; GGA sentences carry the position fix.
package gnss

import (
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/socket"
)

// NMEAMask selects which sentence types the receiver emits.
type NMEAMask uint16

// NMEA sentence type bits.
const (
	MaskGGA NMEAMask = 1 << 0 // fix data
	MaskGLL NMEAMask = 1 << 1 // lat/long and time
	MaskGSA NMEAMask = 1 << 2 // DOP and active satellites
	MaskGSV NMEAMask = 1 << 3 // satellites in view
	MaskRMC NMEAMask = 1 << 4 // recommended minimum fix data
)

// DeleteMask selects which non-volatile receiver data to discard when
// starting, to force a cold or warm start.
type DeleteMask uint32

// Non-volatile data bits.
const (
	DeleteEphemerides DeleteMask = 1 << 0
	DeleteAlmanac     DeleteMask = 1 << 1
	DeleteIonospheric DeleteMask = 1 << 2
	DeleteLastFix     DeleteMask = 1 << 3
	DeleteTimeOfWeek  DeleteMask = 1 << 4
	DeleteWeekNumber  DeleteMask = 1 << 5
	DeleteLeapSecond  DeleteMask = 1 << 6
	DeleteClockOffset DeleteMask = 1 << 7
)

// Fix is one position solution.
type Fix struct {
	Lat    float64
	Long   float64
	Alt    float64
	Acc    string // GGA fix quality: "1" GPS, "2" DGPS, ...
	NumSat int64
}

// Socket is a connection to the positioning subsystem.
type Socket struct {
	*socket.Socket
	layer nif.Layer
}

// Open creates a new GNSS socket. The receiver is not running until Start.
func Open(layer nif.Layer) (*Socket, error) {
	s, err := socket.New(layer, nif.AFLocal, nif.SockDgram, nif.ProtoGNSS)
	if err != nil {
		return nil, err
	}
	return &Socket{Socket: s, layer: layer}, nil
}

// Start runs the receiver, first deleting the non-volatile data selected by
// mask. Requires a system mode with GNSS enabled to be active.
func (s *Socket) Start(mask DeleteMask) error {
	return s.SetOption(socket.GNSSStart(mask))
}

// Stop halts the receiver.
func (s *Socket) Stop() error {
	return s.SetOption(socket.GNSSStop{})
}

// SetFixInterval sets seconds between fixes. 0 selects single-fix mode.
func (s *Socket) SetFixInterval(seconds uint16) error {
	return s.SetOption(socket.GNSSFixInterval(seconds))
}

// SetFixRetry sets how long (seconds) the receiver tries for each fix. 0
// means try forever.
func (s *Socket) SetFixRetry(seconds uint16) error {
	return s.SetOption(socket.GNSSFixRetry(seconds))
}

// SetNMEAMask selects which sentence types the receiver emits.
func (s *Socket) SetNMEAMask(mask NMEAMask) error {
	return s.SetOption(socket.GNSSNMEAMask(mask))
}

// GetFix reads the latest frame without blocking. socket.ErrNoFix means
// nothing position-bearing is available yet: no frame pending, or the
// pending frame carried no valid fix.
func (s *Socket) GetFix() (Fix, error) {
	buf := make([]byte, 128)
	n, err := s.ReadNoWait(buf)
	if err == socket.ErrWouldBlock {
		return Fix{}, socket.ErrNoFix
	}
	if err != nil {
		return Fix{}, err
	}
	return parseFix(string(buf[:n]))
}

// GetBlockingFix polls the socket until a valid fix arrives or timeout
// elapses, in which case it fails with socket.ErrTimeout. Frames without a
// fix (unselected sentence types, searching-sky GGA) are skipped.
func (s *Socket) GetBlockingFix(timeout time.Duration) (Fix, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Fix{}, socket.ErrTimeout
		}

		entries := []socket.PollEntry{{Socket: s, Events: socket.In}}
		n, err := socket.Poll(s.layer, entries, remaining)
		if err != nil {
			return Fix{}, err
		}
		if n == 0 {
			return Fix{}, socket.ErrTimeout
		}

		fix, err := s.GetFix()
		if err == socket.ErrNoFix {
			continue
		}
		return fix, err
	}
}

// parseFix decodes one NMEA sentence. Only GGA sentences with a non-zero
// fix quality produce a Fix.
func parseFix(raw string) (Fix, error) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Fix{}, socket.ErrNoFix
	}

	s, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, socket.MalformedResponseError{Response: []string{line}}
	}

	if s.DataType() != nmea.TypeGGA {
		return Fix{}, socket.ErrNoFix
	}

	gga := s.(nmea.GGA)
	if gga.FixQuality == "0" {
		return Fix{}, socket.ErrNoFix
	}

	return Fix{
		Lat:    gga.Latitude,
		Long:   gga.Longitude,
		Alt:    gga.Altitude,
		Acc:    gga.FixQuality,
		NumSat: gga.NumSatellites,
	}, nil
}
