package gnss

import (
	"errors"
	"testing"
	"time"

	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/sim"
	"github.com/cellsock/cellsock/socket"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Stock GGA sentence: 48.1173N 11.5167E, quality 1, 8 satellites, 545.4m.
const ggaFix = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"

// Same position while still searching the sky (quality 0).
const ggaNoFix = "$GPGGA,123519,4807.038,N,01131.000,E,0,08,0.9,545.4,M,46.9,M,,*46"

// A sentence type that carries no GGA fix.
const rmc = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"

func startedSocket(t *testing.T, l *sim.Layer) *Socket {
	t.Helper()

	l.SetSystemMode(nif.ModeLTEM | nif.ModeGNSS)
	l.ModemPower(true)

	s, err := Open(l)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.SetFixInterval(1); err != nil {
		t.Fatal("Error: ", err)
	}
	if err := s.SetNMEAMask(MaskGGA | MaskRMC); err != nil {
		t.Fatal("Error: ", err)
	}
	if err := s.Start(DeleteMask(0)); err != nil {
		t.Fatal("Error: ", err)
	}
	return s
}

func TestGetFixNoFixYet(t *testing.T) {
	l := sim.New()
	s := startedSocket(t, l)

	_, err := s.GetFix()
	if !errors.Is(err, socket.ErrNoFix) {
		t.Fatal("expected ErrNoFix, got: ", err)
	}
}

func TestGetFixParsesGGA(t *testing.T) {
	l := sim.New()
	s := startedSocket(t, l)

	l.PushNMEA(ggaFix)

	fix, err := s.GetFix()
	if err != nil {
		t.Fatal("Error: ", err)
	}

	want := Fix{
		Lat:    48.1173,
		Long:   11.5167,
		Alt:    545.4,
		Acc:    "1",
		NumSat: 8,
	}
	if diff := cmp.Diff(want, fix, cmpopts.EquateApprox(0, 1e-3)); diff != "" {
		t.Fatal("unexpected fix: ", diff)
	}
}

func TestGetFixSearchingSky(t *testing.T) {
	l := sim.New()
	s := startedSocket(t, l)

	l.PushNMEA(ggaNoFix)

	_, err := s.GetFix()
	if !errors.Is(err, socket.ErrNoFix) {
		t.Fatal("quality-0 GGA should report ErrNoFix, got: ", err)
	}
}

func TestGetBlockingFixTimeout(t *testing.T) {
	l := sim.New()
	s := startedSocket(t, l)

	timeout := 100 * time.Millisecond
	start := time.Now()
	_, err := s.GetBlockingFix(timeout)
	elapsed := time.Since(start)

	if !errors.Is(err, socket.ErrTimeout) {
		t.Fatal("expected ErrTimeout, got: ", err)
	}
	if elapsed < timeout {
		t.Fatal("returned before timeout elapsed: ", elapsed)
	}
}

func TestGetBlockingFixSkipsNonFixFrames(t *testing.T) {
	l := sim.New()
	s := startedSocket(t, l)

	l.PushNMEA(rmc)
	l.PushNMEA(ggaNoFix)
	l.PushNMEA(ggaFix)

	fix, err := s.GetBlockingFix(time.Second)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	if fix.NumSat != 8 {
		t.Fatal("unexpected fix: ", fix)
	}
}

func TestStartNeedsGNSSMode(t *testing.T) {
	l := sim.New()
	l.ModemPower(true) // default staged mode is LTE-M only

	s, err := Open(l)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	defer s.Close()

	err = s.Start(DeleteMask(0))
	var nativeErr socket.NativeError
	if !errors.As(err, &nativeErr) {
		t.Fatal("expected NativeError, got: ", err)
	}
	if nativeErr.Errno != nif.EOpNotSupp {
		t.Fatal("wrong errno: ", nativeErr.Errno)
	}
}
