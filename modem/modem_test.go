package modem

import (
	"errors"
	"testing"
	"time"

	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/sim"
	"github.com/cellsock/cellsock/socket"
)

func TestOnIdempotent(t *testing.T) {
	l := sim.New()
	m := New(l)

	if err := m.On(); err != nil {
		t.Fatal("Error: ", err)
	}
	if err := m.On(); err != nil {
		t.Fatal("Error: ", err)
	}
	if !l.Powered() {
		t.Fatal("modem should be powered")
	}
}

func TestStagedModeAppliesOnRestart(t *testing.T) {
	l := sim.New()
	m := New(l)

	if err := m.On(); err != nil {
		t.Fatal("Error: ", err)
	}
	if l.ActiveMode() != nif.ModeLTEM {
		t.Fatal("default active mode should be LTE-M: ", l.ActiveMode())
	}

	if err := m.SetSystemMode(ModeLTEM | ModeGNSS); err != nil {
		t.Fatal("Error: ", err)
	}
	// Staged only: the running configuration is unchanged until a
	// power cycle.
	if l.ActiveMode() != nif.ModeLTEM {
		t.Fatal("mode change should not apply while on: ", l.ActiveMode())
	}

	if err := m.Restart(); err != nil {
		t.Fatal("Error: ", err)
	}
	if l.ActiveMode() != nif.ModeLTEM|nif.ModeGNSS {
		t.Fatal("staged mode should apply after restart: ", l.ActiveMode())
	}
}

func TestSetSystemModeRejected(t *testing.T) {
	l := sim.New()
	l.SetGNSSHardware(false)
	m := New(l)

	err := m.SetSystemMode(ModeGNSS)
	var nativeErr socket.NativeError
	if !errors.As(err, &nativeErr) {
		t.Fatal("expected NativeError, got: ", err)
	}
	if nativeErr.Errno != nif.EOpNotSupp {
		t.Fatal("wrong errno: ", nativeErr.Errno)
	}
}

func TestWaitForRegistrationImmediate(t *testing.T) {
	l := sim.New()
	l.SetRegistered(true)
	m := New(l)

	if err := m.On(); err != nil {
		t.Fatal("Error: ", err)
	}
	if err := m.WaitForRegistration(time.Second); err != nil {
		t.Fatal("Error: ", err)
	}
}

func TestWaitForRegistrationUnsolicited(t *testing.T) {
	l := sim.New()
	m := New(l)

	if err := m.On(); err != nil {
		t.Fatal("Error: ", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		l.PushATLine("+CEREG: 5")
	}()

	if err := m.WaitForRegistration(time.Second); err != nil {
		t.Fatal("Error: ", err)
	}
}

func TestWaitForRegistrationTimeout(t *testing.T) {
	l := sim.New()
	m := New(l)

	if err := m.On(); err != nil {
		t.Fatal("Error: ", err)
	}

	timeout := 100 * time.Millisecond
	start := time.Now()
	err := m.WaitForRegistration(timeout)
	elapsed := time.Since(start)

	if !errors.Is(err, socket.ErrTimeout) {
		t.Fatal("expected ErrTimeout, got: ", err)
	}
	if elapsed < timeout {
		t.Fatal("gave up early: ", elapsed)
	}
	if open := l.OpenDescriptors(); open != 0 {
		t.Fatal("AT descriptor leaked: ", open)
	}
}

func TestFlightMode(t *testing.T) {
	l := sim.New()
	m := New(l)

	if err := m.FlightMode(); err != nil {
		t.Fatal("Error: ", err)
	}
	if open := l.OpenDescriptors(); open != 0 {
		t.Fatal("AT descriptor leaked: ", open)
	}
}
