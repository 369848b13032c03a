package socket

import (
	"errors"
	"testing"
	"time"

	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/sim"
)

func openAT(t *testing.T, l *sim.Layer) *Socket {
	t.Helper()
	s, err := New(l, nif.AFLTE, nif.SockDgram, nif.ProtoAT)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	return s
}

func TestPollTimeout(t *testing.T) {
	l := sim.New()
	s := openAT(t, l)
	defer s.Close()

	timeout := 50 * time.Millisecond
	start := time.Now()
	n, err := Poll(l, []PollEntry{{Socket: s, Events: In}}, timeout)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatal("Error: ", err)
	}
	if n != 0 {
		t.Fatal("expected 0 ready on timeout, got: ", n)
	}
	if elapsed < timeout {
		t.Fatal("poll returned before timeout elapsed: ", elapsed)
	}
}

func TestPollResultsInSuppliedOrder(t *testing.T) {
	l := sim.New()
	a := openAT(t, l)
	defer a.Close()
	b := openAT(t, l)
	defer b.Close()

	// Only b has data pending.
	l.Feed(b.PollFD(), []byte("+CEREG: 1\r\n"))

	entries := []PollEntry{
		{Socket: a, Events: In},
		{Socket: b, Events: In},
	}
	n, err := Poll(l, entries, time.Second)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	if n != 1 {
		t.Fatal("expected 1 ready, got: ", n)
	}
	if entries[0].Revents != 0 {
		t.Fatal("idle entry should have no observed events: ", entries[0].Revents)
	}
	if !entries[1].Revents.Readable() {
		t.Fatal("ready entry should be readable: ", entries[1].Revents)
	}
}

func TestPollClearsStaleRevents(t *testing.T) {
	l := sim.New()
	s := openAT(t, l)
	defer s.Close()

	entries := []PollEntry{{Socket: s, Events: In, Revents: nif.PollIn}}
	n, err := Poll(l, entries, 10*time.Millisecond)
	if err != nil || n != 0 {
		t.Fatal("expected clean timeout, got: ", n, err)
	}
	if entries[0].Revents != 0 {
		t.Fatal("stale revents should be cleared: ", entries[0].Revents)
	}
}

func TestPollTooManyEntries(t *testing.T) {
	l := sim.New()
	s := openAT(t, l)
	defer s.Close()

	entries := make([]PollEntry, MaxPollEntries+1)
	for i := range entries {
		entries[i] = PollEntry{Socket: s, Events: In}
	}
	_, err := Poll(l, entries, 0)
	if !errors.Is(err, ErrTooManyEntries) {
		t.Fatal("expected ErrTooManyEntries, got: ", err)
	}
}

func TestPollClosedDescriptor(t *testing.T) {
	l := sim.New()
	s := openAT(t, l)
	fd := s.PollFD()
	s.Close()

	// Poll by raw identity: the native layer reports the stale descriptor.
	entries := []PollEntry{{Socket: rawFD(fd), Events: In}}
	n, err := Poll(l, entries, time.Second)
	if err != nil {
		t.Fatal("Error: ", err)
	}
	if n != 1 || !entries[0].Revents.Invalid() {
		t.Fatal("expected invalid-descriptor event, got: ", n, entries[0].Revents)
	}
}

type rawFD int

func (r rawFD) PollFD() int { return int(r) }
