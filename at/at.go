// Package at talks to the modem over the vendor AT command socket. Commands
// are plain text; the modem answers with zero or more information lines
// followed by a terminal line: OK, ERROR, or a +CME/+CMS ERROR code.
package at

import (
	"bytes"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cellsock/cellsock/nif"
	"github.com/cellsock/cellsock/socket"
)

// DebugCommands can be set to true to log AT traffic.
var DebugCommands = false

// Default response budgets. Override per socket if a command needs more.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxResponse = 4096
)

// +CME ERROR: 516  /  +CMS ERROR: 500
var reErrorCode = regexp.MustCompile(`^\+CM[ES] ERROR:\s*(\d+)`)

// Socket is a dedicated descriptor for AT command exchange.
type Socket struct {
	*socket.Socket
	layer nif.Layer

	// Timeout bounds how long SendCommand waits for the terminal line.
	Timeout time.Duration

	// MaxResponse bounds how many response bytes SendCommand accepts
	// before giving up on finding a terminal line.
	MaxResponse int
}

// Open creates a new AT socket.
func Open(layer nif.Layer) (*Socket, error) {
	s, err := socket.New(layer, nif.AFLTE, nif.SockDgram, nif.ProtoAT)
	if err != nil {
		return nil, err
	}
	return &Socket{
		Socket:      s,
		layer:       layer,
		Timeout:     DefaultTimeout,
		MaxResponse: DefaultMaxResponse,
	}, nil
}

// SendCommand writes cmd (terminator appended) and reads until a terminal
// line arrives. It returns every response line in order, terminal line
// included. A terminal ERROR or +CME/+CMS ERROR line is also reported as a
// socket.CommandError carrying the line verbatim. If the time budget runs
// out first the result is socket.ErrTimeout; if the byte budget runs out
// with no terminal line, socket.MalformedResponseError.
func (s *Socket) SendCommand(cmd string) ([]string, error) {
	if DebugCommands {
		log.Println("at tx: ", cmd)
	}

	if _, err := s.Write([]byte(cmd + "\r\n")); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.Timeout)
	var lines []string
	var pending []byte
	total := 0

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return lines, socket.ErrTimeout
		}

		entries := []socket.PollEntry{{Socket: s, Events: socket.In}}
		n, err := socket.Poll(s.layer, entries, remaining)
		if err != nil {
			return lines, err
		}
		if n == 0 {
			return lines, socket.ErrTimeout
		}

		buf := make([]byte, 256)
		count, err := s.ReadNoWait(buf)
		if errors.Is(err, socket.ErrWouldBlock) {
			continue
		}
		if err != nil {
			// Stream ended under us: no terminal line is coming.
			return lines, socket.MalformedResponseError{Response: lines}
		}

		total += count
		pending = append(pending, buf[:count]...)

		var done []string
		done, pending = splitLines(pending)
		for _, line := range done {
			if DebugCommands {
				log.Println("at rx: ", line)
			}
			lines = append(lines, line)
			if err, terminal := terminalError(line); terminal {
				return lines, err
			}
		}

		if total > s.MaxResponse {
			return lines, socket.MalformedResponseError{Response: lines}
		}
	}
}

// Check runs a command and succeeds only on a terminal OK, discarding any
// information lines.
func (s *Socket) Check(cmd string) error {
	_, err := s.SendCommand(cmd)
	return err
}

// splitLines peels complete CR/LF-terminated lines off buf, dropping blank
// ones, and returns the unterminated remainder.
func splitLines(buf []byte) ([]string, []byte) {
	var lines []string
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			return lines, buf
		}
		line := strings.TrimSpace(string(buf[:i]))
		buf = buf[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
}

// terminalError reports whether line completes a command, and the error it
// maps to (nil for OK).
func terminalError(line string) (error, bool) {
	switch {
	case line == "OK":
		return nil, true
	case line == "ERROR":
		return socket.CommandError{Line: line}, true
	}
	if m := reErrorCode.FindStringSubmatch(line); m != nil {
		code, _ := strconv.Atoi(m[1])
		return socket.CommandError{Line: line, Code: code}, true
	}
	return nil, false
}
