package socket

import (
	"errors"
	"fmt"

	"github.com/cellsock/cellsock/nif"
)

// Sentinel errors shared by every socket variant. These are compared with
// errors.Is; none of them log anything on their own.
var (
	// ErrInvalidState means the operation is not valid for the socket's
	// current lifecycle stage, e.g. using a closed socket or setting
	// security tags after connect.
	ErrInvalidState = errors.New("socket: invalid state")

	// ErrTimeout means a time budget elapsed before the operation
	// completed.
	ErrTimeout = errors.New("socket: timeout")

	// ErrWouldBlock is returned by non-blocking reads when nothing is
	// pending.
	ErrWouldBlock = errors.New("socket: operation would block")

	// ErrBusy means the credential store rejected an operation because the
	// secure stack is not idle.
	ErrBusy = errors.New("socket: credential store busy")

	// ErrNoFix means the GNSS receiver has not produced a position yet.
	ErrNoFix = errors.New("socket: no fix available")

	// ErrTooManyEntries means a poll call was given more entries than the
	// native layer supports.
	ErrTooManyEntries = errors.New("socket: too many poll entries")

	// ErrInvalidConfig means a socket configuration violated a per-option
	// constraint before any native call was made, e.g. mandatory peer
	// verification with an empty security tag list.
	ErrInvalidConfig = errors.New("socket: invalid configuration")
)

// NativeError reports a native call that returned a negative value. Op names
// the native call, Errno the decoded error value.
type NativeError struct {
	Op    string
	Errno int
}

func (e NativeError) Error() string {
	return fmt.Sprintf("native %v: errno %v", e.Op, e.Errno)
}

// DNSError reports a failed hostname lookup.
type DNSError struct {
	Host  string
	Errno int
}

func (e DNSError) Error() string {
	return fmt.Sprintf("resolving %v: errno %v", e.Host, e.Errno)
}

// ConnectError reports that no resolved address accepted a connection. Addr
// is the last address tried.
type ConnectError struct {
	Addr  nif.Addr
	Errno int
}

func (e ConnectError) Error() string {
	a := e.Addr
	return fmt.Sprintf("connecting %v.%v.%v.%v:%v: errno %v",
		a.IP[0], a.IP[1], a.IP[2], a.IP[3], a.Port, e.Errno)
}

// CommandError reports a terminal error line from the AT interface. Line is
// the verbatim line as received ("ERROR", "+CME ERROR: 516", ...). Code is
// the numeric +CME/+CMS code, or 0 for a plain ERROR.
type CommandError struct {
	Line string
	Code int
}

func (e CommandError) Error() string {
	return fmt.Sprintf("at command failed: %v", e.Line)
}

// MalformedResponseError means a response ended (byte budget exhausted or
// stream closed) without a terminal line, or a frame could not be parsed.
// Response holds whatever lines were collected.
type MalformedResponseError struct {
	Response []string
}

func (e MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response (%v lines)", len(e.Response))
}

// ProvisioningError reports which credential write failed. Kind is one of
// the nif.Cred* constants.
type ProvisioningError struct {
	Kind  int
	Errno int
}

func (e ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning %v: errno %v", credKindName(e.Kind), e.Errno)
}

func credKindName(kind int) string {
	switch kind {
	case nif.CredRootCA:
		return "root CA"
	case nif.CredClientCert:
		return "client cert"
	case nif.CredClientKey:
		return "client key"
	}
	return fmt.Sprintf("kind %v", kind)
}
