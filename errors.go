package adiv5

import (
	"errors"
	"fmt"
)

// Error represents a structured ADIv5 error with operation context.
type Error struct {
	Op    string    // Operation that failed (e.g. "ReadU32", "DPInit", "MemAPTransfer")
	AP    int       // AP index (-1 if not applicable)
	Addr  uint32    // Target address, when relevant (0 if not applicable)
	Kind  ErrorKind // High-level error category
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.AP >= 0 {
		parts = append(parts, fmt.Sprintf("ap=%d", e.AP))
	}
	if e.Addr != 0 {
		parts = append(parts, fmt.Sprintf("addr=0x%08x", e.Addr))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("adiv5: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("adiv5: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support keyed on ErrorKind.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

// ErrorKind represents the high-level ADIv5 fault categories from the
// CTRL/STAT and ACK response space (§7).
type ErrorKind string

const (
	KindOk              ErrorKind = "ok"
	KindFault           ErrorKind = "fault"           // SWD/JTAG FAULT ack, or sticky error latch set
	KindWait            ErrorKind = "wait"            // SWD/JTAG WAIT ack exhausted retries
	KindUnalignedAccess ErrorKind = "unaligned access" // address not naturally aligned for the requested size
	KindTimeout         ErrorKind = "timeout"         // a polled condition never became true
	KindNotFound        ErrorKind = "not found"       // no AP/component at the requested index/address
	KindOutOfMemory     ErrorKind = "out of memory"   // scratch/journal allocation failed
	KindCommandSyntax   ErrorKind = "command syntax"  // malformed request (buffer shorter than size*count, bad CLI argument)
)

// NewError creates a new structured error with no AP/address context.
func NewError(op string, kind ErrorKind, msg string) *Error {
	return &Error{Op: op, AP: -1, Kind: kind, Msg: msg}
}

// NewAPError creates an AP-scoped structured error.
func NewAPError(op string, ap int, kind ErrorKind, msg string) *Error {
	return &Error{Op: op, AP: ap, Kind: kind, Msg: msg}
}

// NewAddrError creates an address-scoped structured error.
func NewAddrError(op string, ap int, addr uint32, kind ErrorKind, msg string) *Error {
	return &Error{Op: op, AP: ap, Addr: addr, Kind: kind, Msg: msg}
}

// WrapError wraps an existing error with ADIv5 operation context,
// preserving the inner error's Kind when it is already structured.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ae, ok := inner.(*Error); ok {
		return &Error{Op: op, AP: ae.AP, Addr: ae.Addr, Kind: ae.Kind, Msg: ae.Msg, Inner: ae.Inner}
	}
	return &Error{Op: op, AP: -1, Kind: KindFault, Msg: inner.Error(), Inner: inner}
}

// IsKind reports whether err is a structured *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
