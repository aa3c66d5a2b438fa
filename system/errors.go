package system

import (
	"errors"
	"fmt"
)

// Kind classifies a system-level error per the spec's error taxonomy.
// The zero value has no meaning on its own; a nil error is success.
type Kind int

const (
	// KindInvalidRegister is raised by the executor for a malformed register access.
	KindInvalidRegister Kind = iota + 1
	// KindInvalidOpcode is raised by the executor when it cannot decode an instruction.
	KindInvalidOpcode
	// KindUserError wraps a peripheral-defined install/operation failure. Opaque to the substrate.
	KindUserError
	// KindCantRestore is returned by Reset(state) when the peripheral cannot honour a snapshot.
	KindCantRestore
	// KindInstall marks a fatal failure during System.Initialize.
	KindInstall
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRegister:
		return "invalid register"
	case KindInvalidOpcode:
		return "invalid opcode"
	case KindUserError:
		return "user error"
	case KindCantRestore:
		return "cant restore"
	case KindInstall:
		return "install failure"
	default:
		return "unknown"
	}
}

// Error is the substrate's error value. It carries a Kind so callers can
// branch on the taxonomy without string matching, while still composing
// with errors.Is/errors.As via Unwrap.
type Error struct {
	Kind  Kind
	Peer  string // peripheral name, if the error originated from one
	Cause error
}

func (e *Error) Error() string {
	if e.Peer != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Peer, e.Kind, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Peer, e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// CantRestore reports whether err is (or wraps) a KindCantRestore error,
// the sentinel a peripheral's Reset callback returns when asked to restore
// from a snapshot it does not recognise.
func CantRestore(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindCantRestore
}

// UserError wraps a peripheral-defined failure code so the substrate can
// pass it through install/operation paths without inspecting it.
func UserError(peer string, cause error) error {
	return &Error{Kind: KindUserError, Peer: peer, Cause: cause}
}
