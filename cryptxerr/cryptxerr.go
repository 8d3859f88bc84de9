// Package cryptxerr defines the typed error taxonomy shared by every
// cryptographic and protocol layer in the tunnel: field and group
// arithmetic, the record layer, the handshake, and the signature scheme
// all report failures through a small, comparable set of Kind values
// rather than ad-hoc string errors.
package cryptxerr

import "fmt"

// Kind identifies the category of a cryptx error. Callers compare
// against the package-level sentinels with errors.Is.
type Kind int

const (
	// InvalidKey indicates a key of the wrong length or an unusable
	// value (e.g. the all-zero scalar) was supplied.
	InvalidKey Kind = iota
	// InvalidCipherText indicates a ciphertext is malformed (wrong
	// length, truncated record) independent of MAC verification.
	InvalidCipherText
	// InvalidParameter indicates a caller supplied an out-of-range or
	// otherwise unusable argument.
	InvalidParameter
	// InvalidState indicates an operation was attempted while the
	// owning object was in a state that forbids it (e.g. encrypting
	// with a session already Aborted).
	InvalidState
	// InvalidOperation indicates a capability was invoked that the
	// receiver does not support.
	InvalidOperation
	// WrongKey indicates decryption produced a value that fails
	// authentication under the supplied key.
	WrongKey
	// HMACFailed indicates the record layer's MAC did not match.
	HMACFailed
	// ReplayAttack indicates a received record's serial was not
	// strictly greater than the last seen serial.
	ReplayAttack
	// InvalidPoint indicates a compressed group element failed to
	// decompress (no square root, or malformed encoding).
	InvalidPoint
	// NoExchange indicates key derivation was invoked before both
	// parties' public material was available.
	NoExchange
	// SmallOrderAttack indicates a received point was rejected by the
	// cofactor check (edwards.CofactorCheck, 8*P == P).
	SmallOrderAttack
)

func (k Kind) String() string {
	switch k {
	case InvalidKey:
		return "InvalidKey"
	case InvalidCipherText:
		return "InvalidCipherText"
	case InvalidParameter:
		return "InvalidParameter"
	case InvalidState:
		return "InvalidState"
	case InvalidOperation:
		return "InvalidOperation"
	case WrongKey:
		return "WrongKey"
	case HMACFailed:
		return "HMACFailed"
	case ReplayAttack:
		return "ReplayAttack"
	case InvalidPoint:
		return "InvalidPoint"
	case NoExchange:
		return "NoExchange"
	case SmallOrderAttack:
		return "SmallOrderAttack"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with a message and an optional underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, SomeKind) to work by comparing against a
// bare Kind value wrapped as a sentinel.
func (e *Error) Is(target error) bool {
	k, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == k.Kind
}

// New constructs an *Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Sentinel returns a bare *Error usable as an errors.Is target for Kind k.
func Sentinel(k Kind) *Error { return &Error{Kind: k} }
