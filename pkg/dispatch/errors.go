package dispatch

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNilKey is returned when a nil key is used.
	ErrNilKey = errors.New("dispatch: nil key")
	// ErrInvalidKey is returned when a key cannot be used as a map key.
	ErrInvalidKey = errors.New("dispatch: invalid key")
	// ErrNilCallback is returned when a nil callback is registered or removed.
	ErrNilCallback = errors.New("dispatch: nil callback")
	// ErrSignatureMismatch is the sentinel wrapped by every SignatureError.
	ErrSignatureMismatch = errors.New("dispatch: signature mismatch")
)

// SignatureError reports a callback or broadcast whose shape does not match the chain
// registered for a key.
type SignatureError struct {
	Op   string // "add", "remove" or "send"
	Key  any
	Have reflect.Type // Signature stored for the key
	Want reflect.Type // Signature implied by the call
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("dispatch: %s %v: signature mismatch: registered %v, got %v", e.Op, e.Key, e.Have, e.Want)
}

func (e *SignatureError) Unwrap() error { return ErrSignatureMismatch }

// PanicError reports a listener chain that panicked during a broadcast.
type PanicError struct {
	Key   any
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch: listener for %v panicked: %v", e.Key, e.Value)
}
