package ports

import (
	"time"

	"github.com/aretw0/exhibit/pkg/domain"
)

// Visual is anything the host can show or hide (node visuals, highlight effects).
type Visual interface {
	Show()
	Hide()
}

// Actor is a shared scene actor that the engine may relocate.
type Actor interface {
	MoveTo(pos domain.Position)
}

// Animator drives an actor's animation state machine.
type Animator interface {
	// SetTrigger fires an animation trigger by name.
	SetTrigger(trigger string)

	// ClipDuration resolves a named clip's length. ok is false when the clip does not exist.
	ClipDuration(clip string) (d time.Duration, ok bool)
}
