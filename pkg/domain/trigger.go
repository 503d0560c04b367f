package domain

import (
	"fmt"
	"strings"
)

// TriggerKind tells how a node is meant to be triggered.
type TriggerKind uint8

const (
	KindUnknown      TriggerKind = iota // Default, guards against undefined kinds
	KindAudio                           // Plays audio when approached or clicked
	KindZone                            // Activates when the player enters its zone
	KindAnnotation                      // Pops up an annotation when viewed
	KindTimed                           // Fires automatically after a delay
	KindScript                          // Driven by host scripts
	KindInteraction                     // Requires explicit user interaction
	KindVisualEffect                    // Only triggers visual effects
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindAudio:        "audio",
	KindZone:         "zone",
	KindAnnotation:   "annotation",
	KindTimed:        "timed",
	KindScript:       "script",
	KindInteraction:  "interaction",
	KindVisualEffect: "visual_effect",
}

func (k TriggerKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseTriggerKind resolves a kind from its name. Matching is case-insensitive and
// accepts both "visual_effect" and "visualeffect".
func ParseTriggerKind(s string) (TriggerKind, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	if clean == "" {
		return KindUnknown, nil
	}
	for i, name := range kindNames {
		if clean == name || clean == strings.ReplaceAll(name, "_", "") {
			return TriggerKind(i), nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown trigger kind: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k TriggerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TriggerKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTriggerKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
