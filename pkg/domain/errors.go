package domain

import "errors"

// ErrNilNode is returned when a navigation request targets no node.
var ErrNilNode = errors.New("nil node")

// ErrPlayerMissing is returned when the navigator is created without a player actor.
// It is the only fatal initialization error of the engine.
var ErrPlayerMissing = errors.New("player reference missing")

// ErrDuplicateRegion is returned when two regions share the same name.
var ErrDuplicateRegion = errors.New("duplicate region name")

// ErrDuplicateNode is returned when a region already owns a node with the same id.
var ErrDuplicateNode = errors.New("duplicate node id")

// ErrRegionNotFound is returned when a region name cannot be resolved.
var ErrRegionNotFound = errors.New("region not found")

// ErrNodeNotFound is returned when a node reference cannot be resolved.
var ErrNodeNotFound = errors.New("node not found")

// ErrVolumeNotFound is returned when a trigger volume name is unknown.
var ErrVolumeNotFound = errors.New("trigger volume not found")

// ErrSnapshotNotFound is returned when a tour snapshot cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrInvalidClip is returned when a clip is missing or has no playable duration.
var ErrInvalidClip = errors.New("invalid clip")

// ErrNoAudio is returned when a node has no audio player attached.
var ErrNoAudio = errors.New("audio player not configured")
