package ports

import (
	"context"
	"time"
)

// Clip is an opaque audio handle with a known duration.
type Clip interface {
	Name() string
	Duration() time.Duration
}

// AudioPlayer is a single playback source, typically owned by a node.
type AudioPlayer interface {
	// PlayClip starts playback and returns immediately.
	PlayClip(ctx context.Context, clip Clip) error

	// StopClip stops the current clip, if any.
	StopClip()
}

// Channel names one of the fixed shared audio channels.
type Channel string

const (
	ChannelBGM   Channel = "BGM"
	ChannelSFX   Channel = "SFX"
	ChannelGuide Channel = "Guide"
)

// Channels lists the fixed channels in a stable order.
var Channels = []Channel{ChannelBGM, ChannelSFX, ChannelGuide}

// Mixer plays resources by path on the shared channels.
type Mixer interface {
	// PlayOn loads the resource at path and plays it on the channel, replacing what was playing.
	PlayOn(ctx context.Context, ch Channel, path string) error

	// StopChannel silences a channel.
	StopChannel(ch Channel)
}
