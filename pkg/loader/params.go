package loader

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// NodeParams are the params a node understands. Unknown keys are ignored.
type NodeParams struct {
	// Clip is the narration clip played when the node is entered.
	Clip string `mapstructure:"clip"`

	// ClipLength is used when no audio library is available to resolve Clip.
	ClipLength time.Duration `mapstructure:"clip_length"`

	// CompleteOnFinish marks the node completed once the clip finished playing.
	CompleteOnFinish bool `mapstructure:"complete_on_finish"`

	// Animation names an NPC animation played on enter ("appear1", "appear2", "disappear", "call").
	Animation string `mapstructure:"animation"`

	// Messages are dispatcher keys broadcast when the node is entered.
	Messages []string `mapstructure:"messages"`

	// Speak runs the NPC speak loop until the node closes ("true", or "fly" to stay airborne).
	Speak string `mapstructure:"speak"`
}

// ErrInvalidParam is returned for a node param value outside its allowed set.
var ErrInvalidParam = errors.New("invalid node param")

// SpeakMode reports whether the speak loop runs and whether the NPC idles in flight between lines.
// A YAML boolean arrives here as "1" or "0".
func (p NodeParams) SpeakMode() (speak, flying bool, err error) {
	switch strings.ToLower(strings.TrimSpace(p.Speak)) {
	case "", "0", "false", "no":
		return false, false, nil
	case "1", "true", "yes", "ground":
		return true, false, nil
	case "fly":
		return true, true, nil
	}
	return false, false, fmt.Errorf("%w: speak %q", ErrInvalidParam, p.Speak)
}

// DecodeParams decodes raw params into out. Input is weakly typed: "true" decodes into a bool
// and "1.5s" into a time.Duration.
func DecodeParams(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode params: %w", err)
	}
	return nil
}

// DecodedParams decodes the node's params into NodeParams.
func (n NodeSpec) DecodedParams() (NodeParams, error) {
	var p NodeParams
	if len(n.Params) == 0 {
		return p, nil
	}
	err := DecodeParams(n.Params, &p)
	return p, err
}
