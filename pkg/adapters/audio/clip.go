// Package audio implements the audio ports on top of beep: decoded clips cached by resource
// path, and a three-channel mixer (BGM, SFX, Guide) that the host drains as a beep.Streamer.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/aretw0/exhibit/internal/logging"
)

// DefaultSampleRate is the rate every clip is converted to.
const DefaultSampleRate = beep.SampleRate(44100)

// ErrNotFound is returned when no clip exists for a resource path.
var ErrNotFound = errors.New("audio resource not found")

// Clip is a fully decoded clip. It implements ports.Clip.
type Clip struct {
	name string
	buf  *beep.Buffer
}

// NewClip buffers s entirely.
func NewClip(name string, format beep.Format, s beep.Streamer) *Clip {
	buf := beep.NewBuffer(format)
	buf.Append(s)
	return &Clip{name: name, buf: buf}
}

func (c *Clip) Name() string { return c.name }

// Duration is the playback length at the clip's sample rate.
func (c *Clip) Duration() time.Duration {
	return c.buf.Format().SampleRate.D(c.buf.Len())
}

// Streamer returns a fresh cursor over the clip.
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.buf.Streamer(0, c.buf.Len())
}

// Library resolves resource paths ("region/node") to clips under a root directory.
// Decoded clips are cached.
type Library struct {
	root   string
	rate   beep.SampleRate
	logger *slog.Logger

	mu    sync.Mutex
	clips map[string]*Clip
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithSampleRate overrides DefaultSampleRate.
func WithSampleRate(rate beep.SampleRate) LibraryOption {
	return func(l *Library) {
		l.rate = rate
	}
}

// WithLogger sets the library logger.
func WithLogger(logger *slog.Logger) LibraryOption {
	return func(l *Library) {
		l.logger = logger
	}
}

// NewLibrary creates a library reading WAV files from root. An empty root serves only clips
// registered with Add.
func NewLibrary(root string, opts ...LibraryOption) *Library {
	l := &Library{
		root:   root,
		rate:   DefaultSampleRate,
		logger: logging.NewNop(),
		clips:  make(map[string]*Clip),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SampleRate returns the library's output rate.
func (l *Library) SampleRate() beep.SampleRate { return l.rate }

// Add registers a clip under path, replacing any cached one.
func (l *Library) Add(path string, c *Clip) {
	l.mu.Lock()
	l.clips[path] = c
	l.mu.Unlock()
}

// Load returns the clip at path, decoding <root>/<path>.wav on first use.
func (l *Library) Load(ctx context.Context, path string) (*Clip, error) {
	l.mu.Lock()
	c, ok := l.clips[path]
	l.mu.Unlock()
	if ok {
		return c, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.root == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	c, err := l.decode(path)
	if err != nil {
		return nil, err
	}
	l.Add(path, c)
	l.logger.Debug("Clip cached", "path", path, "duration", c.Duration())
	return c, nil
}

func (l *Library) decode(path string) (*Clip, error) {
	file := filepath.Join(l.root, filepath.FromSlash(path)+".wav")
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}
	defer s.Close()

	var src beep.Streamer = s
	if format.SampleRate != l.rate {
		src = beep.Resample(4, format.SampleRate, l.rate, s)
		format.SampleRate = l.rate
	}
	return NewClip(filepath.Base(path), format, src), nil
}
