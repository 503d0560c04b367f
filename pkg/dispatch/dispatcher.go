package dispatch

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"sync"

	"github.com/aretw0/exhibit/internal/logging"
)

// Broadcast outcomes reported to a Recorder.
const (
	OutcomeDelivered   = "delivered"
	OutcomeNoListeners = "no_listeners"
	OutcomeMismatch    = "mismatch"
	OutcomePanic       = "panic"
)

// Recorder receives one observation per broadcast.
type Recorder interface {
	ObserveDispatch(outcome string)
}

type listener struct {
	id  uint64
	fn  any
	ptr uintptr
}

// chain is immutable once stored; mutations swap in a new value.
type chain struct {
	sig       reflect.Type
	listeners []listener
}

// Dispatcher is a keyed broadcast registry. Safe for concurrent use.
type Dispatcher struct {
	mu       sync.Mutex
	chains   map[any]*chain
	nextID   uint64
	logger   *slog.Logger
	recorder Recorder
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger configures a logger for dropped or failed broadcasts.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRecorder attaches a broadcast outcome recorder (e.g. metrics).
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// New creates an empty dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		chains: make(map[any]*chain),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDispatcher = New()

// Default returns the process-wide dispatcher.
func Default() *Dispatcher {
	return defaultDispatcher
}

// validateKey rejects keys that would panic when hashed. The check is on the
// dynamic value: a struct type with an interface field is comparable, but
// not while that field holds a slice or map.
func validateKey(key any) error {
	if key == nil {
		return ErrNilKey
	}
	if !reflect.ValueOf(key).Comparable() {
		return fmt.Errorf("%w: %T is not comparable", ErrInvalidKey, key)
	}
	return nil
}

func (d *Dispatcher) add(key any, fn any) (func(), error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	sig := reflect.TypeOf(fn)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	l := listener{id: d.nextID, fn: fn, ptr: reflect.ValueOf(fn).Pointer()}
	unsubscribe := func() { d.removeID(key, l.id) }

	c, ok := d.chains[key]
	if !ok {
		d.chains[key] = &chain{sig: sig, listeners: []listener{l}}
		return unsubscribe, nil
	}
	if c.sig != sig {
		return nil, &SignatureError{Op: "add", Key: key, Have: c.sig, Want: sig}
	}

	next := make([]listener, len(c.listeners), len(c.listeners)+1)
	copy(next, c.listeners)
	d.chains[key] = &chain{sig: sig, listeners: append(next, l)}
	return unsubscribe, nil
}

// removeID drops the registration identified by id. Calling it again, or after
// ClearAllListeners, is a no-op.
func (d *Dispatcher) removeID(key any, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.chains[key]
	if !ok {
		return
	}
	idx := slices.IndexFunc(c.listeners, func(l listener) bool { return l.id == id })
	if idx < 0 {
		return
	}
	d.dropLocked(key, c, idx)
}

func (d *Dispatcher) dropLocked(key any, c *chain, idx int) {
	next := slices.Delete(slices.Clone(c.listeners), idx, idx+1)
	if len(next) == 0 {
		delete(d.chains, key)
		return
	}
	d.chains[key] = &chain{sig: c.sig, listeners: next}
}

func (d *Dispatcher) remove(key any, fn any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	sig := reflect.TypeOf(fn)
	ptr := reflect.ValueOf(fn).Pointer()

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.chains[key]
	if !ok {
		d.logger.Warn("remove listener: no listeners registered", "key", key)
		return nil
	}
	if c.sig != sig {
		return &SignatureError{Op: "remove", Key: key, Have: c.sig, Want: sig}
	}

	// Remove the most recently added instance with the same code pointer.
	// Method values and closures built from the same function share that
	// pointer, so this only identifies plain functions reliably.
	idx := -1
	for i := len(c.listeners) - 1; i >= 0; i-- {
		if c.listeners[i].ptr == ptr {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.logger.Debug("remove listener: callback not registered", "key", key)
		return nil
	}
	d.dropLocked(key, c, idx)
	return nil
}

func (d *Dispatcher) lookup(key any) (chain, bool) {
	if validateKey(key) != nil {
		return chain{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.chains[key]
	if !ok {
		return chain{}, false
	}
	return *c, true
}

func (d *Dispatcher) record(outcome string) {
	if d.recorder != nil {
		d.recorder.ObserveDispatch(outcome)
	}
}

func (d *Dispatcher) mismatch(key any, have, want reflect.Type) error {
	d.logger.Error("broadcast type mismatch", "key", key, "registered", have.String(), "sent", want.String())
	d.record(OutcomeMismatch)
	return &SignatureError{Op: "send", Key: key, Have: have, Want: want}
}

// run invokes the whole chain, converting a panic into a logged PanicError.
func (d *Dispatcher) run(key any, invoke func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("broadcast listener failed", "key", key, "panic", r)
			d.record(OutcomePanic)
			err = &PanicError{Key: key, Value: r}
		}
	}()
	invoke()
	d.record(OutcomeDelivered)
	return nil
}

// deliver is the typed broadcast path shared by Send..Send3.
func deliver[F any](d *Dispatcher, key any, call func(F)) error {
	if err := validateKey(key); err != nil {
		d.logger.Error("broadcast rejected", "err", err)
		return err
	}
	c, ok := d.lookup(key)
	if !ok {
		d.record(OutcomeNoListeners)
		return nil
	}
	want := reflect.TypeFor[F]()
	if c.sig != want {
		return d.mismatch(key, c.sig, want)
	}
	return d.run(key, func() {
		for _, l := range c.listeners {
			call(l.fn.(F))
		}
	})
}

// SendDynamic broadcasts arguments whose types are only known at runtime.
// Each argument must be assignable to the matching parameter of the registered signature;
// numeric arguments are converted when no precision is lost (JSON numbers arrive as float64).
func (d *Dispatcher) SendDynamic(key any, args ...any) error {
	if err := validateKey(key); err != nil {
		d.logger.Error("broadcast rejected", "err", err)
		return err
	}
	c, ok := d.lookup(key)
	if !ok {
		d.record(OutcomeNoListeners)
		return nil
	}

	in, ok := coerceArgs(c.sig, args)
	if !ok {
		return d.mismatch(key, c.sig, dynamicSignature(args))
	}
	return d.run(key, func() {
		for _, l := range c.listeners {
			reflect.ValueOf(l.fn).Call(in)
		}
	})
}

// ClearAllListeners empties the registry.
func (d *Dispatcher) ClearAllListeners() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chains = make(map[any]*chain)
}

// Keys returns the keys that currently have listeners.
func (d *Dispatcher) Keys() []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]any, 0, len(d.chains))
	for k := range d.chains {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of listeners registered under key.
func (d *Dispatcher) Len(key any) int {
	c, ok := d.lookup(key)
	if !ok {
		return 0
	}
	return len(c.listeners)
}

// Signature returns the callback type fixed for key.
func (d *Dispatcher) Signature(key any) (reflect.Type, bool) {
	c, ok := d.lookup(key)
	return c.sig, ok
}

func coerceArgs(sig reflect.Type, args []any) ([]reflect.Value, bool) {
	if sig.NumIn() != len(args) {
		return nil, false
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := sig.In(i)
		if arg == nil {
			switch pt.Kind() {
			case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
				in[i] = reflect.Zero(pt)
				continue
			}
			return nil, false
		}
		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(pt):
			in[i] = v
		case isNumeric(v.Kind()) && isNumeric(pt.Kind()) && lossless(v, pt):
			in[i] = v.Convert(pt)
		default:
			return nil, false
		}
	}
	return in, true
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func lossless(v reflect.Value, target reflect.Type) bool {
	converted := v.Convert(target)
	back := converted.Convert(v.Type())
	if v.CanFloat() && math.IsNaN(v.Float()) {
		return false
	}
	return back.Interface() == v.Interface()
}

func dynamicSignature(args []any) reflect.Type {
	in := make([]reflect.Type, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.TypeFor[any]()
			continue
		}
		in[i] = reflect.TypeOf(arg)
	}
	return reflect.FuncOf(in, nil, false)
}
