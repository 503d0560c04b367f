package dispatch

// AddListener registers a callback without arguments. The returned func
// removes exactly this registration and is safe to call more than once.
func (d *Dispatcher) AddListener(key any, fn func()) (func(), error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return d.add(key, fn)
}

// RemoveListener removes one registration of fn under key, matched by code
// pointer. Method values and closures of the same function are
// indistinguishable here; remove those with the func returned by AddListener.
func (d *Dispatcher) RemoveListener(key any, fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}
	return d.remove(key, fn)
}

// Send broadcasts to a chain without arguments.
func (d *Dispatcher) Send(key any) error {
	return deliver(d, key, func(f func()) { f() })
}

// AddListener1 registers a single-argument callback and returns its unsubscribe func.
func AddListener1[T any](d *Dispatcher, key any, fn func(T)) (func(), error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return d.add(key, fn)
}

// RemoveListener1 removes one registration of fn under key. See RemoveListener
// for the matching rule.
func RemoveListener1[T any](d *Dispatcher, key any, fn func(T)) error {
	if fn == nil {
		return ErrNilCallback
	}
	return d.remove(key, fn)
}

// Send1 broadcasts one argument.
func Send1[T any](d *Dispatcher, key any, a T) error {
	return deliver(d, key, func(f func(T)) { f(a) })
}

// AddListener2 registers a two-argument callback and returns its unsubscribe func.
func AddListener2[T1, T2 any](d *Dispatcher, key any, fn func(T1, T2)) (func(), error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return d.add(key, fn)
}

// RemoveListener2 removes one registration of fn under key.
func RemoveListener2[T1, T2 any](d *Dispatcher, key any, fn func(T1, T2)) error {
	if fn == nil {
		return ErrNilCallback
	}
	return d.remove(key, fn)
}

// Send2 broadcasts two arguments.
func Send2[T1, T2 any](d *Dispatcher, key any, a T1, b T2) error {
	return deliver(d, key, func(f func(T1, T2)) { f(a, b) })
}

// AddListener3 registers a three-argument callback and returns its unsubscribe func.
func AddListener3[T1, T2, T3 any](d *Dispatcher, key any, fn func(T1, T2, T3)) (func(), error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	return d.add(key, fn)
}

// RemoveListener3 removes one registration of fn under key.
func RemoveListener3[T1, T2, T3 any](d *Dispatcher, key any, fn func(T1, T2, T3)) error {
	if fn == nil {
		return ErrNilCallback
	}
	return d.remove(key, fn)
}

// Send3 broadcasts three arguments.
func Send3[T1, T2, T3 any](d *Dispatcher, key any, a T1, b T2, c T3) error {
	return deliver(d, key, func(f func(T1, T2, T3)) { f(a, b, c) })
}
