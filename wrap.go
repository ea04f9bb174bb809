package instrumented

// WrapRun returns fn wrapped with the measurement hooks of Run. Options
// are resolved once at wrap time, so the wrapper is cheap to invoke
// repeatedly.
func WrapRun(name string, fn func(), opts ...Option) func() {
	s := newSettings(opts)
	return func() {
		_, _ = observe(name, s, false, func() (struct{}, error) {
			fn()
			return struct{}{}, nil
		})
	}
}

// WrapDo returns fn wrapped with the measurement hooks of Do.
func WrapDo(name string, fn func() error, opts ...Option) func() error {
	s := newSettings(opts)
	return func() error {
		_, err := observe(name, s, false, func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	}
}

// WrapValue returns fn wrapped with the measurement hooks of Value.
func WrapValue[T any](name string, fn func() T, opts ...Option) func() T {
	s := newSettings(opts)
	return func() T {
		ret, _ := observe(name, s, true, func() (T, error) {
			return fn(), nil
		})
		return ret
	}
}

// WrapCall returns fn wrapped with the measurement hooks of Call.
func WrapCall[T any](name string, fn func() (T, error), opts ...Option) func() (T, error) {
	s := newSettings(opts)
	return func() (T, error) {
		return observe(name, s, true, fn)
	}
}
