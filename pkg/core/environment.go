package core

// Environment is an ambient execution context that callbacks must run
// inside. Enter acquires it and returns the function that releases it.
type Environment interface {
	Enter() (exit func())
}

// EnvironmentFunc adapts a function to Environment.
type EnvironmentFunc func() (exit func())

func (f EnvironmentFunc) Enter() (exit func()) {
	return f()
}

type noopEnvironment struct{}

func (noopEnvironment) Enter() func() { return func() {} }

// RunIn runs fn inside env, releasing env even if fn panics.
func RunIn(env Environment, fn func()) {
	exit := env.Enter()
	defer exit()
	fn()
}

// UseExecutionContext captures env once, or the tree's environment when
// env is nil, and returns a stable wrapper that re-enters the captured
// environment around every function it is given. Callbacks that fire on
// other goroutines, such as live-data notifications, use it to run in the
// environment that was active when the component rendered.
func UseExecutionContext(c *Context, env Environment) func(fn func()) {
	ref := UseRef[Environment](c, nil)
	if ref.Current == nil {
		if env == nil {
			env = c.Environment()
		}
		ref.Current = env
	}
	return UseCallback(c, func(fn func()) {
		RunIn(ref.Current, fn)
	}, []any{ref})
}
