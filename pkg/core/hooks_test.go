package core

import (
	"context"
	"slices"
	"sync"
	"testing"
)

func TestUseState_PendingValueBecomesCurrent(t *testing.T) {
	var seen []int
	var setCount func(int)
	app := Define("App", func(c *Context, _ Props) any {
		count, set := UseState(c, 0)
		seen = append(seen, count)
		setCount = set
		return count
	})

	r := NewRenderer(NewRootContext())
	mustRender(t, r, app(nil))
	setCount(3)
	node := mustRender(t, r, app(nil))

	if want := []int{0, 3}; !slices.Equal(seen, want) {
		t.Errorf("rendered values = %v, want %v", seen, want)
	}
	if got := node.Props["children"]; got != 3 {
		t.Errorf("children = %v, want 3", got)
	}
}

func TestUseStateFunc_InitializesOnce(t *testing.T) {
	inits := 0
	app := Define("App", func(c *Context, _ Props) any {
		v, _ := UseStateFunc(c, func() string {
			inits++
			return "ready"
		})
		return v
	})

	r := NewRenderer(NewRootContext())
	for range 3 {
		r.root.Invalidate()
		mustRender(t, r, app(nil))
	}

	if inits != 1 {
		t.Errorf("initializer calls = %d, want 1", inits)
	}
}

func TestStateCell_ConcurrentUpdates(t *testing.T) {
	var cell *StateCell[int]
	app := Define("App", func(c *Context, _ Props) any {
		cell = UseStateCell(c, func() int { return 0 })
		return nil
	})

	r := NewRenderer(NewRootContext())
	mustRender(t, r, app(nil))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cell.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()
	mustRender(t, r, app(nil))

	if got := cell.Value(); got != 50 {
		t.Errorf("Value() = %d, want 50", got)
	}
}

func TestStateCell_SetDuringPassIsKept(t *testing.T) {
	var cell *StateCell[int]
	app := Define("App", func(c *Context, _ Props) any {
		cell = UseStateCell(c, func() int { return 0 })
		if cell.read() == 1 {
			// A write racing the pass must survive its commit.
			cell.Set(2)
		}
		return nil
	})

	r := NewRenderer(NewRootContext())
	mustRender(t, r, app(nil))
	cell.Set(1)
	mustRender(t, r, app(nil))

	if got := cell.Value(); got != 1 {
		t.Errorf("Value() after pass = %d, want 1", got)
	}
	if !r.Root().IsDirty() {
		t.Error("root should be dirty after a write during the pass")
	}
	mustRender(t, r, app(nil))
	if got := cell.Value(); got != 2 {
		t.Errorf("Value() after second pass = %d, want 2", got)
	}
}

func TestUseMemo(t *testing.T) {
	tests := []struct {
		name      string
		deps      func(pass int) []any
		wantCalls int
	}{
		{name: "empty deps compute once", deps: func(int) []any { return []any{} }, wantCalls: 1},
		{name: "nil deps compute every pass", deps: func(int) []any { return nil }, wantCalls: 3},
		{name: "stable deps", deps: func(int) []any { return []any{"a", 1} }, wantCalls: 1},
		{name: "changing deps", deps: func(pass int) []any { return []any{pass} }, wantCalls: 3},
		{name: "deps change once", deps: func(pass int) []any { return []any{pass > 0} }, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, pass := 0, 0
			app := Define("App", func(c *Context, _ Props) any {
				return UseMemo(c, func() int {
					calls++
					return calls
				}, tt.deps(pass))
			})

			r := NewRenderer(NewRootContext())
			for pass = range 3 {
				r.Root().Invalidate()
				mustRender(t, r, app(nil))
			}

			if calls != tt.wantCalls {
				t.Errorf("compute calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestUseCallback_StableUntilDepsChange(t *testing.T) {
	var callbacks []func() int
	dep := "a"
	app := Define("App", func(c *Context, _ Props) any {
		pass := len(callbacks)
		callbacks = append(callbacks, UseCallback(c, func() int { return pass }, []any{dep}))
		return nil
	})

	r := NewRenderer(NewRootContext())
	for range 2 {
		r.Root().Invalidate()
		mustRender(t, r, app(nil))
	}
	dep = "b"
	r.Root().Invalidate()
	mustRender(t, r, app(nil))

	got := []int{callbacks[0](), callbacks[1](), callbacks[2]()}
	if want := []int{0, 0, 2}; !slices.Equal(got, want) {
		t.Errorf("callback results = %v, want %v", got, want)
	}
}

func TestUseRef_Identity(t *testing.T) {
	var refs []*Ref[int]
	app := Define("App", func(c *Context, _ Props) any {
		ref := UseRef(c, 10)
		ref.Current++
		refs = append(refs, ref)
		return nil
	})

	r := NewRenderer(NewRootContext())
	for range 3 {
		r.Root().Invalidate()
		mustRender(t, r, app(nil))
	}

	if refs[0] != refs[1] || refs[1] != refs[2] {
		t.Error("UseRef returned different refs across passes")
	}
	if got := refs[0].Current; got != 13 {
		t.Errorf("Current = %d, want 13", got)
	}
}

func TestUseEffect_RunsAfterPassWhenDepsChange(t *testing.T) {
	var log []string
	dep := 1
	rendering := false
	app := Define("App", func(c *Context, _ Props) any {
		rendering = true
		defer func() { rendering = false }()
		d := dep
		UseEffect(c, func() func() {
			if rendering {
				t.Error("effect ran during the pass")
			}
			log = append(log, "run "+string(rune('0'+d)))
			return func() { log = append(log, "cleanup "+string(rune('0'+d))) }
		}, []any{d})
		return nil
	})

	root := NewRootContext()
	r := NewRenderer(root)
	mustRender(t, r, app(nil))
	root.Invalidate()
	mustRender(t, r, app(nil))
	dep = 2
	root.Invalidate()
	mustRender(t, r, app(nil))
	root.Dispose()

	want := []string{"run 1", "cleanup 1", "run 2", "cleanup 2"}
	if !slices.Equal(log, want) {
		t.Errorf("effect log = %v, want %v", log, want)
	}
}

func TestUseEffect_NotRunForFailedPass(t *testing.T) {
	installHandler(t)
	runs := 0
	fail := false
	app := Define("App", func(c *Context, _ Props) any {
		UseEffect(c, func() func() {
			runs++
			return nil
		}, nil)
		if fail {
			panic("render failed")
		}
		return nil
	})

	r := NewRenderer(NewRootContext())
	mustRender(t, r, app(nil))
	fail = true
	if _, err := r.Render(context.Background(), app(nil)); err == nil {
		t.Fatal("Render() error = nil, want failure")
	}

	if runs != 1 {
		t.Errorf("effect runs = %d, want 1", runs)
	}
}

func TestUseEffect_PanicIsReported(t *testing.T) {
	handler := installHandler(t)
	ran := false
	app := Define("App", func(c *Context, _ Props) any {
		UseEffect(c, func() func() { panic("effect failed") }, []any{})
		UseEffect(c, func() func() {
			ran = true
			return nil
		}, []any{})
		return nil
	})

	mustRender(t, NewRenderer(NewRootContext()), app(nil))

	if got := handler.panicCount(); got != 1 {
		t.Errorf("reported panics = %d, want 1", got)
	}
	if !ran {
		t.Error("effect after a panicking effect did not run")
	}
}

func TestUseExecutionContext(t *testing.T) {
	var log []string
	env := EnvironmentFunc(func() func() {
		log = append(log, "enter")
		return func() { log = append(log, "exit") }
	})

	var wrap func(func())
	app := Define("App", func(c *Context, _ Props) any {
		wrap = UseExecutionContext(c, nil)
		return nil
	})

	r := NewRenderer(NewRootContext(WithEnvironment(env)))
	mustRender(t, r, app(nil))
	first := wrap
	r.Root().Invalidate()
	mustRender(t, r, app(nil))

	first(func() { log = append(log, "call") })
	wrap(func() { log = append(log, "call") })

	want := []string{"enter", "call", "exit", "enter", "call", "exit"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestRunIn_ExitsOnPanic(t *testing.T) {
	exited := false
	env := EnvironmentFunc(func() func() { return func() { exited = true } })

	func() {
		defer func() { _ = recover() }()
		RunIn(env, func() { panic("boom") })
	}()

	if !exited {
		t.Error("environment not exited after a panic")
	}
}
