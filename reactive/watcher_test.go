package reactive_test

import (
	"testing"

	"github.com/delaneyj/watchparty/reactive"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getKey(key string) reactive.Getter {
	return func(target any) (any, error) {
		return target.(*reactive.Object).Get(key), nil
	}
}

func TestWatcherCollectsExactDeps(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"a": 1, "b": 2, "c": 3})
	sys.Observe(obj)

	w, err := sys.NewWatcher(obj, func(target any) (any, error) {
		o := target.(*reactive.Object)
		// reading twice must not subscribe twice
		return o.Get("a").(int) + o.Get("a").(int) + o.Get("b").(int), nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, w.Value())
	assert.Len(t, w.Deps(), 2)
	assert.False(t, sys.Tracking())
}

//	 flag
//	 /  \
//	a    b
func TestWatcherBranchSwitch(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"flag": true, "a": "A", "b": "B"})
	sys.Observe(obj)

	runs := 0
	w, err := sys.NewWatcher(obj, func(target any) (any, error) {
		o := target.(*reactive.Object)
		if o.Get("flag").(bool) {
			return o.Get("a"), nil
		}
		return o.Get("b"), nil
	}, func(value, oldValue any) error {
		runs++
		return nil
	}, reactive.Sync())
	require.NoError(t, err)
	assert.Len(t, w.Deps(), 2)

	obj.Put("b", "B2")
	assert.Equal(t, 0, runs)

	obj.Put("flag", false)
	assert.Equal(t, 1, runs)
	assert.Equal(t, "B2", w.Value())

	obj.Put("a", "A2")
	assert.Equal(t, 1, runs, "a is no longer a dependency")

	obj.Put("b", "B3")
	assert.Equal(t, 2, runs)
}

func TestWatcherBatchesUntilTick(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"count": 0})
	sys.Observe(obj)

	var seen []any
	_, err := sys.NewWatcher(obj, getKey("count"), func(value, oldValue any) error {
		seen = append(seen, []any{value, oldValue})
		return nil
	})
	require.NoError(t, err)

	obj.Put("count", 1)
	obj.Put("count", 2)
	obj.Put("count", 3)
	assert.Empty(t, seen)
	assert.Equal(t, 1, sys.Stats().Queued)

	assert.True(t, sys.Tick())
	assert.Equal(t, []any{[]any{3, 0}}, seen)
	assert.False(t, sys.Tick())
}

func TestWatcherCallbackOnSameContainer(t *testing.T) {
	sys, _ := newSystem(t)
	list := reactive.NewArray(1)
	obj := reactive.NewObject()
	obj.Put("list", list)
	sys.Observe(obj)

	runs := 0
	_, err := sys.NewWatcher(obj, getKey("list"), func(value, oldValue any) error {
		runs++
		assert.Same(t, value, oldValue)
		return nil
	})
	require.NoError(t, err)

	list.Push(2)
	sys.Tick()
	assert.Equal(t, 1, runs)
}

func TestLazyWatcherEvaluateAndDepend(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"a": 2})
	sys.Observe(obj)

	computes := 0
	double, err := sys.NewWatcher(obj, func(target any) (any, error) {
		computes++
		return target.(*reactive.Object).Get("a").(int) * 2, nil
	}, nil, reactive.Lazy())
	require.NoError(t, err)
	assert.True(t, double.Dirty())
	assert.Equal(t, 0, computes)

	read := func() any {
		if double.Dirty() {
			require.NoError(t, double.Evaluate())
		}
		if sys.Tracking() {
			double.Depend()
		}
		return double.Value()
	}

	var rendered []any
	_, err = sys.NewWatcher(nil, func(any) (any, error) {
		return read(), nil
	}, func(value, oldValue any) error {
		rendered = append(rendered, value)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, computes)
	assert.False(t, double.Dirty())

	assert.Equal(t, 4, read())
	assert.Equal(t, 1, computes, "clean lazy watcher is cached")

	obj.Put("a", 5)
	assert.True(t, double.Dirty())
	sys.Tick()
	assert.Equal(t, []any{10}, rendered)
	assert.Equal(t, 2, computes)
}

func TestDeepWatcher(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{
		"nested": map[string]any{
			"list": []any{map[string]any{"x": 1}},
		},
	})
	sys.Observe(obj)

	runs := 0
	_, err := sys.NewWatcher(obj, getKey("nested"), func(value, oldValue any) error {
		runs++
		return nil
	}, reactive.Deep(), reactive.Sync())
	require.NoError(t, err)

	nested := obj.Get("nested").(*reactive.Object)
	item := nested.Get("list").(*reactive.Array).At(0).(*reactive.Object)
	item.Put("x", 2)
	assert.Equal(t, 1, runs)

	sys.Set(nested, "added", true)
	assert.Equal(t, 2, runs)

	sys.Del(nested, "added")
	assert.Equal(t, 3, runs)
}

func TestDeepWatcherHandlesCycles(t *testing.T) {
	sys, _ := newSystem(t)
	a := reactive.NewObject()
	b := reactive.NewObject()
	a.Put("b", b)
	b.Put("a", a)
	sys.Observe(a)

	w, err := sys.NewWatcher(a, func(target any) (any, error) { return target, nil }, nil, reactive.Deep())
	require.NoError(t, err)
	assert.NotEmpty(t, w.Deps())
}

func TestSyncWatcherRunsImmediately(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"v": 1})
	sys.Observe(obj)

	var got any
	_, err := sys.NewWatcher(obj, getKey("v"), func(value, oldValue any) error {
		got = value
		return nil
	}, reactive.Sync())
	require.NoError(t, err)

	obj.Put("v", 2)
	assert.Equal(t, 2, got)
	assert.Equal(t, 0, sys.Stats().Queued)
}

func TestNonUserGetterErrorIsReturned(t *testing.T) {
	sys, rec := newSystem(t)
	boom := errors.New("boom")
	w, err := sys.NewWatcher(nil, func(any) (any, error) { return nil, boom }, nil)
	assert.Nil(t, w)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.errs)
}

func TestUserGetterErrorIsReported(t *testing.T) {
	sys, rec := newSystem(t)
	obj := reactive.FromMap(map[string]any{"fail": false, "v": 1})
	sys.Observe(obj)

	boom := errors.New("boom")
	w, err := sys.NewWatcher(obj, func(target any) (any, error) {
		o := target.(*reactive.Object)
		if o.Get("fail").(bool) {
			return nil, boom
		}
		return o.Get("v"), nil
	}, nil, reactive.User(), reactive.Expression("v"))
	require.NoError(t, err)

	obj.Put("fail", true)
	sys.Tick()
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], boom)
	assert.Equal(t, `getter for watcher "v"`, rec.infos[0])
	assert.Equal(t, 1, w.Value(), "failed evaluation keeps the previous value")
}

func TestUserPanicsAreRecovered(t *testing.T) {
	sys, rec := newSystem(t)
	obj := reactive.FromMap(map[string]any{"v": 1})
	sys.Observe(obj)

	_, err := sys.NewWatcher(obj, getKey("v"), func(value, oldValue any) error {
		panic("callback exploded")
	}, reactive.User())
	require.NoError(t, err)

	obj.Put("v", 2)
	sys.Tick()
	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0].Error(), "callback exploded")
}

func TestWatchPath(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1}},
	})
	sys.Observe(obj)

	w, err := sys.WatchPath(obj, "a.b.c", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Value())
	assert.Equal(t, "a.b.c", w.Expression())

	obj.Get("a").(*reactive.Object).Put("b", reactive.FromMap(map[string]any{"c": 2}))
	sys.Tick()
	assert.Equal(t, 2, w.Value())

	missing, err := sys.WatchPath(obj, "a.x.y", nil)
	require.NoError(t, err)
	assert.Nil(t, missing.Value())
}

func TestWatchPathRejectsExpressions(t *testing.T) {
	sys, rec := newSystem(t)
	obj := reactive.FromMap(map[string]any{"a": 1})
	sys.Observe(obj)

	w, err := sys.WatchPath(obj, "a + 1", nil)
	require.NoError(t, err)
	assert.Nil(t, w.Value())
	assert.Empty(t, w.Deps())
	require.Len(t, rec.warns, 1)
	assert.Contains(t, rec.warns[0], "a + 1")
}

func TestTeardown(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"v": 1})
	sys.Observe(obj)

	runs := 0
	w, err := sys.NewWatcher(obj, getKey("v"), func(value, oldValue any) error {
		runs++
		return nil
	})
	require.NoError(t, err)

	obj.Put("v", 2)
	w.Teardown()
	w.Teardown()
	assert.False(t, w.Active())
	sys.Tick()
	assert.Equal(t, 0, runs, "a watcher torn down while queued must not run")

	obj.Put("v", 3)
	sys.Tick()
	assert.Equal(t, 0, runs)
}

func TestUntracked(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"a": 1, "b": 2})
	sys.Observe(obj)

	w, err := sys.NewWatcher(obj, func(target any) (any, error) {
		o := target.(*reactive.Object)
		var b any
		sys.Untracked(func() {
			assert.False(t, sys.Tracking())
			b = o.Get("b")
		})
		assert.True(t, sys.Tracking())
		return []any{o.Get("a"), b}, nil
	}, nil)
	require.NoError(t, err)
	assert.Len(t, w.Deps(), 1)
}

func TestNestedWatchersRestoreTarget(t *testing.T) {
	sys, _ := newSystem(t)
	obj := reactive.FromMap(map[string]any{"outer": 1, "inner": 2})
	sys.Observe(obj)

	var inner *reactive.Watcher
	outer, err := sys.NewWatcher(obj, func(target any) (any, error) {
		if inner == nil {
			var err error
			inner, err = sys.NewWatcher(target, getKey("inner"), nil)
			if err != nil {
				return nil, err
			}
		}
		assert.True(t, sys.Tracking())
		return target.(*reactive.Object).Get("outer"), nil
	}, nil)
	require.NoError(t, err)

	assert.Len(t, outer.Deps(), 1)
	assert.Len(t, inner.Deps(), 1)
	assert.Nil(t, sys.Current())
}
