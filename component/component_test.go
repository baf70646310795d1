package component_test

import (
	"fmt"
	"io"
	"testing"

	"github.com/delaneyj/watchparty/component"
	"github.com/delaneyj/watchparty/reactive"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newSystem(t *testing.T) (*reactive.System, *[]string) {
	t.Helper()
	var warns []string
	sys := reactive.NewSystem(
		reactive.WithErrorHandler(func(err error, target any, info string) {
			assert.FailNow(t, err.Error(), info)
		}),
		reactive.WithWarnHandler(func(msg string, target any) {
			warns = append(warns, msg)
		}),
	)
	return sys, &warns
}

func TestComputedAndRender(t *testing.T) {
	sys, _ := newSystem(t)

	fullNameRuns := 0
	updated := 0
	before := 0
	i, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any {
			return map[string]any{"first": "Ada", "last": "Lovelace"}
		},
		Computed: map[string]component.ComputedDef{
			"fullName": {
				Get: func(i *component.Instance) (any, error) {
					fullNameRuns++
					return fmt.Sprintf("%s %s", i.Get("first"), i.Get("last")), nil
				},
			},
		},
		Render: func(i *component.Instance) (any, error) {
			return "<h1>" + i.Get("fullName").(string) + "</h1>", nil
		},
		BeforeUpdate: func(*component.Instance) { before++ },
		Updated:      func(*component.Instance) { updated++ },
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, fullNameRuns, "computed values are lazy")

	require.NoError(t, i.Mount())
	assert.Equal(t, "<h1>Ada Lovelace</h1>", i.Output())
	assert.Equal(t, 1, fullNameRuns)

	i.Put("first", "Grace")
	i.Put("last", "Hopper")
	assert.Equal(t, "<h1>Ada Lovelace</h1>", i.Output())

	sys.Tick()
	assert.Equal(t, "<h1>Grace Hopper</h1>", i.Output())
	assert.Equal(t, 2, fullNameRuns)
	assert.Equal(t, 1, before)
	assert.Equal(t, 1, updated)
}

func TestComputedSetter(t *testing.T) {
	sys, warns := newSystem(t)
	i, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any {
			return map[string]any{"celsius": 0.0}
		},
		Computed: map[string]component.ComputedDef{
			"fahrenheit": {
				Get: func(i *component.Instance) (any, error) {
					return i.Get("celsius").(float64)*9/5 + 32, nil
				},
				Set: func(i *component.Instance, v any) error {
					i.Put("celsius", (v.(float64)-32)*5/9)
					return nil
				},
			},
			"readonly": {
				Get: func(*component.Instance) (any, error) { return 1, nil },
			},
		},
	}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 32.0, i.Get("fahrenheit"))
	i.Put("fahrenheit", 212.0)
	assert.Equal(t, 100.0, i.Get("celsius"))
	assert.Equal(t, 212.0, i.Get("fahrenheit"))

	i.Put("readonly", 2)
	assert.Equal(t, 1, i.Get("readonly"))
	require.Len(t, *warns, 1)
	assert.Contains(t, (*warns)[0], "no setter")
}

func TestComputedNoCache(t *testing.T) {
	sys, _ := newSystem(t)
	calls := 0
	i, err := component.New(sys, component.Options{
		Computed: map[string]component.ComputedDef{
			"now": {
				Get: func(*component.Instance) (any, error) {
					calls++
					return calls, nil
				},
				NoCache: true,
			},
		},
	}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, i.Get("now"))
	assert.Equal(t, 2, i.Get("now"))
}

func TestComputedConflictsWithData(t *testing.T) {
	sys, warns := newSystem(t)
	i, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any {
			return map[string]any{"x": 1}
		},
		Computed: map[string]component.ComputedDef{
			"x": {Get: func(*component.Instance) (any, error) { return 2, nil }},
		},
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, i.Get("x"))
	require.Len(t, *warns, 1)
	assert.Contains(t, (*warns)[0], "already defined in data")
}

func TestWatchOptions(t *testing.T) {
	sys, _ := newSystem(t)

	var seen [][2]any
	i, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any {
			return map[string]any{
				"user": map[string]any{"name": "a"},
				"n":    1,
			}
		},
		Watch: map[string][]component.WatchDef{
			"n": {{
				Immediate: true,
				Handler: func(value, oldValue any) error {
					seen = append(seen, [2]any{value, oldValue})
					return nil
				},
			}},
		},
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{1, nil}}, seen)

	i.Put("n", 2)
	sys.Tick()
	assert.Equal(t, [2]any{2, 1}, seen[1])

	deepRuns := 0
	unwatch, err := i.Watch("user", component.WatchDef{
		Deep: true,
		Sync: true,
		Handler: func(value, oldValue any) error {
			deepRuns++
			return nil
		},
	})
	require.NoError(t, err)

	user := i.Get("user").(*reactive.Object)
	user.Put("name", "b")
	assert.Equal(t, 1, deepRuns)

	unwatch()
	user.Put("name", "c")
	assert.Equal(t, 1, deepRuns)
}

func TestWatchFunc(t *testing.T) {
	sys, _ := newSystem(t)
	i, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any {
			return map[string]any{"a": 1, "b": 2}
		},
	}, quietLogger())
	require.NoError(t, err)

	var sums []any
	_, err = i.WatchFunc(func(i *component.Instance) (any, error) {
		return i.Get("a").(int) + i.Get("b").(int), nil
	}, component.WatchDef{
		Handler: func(value, oldValue any) error {
			sums = append(sums, value)
			return nil
		},
	})
	require.NoError(t, err)

	i.Put("a", 10)
	i.Put("b", 20)
	sys.Tick()
	assert.Equal(t, []any{30}, sums)
}

func TestRootStateIsFixed(t *testing.T) {
	sys, warns := newSystem(t)
	i, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any {
			return map[string]any{"nested": map[string]any{}}
		},
	}, quietLogger())
	require.NoError(t, err)

	i.Put("extra", 1)
	assert.False(t, i.Data().Has("extra"))
	require.Len(t, *warns, 1)

	nested := i.Get("nested").(*reactive.Object)
	i.Set(nested, "added", 1)
	assert.Equal(t, 1, nested.Get("added"))
	i.Delete(nested, "added")
	assert.False(t, nested.Has("added"))
}

func TestNilDataWarns(t *testing.T) {
	sys, warns := newSystem(t)
	_, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any { return nil },
	}, quietLogger())
	require.NoError(t, err)
	require.Len(t, *warns, 1)
}

func TestDestroy(t *testing.T) {
	sys, _ := newSystem(t)
	renders := 0
	i, err := component.New(sys, component.Options{
		Data: func(*component.Instance) map[string]any {
			return map[string]any{"v": 1}
		},
		Render: func(i *component.Instance) (any, error) {
			renders++
			return i.Get("v"), nil
		},
	}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, i.Mount())
	assert.True(t, i.Mounted())
	assert.Equal(t, 1, i.Data().Observer().RootCount())

	i.Put("v", 2)
	i.Destroy()
	i.Destroy()
	sys.Tick()
	assert.Equal(t, 1, renders)
	assert.Equal(t, 0, i.Data().Observer().RootCount())
}

func TestTwoInstancesShareNestedState(t *testing.T) {
	sys, _ := newSystem(t)
	shared := reactive.FromMap(map[string]any{"count": 0})

	newCounter := func() *component.Instance {
		i, err := component.New(sys, component.Options{
			Data: func(*component.Instance) map[string]any {
				return map[string]any{"store": shared}
			},
			Render: func(i *component.Instance) (any, error) {
				return i.Get("store").(*reactive.Object).Get("count"), nil
			},
		}, quietLogger())
		require.NoError(t, err)
		require.NoError(t, i.Mount())
		return i
	}
	a, b := newCounter(), newCounter()
	assert.NotEqual(t, a.ID(), b.ID())

	shared.Put("count", 5)
	sys.Tick()
	assert.Equal(t, 5, a.Output())
	assert.Equal(t, 5, b.Output())
}
