package interop

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowInterop(t *testing.T) {
	b := newTestBridge(t)

	sum := NewCallback(func(args []any) (any, error) {
		total := 0.0
		for _, a := range args {
			f, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("expected a number, got %T", a)
			}
			total += f
		}
		return total, nil
	}, WithName("sum"))

	fn, err := b.AllowInterop(sum)
	require.NoError(t, err)
	require.True(t, fn.IsFunction())
	require.NoError(t, b.Context().SetGlobal("sum", fn))

	t.Run("host call reaches the Go function", func(t *testing.T) {
		v := mustEval(t, b, "sum(1, 2, 3)")
		f, err := v.Float64()
		require.NoError(t, err)
		assert.Equal(t, 6.0, f)
	})

	t.Run("same callback yields the same adapter", func(t *testing.T) {
		again, err := b.AllowInterop(sum)
		require.NoError(t, err)
		assert.True(t, fn.StrictEquals(again))
		same := mustEval(t, b, "sum === sum")
		assert.True(t, same.Bool())
	})

	t.Run("callback error becomes a host exception", func(t *testing.T) {
		_, err := b.Context().Eval("sum('not a number')")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected a number")
	})

	t.Run("nil callback", func(t *testing.T) {
		_, err := b.AllowInterop(nil)
		assert.True(t, errors.Is(err, ErrNotCallable))
	})
}

func TestAllowInteropArity(t *testing.T) {
	b := newTestBridge(t)

	counted := NewCallback(func(args []any) (any, error) {
		return float64(len(args)), nil
	}, WithName("counted"), WithArity(2))

	fn, err := b.AllowInterop(counted)
	require.NoError(t, err)
	require.NoError(t, b.Context().SetGlobal("counted", fn))

	t.Run("extra arguments are dropped", func(t *testing.T) {
		v := mustEval(t, b, "counted(1, 2, 3, 4)")
		f, err := v.Float64()
		require.NoError(t, err)
		assert.Equal(t, 2.0, f)
	})

	t.Run("missing arguments pad with nil", func(t *testing.T) {
		v := mustEval(t, b, "counted()")
		f, err := v.Float64()
		require.NoError(t, err)
		assert.Equal(t, 2.0, f)
	})
}

func TestAllowInteropCaptureThis(t *testing.T) {
	b := newTestBridge(t)

	receiver := NewCallback(func(args []any) (any, error) {
		require.NotEmpty(t, args)
		return args[0], nil
	}, WithName("receiver"))

	fn, err := b.AllowInteropCaptureThis(receiver)
	require.NoError(t, err)
	require.NoError(t, b.Context().SetGlobal("receiver", fn))

	t.Run("method call forwards the receiver first", func(t *testing.T) {
		v := mustEval(t, b, "({tag: 'me', m: receiver}).m(1, 2)")
		got, err := b.ToManaged(v)
		require.NoError(t, err)
		o, ok := got.(*Object)
		require.True(t, ok, "expected *Object receiver, got %T", got)
		tag, err := o.Get("tag")
		require.NoError(t, err)
		assert.Equal(t, "me", tag)
	})

	t.Run("unbound call passes nil", func(t *testing.T) {
		v := mustEval(t, b, "receiver(1)")
		assert.True(t, v.IsNull() || v.IsUndefined())
	})

	t.Run("memoized separately from the plain adapter", func(t *testing.T) {
		plain, err := b.AllowInterop(receiver)
		require.NoError(t, err)
		capture, err := b.AllowInteropCaptureThis(receiver)
		require.NoError(t, err)
		assert.False(t, plain.StrictEquals(capture))
		assert.True(t, fn.StrictEquals(capture))
	})
}

func TestCallbackAsArgument(t *testing.T) {
	b := newTestBridge(t)

	double := NewCallback(func(args []any) (any, error) {
		return args[0].(float64) * 2, nil
	}, WithName("double"))

	mapper, err := b.ToManaged(mustEval(t, b, "((f) => [1, 2, 3].map(f))"))
	require.NoError(t, err)

	// Passing a *Callback as a call argument converts it through the same
	// adapter path as AllowInterop.
	result, err := mapper.(*Function).Apply([]any{double}, nil)
	require.NoError(t, err)
	a, ok := result.(*Array)
	require.True(t, ok, "expected *Array, got %T", result)
	assert.Equal(t, []any{2.0, 4.0, 6.0}, elements(t, a))
}
