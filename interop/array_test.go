package interop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managedArray(t *testing.T, b *Bridge, code string) *Array {
	t.Helper()
	v, err := b.ToManaged(mustEval(t, b, code))
	require.NoError(t, err)
	a, ok := v.(*Array)
	require.True(t, ok, "expected *Array for %q, got %T", code, v)
	return a
}

func elements(t *testing.T, a *Array) []any {
	t.Helper()
	n, err := a.Length()
	require.NoError(t, err)
	out := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := a.At(i)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func TestArrayBounds(t *testing.T) {
	b := newTestBridge(t)
	a := managedArray(t, b, "[10, 20, 30]")

	t.Run("length", func(t *testing.T) {
		n, err := a.Length()
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("last valid index", func(t *testing.T) {
		v, err := a.At(2)
		require.NoError(t, err)
		assert.Equal(t, 30.0, v)
	})

	t.Run("index at length", func(t *testing.T) {
		_, err := a.At(3)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	})

	t.Run("negative index", func(t *testing.T) {
		_, err := a.At(-1)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	})

	t.Run("set at bounds", func(t *testing.T) {
		require.NoError(t, a.SetAt(0, 11))
		v, err := a.At(0)
		require.NoError(t, err)
		assert.Equal(t, 11.0, v)

		err = a.SetAt(3, 40)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	})
}

func TestArrayNonIntegerKeys(t *testing.T) {
	b := newTestBridge(t)
	a := managedArray(t, b, "[1, 2, 3]")

	// A non-integer key goes through the generic property path, so no bounds
	// check applies and the array length is untouched.
	require.NoError(t, a.Set(1.5, "between"))
	v, err := a.Get(1.5)
	require.NoError(t, err)
	assert.Equal(t, "between", v)

	n, err := a.Length()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestArrayMutation(t *testing.T) {
	b := newTestBridge(t)

	t.Run("add and add all", func(t *testing.T) {
		a := managedArray(t, b, "[]")
		require.NoError(t, a.Add(1))
		require.NoError(t, a.AddAll([]any{2, 3}))
		assert.Equal(t, []any{1.0, 2.0, 3.0}, elements(t, a))
	})

	t.Run("insert shifts right", func(t *testing.T) {
		a := managedArray(t, b, "['a', 'c']")
		require.NoError(t, a.Insert(1, "b"))
		assert.Equal(t, []any{"a", "b", "c"}, elements(t, a))
	})

	t.Run("insert at length appends", func(t *testing.T) {
		a := managedArray(t, b, "['a']")
		require.NoError(t, a.Insert(1, "b"))
		assert.Equal(t, []any{"a", "b"}, elements(t, a))
	})

	t.Run("insert out of range", func(t *testing.T) {
		a := managedArray(t, b, "['a']")
		assert.True(t, errors.Is(a.Insert(2, "x"), ErrIndexOutOfRange))
		assert.True(t, errors.Is(a.Insert(-1, "x"), ErrIndexOutOfRange))
	})

	t.Run("remove at returns the element", func(t *testing.T) {
		a := managedArray(t, b, "['a', 'b', 'c']")
		v, err := a.RemoveAt(1)
		require.NoError(t, err)
		assert.Equal(t, "b", v)
		assert.Equal(t, []any{"a", "c"}, elements(t, a))
	})

	t.Run("remove last", func(t *testing.T) {
		a := managedArray(t, b, "[1, 2]")
		v, err := a.RemoveLast()
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)

		_, err = a.RemoveLast()
		require.NoError(t, err)
		_, err = a.RemoveLast()
		assert.True(t, errors.Is(err, ErrEmptyRange))
	})
}

func TestArraySetRange(t *testing.T) {
	b := newTestBridge(t)

	t.Run("copies with skip", func(t *testing.T) {
		a := managedArray(t, b, "[0, 0, 0, 0]")
		require.NoError(t, a.SetRange(1, 3, []any{9, 8, 7}, 1))
		assert.Equal(t, []any{0.0, 8.0, 7.0, 0.0}, elements(t, a))
	})

	t.Run("empty span is a no-op", func(t *testing.T) {
		a := managedArray(t, b, "[1]")
		require.NoError(t, a.SetRange(1, 1, nil, 0))
		assert.Equal(t, []any{1.0}, elements(t, a))
	})

	t.Run("inverted range", func(t *testing.T) {
		a := managedArray(t, b, "[1, 2, 3]")
		assert.True(t, errors.Is(a.SetRange(2, 1, []any{0}, 0), ErrInvalidRange))
	})

	t.Run("end beyond length", func(t *testing.T) {
		a := managedArray(t, b, "[1, 2, 3]")
		assert.True(t, errors.Is(a.SetRange(0, 4, []any{0, 0, 0, 0}, 0), ErrInvalidRange))
	})

	t.Run("negative skip", func(t *testing.T) {
		a := managedArray(t, b, "[1, 2, 3]")
		assert.True(t, errors.Is(a.SetRange(0, 1, []any{0}, -1), ErrInvalidArgument))
	})

	t.Run("source too short", func(t *testing.T) {
		a := managedArray(t, b, "[1, 2, 3]")
		assert.True(t, errors.Is(a.SetRange(0, 3, []any{0, 0}, 0), ErrInvalidArgument))
	})
}

func TestArraySlice(t *testing.T) {
	b := newTestBridge(t)
	a := managedArray(t, b, "[1, 2, 3, 4]")

	t.Run("half-open range", func(t *testing.T) {
		sub, err := a.Slice(1, 3)
		require.NoError(t, err)
		assert.Equal(t, []any{2.0, 3.0}, elements(t, sub))
	})

	t.Run("full copy is a new array", func(t *testing.T) {
		sub, err := a.Slice(0, 4)
		require.NoError(t, err)
		assert.False(t, a.Equals(&sub.Object))
	})

	t.Run("invalid range", func(t *testing.T) {
		_, err := a.Slice(3, 1)
		assert.True(t, errors.Is(err, ErrInvalidRange))
		_, err = a.Slice(0, 5)
		assert.True(t, errors.Is(err, ErrInvalidRange))
	})
}

func TestArraySort(t *testing.T) {
	b := newTestBridge(t)

	t.Run("default ordering is lexicographic", func(t *testing.T) {
		a := managedArray(t, b, "[10, 9, 2]")
		require.NoError(t, a.Sort(nil))
		assert.Equal(t, []any{10.0, 2.0, 9.0}, elements(t, a))
	})

	t.Run("comparator callback", func(t *testing.T) {
		a := managedArray(t, b, "[10, 9, 2]")
		cmp := NewCallback(func(args []any) (any, error) {
			return args[0].(float64) - args[1].(float64), nil
		}, WithName("byValue"))
		require.NoError(t, a.Sort(cmp))
		assert.Equal(t, []any{2.0, 9.0, 10.0}, elements(t, a))
	})
}
