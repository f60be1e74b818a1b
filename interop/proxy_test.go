package interop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managedObject(t *testing.T, b *Bridge, code string) *Object {
	t.Helper()
	v, err := b.ToManaged(mustEval(t, b, code))
	require.NoError(t, err)
	o, ok := v.(*Object)
	require.True(t, ok, "expected *Object for %q, got %T", code, v)
	return o
}

func TestProxyIdentity(t *testing.T) {
	b := newTestBridge(t)

	mustEval(t, b, "globalThis.shared = {n: 1}")

	t.Run("same host object yields the same proxy", func(t *testing.T) {
		first, err := b.ToManaged(mustEval(t, b, "shared"))
		require.NoError(t, err)
		second, err := b.ToManaged(mustEval(t, b, "shared"))
		require.NoError(t, err)
		require.Same(t, first, second)
	})

	t.Run("distinct host objects yield distinct proxies", func(t *testing.T) {
		a := managedObject(t, b, "({})")
		c := managedObject(t, b, "({})")
		assert.NotSame(t, a, c)
		assert.False(t, a.Equals(c))
	})

	t.Run("proxy passed back unwraps to its referent", func(t *testing.T) {
		o := managedObject(t, b, "shared")
		hv, err := b.ToHost(o)
		require.NoError(t, err)
		require.NoError(t, b.Context().SetGlobal("echoed", hv))
		same := mustEval(t, b, "echoed === shared")
		assert.True(t, same.Bool())
	})
}

func TestObjectProperties(t *testing.T) {
	b := newTestBridge(t)
	o := managedObject(t, b, "({name: 'ada', 7: 'seven'})")

	t.Run("get string key", func(t *testing.T) {
		v, err := o.Get("name")
		require.NoError(t, err)
		assert.Equal(t, "ada", v)
	})

	t.Run("numeric keys coerce to property names", func(t *testing.T) {
		v, err := o.Get(7)
		require.NoError(t, err)
		assert.Equal(t, "seven", v)
	})

	t.Run("missing property is nil", func(t *testing.T) {
		v, err := o.Get("absent")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, o.Set("age", 36))
		v, err := o.Get("age")
		require.NoError(t, err)
		assert.Equal(t, 36.0, v)
	})

	t.Run("has and delete", func(t *testing.T) {
		require.NoError(t, o.Set("tmp", 1))
		ok, err := o.Has("tmp")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, o.Delete("tmp"))
		ok, err = o.Has("tmp")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid key kind", func(t *testing.T) {
		_, err := o.Get(true)
		assert.True(t, errors.Is(err, ErrInvalidKey))
		err = o.Set([]string{"k"}, 1)
		assert.True(t, errors.Is(err, ErrInvalidKey))
	})
}

func TestObjectCallMethod(t *testing.T) {
	b := newTestBridge(t)
	o := managedObject(t, b, "({base: 10, add(x) { return this.base + x; }, notFn: 3})")

	t.Run("invokes with the object as receiver", func(t *testing.T) {
		v, err := o.CallMethod("add", 5)
		require.NoError(t, err)
		assert.Equal(t, 15.0, v)
	})

	t.Run("non-function member", func(t *testing.T) {
		_, err := o.CallMethod("notFn")
		assert.True(t, errors.Is(err, ErrNotCallable))
	})

	t.Run("missing member", func(t *testing.T) {
		_, err := o.CallMethod("ghost")
		assert.True(t, errors.Is(err, ErrNotCallable))
	})
}

func TestObjectInstanceOf(t *testing.T) {
	b := newTestBridge(t)

	o := managedObject(t, b, "new Map()")
	ctorAny, err := b.ToManaged(mustEval(t, b, "Map"))
	require.NoError(t, err)
	ctor := ctorAny.(*Function)

	ok, err := o.InstanceOf(ctor)
	require.NoError(t, err)
	assert.True(t, ok)

	otherAny, err := b.ToManaged(mustEval(t, b, "Set"))
	require.NoError(t, err)
	ok, err = o.InstanceOf(otherAny.(*Function))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = o.InstanceOf(nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestFunctionApply(t *testing.T) {
	b := newTestBridge(t)

	fnAny, err := b.ToManaged(mustEval(t, b, "(function (x) { 'use strict'; return this === null || this === undefined ? x : this.scale * x; })"))
	require.NoError(t, err)
	fn, ok := fnAny.(*Function)
	require.True(t, ok, "expected *Function, got %T", fnAny)

	t.Run("nil receiver", func(t *testing.T) {
		v, err := fn.Apply([]any{4}, nil)
		require.NoError(t, err)
		assert.Equal(t, 4.0, v)
	})

	t.Run("object receiver", func(t *testing.T) {
		recv := managedObject(t, b, "({scale: 3})")
		v, err := fn.Apply([]any{4}, recv)
		require.NoError(t, err)
		assert.Equal(t, 12.0, v)
	})

	t.Run("nil args is an empty call", func(t *testing.T) {
		idAny, err := b.ToManaged(mustEval(t, b, "((...a) => a.length)"))
		require.NoError(t, err)
		v, err := idAny.(*Function).Apply(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, v)
	})

	t.Run("host exception surfaces as error", func(t *testing.T) {
		boomAny, err := b.ToManaged(mustEval(t, b, "(() => { throw new Error('boom'); })"))
		require.NoError(t, err)
		_, err = boomAny.(*Function).Apply(nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}
