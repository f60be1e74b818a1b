package interop

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsbridge-dev/jsbridge"
)

func TestRegistryHolders(t *testing.T) {
	r := NewRegistry()

	v1 := &struct{ n int }{n: 1}
	v2 := &struct{ n int }{n: 2}

	id1 := r.addHolder(1001, v1)
	id2 := r.addHolder(1002, v2)
	require.NotEqual(t, id1, id2)

	t.Run("lookup by identity key", func(t *testing.T) {
		got, ok := r.holderID(1001)
		require.True(t, ok)
		assert.Equal(t, id1, got)
	})

	t.Run("anchor resolves to the value", func(t *testing.T) {
		got, ok := r.anchorValue(id2)
		require.True(t, ok)
		assert.Same(t, v2, got)
	})

	t.Run("release drops both tables", func(t *testing.T) {
		r.releaseHolder(id1)
		_, ok := r.holderID(1001)
		assert.False(t, ok)
		_, ok = r.anchorValue(id1)
		assert.False(t, ok)
	})

	t.Run("release of unknown id is a no-op", func(t *testing.T) {
		r.releaseHolder(9999)
		_, ok := r.anchorValue(id2)
		assert.True(t, ok)
	})
}

func TestRegistryProxyGenerations(t *testing.T) {
	r := NewRegistry()

	first := &Object{}
	addProxy(r, 7, first, jsbridge.Value{})
	got, ok := r.proxy(7)
	require.True(t, ok)
	require.Same(t, first, got)

	// A new proxy under the same host id supersedes the old entry; the old
	// generation's deferred release must not evict it.
	second := &Object{}
	addProxy(r, 7, second, jsbridge.Value{})
	r.enqueue(release{kind: releaseProxy, proxyID: 7, gen: 1})
	r.drain()

	got, ok = r.proxy(7)
	require.True(t, ok)
	assert.Same(t, second, got)

	// The current generation's release does evict.
	r.enqueue(release{kind: releaseProxy, proxyID: 7, gen: 2})
	r.drain()
	_, ok = r.proxy(7)
	assert.False(t, ok)

	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}

func TestRegistryCallbackMemo(t *testing.T) {
	r := NewRegistry()
	cb := NewCallback(func(args []any) (any, error) { return nil, nil })

	addCallback(r, cb, false, jsbridge.Value{}, jsbridge.Value{}, 1)

	t.Run("plain and capture tables are independent", func(t *testing.T) {
		_, ok := r.lookupCallback(cb, false)
		assert.True(t, ok)
		_, ok = r.lookupCallback(cb, true)
		assert.False(t, ok)
	})

	t.Run("distinct callback misses", func(t *testing.T) {
		other := NewCallback(func(args []any) (any, error) { return nil, nil })
		_, ok := r.lookupCallback(other, false)
		assert.False(t, ok)
	})

	runtime.KeepAlive(cb)
}
