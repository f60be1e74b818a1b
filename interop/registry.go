package interop

import (
	"runtime"
	"sync"
	"weak"

	"github.com/jsbridge-dev/jsbridge"
)

// Registry holds the paired identity tables that guarantee at most one proxy
// per host object and at most one host adapter per managed value. It is
// created per bridge (no process-wide state) so its lifetime is explicit and
// it can be tested in isolation.
//
// All tables are weak: proxies and callbacks are referenced through
// weak.Pointer and evicted by runtime cleanups; anchored Go values are
// released when the JavaScript side finalizes their holder object. Entries
// never extend the lifetime of what they index.
//
// The registry is not safe for concurrent use; like the rest of the bridge
// it assumes the single-threaded execution model of the embedded engine.
// Runtime cleanups, which run on the GC's goroutine, only append to a small
// mutex-guarded release queue that is drained on the bridge's own thread of
// control at the next conversion.
type Registry struct {
	proxies   map[uint64]proxyEntry                     // host identity id -> weak proxy
	holders   map[uintptr]uint64                        // Go pointer identity -> holder id
	anchors   map[uint64]anchor                         // holder id -> anchored Go value
	callbacks map[weak.Pointer[Callback]]callbackEntry  // AllowInterop memo
	captures  map[weak.Pointer[Callback]]callbackEntry  // AllowInteropCaptureThis memo
	nextID    uint64
	gen       uint64

	pendingMu sync.Mutex
	pending   []release
}

type proxyEntry struct {
	get func() any // dereferences the weak proxy pointer; nil when collected
	gen uint64
}

type anchor struct {
	value any
	key   uintptr
}

type callbackEntry struct {
	adapter jsbridge.Value
	funcID  uint32
}

type releaseKind int

const (
	releaseProxy releaseKind = iota
	releaseCallback
	releaseCapture
)

// release describes a deferred eviction produced by a runtime cleanup.
type release struct {
	kind    releaseKind
	proxyID uint64
	gen     uint64
	cbKey   weak.Pointer[Callback]
	host    jsbridge.Value
	inner   jsbridge.Value // engine-bound function behind a capture wrapper
	funcID  uint32
}

// NewRegistry creates an empty identity registry.
func NewRegistry() *Registry {
	return &Registry{
		proxies:   make(map[uint64]proxyEntry),
		holders:   make(map[uintptr]uint64),
		anchors:   make(map[uint64]anchor),
		callbacks: make(map[weak.Pointer[Callback]]callbackEntry),
		captures:  make(map[weak.Pointer[Callback]]callbackEntry),
	}
}

// proxy returns the live proxy registered under the given host identity id.
func (r *Registry) proxy(id uint64) (any, bool) {
	e, ok := r.proxies[id]
	if !ok {
		return nil, false
	}
	p := e.get()
	if p == nil {
		// Collected but the cleanup has not drained yet.
		delete(r.proxies, id)
		return nil, false
	}
	return p, true
}

// addProxy registers a proxy under a host identity id. The table holds the
// proxy weakly; when the proxy is collected, the entry is evicted and the
// retained host handle freed via the release queue.
func addProxy[T any](r *Registry, id uint64, p *T, host jsbridge.Value) {
	r.gen++
	gen := r.gen
	wp := weak.Make(p)
	r.proxies[id] = proxyEntry{
		gen: gen,
		get: func() any {
			if v := wp.Value(); v != nil {
				return v
			}
			return nil
		},
	}
	runtime.AddCleanup(p, r.enqueue, release{
		kind:    releaseProxy,
		proxyID: id,
		gen:     gen,
		host:    host,
	})
}

// addCallback registers a memoized host adapter for a managed callback.
func addCallback(r *Registry, cb *Callback, captureThis bool, adapter, inner jsbridge.Value, funcID uint32) {
	key := weak.Make(cb)
	kind := releaseCallback
	table := r.callbacks
	if captureThis {
		kind = releaseCapture
		table = r.captures
	}
	table[key] = callbackEntry{adapter: adapter, funcID: funcID}
	runtime.AddCleanup(cb, r.enqueue, release{
		kind:   kind,
		cbKey:  key,
		host:   adapter,
		inner:  inner,
		funcID: funcID,
	})
}

// lookupCallback returns the memoized adapter for a callback, if any.
func (r *Registry) lookupCallback(cb *Callback, captureThis bool) (callbackEntry, bool) {
	table := r.callbacks
	if captureThis {
		table = r.captures
	}
	e, ok := table[weak.Make(cb)]
	return e, ok
}

// holderID returns the holder id registered for a Go pointer identity.
func (r *Registry) holderID(key uintptr) (uint64, bool) {
	id, ok := r.holders[key]
	return id, ok
}

// addHolder anchors a Go value and returns its new holder id. The identity
// key is a bare uintptr, so the table itself holds no reference; the anchor
// pins the value only while the JavaScript holder object is alive.
func (r *Registry) addHolder(key uintptr, v any) uint64 {
	r.nextID++
	id := r.nextID
	r.holders[key] = id
	r.anchors[id] = anchor{value: v, key: key}
	return id
}

// anchorValue resolves a holder id back to the anchored Go value.
func (r *Registry) anchorValue(id uint64) (any, bool) {
	a, ok := r.anchors[id]
	if !ok {
		return nil, false
	}
	return a.value, true
}

// releaseHolder drops the anchor and identity entry for a holder id.
// Called when the JavaScript finalization registry reports the holder dead.
func (r *Registry) releaseHolder(id uint64) {
	a, ok := r.anchors[id]
	if !ok {
		return
	}
	delete(r.anchors, id)
	delete(r.holders, a.key)
}

// enqueue records a deferred eviction. Safe to call from runtime cleanups.
func (r *Registry) enqueue(rel release) {
	r.pendingMu.Lock()
	r.pending = append(r.pending, rel)
	r.pendingMu.Unlock()
}

// drain applies deferred evictions. Called at the top of every bridge entry
// point, on the bridge's own thread of control.
func (r *Registry) drain() {
	r.pendingMu.Lock()
	if len(r.pending) == 0 {
		r.pendingMu.Unlock()
		return
	}
	pending := r.pending
	r.pending = nil
	r.pendingMu.Unlock()

	for _, rel := range pending {
		switch rel.kind {
		case releaseProxy:
			// A newer proxy may have been registered under the same id after
			// the old one was collected; only evict our own generation.
			if e, ok := r.proxies[rel.proxyID]; ok && e.gen == rel.gen {
				delete(r.proxies, rel.proxyID)
			}
			rel.host.Free()
		case releaseCallback:
			delete(r.callbacks, rel.cbKey)
			rel.host.Free()
			if c := rel.host.Context(); c != nil {
				c.ReleaseFunc(rel.funcID)
			}
		case releaseCapture:
			delete(r.captures, rel.cbKey)
			rel.host.Free()
			rel.inner.Free()
			if c := rel.inner.Context(); c != nil {
				c.ReleaseFunc(rel.funcID)
			}
		}
	}
}
