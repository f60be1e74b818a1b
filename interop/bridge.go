package interop

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jsbridge-dev/jsbridge"
)

// bootstrapScript installs the JavaScript side of the bridge: a WeakMap
// assigning stable identity ids to host objects, a WeakRef table of holder
// objects for anchored Go values, a FinalizationRegistry that reports dead
// holders back to Go, and the receiver-capturing function wrapper. Nothing
// here keeps a host object alive.
const bootstrapScript = `(() => {
	'use strict';
	const ids = new WeakMap();
	let nextID = 1;
	const holders = new Map();
	const fin = new FinalizationRegistry((id) => {
		holders.delete(id);
		globalThis.__jsbridge_release(id);
	});
	return {
		idOf(o) {
			let id = ids.get(o);
			if (id === undefined) {
				id = nextID++;
				ids.set(o, id);
			}
			return id;
		},
		hold(id, artifact) {
			const h = { __jsbridge_ref: id, __jsbridge_artifact: !!artifact };
			holders.set(id, new WeakRef(h));
			fin.register(h, id);
			return h;
		},
		lookup(id) {
			const ref = holders.get(id);
			return ref === undefined ? undefined : ref.deref();
		},
		refOf(o) {
			if (o !== null && typeof o === 'object' &&
				typeof o.__jsbridge_ref === 'number' && !o.__jsbridge_artifact) {
				return o.__jsbridge_ref;
			}
			return 0;
		},
		capture(f) {
			return function (...args) {
				return f(this, ...args);
			};
		},
	};
})()`

// Bridge converts values between Go and a JavaScript context, preserving
// object identity through its Registry.
type Bridge struct {
	ctx   *jsbridge.Context
	reg   *Registry
	log   *zap.Logger
	undef jsbridge.Value

	// bootstrap helpers
	idOf    jsbridge.Value
	hold    jsbridge.Value
	lookup  jsbridge.Value
	refOf   jsbridge.Value
	capture jsbridge.Value
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithRegistry sets the identity registry the bridge uses. The default is a
// fresh registry per bridge.
func WithRegistry(r *Registry) Option {
	return func(b *Bridge) {
		if r != nil {
			b.reg = r
		}
	}
}

// New creates a bridge bound to the given JavaScript context.
func New(ctx *jsbridge.Context, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		ctx: ctx,
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.reg == nil {
		b.reg = NewRegistry()
	}
	b.undef = ctx.Undefined()

	releaseFn := ctx.Function("__jsbridge_release", func(c *jsbridge.Context, this jsbridge.Value, args []jsbridge.Value) jsbridge.Value {
		if len(args) == 1 {
			if id, err := args[0].Float64(); err == nil {
				b.reg.releaseHolder(uint64(id))
				b.log.Debug("released managed anchor", zap.Uint64("holder", uint64(id)))
			}
		}
		return c.Undefined()
	})
	if err := ctx.SetGlobal("__jsbridge_release", releaseFn); err != nil {
		return nil, fmt.Errorf("interop bootstrap: %w", err)
	}

	helpers, err := ctx.Eval(bootstrapScript)
	if err != nil {
		return nil, fmt.Errorf("interop bootstrap: %w", err)
	}
	for name, dst := range map[string]*jsbridge.Value{
		"idOf":    &b.idOf,
		"hold":    &b.hold,
		"lookup":  &b.lookup,
		"refOf":   &b.refOf,
		"capture": &b.capture,
	} {
		v, err := helpers.Get(name)
		if err != nil {
			return nil, fmt.Errorf("interop bootstrap: helper %s: %w", name, err)
		}
		*dst = v
	}

	return b, nil
}

// Context returns the JavaScript context the bridge is bound to.
func (b *Bridge) Context() *jsbridge.Context {
	return b.ctx
}

// Registry returns the bridge's identity registry.
func (b *Bridge) Registry() *Registry {
	return b.reg
}

// NewInstance constructs a host object from a host constructor and an
// argument list, returning the managed view of the result.
func (b *Bridge) NewInstance(ctor *Function, args ...any) (any, error) {
	b.reg.drain()
	if ctor == nil {
		return nil, errf(KindInvalidArgument, "NewInstance", "nil constructor")
	}
	hostArgs := make([]jsbridge.Value, len(args))
	for i, arg := range args {
		hv, err := b.toHost(arg)
		if err != nil {
			return nil, err
		}
		hostArgs[i] = hv
	}
	result, err := ctor.host.New(hostArgs...)
	if err != nil {
		return nil, err
	}
	return b.toManaged(result)
}

// hostID returns the stable identity id of a host object.
func (b *Bridge) hostID(v jsbridge.Value) (uint64, error) {
	r, err := b.idOf.Call(b.undef, v)
	if err != nil {
		return 0, err
	}
	id, err := r.Float64()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// holderRef returns the holder id carried by a host value, or 0 when the
// value is not a holder (or is tagged as a proxy-for-proxy artifact).
func (b *Bridge) holderRef(v jsbridge.Value) (uint64, error) {
	r, err := b.refOf.Call(b.undef, v)
	if err != nil {
		return 0, err
	}
	id, err := r.Float64()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// makeHolder creates the opaque JavaScript holder object for a holder id.
func (b *Bridge) makeHolder(id uint64) (jsbridge.Value, error) {
	return b.hold.Call(b.undef, b.ctx.Float64(float64(id)), b.ctx.Bool(false))
}

// lookupHolder resolves a holder id to its live holder object, if any.
func (b *Bridge) lookupHolder(id uint64) (jsbridge.Value, error) {
	return b.lookup.Call(b.undef, b.ctx.Float64(float64(id)))
}
