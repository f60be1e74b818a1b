package interop

import (
	"math"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/jsbridge-dev/jsbridge"
)

// valueKind is the closed classification of managed values driving ToHost
// dispatch. Classification happens once, then a single switch applies the
// ordered first-match policy.
type valueKind int

const (
	kindPrimitive valueKind = iota
	kindDateTime
	kindBuffer
	kindHostValue
	kindProxy
	kindCallable
	kindPlainObject
	kindUnsupported
)

func classify(v any) valueKind {
	switch v.(type) {
	case nil, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64,
		string:
		return kindPrimitive
	case time.Time:
		return kindDateTime
	case []byte:
		return kindBuffer
	case jsbridge.Value:
		return kindHostValue
	case *Object, *Function, *Array:
		return kindProxy
	case *Callback:
		return kindCallable
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && !rv.IsNil() {
			return kindPlainObject
		}
		return kindUnsupported
	}
}

// ToHost converts a managed Go value to its host representation.
//
// Primitives, host values, dates, and byte buffers convert structurally;
// proxies unwrap to their host referent; callbacks become memoized host
// functions; any other non-nil Go pointer is wrapped in an opaque holder
// that round-trips back to the original value. Everything else is an
// InvalidArgument error (use Jsify for maps and slices).
func (b *Bridge) ToHost(v any) (jsbridge.Value, error) {
	b.reg.drain()
	return b.toHost(v)
}

func (b *Bridge) toHost(v any) (jsbridge.Value, error) {
	switch classify(v) {
	case kindPrimitive:
		return b.primitiveToHost(v), nil
	case kindDateTime:
		t := v.(time.Time)
		return b.ctx.Date(float64(t.UnixMilli())), nil
	case kindBuffer:
		return b.ctx.ArrayBuffer(v.([]byte)), nil
	case kindHostValue:
		return v.(jsbridge.Value), nil
	case kindProxy:
		switch p := v.(type) {
		case *Object:
			return p.host, nil
		case *Function:
			return p.host, nil
		default:
			return v.(*Array).host, nil
		}
	case kindCallable:
		return b.allowInterop(v.(*Callback), false)
	case kindPlainObject:
		return b.holderFor(v)
	default:
		return jsbridge.Value{}, errf(KindInvalidArgument, "ToHost",
			"unsupported Go value of type %T (use Jsify for maps and slices, or pass a pointer)", v)
	}
}

func (b *Bridge) primitiveToHost(v any) jsbridge.Value {
	switch p := v.(type) {
	case nil:
		return b.ctx.Null()
	case bool:
		return b.ctx.Bool(p)
	case string:
		return b.ctx.String(p)
	case int:
		return b.ctx.Int64(int64(p))
	case int8:
		return b.ctx.Int64(int64(p))
	case int16:
		return b.ctx.Int64(int64(p))
	case int32:
		return b.ctx.Int64(int64(p))
	case int64:
		return b.ctx.Int64(p)
	case uint:
		return b.ctx.Float64(float64(p))
	case uint8:
		return b.ctx.Int64(int64(p))
	case uint16:
		return b.ctx.Int64(int64(p))
	case uint32:
		return b.ctx.Int64(int64(p))
	case uint64:
		return b.ctx.Float64(float64(p))
	case uintptr:
		return b.ctx.Float64(float64(p))
	case float32:
		return b.ctx.Float64(float64(p))
	default:
		return b.ctx.Float64(v.(float64))
	}
}

// holderFor wraps a plain Go pointer in an opaque host holder, reusing the
// existing holder when the same pointer was wrapped before.
func (b *Bridge) holderFor(v any) (jsbridge.Value, error) {
	key := reflect.ValueOf(v).Pointer()
	if id, ok := b.reg.holderID(key); ok {
		h, err := b.lookupHolder(id)
		if err == nil && h.IsObject() {
			return h, nil
		}
		// The holder died but its finalizer has not reported back yet.
		b.reg.releaseHolder(id)
	}
	id := b.reg.addHolder(key, v)
	h, err := b.makeHolder(id)
	if err != nil {
		b.reg.releaseHolder(id)
		return jsbridge.Value{}, err
	}
	b.log.Debug("anchored managed object", zap.Uint64("holder", id))
	return h, nil
}

// ToManaged converts a host value to its managed Go representation.
//
// Primitives convert structurally (numbers normalize to float64), Date
// values become time.Time, holder objects unwrap to the Go value they were
// created from, and any other object converts to a proxy - the same proxy
// instance for repeated conversions of the same host object.
func (b *Bridge) ToManaged(h jsbridge.Value) (any, error) {
	b.reg.drain()
	return b.toManaged(h)
}

func (b *Bridge) toManaged(h jsbridge.Value) (any, error) {
	switch {
	case h.IsUndefined() || h.IsNull():
		return nil, nil
	case h.IsBool():
		return h.Bool(), nil
	case h.IsNumber():
		f, err := h.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case h.IsString():
		return h.String(), nil
	}

	if h.IsDate() {
		ms, err := h.CallMethod("getTime")
		if err != nil {
			return nil, err
		}
		f, err := ms.Float64()
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(int64(f)).UTC(), nil
	}

	if h.IsObject() {
		id, err := b.holderRef(h)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			if v, ok := b.reg.anchorValue(id); ok {
				return v, nil
			}
		}
		return b.proxyFor(h)
	}

	// Symbols, BigInt and other engine-specific kinds pass through as host
	// values.
	return h, nil
}

// proxyFor returns the proxy for a host object, creating and registering one
// when the identity table has no live entry.
func (b *Bridge) proxyFor(h jsbridge.Value) (any, error) {
	id, err := b.hostID(h)
	if err != nil {
		return nil, err
	}
	if p, ok := b.reg.proxy(id); ok {
		return p, nil
	}

	ref := h.Dup()
	switch {
	case h.IsFunction():
		f := &Function{Object: Object{bridge: b, host: ref}}
		addProxy(b.reg, id, f, ref)
		b.log.Debug("created function proxy", zap.Uint64("id", id))
		return f, nil
	case h.IsArray():
		a := &Array{Object: Object{bridge: b, host: ref}}
		addProxy(b.reg, id, a, ref)
		b.log.Debug("created array proxy", zap.Uint64("id", id))
		return a, nil
	default:
		o := &Object{bridge: b, host: ref}
		addProxy(b.reg, id, o, ref)
		b.log.Debug("created object proxy", zap.Uint64("id", id))
		return o, nil
	}
}

// normalizeLength validates a host "length" value as a non-negative exact
// integer and returns it.
func normalizeLength(op string, lv jsbridge.Value) (int, error) {
	if !lv.IsNumber() {
		return 0, errf(KindInvalidArrayLength, op, "host length is not a number")
	}
	f, err := lv.Float64()
	if err != nil {
		return 0, &Error{Kind: KindInvalidArrayLength, Op: op, Cause: err}
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, errf(KindInvalidArrayLength, op, "host length %v is not a non-negative integer", f)
	}
	return int(f), nil
}
