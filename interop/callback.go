package interop

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jsbridge-dev/jsbridge"
)

// Callback is a managed function exposed to the host. Go functions are not
// comparable, so the bridge memoizes adapters by Callback pointer identity;
// exposing the same *Callback twice yields the same host function.
type Callback struct {
	name  string
	arity int
	fn    func(args []any) (any, error)
}

// CallbackOption configures a Callback.
type CallbackOption func(*Callback)

// WithName sets the host-visible function name.
func WithName(name string) CallbackOption {
	return func(cb *Callback) {
		if name != "" {
			cb.name = name
		}
	}
}

// WithArity fixes the number of arguments delivered to the callback: extra
// host arguments are dropped, missing ones padded with nil. The default
// passes every argument through.
func WithArity(n int) CallbackOption {
	return func(cb *Callback) {
		if n >= 0 {
			cb.arity = n
		}
	}
}

// NewCallback wraps a Go function for exposure to the host. Arguments arrive
// in managed form; the returned value converts back through ToHost.
func NewCallback(fn func(args []any) (any, error), opts ...CallbackOption) *Callback {
	cb := &Callback{
		name:  "anonymous",
		arity: -1,
		fn:    fn,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// AllowInterop returns the host function adapter for a callback. Repeated
// calls with the same callback return the same host function, so the host
// can use it as a listener registration key.
func (b *Bridge) AllowInterop(cb *Callback) (jsbridge.Value, error) {
	b.reg.drain()
	return b.allowInterop(cb, false)
}

// AllowInteropCaptureThis is AllowInterop with the host call's receiver
// prepended to the argument list. When the host calls the adapter without a
// receiver, the first argument is nil.
func (b *Bridge) AllowInteropCaptureThis(cb *Callback) (jsbridge.Value, error) {
	b.reg.drain()
	return b.allowInterop(cb, true)
}

func (b *Bridge) allowInterop(cb *Callback, captureThis bool) (jsbridge.Value, error) {
	op := "AllowInterop"
	if captureThis {
		op = "AllowInteropCaptureThis"
	}
	if cb == nil || cb.fn == nil {
		return jsbridge.Value{}, errf(KindNotCallable, op, "nil callback")
	}
	if e, ok := b.reg.lookupCallback(cb, captureThis); ok {
		return e.adapter, nil
	}

	inner, funcID := b.ctx.BindFunc(cb.name, b.dispatch(cb))
	adapter := inner
	if captureThis {
		wrapped, err := b.capture.Call(b.undef, inner)
		if err != nil {
			inner.Free()
			b.ctx.ReleaseFunc(funcID)
			return jsbridge.Value{}, err
		}
		adapter = wrapped
	}
	addCallback(b.reg, cb, captureThis, adapter, inner, funcID)
	b.log.Debug("exposed managed callback",
		zap.String("name", cb.name), zap.Bool("captureThis", captureThis))
	return adapter, nil
}

// dispatch builds the engine-side entry point for a callback. The capture
// wrapper, when present, has already prepended the receiver to args.
func (b *Bridge) dispatch(cb *Callback) jsbridge.GoFunc {
	return func(c *jsbridge.Context, this jsbridge.Value, args []jsbridge.Value) jsbridge.Value {
		b.reg.drain()
		managed := make([]any, len(args))
		for i, a := range args {
			mv, err := b.toManaged(a)
			if err != nil {
				return c.ThrowTypeError(fmt.Sprintf("%s: argument %d: %v", cb.name, i, err))
			}
			managed[i] = mv
		}
		if cb.arity >= 0 {
			if len(managed) > cb.arity {
				managed = managed[:cb.arity]
			}
			for len(managed) < cb.arity {
				managed = append(managed, nil)
			}
		}

		result, err := cb.fn(managed)
		if err != nil {
			return c.ThrowTypeError(fmt.Sprintf("%s: %v", cb.name, err))
		}
		hv, err := b.toHost(result)
		if err != nil {
			return c.ThrowTypeError(fmt.Sprintf("%s: result: %v", cb.name, err))
		}
		return hv
	}
}
