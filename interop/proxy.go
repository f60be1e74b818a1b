package interop

import (
	"fmt"

	"github.com/jsbridge-dev/jsbridge"
)

// Object is the managed-side stand-in for exactly one host object. Proxies
// are created through the bridge's registry, so at most one Object exists
// per host object at any time; identity comparisons should use Equals,
// which is host reference equality. Objects are not suitable as the sole
// discriminant in hash-based containers: distinct proxies for distinct host
// objects are distinct Go pointers, but nothing ties their addresses to
// host identity.
type Object struct {
	bridge *Bridge
	host   jsbridge.Value
}

// propertyKey validates a property/method key and renders it as a host
// property name. Only string and numeric keys are legal.
func propertyKey(op string, key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(k), nil
	default:
		return "", errf(KindInvalidKey, op, "property key must be a string or number, got %T", key)
	}
}

// Value returns the underlying host value.
func (o *Object) Value() jsbridge.Value {
	return o.host
}

// Get reads a property, converting the result to its managed representation.
func (o *Object) Get(key any) (any, error) {
	o.bridge.reg.drain()
	prop, err := propertyKey("Object.Get", key)
	if err != nil {
		return nil, err
	}
	hv, err := o.host.Get(prop)
	if err != nil {
		return nil, err
	}
	return o.bridge.toManaged(hv)
}

// Set writes a property, converting the value to its host representation.
func (o *Object) Set(key, value any) error {
	o.bridge.reg.drain()
	prop, err := propertyKey("Object.Set", key)
	if err != nil {
		return err
	}
	hv, err := o.bridge.toHost(value)
	if err != nil {
		return err
	}
	return o.host.Set(prop, hv)
}

// Has reports whether the host object has the given property.
func (o *Object) Has(key any) (bool, error) {
	prop, err := propertyKey("Object.Has", key)
	if err != nil {
		return false, err
	}
	return o.host.Has(prop), nil
}

// Delete removes a property from the host object.
func (o *Object) Delete(key any) error {
	prop, err := propertyKey("Object.Delete", key)
	if err != nil {
		return err
	}
	return o.host.Delete(prop)
}

// InstanceOf reports whether the host object is an instance of the given
// host constructor.
func (o *Object) InstanceOf(ctor *Function) (bool, error) {
	if ctor == nil {
		return false, errf(KindInvalidArgument, "Object.InstanceOf", "nil constructor")
	}
	return o.host.Instanceof(ctor.host), nil
}

// Equals reports host reference equality of the two proxies' referents.
func (o *Object) Equals(other *Object) bool {
	if other == nil {
		return false
	}
	return o.host.StrictEquals(other.host)
}

// CallMethod invokes the named member of the host object with the host
// object as receiver. The member must be a host function.
func (o *Object) CallMethod(name any, args ...any) (any, error) {
	o.bridge.reg.drain()
	prop, err := propertyKey("Object.CallMethod", name)
	if err != nil {
		return nil, err
	}
	member, err := o.host.Get(prop)
	if err != nil {
		return nil, err
	}
	if !member.IsFunction() {
		return nil, errf(KindNotCallable, "Object.CallMethod", "member %q is not a function", prop)
	}
	hostArgs := make([]jsbridge.Value, len(args))
	for i, arg := range args {
		hv, err := o.bridge.toHost(arg)
		if err != nil {
			return nil, err
		}
		hostArgs[i] = hv
	}
	result, err := member.Call(o.host, hostArgs...)
	if err != nil {
		return nil, err
	}
	return o.bridge.toManaged(result)
}

// String returns the host object's string representation, falling back to a
// default on host-side failure.
func (o *Object) String() string {
	if s := o.host.String(); s != "" {
		return s
	}
	return "[object Object]"
}

// Function is an Object whose host referent is callable.
type Function struct {
	Object
}

// Apply invokes the host function with an explicit receiver. A nil args
// slice is treated as an empty argument list.
func (f *Function) Apply(args []any, thisArg any) (any, error) {
	b := f.bridge
	b.reg.drain()
	hostThis, err := b.toHost(thisArg)
	if err != nil {
		return nil, err
	}
	hostArgs := make([]jsbridge.Value, len(args))
	for i, arg := range args {
		hv, err := b.toHost(arg)
		if err != nil {
			return nil, err
		}
		hostArgs[i] = hv
	}
	result, err := f.host.Call(hostThis, hostArgs...)
	if err != nil {
		return nil, err
	}
	return b.toManaged(result)
}
