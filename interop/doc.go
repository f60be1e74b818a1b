// Package interop implements a bidirectional bridge between native Go values
// and JavaScript values running in a jsbridge context.
//
// The bridge maintains object identity across the boundary: converting the
// same JavaScript object twice yields the same Go proxy, and a Go value sent
// to JavaScript round-trips back as the original value. Identity is tracked
// by a per-bridge Registry whose association tables hold weak references on
// both sides - neither table extends the lifetime of a proxy, a callback, or
// an anchored Go value.
//
// Conversions are synchronous and run on the caller's goroutine; the bridge
// never spawns concurrent work. Failures surface as *Error values carrying a
// Kind from the closed taxonomy in this package.
package interop
