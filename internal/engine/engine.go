// Package engine provides low-level bindings to the QuickJS-ng WASM module.
package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/jsbridge-dev/jsbridge/wasm"
)

// Global compilation cache - caches compiled machine code so CompileModule
// is fast for every Engine after the first. Shared across all instances.
var (
	globalCache     wazero.CompilationCache
	globalCacheOnce sync.Once
)

// Buffer pool to reduce allocations for small temporary buffers
var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 256)
		return &buf
	},
}

func getBuffer() *[]byte {
	return bufPool.Get().(*[]byte)
}

func putBuffer(buf *[]byte) {
	*buf = (*buf)[:0]
	bufPool.Put(buf)
}

// GoFunc is a Go function that can be called from JavaScript.
// It receives the context pointer and the arguments as JSValue pointers.
type GoFunc func(ctxPtr uint32, args []uint32) uint32

// exportNames lists every QuickJS export the engine binds at startup.
// Missing exports are a fatal initialization error so that version skew
// between the Go layer and the WASM binary fails fast.
var exportNames = []string{
	// memory management
	"qjs_alloc", "qjs_free", "qjs_get_heap_ptr", "qjs_get_heap_size", "qjs_reset_heap",
	// runtime and context
	"qjs_new_runtime", "qjs_free_runtime", "qjs_new_context", "qjs_free_context", "qjs_get_runtime",
	// evaluation
	"qjs_eval", "qjs_eval_module",
	// type checking
	"qjs_is_exception", "qjs_is_undefined", "qjs_is_null", "qjs_is_bool",
	"qjs_is_number", "qjs_is_string", "qjs_is_symbol", "qjs_is_object",
	"qjs_is_function", "qjs_is_array", "qjs_is_error", "qjs_is_big_int",
	"qjs_is_date", "qjs_is_regexp", "qjs_is_map", "qjs_is_set", "qjs_is_promise",
	// value conversion
	"qjs_to_bool", "qjs_to_int32", "qjs_to_int64", "qjs_to_float64",
	"qjs_to_cstring", "qjs_free_cstring", "qjs_to_cstring_len", "qjs_to_string",
	// value creation
	"qjs_new_undefined", "qjs_new_null", "qjs_new_bool", "qjs_new_int32",
	"qjs_new_int64", "qjs_new_float64", "qjs_new_string", "qjs_new_string_len",
	// object operations
	"qjs_new_object", "qjs_new_array", "qjs_get_property", "qjs_set_property",
	"qjs_has_property", "qjs_delete_property", "qjs_get_property_uint32",
	"qjs_set_property_uint32", "qjs_get_global_object", "qjs_get_own_property_names",
	// function calling
	"qjs_call", "qjs_call_constructor", "qjs_invoke", "qjs_new_c_function",
	// exception handling
	"qjs_get_exception", "qjs_has_exception", "qjs_throw", "qjs_throw_error",
	"qjs_throw_type_error", "qjs_throw_range_error", "qjs_throw_syntax_error",
	"qjs_throw_reference_error", "qjs_get_error_message", "qjs_get_error_stack",
	// value management
	"qjs_dup_value", "qjs_free_value", "qjs_strict_eq",
	// JSON
	"qjs_json_parse", "qjs_json_stringify",
	// GC and jobs
	"qjs_run_gc", "qjs_execute_pending_jobs", "qjs_new_promise",
	// BigInt
	"qjs_new_big_int64", "qjs_new_big_uint64", "qjs_to_big_int64",
	// Date
	"qjs_new_date",
	// type operations
	"qjs_instanceof", "qjs_typeof",
	// ArrayBuffer
	"qjs_new_array_buffer", "qjs_get_array_buffer",
	// console
	"qjs_std_add_console",
	// runtime configuration
	"qjs_set_memory_limit", "qjs_set_max_stack_size",
}

// Engine manages the WASM runtime and provides low-level access to
// QuickJS-ng functions.
type Engine struct {
	wasmRuntime wazero.Runtime
	module      api.Module
	memory      api.Memory
	mu          sync.Mutex
	logFunc     func(msg string)

	// Go function callbacks
	callbacks  map[uint32]GoFunc // funcID -> Go function
	nextFuncID uint32
	callbackMu sync.RWMutex

	// Exported functions from the WASM module, keyed by export name.
	fns map[string]api.Function
}

// New creates a new Engine instance.
func New(ctx context.Context) (*Engine, error) {
	e := &Engine{
		logFunc: func(msg string) {
			fmt.Print(msg)
		},
		callbacks:  make(map[uint32]GoFunc),
		nextFuncID: 1,
	}

	globalCacheOnce.Do(func() {
		globalCache = wazero.NewCompilationCache()
	})

	// Disable debug info for faster execution (no DWARF parsing).
	runtimeConfig := wazero.NewRuntimeConfig().
		WithCompilationCache(globalCache).
		WithDebugInfoEnabled(false)

	e.wasmRuntime = wazero.NewRuntimeWithConfig(ctx, runtimeConfig)

	// WASI is required by the QuickJS WASM module.
	wasi_snapshot_preview1.MustInstantiate(ctx, e.wasmRuntime)

	// Register host functions
	_, err := e.wasmRuntime.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(e.hostLog).
		Export("host_log").
		NewFunctionBuilder().
		WithFunc(e.hostCallGo).
		Export("host_call_go").
		Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}

	compiled, err := e.wasmRuntime.CompileModule(ctx, wasm.QuickJS)
	if err != nil {
		return nil, fmt.Errorf("failed to compile WASM module: %w", err)
	}

	e.module, err = e.wasmRuntime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate WASM module: %w", err)
	}

	e.memory = e.module.Memory()
	if e.memory == nil {
		return nil, errors.New("WASM module has no memory")
	}

	e.fns = make(map[string]api.Function, len(exportNames))
	for _, name := range exportNames {
		fn := e.module.ExportedFunction(name)
		if fn == nil {
			return nil, fmt.Errorf("function %s not found in WASM module", name)
		}
		e.fns[name] = fn
	}

	return e, nil
}

// call invokes a bound export and returns its first result.
func (e *Engine) call(ctx context.Context, name string, args ...uint64) (uint64, error) {
	results, err := e.fns[name].Call(ctx, args...)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

// Close releases all resources.
func (e *Engine) Close(ctx context.Context) error {
	return e.wasmRuntime.Close(ctx)
}

// SetLogFunc sets the function used for console output from JavaScript.
func (e *Engine) SetLogFunc(fn func(msg string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logFunc = fn
}

// Host function implementations

func (e *Engine) hostLog(ctx context.Context, m api.Module, bufPtr, bufLen uint32) {
	buf, ok := m.Memory().Read(bufPtr, bufLen)
	if !ok {
		return
	}
	e.mu.Lock()
	logFunc := e.logFunc
	e.mu.Unlock()
	if logFunc != nil {
		logFunc(string(buf))
	}
}

func (e *Engine) hostCallGo(ctx context.Context, m api.Module, ctxPtr, funcID uint32, argc int32, argvPtr uint32) uint32 {
	e.callbackMu.RLock()
	fn, ok := e.callbacks[funcID]
	e.callbackMu.RUnlock()

	if !ok {
		// Function not found, return undefined
		undef, _ := e.NewUndefined(ctx)
		return undef
	}

	// Read argument pointers from WASM memory
	args := make([]uint32, argc)
	if argc > 0 && argvPtr != 0 {
		for i := range argc {
			buf, ok := m.Memory().Read(argvPtr+uint32(i)*4, 4)
			if !ok {
				undef, _ := e.NewUndefined(ctx)
				return undef
			}
			args[i] = binary.LittleEndian.Uint32(buf)
		}
	}

	return fn(ctxPtr, args)
}

// Memory management helpers

// Alloc allocates memory in WASM heap and returns the pointer.
func (e *Engine) Alloc(ctx context.Context, size uint32) (uint32, error) {
	ptr, err := e.call(ctx, "qjs_alloc", uint64(size))
	if err != nil {
		return 0, err
	}
	if ptr == 0 {
		return 0, errors.New("WASM allocation failed")
	}
	return uint32(ptr), nil
}

// Free frees memory in WASM heap.
func (e *Engine) Free(ctx context.Context, ptr uint32) error {
	_, err := e.call(ctx, "qjs_free", uint64(ptr))
	return err
}

// WriteString writes a null-terminated string to WASM memory and returns the pointer.
func (e *Engine) WriteString(ctx context.Context, s string) (ptr uint32, err error) {
	sLen := len(s)
	ptr, err = e.Alloc(ctx, uint32(sLen+1))
	if err != nil {
		return 0, err
	}

	// For small strings, use pooled buffer to avoid allocation
	if sLen < 256 {
		bufPtr := getBuffer()
		*bufPtr = append((*bufPtr)[:0], s...)
		*bufPtr = append(*bufPtr, 0)
		ok := e.memory.Write(ptr, *bufPtr)
		putBuffer(bufPtr)
		if !ok {
			return 0, errors.New("failed to write string to WASM memory")
		}
	} else {
		data := make([]byte, sLen+1)
		copy(data, s)
		data[sLen] = 0
		if !e.memory.Write(ptr, data) {
			return 0, errors.New("failed to write string to WASM memory")
		}
	}
	return ptr, nil
}

// WriteBytes writes bytes to WASM memory and returns the pointer.
func (e *Engine) WriteBytes(ctx context.Context, data []byte) (ptr uint32, err error) {
	ptr, err = e.Alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if !e.memory.Write(ptr, data) {
		return 0, errors.New("failed to write bytes to WASM memory")
	}
	return ptr, nil
}

// ReadCString reads a null-terminated string from WASM memory.
func (e *Engine) ReadCString(ptr, maxLen uint32) string {
	buf, ok := e.memory.Read(ptr, maxLen)
	if !ok {
		return ""
	}
	if idx := bytes.IndexByte(buf, 0); idx >= 0 {
		return string(buf[:idx])
	}
	return string(buf)
}

// ReadBytes reads bytes from WASM memory.
func (e *Engine) ReadBytes(ptr, length uint32) []byte {
	buf, ok := e.memory.Read(ptr, length)
	if !ok {
		return nil
	}
	result := make([]byte, length)
	copy(result, buf)
	return result
}

// Memory returns the WASM memory for direct access.
func (e *Engine) Memory() api.Memory {
	return e.memory
}

// writeArgv writes an argument pointer array to WASM memory.
func (e *Engine) writeArgv(ctx context.Context, args []uint32) (uint32, error) {
	if len(args) == 0 {
		return 0, nil
	}
	argvPtr, err := e.Alloc(ctx, uint32(len(args))*4)
	if err != nil {
		return 0, err
	}
	argBuf := make([]byte, len(args)*4)
	for i, arg := range args {
		binary.LittleEndian.PutUint32(argBuf[i*4:], arg)
	}
	if !e.memory.Write(argvPtr, argBuf) {
		return 0, errors.New("failed to write arguments to WASM memory")
	}
	return argvPtr, nil
}

// ============================================================================
// Runtime and Context Management
// ============================================================================

// NewRuntime creates a new JavaScript runtime.
func (e *Engine) NewRuntime(ctx context.Context) (uint32, error) {
	rtPtr, err := e.call(ctx, "qjs_new_runtime")
	if err != nil {
		return 0, err
	}
	if rtPtr == 0 {
		return 0, errors.New("failed to create JavaScript runtime")
	}
	return uint32(rtPtr), nil
}

// FreeRuntime frees a JavaScript runtime.
func (e *Engine) FreeRuntime(ctx context.Context, rtPtr uint32) error {
	_, err := e.call(ctx, "qjs_free_runtime", uint64(rtPtr))
	return err
}

// NewContext creates a new JavaScript context.
func (e *Engine) NewContext(ctx context.Context, rtPtr uint32) (uint32, error) {
	ctxPtr, err := e.call(ctx, "qjs_new_context", uint64(rtPtr))
	if err != nil {
		return 0, err
	}
	if ctxPtr == 0 {
		return 0, errors.New("failed to create JavaScript context")
	}
	return uint32(ctxPtr), nil
}

// FreeContext frees a JavaScript context.
func (e *Engine) FreeContext(ctx context.Context, ctxPtr uint32) error {
	_, err := e.call(ctx, "qjs_free_context", uint64(ctxPtr))
	return err
}

// GetRuntime gets the runtime from a context.
func (e *Engine) GetRuntime(ctx context.Context, ctxPtr uint32) (uint32, error) {
	rtPtr, err := e.call(ctx, "qjs_get_runtime", uint64(ctxPtr))
	return uint32(rtPtr), err
}

// AddConsole adds console.log and print functions to the context.
func (e *Engine) AddConsole(ctx context.Context, ctxPtr uint32) error {
	_, err := e.call(ctx, "qjs_std_add_console", uint64(ctxPtr))
	return err
}

// ============================================================================
// Evaluation
// ============================================================================

// Eval evaluates JavaScript code.
func (e *Engine) Eval(ctx context.Context, ctxPtr uint32, code, filename string, flags int32) (uint32, error) {
	codePtr, err := e.WriteString(ctx, code)
	if err != nil {
		return 0, err
	}

	var filenamePtr uint32
	if filename != "" {
		filenamePtr, err = e.WriteString(ctx, filename)
		if err != nil {
			return 0, err
		}
	}

	valPtr, err := e.call(ctx, "qjs_eval", uint64(ctxPtr), uint64(codePtr), uint64(len(code)), uint64(filenamePtr), uint64(flags))
	return uint32(valPtr), err
}

// EvalModule evaluates JavaScript module code.
func (e *Engine) EvalModule(ctx context.Context, ctxPtr uint32, code, filename string) (uint32, error) {
	codePtr, err := e.WriteString(ctx, code)
	if err != nil {
		return 0, err
	}

	var filenamePtr uint32
	if filename != "" {
		filenamePtr, err = e.WriteString(ctx, filename)
		if err != nil {
			return 0, err
		}
	}

	valPtr, err := e.call(ctx, "qjs_eval_module", uint64(ctxPtr), uint64(codePtr), uint64(len(code)), uint64(filenamePtr))
	return uint32(valPtr), err
}

// ============================================================================
// Type Checking
// ============================================================================

// isCheck invokes a unary predicate export against a value pointer.
func (e *Engine) isCheck(ctx context.Context, name string, valPtr uint32) (bool, error) {
	r, err := e.call(ctx, name, uint64(valPtr))
	if err != nil {
		return false, err
	}
	return r != 0, nil
}

func (e *Engine) IsException(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_exception", valPtr)
}

func (e *Engine) IsUndefined(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_undefined", valPtr)
}

func (e *Engine) IsNull(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_null", valPtr)
}

func (e *Engine) IsBool(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_bool", valPtr)
}

func (e *Engine) IsNumber(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_number", valPtr)
}

func (e *Engine) IsString(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_string", valPtr)
}

func (e *Engine) IsSymbol(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_symbol", valPtr)
}

func (e *Engine) IsObject(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_object", valPtr)
}

func (e *Engine) IsFunction(ctx context.Context, ctxPtr, valPtr uint32) (bool, error) {
	r, err := e.call(ctx, "qjs_is_function", uint64(ctxPtr), uint64(valPtr))
	if err != nil {
		return false, err
	}
	return r != 0, nil
}

func (e *Engine) IsArray(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_array", valPtr)
}

func (e *Engine) IsError(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_error", valPtr)
}

func (e *Engine) IsBigInt(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_big_int", valPtr)
}

func (e *Engine) IsDate(ctx context.Context, valPtr uint32) (bool, error) {
	return e.isCheck(ctx, "qjs_is_date", valPtr)
}

func (e *Engine) IsPromise(ctx context.Context, ctxPtr, valPtr uint32) (bool, error) {
	r, err := e.call(ctx, "qjs_is_promise", uint64(ctxPtr), uint64(valPtr))
	if err != nil {
		return false, err
	}
	return r != 0, nil
}

// ============================================================================
// Value Conversion
// ============================================================================

func (e *Engine) ToBool(ctx context.Context, ctxPtr, valPtr uint32) (bool, error) {
	r, err := e.call(ctx, "qjs_to_bool", uint64(ctxPtr), uint64(valPtr))
	if err != nil {
		return false, err
	}
	return int32(r) > 0, nil
}

func (e *Engine) ToInt32(ctx context.Context, ctxPtr, valPtr uint32) (int32, error) {
	resultPtr, err := e.Alloc(ctx, 4)
	if err != nil {
		return 0, err
	}

	r, err := e.call(ctx, "qjs_to_int32", uint64(ctxPtr), uint64(valPtr), uint64(resultPtr))
	if err != nil {
		return 0, err
	}
	if int32(r) != 0 {
		return 0, errors.New("ToInt32 conversion failed")
	}

	buf, ok := e.memory.Read(resultPtr, 4)
	if !ok {
		return 0, errors.New("failed to read result from WASM memory")
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

func (e *Engine) ToInt64(ctx context.Context, ctxPtr, valPtr uint32) (int64, error) {
	resultPtr, err := e.Alloc(ctx, 8)
	if err != nil {
		return 0, err
	}

	r, err := e.call(ctx, "qjs_to_int64", uint64(ctxPtr), uint64(valPtr), uint64(resultPtr))
	if err != nil {
		return 0, err
	}
	if int32(r) != 0 {
		return 0, errors.New("ToInt64 conversion failed")
	}

	buf, ok := e.memory.Read(resultPtr, 8)
	if !ok {
		return 0, errors.New("failed to read result from WASM memory")
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

func (e *Engine) ToFloat64(ctx context.Context, ctxPtr, valPtr uint32) (float64, error) {
	resultPtr, err := e.Alloc(ctx, 8)
	if err != nil {
		return 0, err
	}

	r, err := e.call(ctx, "qjs_to_float64", uint64(ctxPtr), uint64(valPtr), uint64(resultPtr))
	if err != nil {
		return 0, err
	}
	if int32(r) != 0 {
		return 0, errors.New("ToFloat64 conversion failed")
	}

	buf, ok := e.memory.Read(resultPtr, 8)
	if !ok {
		return 0, errors.New("failed to read result from WASM memory")
	}
	bits := binary.LittleEndian.Uint64(buf)
	return math.Float64frombits(bits), nil
}

func (e *Engine) ToString(ctx context.Context, ctxPtr, valPtr uint32) (string, error) {
	r, err := e.call(ctx, "qjs_to_cstring", uint64(ctxPtr), uint64(valPtr))
	if err != nil {
		return "", err
	}
	strPtr := uint32(r)
	if strPtr == 0 {
		return "", nil
	}

	// Read the string (up to 64KB)
	str := e.ReadCString(strPtr, 65536)

	_, _ = e.call(ctx, "qjs_free_cstring", uint64(ctxPtr), uint64(strPtr))

	return str, nil
}

// ============================================================================
// Value Creation
// ============================================================================

func (e *Engine) NewUndefined(ctx context.Context) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_undefined")
	return uint32(r), err
}

func (e *Engine) NewNull(ctx context.Context) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_null")
	return uint32(r), err
}

func (e *Engine) NewBool(ctx context.Context, val bool) (uint32, error) {
	v := int32(0)
	if val {
		v = 1
	}
	r, err := e.call(ctx, "qjs_new_bool", uint64(v))
	return uint32(r), err
}

func (e *Engine) NewInt32(ctx context.Context, val int32) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_int32", uint64(val))
	return uint32(r), err
}

func (e *Engine) NewInt64(ctx context.Context, ctxPtr uint32, val int64) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_int64", uint64(ctxPtr), uint64(val))
	return uint32(r), err
}

func (e *Engine) NewFloat64(ctx context.Context, val float64) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_float64", math.Float64bits(val))
	return uint32(r), err
}

func (e *Engine) NewString(ctx context.Context, ctxPtr uint32, s string) (uint32, error) {
	strPtr, err := e.WriteString(ctx, s)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_new_string", uint64(ctxPtr), uint64(strPtr))
	return uint32(r), err
}

func (e *Engine) NewStringLen(ctx context.Context, ctxPtr uint32, s string) (uint32, error) {
	strPtr, err := e.WriteString(ctx, s)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_new_string_len", uint64(ctxPtr), uint64(strPtr), uint64(len(s)))
	return uint32(r), err
}

// ============================================================================
// Object Operations
// ============================================================================

func (e *Engine) NewObject(ctx context.Context, ctxPtr uint32) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_object", uint64(ctxPtr))
	return uint32(r), err
}

func (e *Engine) NewArray(ctx context.Context, ctxPtr uint32) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_array", uint64(ctxPtr))
	return uint32(r), err
}

func (e *Engine) GetProperty(ctx context.Context, ctxPtr, objPtr uint32, prop string) (uint32, error) {
	propPtr, err := e.WriteString(ctx, prop)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_get_property", uint64(ctxPtr), uint64(objPtr), uint64(propPtr))
	return uint32(r), err
}

func (e *Engine) SetProperty(ctx context.Context, ctxPtr, objPtr uint32, prop string, valPtr uint32) error {
	propPtr, err := e.WriteString(ctx, prop)
	if err != nil {
		return err
	}
	r, err := e.call(ctx, "qjs_set_property", uint64(ctxPtr), uint64(objPtr), uint64(propPtr), uint64(valPtr))
	if err != nil {
		return err
	}
	if int32(r) < 0 {
		return errors.New("failed to set property")
	}
	return nil
}

func (e *Engine) HasProperty(ctx context.Context, ctxPtr, objPtr uint32, prop string) (bool, error) {
	propPtr, err := e.WriteString(ctx, prop)
	if err != nil {
		return false, err
	}
	r, err := e.call(ctx, "qjs_has_property", uint64(ctxPtr), uint64(objPtr), uint64(propPtr))
	if err != nil {
		return false, err
	}
	return int32(r) > 0, nil
}

func (e *Engine) DeleteProperty(ctx context.Context, ctxPtr, objPtr uint32, prop string) error {
	propPtr, err := e.WriteString(ctx, prop)
	if err != nil {
		return err
	}
	r, err := e.call(ctx, "qjs_delete_property", uint64(ctxPtr), uint64(objPtr), uint64(propPtr))
	if err != nil {
		return err
	}
	if int32(r) < 0 {
		return errors.New("failed to delete property")
	}
	return nil
}

func (e *Engine) GetPropertyUint32(ctx context.Context, ctxPtr, objPtr, idx uint32) (uint32, error) {
	r, err := e.call(ctx, "qjs_get_property_uint32", uint64(ctxPtr), uint64(objPtr), uint64(idx))
	return uint32(r), err
}

func (e *Engine) SetPropertyUint32(ctx context.Context, ctxPtr, objPtr, idx, valPtr uint32) error {
	r, err := e.call(ctx, "qjs_set_property_uint32", uint64(ctxPtr), uint64(objPtr), uint64(idx), uint64(valPtr))
	if err != nil {
		return err
	}
	if int32(r) < 0 {
		return errors.New("failed to set property by index")
	}
	return nil
}

func (e *Engine) GetGlobalObject(ctx context.Context, ctxPtr uint32) (uint32, error) {
	r, err := e.call(ctx, "qjs_get_global_object", uint64(ctxPtr))
	return uint32(r), err
}

// ============================================================================
// Function Calling
// ============================================================================

func (e *Engine) Call(ctx context.Context, ctxPtr, funcPtr, thisPtr uint32, args []uint32) (uint32, error) {
	argvPtr, err := e.writeArgv(ctx, args)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_call", uint64(ctxPtr), uint64(funcPtr), uint64(thisPtr), uint64(len(args)), uint64(argvPtr))
	return uint32(r), err
}

func (e *Engine) CallConstructor(ctx context.Context, ctxPtr, funcPtr uint32, args []uint32) (uint32, error) {
	argvPtr, err := e.writeArgv(ctx, args)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_call_constructor", uint64(ctxPtr), uint64(funcPtr), uint64(len(args)), uint64(argvPtr))
	return uint32(r), err
}

func (e *Engine) Invoke(ctx context.Context, ctxPtr, objPtr uint32, method string, args []uint32) (uint32, error) {
	methodPtr, err := e.WriteString(ctx, method)
	if err != nil {
		return 0, err
	}
	argvPtr, err := e.writeArgv(ctx, args)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_invoke", uint64(ctxPtr), uint64(objPtr), uint64(methodPtr), uint64(len(args)), uint64(argvPtr))
	return uint32(r), err
}

// ============================================================================
// Exception Handling
// ============================================================================

func (e *Engine) GetException(ctx context.Context, ctxPtr uint32) (uint32, error) {
	r, err := e.call(ctx, "qjs_get_exception", uint64(ctxPtr))
	return uint32(r), err
}

func (e *Engine) HasException(ctx context.Context, ctxPtr uint32) (bool, error) {
	r, err := e.call(ctx, "qjs_has_exception", uint64(ctxPtr))
	if err != nil {
		return false, err
	}
	return r != 0, nil
}

func (e *Engine) ThrowError(ctx context.Context, ctxPtr uint32, msg string) (uint32, error) {
	msgPtr, err := e.WriteString(ctx, msg)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_throw_error", uint64(ctxPtr), uint64(msgPtr))
	return uint32(r), err
}

func (e *Engine) ThrowTypeError(ctx context.Context, ctxPtr uint32, msg string) (uint32, error) {
	msgPtr, err := e.WriteString(ctx, msg)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_throw_type_error", uint64(ctxPtr), uint64(msgPtr))
	return uint32(r), err
}

func (e *Engine) GetErrorMessage(ctx context.Context, ctxPtr, errPtr uint32) (string, error) {
	bufPtr, err := e.Alloc(ctx, 1024)
	if err != nil {
		return "", err
	}

	r, err := e.call(ctx, "qjs_get_error_message", uint64(ctxPtr), uint64(errPtr), uint64(bufPtr), 1024)
	if err != nil {
		return "", err
	}
	msgLen := uint32(r)

	return e.ReadCString(bufPtr, msgLen+1), nil
}

func (e *Engine) GetErrorStack(ctx context.Context, ctxPtr, errPtr uint32) (string, error) {
	r, err := e.call(ctx, "qjs_get_error_stack", uint64(ctxPtr), uint64(errPtr))
	if err != nil {
		return "", err
	}
	return e.ToString(ctx, ctxPtr, uint32(r))
}

// ============================================================================
// Value Management
// ============================================================================

func (e *Engine) DupValue(ctx context.Context, ctxPtr, valPtr uint32) (uint32, error) {
	r, err := e.call(ctx, "qjs_dup_value", uint64(ctxPtr), uint64(valPtr))
	return uint32(r), err
}

func (e *Engine) FreeValue(ctx context.Context, ctxPtr, valPtr uint32) error {
	_, err := e.call(ctx, "qjs_free_value", uint64(ctxPtr), uint64(valPtr))
	return err
}

// StrictEq reports whether two values are strictly equal (===).
func (e *Engine) StrictEq(ctx context.Context, ctxPtr, aPtr, bPtr uint32) (bool, error) {
	r, err := e.call(ctx, "qjs_strict_eq", uint64(aPtr), uint64(bPtr))
	if err != nil {
		return false, err
	}
	return int32(r) > 0, nil
}

// ============================================================================
// JSON
// ============================================================================

func (e *Engine) JSONParse(ctx context.Context, ctxPtr uint32, json string) (uint32, error) {
	jsonPtr, err := e.WriteString(ctx, json)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_json_parse", uint64(ctxPtr), uint64(jsonPtr), uint64(len(json)))
	return uint32(r), err
}

func (e *Engine) JSONStringify(ctx context.Context, ctxPtr, valPtr uint32) (string, error) {
	r, err := e.call(ctx, "qjs_json_stringify", uint64(ctxPtr), uint64(valPtr))
	if err != nil {
		return "", err
	}
	return e.ToString(ctx, ctxPtr, uint32(r))
}

// ============================================================================
// Garbage Collection and Jobs
// ============================================================================

func (e *Engine) RunGC(ctx context.Context, rtPtr uint32) error {
	_, err := e.call(ctx, "qjs_run_gc", uint64(rtPtr))
	return err
}

func (e *Engine) ExecutePendingJobs(ctx context.Context, rtPtr uint32) (int32, error) {
	r, err := e.call(ctx, "qjs_execute_pending_jobs", uint64(rtPtr))
	if err != nil {
		return -1, err
	}
	return int32(r), nil
}

// ============================================================================
// BigInt
// ============================================================================

func (e *Engine) NewBigInt64(ctx context.Context, ctxPtr uint32, val int64) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_big_int64", uint64(ctxPtr), uint64(val))
	return uint32(r), err
}

func (e *Engine) NewBigUint64(ctx context.Context, ctxPtr uint32, val uint64) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_big_uint64", uint64(ctxPtr), val)
	return uint32(r), err
}

func (e *Engine) ToBigInt64(ctx context.Context, ctxPtr, valPtr uint32) (int64, error) {
	resultPtr, err := e.Alloc(ctx, 8)
	if err != nil {
		return 0, err
	}

	r, err := e.call(ctx, "qjs_to_big_int64", uint64(ctxPtr), uint64(valPtr), uint64(resultPtr))
	if err != nil {
		return 0, err
	}
	if int32(r) != 0 {
		return 0, errors.New("ToBigInt64 conversion failed")
	}

	buf, ok := e.memory.Read(resultPtr, 8)
	if !ok {
		return 0, errors.New("failed to read result from WASM memory")
	}
	return int64(binary.LittleEndian.Uint64(buf)), nil
}

// ============================================================================
// Date
// ============================================================================

func (e *Engine) NewDate(ctx context.Context, ctxPtr uint32, epochMs float64) (uint32, error) {
	r, err := e.call(ctx, "qjs_new_date", uint64(ctxPtr), math.Float64bits(epochMs))
	return uint32(r), err
}

// ============================================================================
// Type Operations
// ============================================================================

func (e *Engine) Instanceof(ctx context.Context, ctxPtr, valPtr, ctorPtr uint32) (bool, error) {
	r, err := e.call(ctx, "qjs_instanceof", uint64(ctxPtr), uint64(valPtr), uint64(ctorPtr))
	if err != nil {
		return false, err
	}
	return int32(r) > 0, nil
}

func (e *Engine) Typeof(ctx context.Context, ctxPtr, valPtr uint32) (string, error) {
	r, err := e.call(ctx, "qjs_typeof", uint64(ctxPtr), uint64(valPtr))
	if err != nil {
		return "", err
	}
	return e.ToString(ctx, ctxPtr, uint32(r))
}

// ============================================================================
// ArrayBuffer
// ============================================================================

func (e *Engine) NewArrayBuffer(ctx context.Context, ctxPtr uint32, data []byte) (uint32, error) {
	var dataPtr uint32
	if len(data) > 0 {
		var err error
		dataPtr, err = e.WriteBytes(ctx, data)
		if err != nil {
			return 0, err
		}
	}
	r, err := e.call(ctx, "qjs_new_array_buffer", uint64(ctxPtr), uint64(dataPtr), uint64(len(data)))
	return uint32(r), err
}

func (e *Engine) GetArrayBuffer(ctx context.Context, ctxPtr, valPtr uint32) ([]byte, error) {
	lenPtr, err := e.Alloc(ctx, 4)
	if err != nil {
		return nil, err
	}

	r, err := e.call(ctx, "qjs_get_array_buffer", uint64(ctxPtr), uint64(valPtr), uint64(lenPtr))
	if err != nil {
		return nil, err
	}
	bufPtr := uint32(r)
	if bufPtr == 0 {
		return nil, errors.New("not an ArrayBuffer")
	}

	lenBuf, ok := e.memory.Read(lenPtr, 4)
	if !ok {
		return nil, errors.New("failed to read length")
	}
	length := binary.LittleEndian.Uint32(lenBuf)

	return e.ReadBytes(bufPtr, length), nil
}

// ============================================================================
// C Function Binding (for Go callbacks)
// ============================================================================

// RegisterGoFunc registers a Go function and returns its function ID.
func (e *Engine) RegisterGoFunc(fn GoFunc) uint32 {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()

	funcID := e.nextFuncID
	e.nextFuncID++
	e.callbacks[funcID] = fn
	return funcID
}

// UnregisterGoFunc removes a registered Go function.
func (e *Engine) UnregisterGoFunc(funcID uint32) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()
	delete(e.callbacks, funcID)
}

// NewCFunction creates a new JavaScript function that calls back to Go.
func (e *Engine) NewCFunction(ctx context.Context, ctxPtr, funcID uint32, name string, argCount int32) (uint32, error) {
	namePtr, err := e.WriteString(ctx, name)
	if err != nil {
		return 0, err
	}
	r, err := e.call(ctx, "qjs_new_c_function", uint64(ctxPtr), uint64(funcID), uint64(namePtr), uint64(argCount))
	return uint32(r), err
}

// ============================================================================
// Runtime Configuration
// ============================================================================

func (e *Engine) SetMemoryLimit(ctx context.Context, rtPtr, limit uint32) error {
	_, err := e.call(ctx, "qjs_set_memory_limit", uint64(rtPtr), uint64(limit))
	return err
}

func (e *Engine) SetMaxStackSize(ctx context.Context, rtPtr, stackSize uint32) error {
	_, err := e.call(ctx, "qjs_set_max_stack_size", uint64(rtPtr), uint64(stackSize))
	return err
}

// ============================================================================
// Memory Info
// ============================================================================

func (e *Engine) GetHeapPtr(ctx context.Context) (uint32, error) {
	r, err := e.call(ctx, "qjs_get_heap_ptr")
	return uint32(r), err
}

func (e *Engine) GetHeapSize(ctx context.Context) (uint32, error) {
	r, err := e.call(ctx, "qjs_get_heap_size")
	return uint32(r), err
}

func (e *Engine) ResetHeap(ctx context.Context) error {
	_, err := e.call(ctx, "qjs_reset_heap")
	return err
}
