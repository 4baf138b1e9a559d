package memory

import (
	"context"
	"sync"

	"github.com/signetgate/signetgate/internal/port/outbound"
)

// InvokeFunc is the handler signature for a registered in-memory function.
type InvokeFunc func(payload []byte) (*outbound.InvokeResult, error)

// FunctionInvoker implements outbound.FunctionInvoker with registered Go
// functions. Thread-safe for concurrent access.
type FunctionInvoker struct {
	mu        sync.RWMutex
	functions map[string]InvokeFunc
	calls     map[string][][]byte
}

// NewFunctionInvoker creates an empty in-memory function invoker.
func NewFunctionInvoker() *FunctionInvoker {
	return &FunctionInvoker{
		functions: make(map[string]InvokeFunc),
		calls:     make(map[string][][]byte),
	}
}

// Register binds a handler to a function name.
func (f *FunctionInvoker) Register(name string, fn InvokeFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.functions[name] = fn
}

// Invoke dispatches to the registered handler, recording the payload.
// Unknown names return outbound.ErrFunctionNotFound.
func (f *FunctionInvoker) Invoke(ctx context.Context, functionName string, payload []byte) (*outbound.InvokeResult, error) {
	f.mu.Lock()
	fn, ok := f.functions[functionName]
	if ok {
		f.calls[functionName] = append(f.calls[functionName], payload)
	}
	f.mu.Unlock()

	if !ok {
		return nil, outbound.ErrFunctionNotFound
	}
	return fn(payload)
}

// Calls returns the payloads Invoke received for a function name.
func (f *FunctionInvoker) Calls(functionName string) [][]byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	calls := make([][]byte, len(f.calls[functionName]))
	copy(calls, f.calls[functionName])
	return calls
}
