// Package binding contains the Go-defined host module "vulcan", which exposes
// vulcan.SumAsString to WebAssembly guests.
//
// # Guest ABI
//
// Here's the import in a guest module, in WebAssembly 1.0 (MVP) Text Format:
//
//	(import "vulcan" "sum_as_string"
//	  (func $sum_as_string
//	    (param $a i64) (param $b i64)
//	    (param $result.buf i32) (param $result.buf_len i32)
//	    (param $result.len i32)
//	    (result (;errno;) i32)))
//
// On success, the decimal digits are written to memory at result.buf, their
// count is written as a little-endian uint32 at result.len and ErrnoSuccess is
// returned. On failure, memory is left untouched and the Errno says why.
// A result.buf_len of vulcan.MaxDigits is always large enough.
package binding

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/dayofthepenguin/vulcan"
)

const (
	// ModuleName is the module name guests import FunctionSumAsString from.
	ModuleName = "vulcan"

	// FunctionSumAsString is the export name of the host function.
	FunctionSumAsString = "sum_as_string"
)

const (
	i32, i64 = api.ValueTypeI32, api.ValueTypeI64
)

// MustInstantiate calls Instantiate or panics on error.
//
// This is a simpler function for those who know the module ModuleName is not
// already instantiated, and don't need to unload it.
func MustInstantiate(ctx context.Context, r wazero.Runtime) {
	if _, err := Instantiate(ctx, r); err != nil {
		panic(err)
	}
}

// Instantiate instantiates the ModuleName module into the runtime.
//
// # Notes
//
//   - Failure cases are documented on wazero.Runtime InstantiateModule.
//   - Closing the wazero.Runtime has the same effect as closing the result.
//   - To register the function under a different module name, use
//     FunctionExporter.
func Instantiate(ctx context.Context, r wazero.Runtime) (api.Closer, error) {
	builder := r.NewHostModuleBuilder(ModuleName)
	NewFunctionExporter().ExportFunctions(builder)
	return builder.Instantiate(ctx)
}

// FunctionExporter exports FunctionSumAsString into a host module builder.
//
// Use this when guests import the function from a module other than
// ModuleName, such as "env".
type FunctionExporter interface {
	// ExportFunctions adds FunctionSumAsString to the builder.
	ExportFunctions(wazero.HostModuleBuilder)
}

// NewFunctionExporter returns a FunctionExporter.
func NewFunctionExporter() FunctionExporter {
	return &functionExporter{}
}

type functionExporter struct{}

// ExportFunctions implements FunctionExporter.ExportFunctions
func (e *functionExporter) ExportFunctions(builder wazero.HostModuleBuilder) {
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(sumAsString),
			[]api.ValueType{i64, i64, i32, i32, i32},
			[]api.ValueType{i32}).
		WithParameterNames("a", "b", "result.buf", "result.buf_len", "result.len").
		WithResultNames("errno").
		Export(FunctionSumAsString)
}

// sumAsString implements FunctionSumAsString.
func sumAsString(_ context.Context, mod api.Module, stack []uint64) {
	a, b := stack[0], stack[1]
	buf := uint32(stack[2])
	bufLen := uint32(stack[3])
	resultLen := uint32(stack[4])

	stack[0] = uint64(writeSum(mod.Memory(), a, b, buf, bufLen, resultLen))
}

// writeSum writes the digits of a + b to mem, or returns the reason it could
// not without modifying mem.
func writeSum(mem api.Memory, a, b uint64, buf, bufLen, resultLen uint32) Errno {
	s, err := vulcan.SumAsString(a, b)
	if err != nil {
		return ErrnoOverflow
	}
	n := uint32(len(s))
	if n > bufLen {
		return ErrnoRange
	}
	if mem == nil {
		return ErrnoFault
	}

	// Validate both regions before writing either.
	if _, ok := mem.Read(resultLen, 4); !ok {
		return ErrnoFault
	}
	if _, ok := mem.Read(buf, n); !ok {
		return ErrnoFault
	}

	mem.Write(buf, []byte(s))
	mem.WriteUint32Le(resultLen, n)
	return ErrnoSuccess
}
