// Package guest calls the "vulcan" host module from inside WebAssembly.
//
// Wasm is a tiny module that imports binding.FunctionSumAsString and
// re-exports it alongside its memory, so a Client can invoke the host function
// exactly as a compiled guest would.
package guest

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/dayofthepenguin/vulcan"
	"github.com/dayofthepenguin/vulcan/binding"
)

// Wasm was hand-assembled from guest.wat
//
//go:embed guest.wasm
var Wasm []byte

// Offsets in guest memory used as the result scratch area.
const (
	resultLenOffset = 0
	resultBufOffset = 8
)

// instances makes module names unique, so one runtime can hold many clients.
var instances atomic.Uint32

// Client calls binding.FunctionSumAsString through an instance of Wasm.
//
// A Client is not safe for concurrent use, as calls share a scratch area in
// guest memory. Instantiate one per goroutine instead.
type Client struct {
	mod api.Module
	fn  api.Function
}

// Instantiate instantiates Wasm into the runtime. The binding.ModuleName
// module must already be instantiated in r.
func Instantiate(ctx context.Context, r wazero.Runtime) (*Client, error) {
	name := fmt.Sprintf("vulcan-guest-%d", instances.Add(1))
	mod, err := r.InstantiateWithConfig(ctx, Wasm, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, fmt.Errorf("error instantiating guest: %w", err)
	}
	return &Client{mod: mod, fn: mod.ExportedFunction(binding.FunctionSumAsString)}, nil
}

// SumAsString is the same as vulcan.SumAsString, except the call crosses the
// host binding. Overflow is reported as vulcan.ErrOverflow.
func (c *Client) SumAsString(ctx context.Context, a, b uint64) (string, error) {
	results, err := c.fn.Call(ctx, a, b, resultBufOffset, vulcan.MaxDigits, resultLenOffset)
	if err != nil {
		return "", fmt.Errorf("error calling %s: %w", binding.FunctionSumAsString, err)
	}

	switch errno := binding.Errno(results[0]); errno {
	case binding.ErrnoSuccess:
	case binding.ErrnoOverflow:
		return "", fmt.Errorf("%d + %d: %w", a, b, vulcan.ErrOverflow)
	default:
		return "", fmt.Errorf("%s failed: %s", binding.FunctionSumAsString, binding.ErrnoName(errno))
	}

	mem := c.mod.Memory()
	n, ok := mem.ReadUint32Le(resultLenOffset)
	if !ok {
		return "", errors.New("result length out of range")
	}
	buf, ok := mem.Read(resultBufOffset, n)
	if !ok {
		return "", fmt.Errorf("result of length %d out of range", n)
	}
	return string(buf), nil // copy, as buf is a view of guest memory
}

// Close closes the guest instance.
func (c *Client) Close(ctx context.Context) error {
	return c.mod.Close(ctx)
}
