package guest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/dayofthepenguin/vulcan"
	"github.com/dayofthepenguin/vulcan/binding"
)

// testCtx is an arbitrary, non-default context. Non-nil also prevents linter errors.
var testCtx = context.WithValue(context.Background(), struct{}{}, "arbitrary")

func newClient(t *testing.T, r wazero.Runtime) *Client {
	t.Helper()
	c, err := Instantiate(testCtx, r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(testCtx) })
	return c
}

func newRuntime(t *testing.T) wazero.Runtime {
	t.Helper()
	r := wazero.NewRuntime(testCtx)
	t.Cleanup(func() { _ = r.Close(testCtx) })
	binding.MustInstantiate(testCtx, r)
	return r
}

func TestClient_SumAsString(t *testing.T) {
	c := newClient(t, newRuntime(t))

	tests := []struct {
		a, b     uint64
		expected string
	}{
		{a: 0, b: 0, expected: "0"},
		{a: 2, b: 3, expected: "5"},
		{a: 3, b: 2, expected: "5"},
		{a: 1234, b: 0, expected: "1234"},
		{a: math.MaxUint64, b: 0, expected: "18446744073709551615"},
		{a: math.MaxUint64 - 1, b: 1, expected: "18446744073709551615"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.expected, func(t *testing.T) {
			actual, err := c.SumAsString(testCtx, tc.a, tc.b)
			require.NoError(t, err)
			require.Equal(t, tc.expected, actual)

			// Matches the function called directly.
			direct, err := vulcan.SumAsString(tc.a, tc.b)
			require.NoError(t, err)
			require.Equal(t, direct, actual)
		})
	}
}

func TestClient_SumAsString_MatchesDirectCall(t *testing.T) {
	c := newClient(t, newRuntime(t))

	// Operands span both fitting and overflowing sums.
	sameAsDirect := func(a, b uint64) bool {
		expected, expectedErr := vulcan.SumAsString(a, b)
		actual, err := c.SumAsString(testCtx, a, b)
		if expectedErr != nil {
			return actual == "" && errors.Is(err, vulcan.ErrOverflow)
		}
		return err == nil && actual == expected
	}

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, quick.Check(func(a, b uint64) bool {
			if !sameAsDirect(a, b) {
				return false
			}
			if a > math.MaxUint64-b {
				return true
			}
			s, err := c.SumAsString(testCtx, a, b)
			if err != nil {
				return false
			}
			parsed, err := strconv.ParseUint(s, 10, 64)
			return err == nil && parsed == a+b
		}, nil))
	})

	t.Run("commutative", func(t *testing.T) {
		require.NoError(t, quick.Check(func(a, b uint64) bool {
			ab, errAB := c.SumAsString(testCtx, a, b)
			ba, errBA := c.SumAsString(testCtx, b, a)
			return ab == ba && (errAB == nil) == (errBA == nil)
		}, nil))
	})

	t.Run("zero is the identity", func(t *testing.T) {
		require.NoError(t, quick.Check(func(a uint64) bool {
			s, err := c.SumAsString(testCtx, a, 0)
			return err == nil && s == strconv.FormatUint(a, 10)
		}, nil))
	})
}

func TestClient_SumAsString_Overflow(t *testing.T) {
	c := newClient(t, newRuntime(t))

	actual, err := c.SumAsString(testCtx, math.MaxUint64, 1)
	require.ErrorIs(t, err, vulcan.ErrOverflow)
	require.Empty(t, actual)

	// A failure doesn't poison later calls.
	actual, err = c.SumAsString(testCtx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, "5", actual)
}

func TestClient_SumAsString_ShorterResultAfterLonger(t *testing.T) {
	c := newClient(t, newRuntime(t))

	long, err := c.SumAsString(testCtx, math.MaxUint64, 0)
	require.NoError(t, err)
	require.Equal(t, "18446744073709551615", long)

	// Stale digits in the scratch area must not leak into the result.
	short, err := c.SumAsString(testCtx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, "2", short)
}

func TestInstantiate_MissingHostModule(t *testing.T) {
	r := wazero.NewRuntime(testCtx)
	defer r.Close(testCtx)

	_, err := Instantiate(testCtx, r)
	require.Error(t, err)
	require.Contains(t, err.Error(), "error instantiating guest")
}

func TestInstantiate_ManyClients(t *testing.T) {
	r := newRuntime(t)

	const goroutines = 8
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		c := newClient(t, r)
		wg.Add(1)
		go func(i uint64, c *Client) {
			defer wg.Done()
			for j := uint64(0); j < 100; j++ {
				s, err := c.SumAsString(testCtx, i, j)
				if err != nil {
					errs <- err
					return
				}
				if s != strconv.FormatUint(i+j, 10) {
					errs <- fmt.Errorf("%d + %d = %s", i, j, s)
					return
				}
			}
		}(uint64(i), c)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

// sink prevents the compiler from eliding the benchmarked calls.
var sink string

func BenchmarkSumAsString(b *testing.B) {
	b.Run("native", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			sink, _ = vulcan.SumAsString(uint64(i), 2)
		}
	})

	b.Run("host binding", func(b *testing.B) {
		r := wazero.NewRuntime(testCtx)
		defer r.Close(testCtx)
		binding.MustInstantiate(testCtx, r)
		c, err := Instantiate(testCtx, r)
		if err != nil {
			b.Fatal(err)
		}

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if sink, err = c.SumAsString(testCtx, uint64(i), 2); err != nil {
				b.Fatal(err)
			}
		}
	})
}
