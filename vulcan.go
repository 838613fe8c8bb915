// Package vulcan formats the sum of two unsigned integers as decimal text.
//
// The function is pure and safe for concurrent use. It is exposed to
// WebAssembly guests by package binding, which registers it as the host
// function "vulcan.sum_as_string".
package vulcan

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

// MaxDigits is the length of the longest string SumAsString returns, which is
// the decimal form of math.MaxUint64.
const MaxDigits = 20

// ErrOverflow is returned when the sum of two operands does not fit in 64
// bits. Use errors.Is to detect it, as the returned error includes the
// operands.
var ErrOverflow = errors.New("arithmetic overflow")

// Add returns a + b, or ErrOverflow if the sum exceeds math.MaxUint64.
//
// The sum never wraps around.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%d + %d: %w", a, b, ErrOverflow)
	}
	return sum, nil
}

// SumAsString formats the sum of two numbers as string.
//
// The result is the canonical base-10 form: no sign, no leading zeros and no
// grouping. It fails with ErrOverflow instead of wrapping when the sum does
// not fit. Ex. SumAsString(2, 3) returns "5".
func SumAsString(a, b uint64) (string, error) {
	sum, err := Add(a, b)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(sum, 10), nil
}
