package binding

import "strconv"

// Errno is the error code FunctionSumAsString returns to the guest.
//
// Note: ErrnoSuccess is a valid code, not an error. Errno is an alias so it
// converts directly to and from the i32 result on the wasm stack.
type Errno = uint32

const (
	// ErrnoSuccess No error occurred.
	ErrnoSuccess Errno = iota
	// ErrnoOverflow The sum does not fit in 64 bits.
	ErrnoOverflow
	// ErrnoRange result.buf_len is smaller than the number of digits.
	ErrnoRange
	// ErrnoFault result.buf or result.len is outside guest memory.
	ErrnoFault
)

var errnoToString = [...]string{
	"ESUCCESS",
	"EOVERFLOW",
	"ERANGE",
	"EFAULT",
}

// ErrnoName returns the POSIX style name of the code. Ex. ErrnoOverflow ->
// "EOVERFLOW"
func ErrnoName(errno Errno) string {
	if int(errno) < len(errnoToString) {
		return errnoToString[errno]
	}
	return "errno(" + strconv.FormatUint(uint64(errno), 10) + ")"
}

