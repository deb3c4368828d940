package abi

import "fmt"

// ReturnVariant is the discriminant of a CommandReturn.
type ReturnVariant uint32

const (
	Failure          ReturnVariant = 0
	FailureU32       ReturnVariant = 1
	FailureU32U32    ReturnVariant = 2
	FailureU64       ReturnVariant = 3
	Success          ReturnVariant = 128
	SuccessU32       ReturnVariant = 129
	SuccessU32U32    ReturnVariant = 130
	SuccessU64       ReturnVariant = 131
	SuccessU32U32U32 ReturnVariant = 132
	SuccessU32U64    ReturnVariant = 133
)

var variantNames = map[ReturnVariant]string{
	Failure:          "Failure",
	FailureU32:       "FailureU32",
	FailureU32U32:    "FailureU32U32",
	FailureU64:       "FailureU64",
	Success:          "Success",
	SuccessU32:       "SuccessU32",
	SuccessU32U32:    "SuccessU32U32",
	SuccessU64:       "SuccessU64",
	SuccessU32U32U32: "SuccessU32U32U32",
	SuccessU32U64:    "SuccessU32U64",
}

func (v ReturnVariant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("ReturnVariant(%d)", uint32(v))
}

// IsSuccess reports whether v is one of the success variants.
func (v ReturnVariant) IsSuccess() bool {
	return v >= Success
}

// CommandReturn is the value returned by command and memop.
//
// For failure variants R1 holds the ErrorCode and R2/R3 hold any extra
// payload. For success variants R1..R3 hold the payload in order.
type CommandReturn struct {
	Variant ReturnVariant
	R1      uint32
	R2      uint32
	R3      uint32
}

// ReturnSuccess returns a success with no payload.
func ReturnSuccess() CommandReturn {
	return CommandReturn{Variant: Success}
}

// ReturnSuccessU32 returns a success carrying one register.
func ReturnSuccessU32(v uint32) CommandReturn {
	return CommandReturn{Variant: SuccessU32, R1: v}
}

// ReturnSuccessU32U32 returns a success carrying two registers.
func ReturnSuccessU32U32(a, b uint32) CommandReturn {
	return CommandReturn{Variant: SuccessU32U32, R1: a, R2: b}
}

// ReturnSuccessU32U32U32 returns a success carrying three registers.
func ReturnSuccessU32U32U32(a, b, c uint32) CommandReturn {
	return CommandReturn{Variant: SuccessU32U32U32, R1: a, R2: b, R3: c}
}

// ReturnSuccessU64 returns a success carrying a 64-bit value split low/high.
func ReturnSuccessU64(v uint64) CommandReturn {
	return CommandReturn{Variant: SuccessU64, R1: uint32(v), R2: uint32(v >> 32)}
}

// ReturnSuccessU32U64 returns a success carrying a 32-bit and a 64-bit value.
func ReturnSuccessU32U64(a uint32, b uint64) CommandReturn {
	return CommandReturn{Variant: SuccessU32U64, R1: a, R2: uint32(b), R3: uint32(b >> 32)}
}

// ReturnFailure returns a failure with only an error code.
func ReturnFailure(code ErrorCode) CommandReturn {
	return CommandReturn{Variant: Failure, R1: uint32(code)}
}

// ReturnFailureU32 returns a failure with an error code and one register.
func ReturnFailureU32(code ErrorCode, v uint32) CommandReturn {
	return CommandReturn{Variant: FailureU32, R1: uint32(code), R2: v}
}

// ReturnFailureU32U32 returns a failure with an error code and two registers.
func ReturnFailureU32U32(code ErrorCode, a, b uint32) CommandReturn {
	return CommandReturn{Variant: FailureU32U32, R1: uint32(code), R2: a, R3: b}
}

// ReturnFailureU64 returns a failure with an error code and a 64-bit value.
func ReturnFailureU64(code ErrorCode, v uint64) CommandReturn {
	return CommandReturn{Variant: FailureU64, R1: uint32(code), R2: uint32(v), R3: uint32(v >> 32)}
}

// IsSuccess reports whether the return is any success variant.
func (r CommandReturn) IsSuccess() bool {
	return r.Variant.IsSuccess()
}

// IsFailure reports whether the return is any failure variant.
func (r CommandReturn) IsFailure() bool {
	return !r.Variant.IsSuccess()
}

// Err returns the error code of a failure variant.
func (r CommandReturn) Err() (ErrorCode, bool) {
	if r.IsSuccess() {
		return 0, false
	}
	return ErrorCode(r.R1), true
}

// U32 returns the payload of a SuccessU32.
func (r CommandReturn) U32() (uint32, bool) {
	if r.Variant != SuccessU32 {
		return 0, false
	}
	return r.R1, true
}

// U32U32 returns the payload of a SuccessU32U32.
func (r CommandReturn) U32U32() (uint32, uint32, bool) {
	if r.Variant != SuccessU32U32 {
		return 0, 0, false
	}
	return r.R1, r.R2, true
}

// U64 returns the payload of a SuccessU64.
func (r CommandReturn) U64() (uint64, bool) {
	if r.Variant != SuccessU64 {
		return 0, false
	}
	return uint64(r.R1) | uint64(r.R2)<<32, true
}

// Result collapses a command that is expected to return Success into an
// error. Any success variant other than Success yields ErrBadRVal.
func (r CommandReturn) Result() error {
	switch {
	case r.Variant == Success:
		return nil
	case r.IsFailure():
		return ErrorCode(r.R1)
	default:
		return ErrBadRVal
	}
}

func (r CommandReturn) String() string {
	switch r.Variant {
	case Success:
		return "Success"
	case Failure:
		return fmt.Sprintf("Failure(%s)", ErrorCode(r.R1))
	case SuccessU32:
		return fmt.Sprintf("SuccessU32(%d)", r.R1)
	case SuccessU32U32:
		return fmt.Sprintf("SuccessU32U32(%d, %d)", r.R1, r.R2)
	case SuccessU32U32U32:
		return fmt.Sprintf("SuccessU32U32U32(%d, %d, %d)", r.R1, r.R2, r.R3)
	case SuccessU64:
		v, _ := r.U64()
		return fmt.Sprintf("SuccessU64(%d)", v)
	case SuccessU32U64:
		return fmt.Sprintf("SuccessU32U64(%d, %d)", r.R1, uint64(r.R2)|uint64(r.R3)<<32)
	case FailureU32:
		return fmt.Sprintf("FailureU32(%s, %d)", ErrorCode(r.R1), r.R2)
	case FailureU32U32:
		return fmt.Sprintf("FailureU32U32(%s, %d, %d)", ErrorCode(r.R1), r.R2, r.R3)
	case FailureU64:
		return fmt.Sprintf("FailureU64(%s, %d)", ErrorCode(r.R1), uint64(r.R2)|uint64(r.R3)<<32)
	default:
		return fmt.Sprintf("CommandReturn{%d, %d, %d, %d}", uint32(r.Variant), r.R1, r.R2, r.R3)
	}
}
