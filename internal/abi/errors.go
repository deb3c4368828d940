package abi

import (
	"fmt"
	"strings"
)

// ErrorCode is a kernel-level error code returned in the first payload
// register of a failure variant.
// Zero is reserved for "no error" and is never a valid ErrorCode.
type ErrorCode uint32

const (
	ErrFail        ErrorCode = 1
	ErrBusy        ErrorCode = 2
	ErrAlready     ErrorCode = 3
	ErrOff         ErrorCode = 4
	ErrReserve     ErrorCode = 5
	ErrInvalid     ErrorCode = 6
	ErrSize        ErrorCode = 7
	ErrCancel      ErrorCode = 8
	ErrNoMem       ErrorCode = 9
	ErrNoSupport   ErrorCode = 10
	ErrNoDevice    ErrorCode = 11
	ErrUninstalled ErrorCode = 12
	ErrNoAck       ErrorCode = 13

	// ErrBadRVal is returned when the kernel produced a variant the
	// caller did not expect for this driver/command pair.
	ErrBadRVal ErrorCode = 1024
)

var errorCodeNames = map[ErrorCode]string{
	ErrFail:        "FAIL",
	ErrBusy:        "BUSY",
	ErrAlready:     "ALREADY",
	ErrOff:         "OFF",
	ErrReserve:     "RESERVE",
	ErrInvalid:     "INVAL",
	ErrSize:        "SIZE",
	ErrCancel:      "CANCEL",
	ErrNoMem:       "NOMEM",
	ErrNoSupport:   "NOSUPPORT",
	ErrNoDevice:    "NODEVICE",
	ErrUninstalled: "UNINSTALLED",
	ErrNoAck:       "NOACK",
	ErrBadRVal:     "BADRVAL",
}

// String returns the kernel's short name for the code (e.g. "NOMEM").
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", uint32(c))
}

// Error implements the error interface so codes can be returned and
// compared with errors.Is by driver code.
func (c ErrorCode) Error() string {
	return "kernel error: " + c.String()
}

// Valid reports whether c is one of the defined error codes.
func (c ErrorCode) Valid() bool {
	_, ok := errorCodeNames[c]
	return ok
}

// ParseErrorCode maps a short name ("NOMEM", "nomem") back to its code.
func ParseErrorCode(name string) (ErrorCode, error) {
	for code, n := range errorCodeNames {
		if strings.EqualFold(n, name) {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown error code %q", name)
}
