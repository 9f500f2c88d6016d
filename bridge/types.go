package bridge

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode 错误码，与原生库 hudi_* 导出函数的返回值一一对应
type ErrorCode int32

const (
	CodeOK              ErrorCode = 0
	CodeUnknown         ErrorCode = 1
	CodeInvalidArgument ErrorCode = 2
	CodeAbiMismatch     ErrorCode = 3
	CodeTableNotFound   ErrorCode = 4
	CodeRead            ErrorCode = 5
	CodeArrowExport     ErrorCode = 6
	CodeUnsupported     ErrorCode = 7
	CodeOom             ErrorCode = 8
)

var codeNames = map[ErrorCode]string{
	CodeOK:              "ok",
	CodeUnknown:         "unknown",
	CodeInvalidArgument: "invalid argument",
	CodeAbiMismatch:     "abi mismatch",
	CodeTableNotFound:   "table not found",
	CodeRead:            "read failure",
	CodeArrowExport:     "arrow export",
	CodeUnsupported:     "unsupported",
	CodeOom:             "out of memory",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int32(c))
}

// NativeError is returned when a hudi_* export reports a non-zero status.
type NativeError struct {
	Code    ErrorCode
	Message string
}

func (e *NativeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("native bridge error: %s", e.Code)
	}
	return fmt.Sprintf("native bridge error (%s): %s", e.Code, e.Message)
}

var (
	// ErrCgoDisabled is returned by operations that touch C descriptors in a !cgo build.
	ErrCgoDisabled = errors.New("arrow C data interface requires cgo (set CGO_ENABLED=1)")

	// ErrLibraryNotFound is returned by LoadBridge when the shared library does not exist.
	ErrLibraryNotFound = errors.New("library not found")

	// ErrAbiMismatch is returned by LoadBridge when hudi_bridge_abi_version is not AbiVersion.
	ErrAbiMismatch = errors.New("ABI version mismatch")

	// ErrReleased is returned when a released Batch is read.
	ErrReleased = errors.New("batch already released")

	// ErrFormatMismatch is returned when a buffer is read under the wrong format tag.
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrMalformedArray is returned when an array's buffers contradict its length.
	ErrMalformedArray = errors.New("malformed array")
)

// AbiVersion is the only native ABI version this package speaks.
const AbiVersion = 1

// FormatInt32 is the C data interface format tag of a 32-bit signed integer.
const FormatInt32 = "i"

// LibPathEnv names the environment variable LoadBridge falls back to.
const LibPathEnv = "HUDI_BRIDGE_LIB"
