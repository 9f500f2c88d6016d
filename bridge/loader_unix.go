//go:build !windows
// +build !windows

package bridge

import (
	"os"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// Bridge Rust FFI 接口（hudi 原生库）
type Bridge struct {
	lib               uintptr
	abiVersion        func() uint32
	engineVersion     func(*uintptr, *uintptr) int32
	lastError         func(*uintptr, *uintptr) int32
	readFileSlice     func(*byte, uintptr, *uintptr, *uintptr) int32
	recordBatchesFree func(uintptr, uintptr)
	arrayFree         func(uintptr)
	schemaFree        func(uintptr)
}

// LoadBridge 加载动态库
func LoadBridge(libPath string) (*Bridge, error) {
	libPath, err := resolveLibPath(libPath)
	if err != nil {
		return nil, err
	}

	lib, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load library %s", libPath)
	}

	b := &Bridge{lib: lib}

	// 加载所有函数
	purego.RegisterLibFunc(&b.abiVersion, lib, "hudi_bridge_abi_version")
	purego.RegisterLibFunc(&b.engineVersion, lib, "hudi_engine_version")
	purego.RegisterLibFunc(&b.lastError, lib, "hudi_last_error")
	purego.RegisterLibFunc(&b.readFileSlice, lib, "hudi_read_file_slice")
	purego.RegisterLibFunc(&b.recordBatchesFree, lib, "hudi_record_batches_free")
	purego.RegisterLibFunc(&b.arrayFree, lib, "hudi_arrow_array_free")
	purego.RegisterLibFunc(&b.schemaFree, lib, "hudi_arrow_schema_free")

	// 验证 ABI 版本
	if abiVer := b.AbiVersion(); abiVer != AbiVersion {
		_ = purego.Dlclose(lib)
		return nil, errors.Wrapf(ErrAbiMismatch, "expected %d, got %d", AbiVersion, abiVer)
	}

	return b, nil
}

// resolveLibPath 优先级：参数 > 环境变量 > 可执行文件目录
func resolveLibPath(libPath string) (string, error) {
	if libPath == "" {
		libPath = os.Getenv(LibPathEnv)
		if libPath == "" {
			exePath, err := os.Executable()
			if err != nil {
				return "", errors.Wrap(err, "failed to get executable path")
			}
			libPath = filepath.Join(filepath.Dir(exePath), getLibName())
		}
	}

	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return "", errors.Wrap(ErrLibraryNotFound, libPath)
	}
	return libPath, nil
}

func getLibName() string {
	switch runtime.GOOS {
	case "windows":
		return "hudi_bridge.dll"
	case "darwin":
		return "libhudi_bridge.dylib"
	default:
		return "libhudi_bridge.so"
	}
}

// Close 卸载动态库。已经取出的 Batch 必须先全部释放。
func (b *Bridge) Close() error {
	if b == nil || b.lib == 0 {
		return nil
	}
	err := purego.Dlclose(b.lib)
	b.lib = 0
	return err
}

// AbiVersion 获取 ABI 版本
func (b *Bridge) AbiVersion() uint32 {
	return b.abiVersion()
}

// EngineVersion 获取引擎版本
func (b *Bridge) EngineVersion() (string, error) {
	var ptr uintptr
	var length uintptr
	ret := b.engineVersion(&ptr, &length)
	if ret != 0 {
		return "", b.getLastError(ret)
	}
	return ptrToString(ptr, int(length)), nil
}

// ReadFileSlice 调用 hudi_read_file_slice，返回的每个 Batch 归调用方所有。
// options 是 protobuf 编码的读取参数，可以为空。
// 调用方负责逐个 Release；Batch 释放时会通过原生库的 *_free 函数回收外层包装。
func (b *Bridge) ReadFileSlice(options []byte) ([]*Batch, error) {
	if !cgoEnabled {
		return nil, ErrCgoDisabled
	}

	var optionsPtr *byte
	if len(options) > 0 {
		optionsPtr = &options[0]
	}

	var vec uintptr
	var n uintptr
	ret := b.readFileSlice(optionsPtr, uintptr(len(options)), &vec, &n)
	runtime.KeepAlive(options)

	if ret != 0 {
		return nil, b.getLastError(ret)
	}

	batches := AdoptRecordBatches(vec, int(n), b.freeArray, b.freeSchema)
	if vec != 0 {
		b.recordBatchesFree(vec, n)
	}
	return batches, nil
}

func (b *Bridge) freeArray(array *ArrowArray) {
	b.arrayFree(uintptr(unsafe.Pointer(array)))
}

func (b *Bridge) freeSchema(schema *ArrowSchema) {
	b.schemaFree(uintptr(unsafe.Pointer(schema)))
}

func (b *Bridge) getLastError(code int32) error {
	var ptr uintptr
	var length uintptr
	b.lastError(&ptr, &length)

	return &NativeError{Code: ErrorCode(code), Message: ptrToString(ptr, int(length))}
}

func ptrToString(ptr uintptr, length int) string {
	if ptr == 0 || length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), length))
}
