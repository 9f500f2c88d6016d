//go:build windows
// +build windows

package bridge

import (
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
)

// Bridge Rust FFI 接口（hudi 原生库）
type Bridge struct {
	lib               *syscall.DLL
	abiVersion        *syscall.Proc
	engineVersion     *syscall.Proc
	lastError         *syscall.Proc
	readFileSlice     *syscall.Proc
	recordBatchesFree *syscall.Proc
	arrayFree         *syscall.Proc
	schemaFree        *syscall.Proc
}

// LoadBridge 加载动态库
func LoadBridge(libPath string) (*Bridge, error) {
	libPath, err := resolveLibPath(libPath)
	if err != nil {
		return nil, err
	}

	lib, err := syscall.LoadDLL(libPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load library %s", libPath)
	}

	b := &Bridge{lib: lib}

	// 加载所有函数
	procs := []struct {
		dst  **syscall.Proc
		name string
	}{
		{&b.abiVersion, "hudi_bridge_abi_version"},
		{&b.engineVersion, "hudi_engine_version"},
		{&b.lastError, "hudi_last_error"},
		{&b.readFileSlice, "hudi_read_file_slice"},
		{&b.recordBatchesFree, "hudi_record_batches_free"},
		{&b.arrayFree, "hudi_arrow_array_free"},
		{&b.schemaFree, "hudi_arrow_schema_free"},
	}
	for _, p := range procs {
		if *p.dst, err = lib.FindProc(p.name); err != nil {
			_ = lib.Release()
			return nil, errors.Wrapf(err, "failed to find %s", p.name)
		}
	}

	// 验证 ABI 版本
	if abiVer := b.AbiVersion(); abiVer != AbiVersion {
		_ = lib.Release()
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

// Close 卸载动态库
func (b *Bridge) Close() error {
	if b == nil || b.lib == nil {
		return nil
	}
	err := b.lib.Release()
	b.lib = nil
	return err
}

// AbiVersion 获取 ABI 版本
func (b *Bridge) AbiVersion() uint32 {
	ret, _, _ := b.abiVersion.Call()
	return uint32(ret)
}

// EngineVersion 获取引擎版本
func (b *Bridge) EngineVersion() (string, error) {
	var ptr uintptr
	var length uintptr
	ret, _, _ := b.engineVersion.Call(uintptr(unsafe.Pointer(&ptr)), uintptr(unsafe.Pointer(&length)))
	if int32(ret) != 0 {
		return "", b.getLastError(int32(ret))
	}
	return ptrToString(ptr, int(length)), nil
}

// ReadFileSlice 调用 hudi_read_file_slice，返回的每个 Batch 归调用方所有。
func (b *Bridge) ReadFileSlice(options []byte) ([]*Batch, error) {
	if !cgoEnabled {
		return nil, ErrCgoDisabled
	}

	var optionsPtr uintptr
	if len(options) > 0 {
		optionsPtr = uintptr(unsafe.Pointer(&options[0]))
	}

	var vec uintptr
	var n uintptr
	ret, _, _ := b.readFileSlice.Call(
		optionsPtr,
		uintptr(len(options)),
		uintptr(unsafe.Pointer(&vec)),
		uintptr(unsafe.Pointer(&n)),
	)
	runtime.KeepAlive(options)

	if int32(ret) != 0 {
		return nil, b.getLastError(int32(ret))
	}

	batches := AdoptRecordBatches(vec, int(n), b.freeArray, b.freeSchema)
	if vec != 0 {
		b.recordBatchesFree.Call(vec, n)
	}
	return batches, nil
}

func (b *Bridge) freeArray(array *ArrowArray) {
	b.arrayFree.Call(uintptr(unsafe.Pointer(array)))
}

func (b *Bridge) freeSchema(schema *ArrowSchema) {
	b.schemaFree.Call(uintptr(unsafe.Pointer(schema)))
}

func (b *Bridge) getLastError(code int32) error {
	var ptr uintptr
	var length uintptr
	b.lastError.Call(uintptr(unsafe.Pointer(&ptr)), uintptr(unsafe.Pointer(&length)))

	return &NativeError{Code: ErrorCode(code), Message: ptrToString(ptr, int(length))}
}

func ptrToString(ptr uintptr, length int) string {
	if ptr == 0 || length == 0 {
		return ""
	}
	bytes := make([]byte, length)
	for i := 0; i < length; i++ {
		bytes[i] = *(*byte)(unsafe.Pointer(ptr + uintptr(i)))
	}
	return string(bytes)
}
