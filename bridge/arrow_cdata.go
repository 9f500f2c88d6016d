//go:build cgo
// +build cgo

package bridge

// Arrow C Data Interface structures
// https://arrow.apache.org/docs/format/CDataInterface.html

/*
#include <stdint.h>
#include <stdlib.h>

#ifndef ARROW_C_DATA_INTERFACE
#define ARROW_C_DATA_INTERFACE

// ArrowSchema describes the type and metadata of an Arrow array
struct ArrowSchema {
    const char* format;
    const char* name;
    const char* metadata;
    int64_t flags;
    int64_t n_children;
    struct ArrowSchema** children;
    struct ArrowSchema* dictionary;
    void (*release)(struct ArrowSchema*);
    void* private_data;
};

// ArrowArray contains the data buffers and child arrays
struct ArrowArray {
    int64_t length;
    int64_t null_count;
    int64_t offset;
    int64_t n_buffers;
    int64_t n_children;
    const void** buffers;
    struct ArrowArray** children;
    struct ArrowArray* dictionary;
    void (*release)(struct ArrowArray*);
    void* private_data;
};

#endif  // ARROW_C_DATA_INTERFACE

// Helper functions to call release callbacks. The callback pointer is
// cleared right after the call so a second release is a no-op.
void bridge_call_arrow_schema_release(struct ArrowSchema* schema) {
    if (schema->release) {
        schema->release(schema);
        schema->release = NULL;
    }
}

void bridge_call_arrow_array_release(struct ArrowArray* array) {
    if (array->release) {
        array->release(array);
        array->release = NULL;
    }
}

struct ArrowSchema* bridge_new_arrow_schema(void) {
    return (struct ArrowSchema*)calloc(1, sizeof(struct ArrowSchema));
}

struct ArrowArray* bridge_new_arrow_array(void) {
    return (struct ArrowArray*)calloc(1, sizeof(struct ArrowArray));
}
*/
import "C"

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/pkg/errors"
)

const cgoEnabled = true

// ArrowSchema represents Arrow schema in C
type ArrowSchema C.struct_ArrowSchema

// ArrowArray represents Arrow array data in C
type ArrowArray C.struct_ArrowArray

// ReleaseArrowSchema calls the release callback if set
func ReleaseArrowSchema(schema *ArrowSchema) {
	if schema == nil {
		return
	}
	cSchema := (*C.struct_ArrowSchema)(unsafe.Pointer(schema))
	if cSchema.release != nil {
		C.bridge_call_arrow_schema_release(cSchema)
	}
}

// ReleaseArrowArray calls the release callback if set
func ReleaseArrowArray(array *ArrowArray) {
	if array == nil {
		return
	}
	cArray := (*C.struct_ArrowArray)(unsafe.Pointer(array))
	if cArray.release != nil {
		C.bridge_call_arrow_array_release(cArray)
	}
}

// NewArrowSchema allocates a zeroed ArrowSchema in C memory. Free it with FreeArrowSchema.
func NewArrowSchema() *ArrowSchema {
	return (*ArrowSchema)(unsafe.Pointer(C.bridge_new_arrow_schema()))
}

// NewArrowArray allocates a zeroed ArrowArray in C memory. Free it with FreeArrowArray.
func NewArrowArray() *ArrowArray {
	return (*ArrowArray)(unsafe.Pointer(C.bridge_new_arrow_array()))
}

// FreeArrowSchema frees the struct itself, not the data it describes.
func FreeArrowSchema(schema *ArrowSchema) {
	if schema != nil {
		C.free(unsafe.Pointer(schema))
	}
}

// FreeArrowArray frees the struct itself, not the data it describes.
func FreeArrowArray(array *ArrowArray) {
	if array != nil {
		C.free(unsafe.Pointer(array))
	}
}

func schemaReleased(schema *ArrowSchema) bool {
	return schema == nil || schema.release == nil
}

func arrayReleased(array *ArrowArray) bool {
	return array == nil || array.release == nil
}

func schemaFormat(schema *ArrowSchema) string {
	if schema == nil || schema.format == nil {
		return ""
	}
	return C.GoString(schema.format)
}

func schemaName(schema *ArrowSchema) string {
	if schema == nil || schema.name == nil {
		return ""
	}
	return C.GoString(schema.name)
}

func arrayLength(array *ArrowArray) int64 {
	if array == nil {
		return 0
	}
	return int64(array.length)
}

func arrayOffset(array *ArrowArray) int64 {
	if array == nil {
		return 0
	}
	return int64(array.offset)
}

func arrayNullCount(array *ArrowArray) int64 {
	if array == nil {
		return 0
	}
	return int64(array.null_count)
}

func arrayBuffer(array *ArrowArray, i int) unsafe.Pointer {
	if array == nil || array.buffers == nil || i < 0 || int64(i) >= int64(array.n_buffers) {
		return nil
	}
	return unsafe.Slice(array.buffers, int(array.n_buffers))[i]
}

// int32Values copies the value buffer (slot 1) out of native memory.
func int32Values(array *ArrowArray) ([]int32, error) {
	length := arrayLength(array)
	offset := arrayOffset(array)
	if length < 0 || offset < 0 {
		return nil, errors.Wrapf(ErrMalformedArray, "negative length %d or offset %d", length, offset)
	}
	out := make([]int32, length)
	if length == 0 {
		return out, nil
	}
	if int64(array.n_buffers) < 2 {
		return nil, errors.Wrapf(ErrMalformedArray, "expected 2 buffers, got %d", int64(array.n_buffers))
	}
	buf := arrayBuffer(array, 1)
	if buf == nil {
		return nil, errors.Wrap(ErrMalformedArray, "null value buffer")
	}
	copy(out, unsafe.Slice((*int32)(buf), offset+length)[offset:])
	return out, nil
}

func importArray(array *ArrowArray, schema *ArrowSchema) (arrow.Field, arrow.Array, error) {
	return cdata.ImportCArray(
		(*cdata.CArrowArray)(unsafe.Pointer(array)),
		(*cdata.CArrowSchema)(unsafe.Pointer(schema)),
	)
}

// ExportArray 通过 C Data Interface 导出一个 Arrow 数组（零拷贝）。
// The returned Batch owns C-allocated structs; releasing it drops the
// exported reference and frees both structs.
func ExportArray(arr arrow.Array, field arrow.Field) (*Batch, error) {
	if arr == nil {
		return nil, errors.New("nil array")
	}
	if field.Type == nil {
		field.Type = arr.DataType()
	}
	if !arrow.TypeEqual(field.Type, arr.DataType()) {
		return nil, errors.Errorf("field %q type %s does not match array type %s",
			field.Name, field.Type, arr.DataType())
	}

	cSchema := NewArrowSchema()
	cArray := NewArrowArray()
	// the exported schema only carries the type; the field is kept on the Batch
	cdata.ExportArrowArray(arr,
		(*cdata.CArrowArray)(unsafe.Pointer(cArray)),
		(*cdata.CArrowSchema)(unsafe.Pointer(cSchema)))

	b := NewBatch(cArray, cSchema, func() {
		FreeArrowArray(cArray)
		FreeArrowSchema(cSchema)
	})
	b.field = &field
	return b, nil
}
