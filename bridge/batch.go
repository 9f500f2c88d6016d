package bridge

import (
	"runtime"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/pkg/errors"
)

// Batch owns one (ArrowArray, ArrowSchema) pair handed over by a producer.
//
// The consumer must call Release exactly once it is done with the batch;
// further calls are no-ops. Release invokes the array callback, then the
// schema callback, then frees the wrapper allocation that carried the pair
// across the boundary. A Batch is not safe for concurrent use.
type Batch struct {
	array    *ArrowArray
	schema   *ArrowSchema
	free     func()
	released bool

	// field is set when the pair was exported in process, whose schema
	// carries no name.
	field *arrow.Field
}

// NewBatch takes ownership of array and schema. free, if not nil, runs once
// after both release callbacks and should free the structs themselves.
func NewBatch(array *ArrowArray, schema *ArrowSchema, free func()) *Batch {
	b := &Batch{array: array, schema: schema, free: free}
	runtime.SetFinalizer(b, func(b *Batch) {
		b.Release()
	})
	return b
}

// Format returns the schema's format tag, e.g. "i" for int32.
func (b *Batch) Format() string {
	if b == nil || b.released {
		return ""
	}
	return schemaFormat(b.schema)
}

// Name returns the field name carried by the schema, or the exported
// field's name for batches made by ExportArray.
func (b *Batch) Name() string {
	if b == nil || b.released {
		return ""
	}
	if b.field != nil {
		return b.field.Name
	}
	return schemaName(b.schema)
}

// Len returns the logical row count.
func (b *Batch) Len() int64 {
	if b == nil || b.released {
		return 0
	}
	return arrayLength(b.array)
}

// Offset returns the logical offset into the buffers.
func (b *Batch) Offset() int64 {
	if b == nil || b.released {
		return 0
	}
	return arrayOffset(b.array)
}

// NullCount returns the null count reported by the producer (-1 if unknown).
func (b *Batch) NullCount() int64 {
	if b == nil || b.released {
		return 0
	}
	return arrayNullCount(b.array)
}

// Int32Values reinterprets the value buffer as int32 and copies Len values
// out of it. It fails unless the format tag is FormatInt32.
func (b *Batch) Int32Values() ([]int32, error) {
	if b == nil || b.released {
		return nil, ErrReleased
	}
	if format := schemaFormat(b.schema); format != FormatInt32 {
		return nil, errors.Wrapf(ErrFormatMismatch, "want %q, got %q", FormatInt32, format)
	}
	return int32Values(b.array)
}

// Import moves the descriptors into Go-managed Arrow memory. The caller owns
// the returned array and must Release it. The Batch itself must still be
// released to free its wrapper; its callbacks are already cleared by then.
func (b *Batch) Import() (arrow.Field, arrow.Array, error) {
	if b == nil || b.released {
		return arrow.Field{}, nil, ErrReleased
	}
	if arrayReleased(b.array) || schemaReleased(b.schema) {
		return arrow.Field{}, nil, ErrReleased
	}
	field, arr, err := importArray(b.array, b.schema)
	if err != nil {
		return arrow.Field{}, nil, errors.Wrap(err, "failed to import arrow array")
	}
	if b.field != nil {
		field.Name = b.field.Name
		field.Nullable = b.field.Nullable
		field.Metadata = b.field.Metadata
	}
	return field, arr, nil
}

// Release runs the release callbacks and frees the wrapper. Idempotent.
func (b *Batch) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	runtime.SetFinalizer(b, nil)

	ReleaseArrowArray(b.array)
	ReleaseArrowSchema(b.schema)

	if b.free != nil {
		free := b.free
		b.free = nil
		free()
	}
	b.array = nil
	b.schema = nil
}

// Released reports whether Release has run.
func (b *Batch) Released() bool {
	return b == nil || b.released
}

// ReleaseAll releases every batch in order.
func ReleaseAll(batches []*Batch) {
	for _, b := range batches {
		b.Release()
	}
}

// RecordBatchPtr mirrors the boundary struct
//
//	struct ArrowRecordBatch { struct ArrowArray* array; struct ArrowSchema* schema; };
type RecordBatchPtr struct {
	Array  *ArrowArray
	Schema *ArrowSchema
}

// AdoptRecordBatches reinterprets a native vector of n RecordBatchPtr as
// owned Batches without copying any data. Each Batch frees its own boxed
// structs with freeArray/freeSchema; the vector itself stays owned by the
// caller and may be freed as soon as this returns.
func AdoptRecordBatches(vec uintptr, n int, freeArray func(*ArrowArray), freeSchema func(*ArrowSchema)) []*Batch {
	if vec == 0 || n <= 0 {
		return nil
	}
	pairs := unsafe.Slice((*RecordBatchPtr)(unsafe.Pointer(vec)), n)

	batches := make([]*Batch, 0, n)
	for _, p := range pairs {
		arr, sch := p.Array, p.Schema
		batches = append(batches, NewBatch(arr, sch, func() {
			if arr != nil && freeArray != nil {
				freeArray(arr)
			}
			if sch != nil && freeSchema != nil {
				freeSchema(sch)
			}
		}))
	}
	return batches
}
