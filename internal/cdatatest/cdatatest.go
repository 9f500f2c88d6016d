//go:build cgo
// +build cgo

// Package cdatatest hands out C-allocated Arrow descriptors whose release
// callbacks count how often they run. The callbacks deliberately leave their
// release pointer set, so a consumer that forgets to guard against a second
// release shows up as a count of 2 instead of being masked.
package cdatatest

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

#ifndef ARROW_C_DATA_INTERFACE
#define ARROW_C_DATA_INTERFACE

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

struct cdatatest_state {
    int id;
    int array_releases;
    int schema_releases;
    int32_t* values;
    const void** buffers;
    char* format;
    struct ArrowArray* array;
    struct ArrowSchema* schema;
};

#define CDATATEST_LOG_CAP 4096

// positive entries are array releases, negative entries schema releases
static int cdatatest_log[CDATATEST_LOG_CAP];
static int cdatatest_log_len = 0;

static void cdatatest_record(int v) {
    if (cdatatest_log_len < CDATATEST_LOG_CAP) {
        cdatatest_log[cdatatest_log_len++] = v;
    }
}

int cdatatest_log_size(void) { return cdatatest_log_len; }
int cdatatest_log_at(int i) { return cdatatest_log[i]; }
void cdatatest_log_reset(void) { cdatatest_log_len = 0; }

static void cdatatest_release_array(struct ArrowArray* a) {
    struct cdatatest_state* st = (struct cdatatest_state*)a->private_data;
    st->array_releases++;
    cdatatest_record(st->id);
    if (st->array_releases == 1) {
        free(st->values);
        st->values = NULL;
        free(st->buffers);
        st->buffers = NULL;
    }
}

static void cdatatest_release_schema(struct ArrowSchema* s) {
    struct cdatatest_state* st = (struct cdatatest_state*)s->private_data;
    st->schema_releases++;
    cdatatest_record(-st->id);
    if (st->schema_releases == 1) {
        free(st->format);
        st->format = NULL;
    }
}

struct cdatatest_state* cdatatest_make(int id, const char* format, int64_t length, int64_t offset,
                                       const int32_t* values, int64_t nvalues, int with_release) {
    struct cdatatest_state* st = (struct cdatatest_state*)calloc(1, sizeof(struct cdatatest_state));
    st->id = id;
    st->format = strdup(format);
    st->buffers = (const void**)calloc(2, sizeof(void*));
    if (nvalues > 0) {
        st->values = (int32_t*)malloc((size_t)nvalues * sizeof(int32_t));
        memcpy(st->values, values, (size_t)nvalues * sizeof(int32_t));
    }
    st->buffers[0] = NULL;
    st->buffers[1] = st->values;

    struct ArrowArray* a = (struct ArrowArray*)calloc(1, sizeof(struct ArrowArray));
    a->length = length;
    a->offset = offset;
    a->n_buffers = 2;
    a->buffers = st->buffers;
    a->release = with_release ? cdatatest_release_array : NULL;
    a->private_data = st;

    struct ArrowSchema* s = (struct ArrowSchema*)calloc(1, sizeof(struct ArrowSchema));
    s->format = st->format;
    s->release = with_release ? cdatatest_release_schema : NULL;
    s->private_data = st;

    st->array = a;
    st->schema = s;
    return st;
}

struct cdatatest_pair {
    struct ArrowArray* array;
    struct ArrowSchema* schema;
};

struct cdatatest_pair* cdatatest_vec_new(int64_t n) {
    return (struct cdatatest_pair*)calloc((size_t)n, sizeof(struct cdatatest_pair));
}

void cdatatest_vec_set(struct cdatatest_pair* v, int64_t i, struct ArrowArray* a, struct ArrowSchema* s) {
    v[i].array = a;
    v[i].schema = s;
}

void cdatatest_state_free(struct cdatatest_state* st) {
    free(st->values);
    free(st->buffers);
    free(st->format);
    free(st);
}
*/
import "C"

import (
	"unsafe"

	"github.com/isesword/hudi-go-bridge/bridge"
)

// Descriptor is one counted (array, schema) pair.
type Descriptor struct {
	ID     int
	Array  *bridge.ArrowArray
	Schema *bridge.ArrowSchema

	state        *C.struct_cdatatest_state
	wrapperFrees int
}

// NewInt32 returns a descriptor tagged "i" whose value buffer holds values.
func NewInt32(id int, values []int32) *Descriptor {
	return newDescriptor(id, "i", int64(len(values)), 0, values, true)
}

// NewInt32Slice returns an "i" descriptor viewing values[offset:offset+length].
func NewInt32Slice(id int, values []int32, offset, length int64) *Descriptor {
	return newDescriptor(id, "i", length, offset, values, true)
}

// NewFormat returns a descriptor with an arbitrary format tag and no value buffer.
func NewFormat(id int, format string, length int64) *Descriptor {
	return newDescriptor(id, format, length, 0, nil, true)
}

// NewWithoutRelease returns an "i" descriptor whose release callbacks are NULL.
func NewWithoutRelease(id int, values []int32) *Descriptor {
	return newDescriptor(id, "i", int64(len(values)), 0, values, false)
}

func newDescriptor(id int, format string, length, offset int64, values []int32, withRelease bool) *Descriptor {
	cFormat := C.CString(format)
	defer C.free(unsafe.Pointer(cFormat))

	var valuesPtr *C.int32_t
	if len(values) > 0 {
		valuesPtr = (*C.int32_t)(unsafe.Pointer(&values[0]))
	}
	release := C.int(0)
	if withRelease {
		release = 1
	}

	st := C.cdatatest_make(C.int(id), cFormat, C.int64_t(length), C.int64_t(offset),
		valuesPtr, C.int64_t(len(values)), release)

	return &Descriptor{
		ID:     id,
		Array:  (*bridge.ArrowArray)(unsafe.Pointer(st.array)),
		Schema: (*bridge.ArrowSchema)(unsafe.Pointer(st.schema)),
		state:  st,
	}
}

// Batch wraps the descriptor in an owning handle. Its wrapper-free hook frees
// both structs and is counted by WrapperFrees.
func (d *Descriptor) Batch() *bridge.Batch {
	arr, sch := d.state.array, d.state.schema
	return bridge.NewBatch(d.Array, d.Schema, func() {
		d.wrapperFrees++
		C.free(unsafe.Pointer(arr))
		C.free(unsafe.Pointer(sch))
	})
}

// ArrayReleases is how many times the array release callback ran.
func (d *Descriptor) ArrayReleases() int { return int(d.state.array_releases) }

// SchemaReleases is how many times the schema release callback ran.
func (d *Descriptor) SchemaReleases() int { return int(d.state.schema_releases) }

// WrapperFrees is how many times the Batch wrapper-free hook ran.
func (d *Descriptor) WrapperFrees() int { return d.wrapperFrees }

// Close frees the bookkeeping state. Call it after the Batch is released.
func (d *Descriptor) Close() {
	if d.state != nil {
		C.cdatatest_state_free(d.state)
		d.state = nil
	}
}

// NewVector lays the descriptors out in C memory as a contiguous
// {array*, schema*} vector, the shape a native producer hands over. The
// returned func frees the vector only.
func NewVector(ds ...*Descriptor) (uintptr, func()) {
	if len(ds) == 0 {
		return 0, func() {}
	}
	v := C.cdatatest_vec_new(C.int64_t(len(ds)))
	for i, d := range ds {
		C.cdatatest_vec_set(v, C.int64_t(i), d.state.array, d.state.schema)
	}
	return uintptr(unsafe.Pointer(v)), func() { C.free(unsafe.Pointer(v)) }
}

// ReleaseLog returns every release since the last reset, in call order:
// +id for an array release, -id for a schema release.
func ReleaseLog() []int {
	n := int(C.cdatatest_log_size())
	out := make([]int, n)
	for i := range out {
		out[i] = int(C.cdatatest_log_at(C.int(i)))
	}
	return out
}

// ResetReleaseLog clears the release log.
func ResetReleaseLog() {
	C.cdatatest_log_reset()
}
