//go:build !cgo
// +build !cgo

package bridge

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
)

const cgoEnabled = false

// ArrowSchema represents Arrow schema in C (cgo disabled placeholder).
type ArrowSchema struct{}

// ArrowArray represents Arrow array data in C (cgo disabled placeholder).
type ArrowArray struct{}

// ReleaseArrowSchema is a no-op when cgo is disabled.
func ReleaseArrowSchema(_ *ArrowSchema) {}

// ReleaseArrowArray is a no-op when cgo is disabled.
func ReleaseArrowArray(_ *ArrowArray) {}

// NewArrowSchema returns a Go placeholder when cgo is disabled.
func NewArrowSchema() *ArrowSchema { return &ArrowSchema{} }

// NewArrowArray returns a Go placeholder when cgo is disabled.
func NewArrowArray() *ArrowArray { return &ArrowArray{} }

// FreeArrowSchema is a no-op when cgo is disabled.
func FreeArrowSchema(_ *ArrowSchema) {}

// FreeArrowArray is a no-op when cgo is disabled.
func FreeArrowArray(_ *ArrowArray) {}

func schemaReleased(_ *ArrowSchema) bool { return true }

func arrayReleased(_ *ArrowArray) bool { return true }

func schemaFormat(_ *ArrowSchema) string { return "" }

func schemaName(_ *ArrowSchema) string { return "" }

func arrayLength(_ *ArrowArray) int64 { return 0 }

func arrayOffset(_ *ArrowArray) int64 { return 0 }

func arrayNullCount(_ *ArrowArray) int64 { return 0 }

func arrayBuffer(_ *ArrowArray, _ int) unsafe.Pointer { return nil }

func int32Values(_ *ArrowArray) ([]int32, error) { return nil, ErrCgoDisabled }

func importArray(_ *ArrowArray, _ *ArrowSchema) (arrow.Field, arrow.Array, error) {
	return arrow.Field{}, nil, ErrCgoDisabled
}

// ExportArray requires cgo.
func ExportArray(_ arrow.Array, _ arrow.Field) (*Batch, error) {
	return nil, ErrCgoDisabled
}
