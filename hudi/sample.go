package hudi

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"

	"github.com/isesword/hudi-go-bridge/bridge"
)

// SampleColumn is the field name of the column SampleProducer exports.
const SampleColumn = "col"

// SampleProducer builds a single non-nullable int32 column in process and
// hands it out through the C data interface, the same way a native reader
// would. Values defaults to [1, 2, 3] when nil.
type SampleProducer struct {
	Values    []int32
	Allocator memory.Allocator
}

func (p SampleProducer) ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := p.Values
	if values == nil {
		values = []int32{1, 2, 3}
	}

	bldr := array.NewInt32Builder(defaultAllocator(p.Allocator))
	defer bldr.Release()
	bldr.AppendValues(values, nil)

	arr := bldr.NewInt32Array()
	defer arr.Release()

	batch, err := bridge.ExportArray(arr, arrow.Field{
		Name: SampleColumn,
		Type: arrow.PrimitiveTypes.Int32,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to export sample column")
	}
	return []*bridge.Batch{batch}, nil
}
