// Package hudi reads Hudi file slices into Arrow C Data Interface batches and
// consumes them: every batch handed out is owned by the caller until released.
package hudi

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/memory/mallocator"
	"github.com/pkg/errors"

	"github.com/isesword/hudi-go-bridge/bridge"
)

var (
	// ErrNoProducer is returned when a run is started without a producer.
	ErrNoProducer = errors.New("no producer configured")

	// ErrUnsupportedSource is returned for base URIs and files no producer can read.
	ErrUnsupportedSource = errors.New("unsupported source")
)

// Producer is the read_file_slice boundary. The whole sequence is produced
// before ReadFileSlice returns; on success the caller owns every Batch.
type Producer interface {
	ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context) ([]*bridge.Batch, error)

func (f ProducerFunc) ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error) {
	return f(ctx)
}

// ReadFileSliceAsync runs p on its own goroutine.
func ReadFileSliceAsync(ctx context.Context, p Producer) *Future[[]*bridge.Batch] {
	return Go(ctx, p.ReadFileSlice)
}

// AwaitBatches waits for f. If ctx ends first, it still waits for the
// producer to finish and releases whatever it returned, so no batch
// outlives the call. Callers may unload the native library right after.
func AwaitBatches(ctx context.Context, f *Future[[]*bridge.Batch]) ([]*bridge.Batch, error) {
	select {
	case <-f.Done():
		return f.Result()
	case <-ctx.Done():
		<-f.Done()
		if late, err := f.Result(); err == nil {
			bridge.ReleaseAll(late)
		}
		return nil, ctx.Err()
	}
}

func defaultAllocator(mem memory.Allocator) memory.Allocator {
	if mem != nil {
		return mem
	}
	// exported buffers are handed to foreign code, keep them off the Go heap
	return mallocator.NewMallocator()
}

// exportRecord exports every column of rec as its own batch, in column order.
func exportRecord(rec arrow.RecordBatch) ([]*bridge.Batch, error) {
	schema := rec.Schema()
	out := make([]*bridge.Batch, 0, rec.NumCols())
	for i, col := range rec.Columns() {
		b, err := bridge.ExportArray(col, schema.Field(i))
		if err != nil {
			bridge.ReleaseAll(out)
			return nil, errors.Wrapf(err, "failed to export column %q", schema.Field(i).Name)
		}
		out = append(out, b)
	}
	return out, nil
}
