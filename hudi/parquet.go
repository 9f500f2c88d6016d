package hudi

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/pkg/errors"

	"github.com/isesword/hudi-go-bridge/bridge"
)

// DefaultBatchSize is the number of rows per record read from a base file.
const DefaultBatchSize = 4 * 1024

// ParquetFileProducer reads a Parquet base file. Every column of every
// record becomes one batch, record by record.
type ParquetFileProducer struct {
	Path string
	// BatchSize caps the rows per record; DefaultBatchSize when zero.
	BatchSize int64
	Allocator memory.Allocator
}

func (p ParquetFileProducer) ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error) {
	var batches []*bridge.Batch
	err := readParquetFile(ctx, p.Path, p.BatchSize, p.Allocator, func(rec arrow.RecordBatch) error {
		out, err := exportRecord(rec)
		if err != nil {
			return err
		}
		batches = append(batches, out...)
		return nil
	})
	if err != nil {
		bridge.ReleaseAll(batches)
		return nil, err
	}
	return batches, nil
}

// readParquetFile calls fn for each record in path. The record is only
// valid for the duration of the call.
func readParquetFile(ctx context.Context, path string, batchSize int64, mem memory.Allocator, fn func(arrow.RecordBatch) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{
		BatchSize: batchSize,
	}, defaultAllocator(mem))
	if err != nil {
		return errors.Wrapf(err, "failed to create arrow reader for %s", path)
	}

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create record reader for %s", path)
	}
	defer rr.Release()

	for rr.Next() {
		if err := fn(rr.RecordBatch()); err != nil {
			return err
		}
	}
	if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	return nil
}
