package hudi

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/isesword/hudi-go-bridge/bridge"
)

// arrowFileMagic prefixes IPC files written in the random access format.
var arrowFileMagic = []byte("ARROW1")

// SerializeBatchIPC encodes rec as a one-batch IPC stream.
func SerializeBatchIPC(rec arrow.RecordBatch) ([]byte, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()))
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(err, "failed to write batch")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finish batch")
	}
	return buf.Bytes(), nil
}

// DeserializeBatchIPC decodes the first batch of an IPC stream payload.
// The caller must Release the returned record.
func DeserializeBatchIPC(payload []byte, mem memory.Allocator) (arrow.RecordBatch, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(payload), ipc.WithAllocator(defaultAllocator(mem)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open IPC payload")
	}
	defer rdr.Release()

	if !rdr.Next() {
		if err := rdr.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read IPC payload")
		}
		return nil, errors.New("IPC payload holds no batch")
	}
	rec := rdr.RecordBatch()
	rec.Retain()
	return rec, nil
}

// IPCFileProducer reads an Arrow IPC file (stream or random access format).
// Files ending in .zst are zstd-decompressed first. Every column of every
// record becomes one batch, record by record.
type IPCFileProducer struct {
	Path      string
	Allocator memory.Allocator
}

func (p IPCFileProducer) ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error) {
	var batches []*bridge.Batch
	err := readIPCFile(ctx, p.Path, p.Allocator, func(rec arrow.RecordBatch) error {
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

// readIPCFile calls fn for each record in path. The record is only valid
// for the duration of the call.
func readIPCFile(ctx context.Context, path string, mem memory.Allocator, fn func(arrow.RecordBatch) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if strings.HasSuffix(path, ".zst") {
		if data, err = decompressZstd(data); err != nil {
			return errors.Wrapf(err, "failed to decompress %s", path)
		}
	}
	if err := readIPC(ctx, data, defaultAllocator(mem), fn); err != nil {
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}

func readIPC(ctx context.Context, data []byte, mem memory.Allocator, fn func(arrow.RecordBatch) error) error {
	if bytes.HasPrefix(data, arrowFileMagic) {
		rdr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(mem))
		if err != nil {
			return err
		}
		defer rdr.Close()

		for i := 0; i < rdr.NumRecords(); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := rdr.Record(i)
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	}

	rdr, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}
	defer rdr.Release()

	for rdr.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rdr.RecordBatch()); err != nil {
			return err
		}
	}
	return rdr.Err()
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd decoder")
	}
	defer dec.Close()

	return dec.DecodeAll(data, nil)
}
