package hudi

import (
	"bytes"
	"os"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int32},
	{Name: "name", Type: arrow.BinaryTypes.String},
}, nil)

func newTestRecord(ids []int32, names []string) arrow.RecordBatch {
	b := array.NewRecordBuilder(memory.DefaultAllocator, testSchema)
	defer b.Release()
	b.Field(0).(*array.Int32Builder).AppendValues(ids, nil)
	b.Field(1).(*array.StringBuilder).AppendValues(names, nil)
	return b.NewRecordBatch()
}

func encodeIPCStream(t *testing.T, recs ...arrow.RecordBatch) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(testSchema))
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeIPCStream(t *testing.T, path string, recs ...arrow.RecordBatch) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, encodeIPCStream(t, recs...), 0o644))
}

func writeIPCFile(t *testing.T, path string, recs ...arrow.RecordBatch) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(testSchema))
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
}

func writeIPCZstd(t *testing.T, path string, recs ...arrow.RecordBatch) {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	compressed := enc.EncodeAll(encodeIPCStream(t, recs...), nil)
	require.NoError(t, os.WriteFile(path, compressed, 0o644))
}

func writeParquet(t *testing.T, path string, maxRowGroup int64, recs ...arrow.RecordBatch) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := pqarrow.NewFileWriter(
		testSchema,
		f,
		parquet.NewWriterProperties(
			parquet.WithCompression(compress.Codecs.Uncompressed),
			parquet.WithMaxRowGroupLength(maxRowGroup),
		),
		pqarrow.DefaultWriterProps(),
	)
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
}

// collectIDs decodes every payload and returns the id column, in order.
func collectIDs(t *testing.T, payloads [][]byte) []int32 {
	t.Helper()
	var ids []int32
	for _, p := range payloads {
		rec, err := DeserializeBatchIPC(p, memory.DefaultAllocator)
		require.NoError(t, err)
		ids = append(ids, rec.Column(0).(*array.Int32).Int32Values()...)
		rec.Release()
	}
	return ids
}
