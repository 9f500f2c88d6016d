package hudi

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestSerializeBatchIPC(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := newTestRecord([]int32{1, 2, 3}, []string{"a", "b", "c"})
	defer rec.Release()

	payload, err := SerializeBatchIPC(rec)
	require.NoError(t, err)

	got, err := DeserializeBatchIPC(payload, mem)
	require.NoError(t, err)
	defer got.Release()

	require.True(t, array.RecordEqual(rec, got))
}

func TestDeserializeBatchIPCWithoutBatch(t *testing.T) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(testSchema))
	require.NoError(t, w.Close())

	_, err := DeserializeBatchIPC(buf.Bytes(), nil)
	require.Error(t, err)

	_, err = DeserializeBatchIPC([]byte("not arrow"), nil)
	require.Error(t, err)
}

func TestReadIPCFile(t *testing.T) {
	dir := t.TempDir()
	r1 := newTestRecord([]int32{1, 2}, []string{"a", "b"})
	r2 := newTestRecord([]int32{3}, []string{"c"})
	defer r1.Release()
	defer r2.Release()

	files := map[string]func(*testing.T, string, ...arrow.RecordBatch){
		"stream.arrows":    writeIPCStream,
		"file.arrow":       writeIPCFile,
		"stream.arrow.zst": writeIPCZstd,
	}
	for name, write := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			write(t, path, r1, r2)

			var ids []int32
			var rows []int64
			err := readIPCFile(context.Background(), path, nil, func(rec arrow.RecordBatch) error {
				rows = append(rows, rec.NumRows())
				ids = append(ids, rec.Column(0).(*array.Int32).Int32Values()...)
				return nil
			})
			require.NoError(t, err)
			require.Equal(t, []int64{2, 1}, rows)
			require.Equal(t, []int32{1, 2, 3}, ids)
		})
	}
}

func TestReadIPCFileErrors(t *testing.T) {
	dir := t.TempDir()

	err := readIPCFile(context.Background(), filepath.Join(dir, "missing.arrows"), nil, func(arrow.RecordBatch) error { return nil })
	require.Error(t, err)

	// plain bytes under a .zst name
	path := filepath.Join(dir, "bad.arrow.zst")
	rec := newTestRecord([]int32{1}, []string{"a"})
	defer rec.Release()
	writeIPCStream(t, path, rec)
	err = readIPCFile(context.Background(), path, nil, func(arrow.RecordBatch) error { return nil })
	require.ErrorContains(t, err, "decompress")
}

func TestReadIPCFileStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.arrows")
	r1 := newTestRecord([]int32{1}, []string{"a"})
	r2 := newTestRecord([]int32{2}, []string{"b"})
	defer r1.Release()
	defer r2.Release()
	writeIPCStream(t, path, r1, r2)

	calls := 0
	err := readIPCFile(context.Background(), path, nil, func(arrow.RecordBatch) error {
		calls++
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
