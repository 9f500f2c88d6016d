package hudi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// newTestTable lays out a small table: base files in two partitions, one
// of each readable format, plus metadata that must be ignored.
func newTestTable(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hoodie"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "p=1"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "p=2"), 0o755))

	r1 := newTestRecord([]int32{1, 2}, []string{"a", "b"})
	r2 := newTestRecord([]int32{3}, []string{"c"})
	r3 := newTestRecord([]int32{4, 5, 6}, []string{"d", "e", "f"})
	r4 := newTestRecord([]int32{7}, []string{"g"})
	r9 := newTestRecord([]int32{99}, []string{"meta"})
	defer r1.Release()
	defer r2.Release()
	defer r3.Release()
	defer r4.Release()
	defer r9.Release()

	writeParquet(t, filepath.Join(dir, "p=1", "a.parquet"), 1024, r1)
	writeIPCStream(t, filepath.Join(dir, "p=1", "b.arrows"), r2)
	writeIPCFile(t, filepath.Join(dir, "p=2", "c.arrow"), r3)
	writeIPCZstd(t, filepath.Join(dir, "p=2", "d.arrow.zst"), r4)
	writeIPCStream(t, filepath.Join(dir, ".hoodie", "x.arrows"), r9)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p=1", "README.txt"), []byte("skip"), 0o644))
	return dir
}

func TestNewTable(t *testing.T) {
	dir := t.TempDir()

	table, err := NewTable(dir, []Option{{Key: "hoodie.custom", Value: "x"}})
	require.NoError(t, err)
	require.Equal(t, dir, table.BaseURI())
	require.Equal(t, map[string]string{"hoodie.custom": "x"}, table.Options())

	table, err = NewTable("file://"+dir, nil)
	require.NoError(t, err)
	require.Equal(t, dir, table.basePath)
}

func TestNewTableErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	for name, tc := range map[string]struct {
		uri  string
		opts []Option
	}{
		"empty":          {uri: ""},
		"missing":        {uri: filepath.Join(dir, "missing")},
		"not a dir":      {uri: file},
		"scheme":         {uri: "s3://bucket/table"},
		"partitions":     {uri: dir, opts: []Option{{Key: OptionInputPartitions, Value: "0"}}},
		"partitions nan": {uri: dir, opts: []Option{{Key: OptionInputPartitions, Value: "two"}}},
		"batch size":     {uri: dir, opts: []Option{{Key: OptionBatchSize, Value: "-1"}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewTable(tc.uri, tc.opts)
			require.Error(t, err)
		})
	}

	_, err := NewTable("s3://bucket/table", nil)
	require.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestOpenTable(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	table, err := OpenTable(context.Background(), dir, nil).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, dir, table.BaseURI())

	_, err = OpenTable(context.Background(), filepath.Join(dir, "missing"), nil).Await(context.Background())
	require.Error(t, err)
}

func TestReadSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := newTestTable(t)
	for _, partitions := range []string{"1", "3"} {
		t.Run("partitions="+partitions, func(t *testing.T) {
			table, err := NewTable(dir, []Option{{Key: OptionInputPartitions, Value: partitions}})
			require.NoError(t, err)

			vec, err := table.ReadSnapshot(context.Background()).Await(context.Background())
			require.NoError(t, err)
			require.Equal(t, 4, vec.Len())

			// lexical file order whatever the parallelism
			require.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7}, collectIDs(t, vec.Payloads()))
		})
	}
}

func TestReadSnapshotBatchSize(t *testing.T) {
	dir := t.TempDir()
	rec := newTestRecord([]int32{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"})
	defer rec.Release()
	writeParquet(t, filepath.Join(dir, "a.parquet"), 1024, rec)

	table, err := NewTable(dir, []Option{{Key: OptionBatchSize, Value: "2"}})
	require.NoError(t, err)

	vec, err := table.ReadSnapshot(context.Background()).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, vec.Len())
	require.Equal(t, []int32{1, 2, 3, 4, 5}, collectIDs(t, vec.Payloads()))
}

func TestReadSnapshotEmptyTable(t *testing.T) {
	table, err := NewTable(t.TempDir(), nil)
	require.NoError(t, err)

	vec, err := table.ReadSnapshot(context.Background()).Await(context.Background())
	require.NoError(t, err)
	require.Zero(t, vec.Len())
}

func TestReadSnapshotBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.parquet"), []byte("garbage"), 0o644))

	table, err := NewTable(dir, nil)
	require.NoError(t, err)

	_, err = table.ReadSnapshot(context.Background()).Await(context.Background())
	require.Error(t, err)
}

func TestParseBatchSize(t *testing.T) {
	n, err := ParseBatchSize("256")
	require.NoError(t, err)
	require.Equal(t, int64(256), n)

	for _, v := range []string{"", "0", "-1", "1.5", "lots"} {
		_, err := ParseBatchSize(v)
		require.ErrorContains(t, err, OptionBatchSize, v)
	}
}
