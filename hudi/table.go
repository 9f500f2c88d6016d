package hudi

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/isesword/hudi-go-bridge/bridge"
	"github.com/isesword/hudi-go-bridge/internal/logger"
)

// Read options understood by Table.
const (
	// OptionInputPartitions bounds how many base files are read at once.
	OptionInputPartitions = "hoodie.read.input.partitions"
	// OptionBatchSize caps the rows per record read from a Parquet file.
	OptionBatchSize = "hoodie.read.batch.size"
)

// Option is one key/value read option.
type Option struct {
	Key   string
	Value string
}

// Table is a Hudi table rooted at a local base path.
type Table struct {
	baseURI    string
	basePath   string
	options    map[string]string
	partitions int
	batchSize  int64
	mem        memory.Allocator
}

// NewTable validates baseURI and options and returns the table. baseURI is
// a local path or a file:// URI naming an existing directory.
func NewTable(baseURI string, options []Option) (*Table, error) {
	basePath, err := resolveBasePath(baseURI)
	if err != nil {
		return nil, err
	}

	t := &Table{
		baseURI:    baseURI,
		basePath:   basePath,
		options:    make(map[string]string, len(options)),
		partitions: 1,
		batchSize:  DefaultBatchSize,
		mem:        defaultAllocator(nil),
	}
	for _, opt := range options {
		t.options[opt.Key] = opt.Value
	}

	if v, ok := t.options[OptionInputPartitions]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, errors.Errorf("%s must be a positive integer, got %q", OptionInputPartitions, v)
		}
		t.partitions = n
	}
	if v, ok := t.options[OptionBatchSize]; ok {
		n, err := ParseBatchSize(v)
		if err != nil {
			return nil, err
		}
		t.batchSize = n
	}
	return t, nil
}

// ParseBatchSize parses a hoodie.read.batch.size value.
func ParseBatchSize(v string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return 0, errors.Errorf("%s must be a positive integer, got %q", OptionBatchSize, v)
	}
	return n, nil
}

// OpenTable is the asynchronous form of NewTable.
func OpenTable(ctx context.Context, baseURI string, options []Option) *Future[*Table] {
	return Go(ctx, func(ctx context.Context) (*Table, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewTable(baseURI, options)
	})
}

func resolveBasePath(baseURI string) (string, error) {
	if baseURI == "" {
		return "", errors.New("empty base URI")
	}
	path := baseURI
	if strings.Contains(baseURI, "://") {
		u, err := url.Parse(baseURI)
		if err != nil {
			return "", errors.Wrapf(err, "invalid base URI %q", baseURI)
		}
		if u.Scheme != "file" {
			return "", errors.Wrapf(ErrUnsupportedSource, "scheme %q", u.Scheme)
		}
		path = u.Path
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open table at %s", baseURI)
	}
	if !info.IsDir() {
		return "", errors.Errorf("table base path %s is not a directory", path)
	}
	return path, nil
}

// BaseURI returns the URI the table was opened with.
func (t *Table) BaseURI() string { return t.baseURI }

// Options returns a copy of the read options.
func (t *Table) Options() map[string]string {
	out := make(map[string]string, len(t.options))
	for k, v := range t.options {
		out[k] = v
	}
	return out
}

// ReadSnapshot reads every base file of the table on a separate goroutine.
// The result holds IPC payloads only; no descriptor exists until Export.
func (t *Table) ReadSnapshot(ctx context.Context) *Future[*RecordBatchVec] {
	return Go(ctx, t.readSnapshot)
}

// ReadFileSlice reads the snapshot synchronously and exports it, which lets
// a Table act as a Producer.
func (t *Table) ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error) {
	vec, err := t.readSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return vec.Export(t.mem)
}

func (t *Table) readSnapshot(ctx context.Context) (*RecordBatchVec, error) {
	files, err := t.baseFiles()
	if err != nil {
		return nil, err
	}
	logger.Log.Debug().Str("base", t.basePath).Int("files", len(files)).Msg("hudi: reading snapshot")

	perFile := make([][][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.partitions)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			payloads, err := t.readBaseFile(gctx, f)
			if err != nil {
				return err
			}
			perFile[i] = payloads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vec := &RecordBatchVec{}
	for _, payloads := range perFile {
		vec.payloads = append(vec.payloads, payloads...)
	}
	return vec, nil
}

func (t *Table) readBaseFile(ctx context.Context, path string) ([][]byte, error) {
	var payloads [][]byte
	collect := func(rec arrow.RecordBatch) error {
		b, err := SerializeBatchIPC(rec)
		if err != nil {
			return err
		}
		payloads = append(payloads, b)
		return nil
	}

	var err error
	switch {
	case strings.HasSuffix(path, ".parquet"):
		err = readParquetFile(ctx, path, t.batchSize, t.mem, collect)
	default:
		err = readIPCFile(ctx, path, t.mem, collect)
	}
	if err != nil {
		return nil, err
	}
	return payloads, nil
}

// baseFiles lists the readable files under the base path in lexical order.
// Hidden directories such as .hoodie hold metadata and are skipped.
func (t *Table) baseFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(t.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != t.basePath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isBaseFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", t.basePath)
	}
	return files, nil
}

func isBaseFile(name string) bool {
	for _, suffix := range []string{".parquet", ".arrow", ".arrows", ".arrow.zst"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// SnapshotProducer opens a table and reads its snapshot through the async
// API, exporting descriptors only once both futures have resolved.
type SnapshotProducer struct {
	BaseURI   string
	Options   []Option
	Allocator memory.Allocator
}

func (p SnapshotProducer) ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error) {
	table, err := OpenTable(ctx, p.BaseURI, p.Options).Await(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := table.ReadSnapshot(ctx).Await(ctx)
	if err != nil {
		return nil, err
	}
	logger.Log.Debug().Str("table", p.BaseURI).Int("records", vec.Len()).Msg("hudi: snapshot resolved")
	return vec.Export(defaultAllocator(p.Allocator))
}

// RecordBatchVec is a resolved snapshot: one IPC stream payload per record.
type RecordBatchVec struct {
	payloads [][]byte
}

// NewRecordBatchVec wraps already serialized payloads.
func NewRecordBatchVec(payloads [][]byte) *RecordBatchVec {
	return &RecordBatchVec{payloads: payloads}
}

// Len is the number of records in the snapshot.
func (v *RecordBatchVec) Len() int { return len(v.payloads) }

// Payloads returns the IPC payloads in snapshot order.
func (v *RecordBatchVec) Payloads() [][]byte { return v.payloads }

// Export decodes every payload and exports its columns as batches, record
// by record. On error nothing is left allocated.
func (v *RecordBatchVec) Export(mem memory.Allocator) ([]*bridge.Batch, error) {
	var batches []*bridge.Batch
	for i, p := range v.payloads {
		rec, err := DeserializeBatchIPC(p, mem)
		if err != nil {
			bridge.ReleaseAll(batches)
			return nil, errors.Wrapf(err, "payload %d", i)
		}
		out, err := exportRecord(rec)
		rec.Release()
		if err != nil {
			bridge.ReleaseAll(batches)
			return nil, errors.Wrapf(err, "payload %d", i)
		}
		batches = append(batches, out...)
	}
	return batches, nil
}
