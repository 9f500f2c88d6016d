//go:build cgo
// +build cgo

package hudi_test

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/isesword/hudi-go-bridge/bridge"
	"github.com/isesword/hudi-go-bridge/hudi"
	"github.com/isesword/hudi-go-bridge/internal/cdatatest"
)

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	if w.n > w.after {
		return 0, errors.New("write failed")
	}
	return len(p), nil
}

func batchesOf(t *testing.T, ds ...*cdatatest.Descriptor) []*bridge.Batch {
	t.Helper()
	out := make([]*bridge.Batch, 0, len(ds))
	for _, d := range ds {
		t.Cleanup(d.Close)
		out = append(out, d.Batch())
	}
	return out
}

func TestConsumeInt32(t *testing.T) {
	d := cdatatest.NewInt32(1, []int32{10, 20, 30})

	var out bytes.Buffer
	c := hudi.Consumer{Out: &out, Log: zerolog.Nop()}
	require.NoError(t, c.Consume(batchesOf(t, d)))

	require.Equal(t, "\nProcessing batch 0:\n"+
		"Schema format: i\n"+
		"Array length: 3\n"+
		"Values: 10 20 30 \n", out.String())
	require.Equal(t, 1, d.ArrayReleases())
	require.Equal(t, 1, d.SchemaReleases())
	require.Equal(t, 1, d.WrapperFrees())
}

func TestConsumeUnsupported(t *testing.T) {
	d := cdatatest.NewFormat(1, "u", 2)

	var out bytes.Buffer
	m := hudi.NewMetrics()
	c := hudi.Consumer{Out: &out, Log: zerolog.Nop(), Metrics: m}
	require.NoError(t, c.Consume(batchesOf(t, d)))

	require.Equal(t, "\nProcessing batch 0:\n"+
		"Schema format: u\n"+
		"Array length: 2\n"+
		"Unsupported format: u\n", out.String())
	require.NotContains(t, out.String(), "Values:")
	require.Equal(t, 1, d.ArrayReleases())
	require.Equal(t, 1, d.SchemaReleases())
	require.Equal(t, 1.0, testutil.ToFloat64(m.BatchesUnsupported.WithLabelValues("u")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BatchesReleased))
	require.Zero(t, testutil.ToFloat64(m.ValuesRendered))
}

func TestConsumeMalformed(t *testing.T) {
	d := cdatatest.NewFormat(1, "i", 3)

	var out bytes.Buffer
	c := hudi.Consumer{Out: &out, Log: zerolog.Nop()}
	require.NoError(t, c.Consume(batchesOf(t, d)))

	require.Contains(t, out.String(), "Array length: 3\nMalformed array: ")
	require.NotContains(t, out.String(), "Values:")
	require.Equal(t, 1, d.ArrayReleases())
	require.Equal(t, 1, d.SchemaReleases())
}

func TestConsumeEmptyArray(t *testing.T) {
	d := cdatatest.NewInt32(1, nil)

	var out bytes.Buffer
	c := hudi.Consumer{Out: &out, Log: zerolog.Nop()}
	require.NoError(t, c.Consume(batchesOf(t, d)))

	require.Contains(t, out.String(), "Array length: 0\nValues: \n")
}

func TestConsumeOffset(t *testing.T) {
	d := cdatatest.NewInt32Slice(1, []int32{1, 2, 3, 4}, 1, 2)

	var out bytes.Buffer
	c := hudi.Consumer{Out: &out, Log: zerolog.Nop()}
	require.NoError(t, c.Consume(batchesOf(t, d)))

	require.Contains(t, out.String(), "Array length: 2\nValues: 2 3 \n")
}

func TestConsumeOrder(t *testing.T) {
	cdatatest.ResetReleaseLog()
	ds := []*cdatatest.Descriptor{
		cdatatest.NewInt32(1, []int32{1}),
		cdatatest.NewFormat(2, "l", 1),
		cdatatest.NewInt32(3, []int32{3, 3}),
	}

	var out bytes.Buffer
	m := hudi.NewMetrics()
	c := hudi.Consumer{Out: &out, Log: zerolog.Nop(), Metrics: m}
	require.NoError(t, c.Consume(batchesOf(t, ds...)))

	require.Equal(t, "\nProcessing batch 0:\nSchema format: i\nArray length: 1\nValues: 1 \n"+
		"\nProcessing batch 1:\nSchema format: l\nArray length: 1\nUnsupported format: l\n"+
		"\nProcessing batch 2:\nSchema format: i\nArray length: 2\nValues: 3 3 \n", out.String())

	// batch i is fully released before batch i+1 is touched
	require.Equal(t, []int{1, -1, 2, -2, 3, -3}, cdatatest.ReleaseLog())
	for _, d := range ds {
		require.Equal(t, 1, d.ArrayReleases())
		require.Equal(t, 1, d.SchemaReleases())
		require.Equal(t, 1, d.WrapperFrees())
	}
	require.Equal(t, 3.0, testutil.ToFloat64(m.BatchesReleased))
	require.Equal(t, 3.0, testutil.ToFloat64(m.ValuesRendered))
}

func TestConsumeWriteErrorReleasesEverything(t *testing.T) {
	cdatatest.ResetReleaseLog()
	ds := []*cdatatest.Descriptor{
		cdatatest.NewInt32(1, []int32{1}),
		cdatatest.NewInt32(2, []int32{2}),
		cdatatest.NewInt32(3, []int32{3}),
	}

	m := hudi.NewMetrics()
	c := hudi.Consumer{Out: &failingWriter{after: 1}, Log: zerolog.Nop(), Metrics: m}
	err := c.Consume(batchesOf(t, ds...))
	require.ErrorContains(t, err, "batch 1")

	require.Equal(t, []int{1, -1, 2, -2, 3, -3}, cdatatest.ReleaseLog())
	for _, d := range ds {
		require.Equal(t, 1, d.ArrayReleases())
		require.Equal(t, 1, d.SchemaReleases())
		require.Equal(t, 1, d.WrapperFrees())
	}
	require.Equal(t, 3.0, testutil.ToFloat64(m.BatchesReleased))
}

func TestConsumeNoBatches(t *testing.T) {
	var out bytes.Buffer
	c := hudi.Consumer{Out: &out, Log: zerolog.Nop()}
	require.NoError(t, c.Consume(nil))
	require.Empty(t, out.String())
}
