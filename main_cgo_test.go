//go:build cgo
// +build cgo

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isesword/hudi-go-bridge/internal/config"
)

func TestRunSample(t *testing.T) {
	require.Equal(t, 0, run(Options{Source: config.SourceSample}))
	require.Equal(t, 0, run(Options{Source: config.SourceSample, Async: true}))
}

func TestRunWritesMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hudi.prom")
	require.Equal(t, 0, run(Options{Source: config.SourceSample, MetricsFile: path}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "hudi_batches_released_total 1")
}
