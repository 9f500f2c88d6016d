package hudi

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/isesword/hudi-go-bridge/bridge"
	"github.com/isesword/hudi-go-bridge/internal/logger"
)

// Runner drives one read_file_slice call and consumes its result.
type Runner struct {
	Producer Producer
	Out      io.Writer
	Err      io.Writer
	Metrics  *Metrics
	Log      *zerolog.Logger
	// Async runs the producer on its own goroutine and awaits the result.
	Async bool
}

// Run reads with p and prints to stdout/stderr. It returns the process exit
// code.
func Run(ctx context.Context, p Producer) int {
	r := Runner{Producer: p}
	return r.Run(ctx)
}

// Run returns 0 on success (zero batches included) and 1 when the boundary
// call or the rendering fails.
func (r *Runner) Run(ctx context.Context) int {
	out, errOut := r.Out, r.Err
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	log := logger.Log
	if r.Log != nil {
		log = *r.Log
	}

	fmt.Fprintln(out, "Calling read_file_slice()...")

	batches, err := r.read(ctx)
	if err != nil {
		r.Metrics.readFailed()
		log.Error().Err(err).Msg("read_file_slice failed")
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	r.Metrics.received(len(batches))
	fmt.Fprintf(out, "Received %d record batch(es)\n", len(batches))

	c := Consumer{Out: out, Log: log, Metrics: r.Metrics}
	if err := c.Consume(batches); err != nil {
		log.Error().Err(err).Msg("failed to consume batches")
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(out, "\nSuccessfully processed Arrow data!")
	log.Info().Int("batches", len(batches)).Msg("done")
	return 0
}

func (r *Runner) read(ctx context.Context) ([]*bridge.Batch, error) {
	if r.Producer == nil {
		return nil, ErrNoProducer
	}
	if r.Async {
		return AwaitBatches(ctx, ReadFileSliceAsync(ctx, r.Producer))
	}
	return r.Producer.ReadFileSlice(ctx)
}
