package hudi

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/isesword/hudi-go-bridge/bridge"
)

// Consumer prints batches and releases them.
type Consumer struct {
	Out     io.Writer
	Log     zerolog.Logger
	Metrics *Metrics
}

// Consume renders every batch to c.Out in order, releasing each one before
// the next is touched. All batches are released when Consume returns, even
// on a write error.
func (c *Consumer) Consume(batches []*bridge.Batch) error {
	defer func() {
		for _, b := range batches {
			c.release(b)
		}
	}()

	for i, b := range batches {
		if err := c.consumeOne(i, b); err != nil {
			return errors.Wrapf(err, "batch %d", i)
		}
	}
	return nil
}

func (c *Consumer) consumeOne(i int, b *bridge.Batch) error {
	defer c.release(b)

	format := b.Format()
	length := b.Len()
	c.Log.Debug().Int("batch", i).Str("format", format).Int64("length", length).Msg("consuming batch")

	var buf bytes.Buffer
	buf.WriteString("\nProcessing batch ")
	buf.WriteString(strconv.Itoa(i))
	buf.WriteString(":\n")
	buf.WriteString("Schema format: ")
	buf.WriteString(format)
	buf.WriteString("\nArray length: ")
	buf.WriteString(strconv.FormatInt(length, 10))
	buf.WriteByte('\n')

	if format == bridge.FormatInt32 {
		values, err := b.Int32Values()
		if err != nil {
			c.Log.Warn().Err(err).Int("batch", i).Msg("malformed int32 batch")
			buf.WriteString("Malformed array: ")
			buf.WriteString(err.Error())
			buf.WriteByte('\n')
		} else {
			buf.WriteString("Values: ")
			for _, v := range values {
				buf.WriteString(strconv.FormatInt(int64(v), 10))
				buf.WriteByte(' ')
			}
			buf.WriteByte('\n')
			c.Metrics.rendered(len(values))
		}
	} else {
		buf.WriteString("Unsupported format: ")
		buf.WriteString(format)
		buf.WriteByte('\n')
		c.Metrics.unsupported(format)
	}

	_, err := c.Out.Write(buf.Bytes())
	return err
}

func (c *Consumer) release(b *bridge.Batch) {
	if b.Released() {
		return
	}
	b.Release()
	c.Metrics.released()
}
