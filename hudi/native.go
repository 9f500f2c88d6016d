package hudi

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/isesword/hudi-go-bridge/bridge"
)

// SliceReader is the part of *bridge.Bridge the native producer needs.
type SliceReader interface {
	ReadFileSlice(options []byte) ([]*bridge.Batch, error)
}

// NativeProducer calls hudi_read_file_slice in a shared library.
type NativeProducer struct {
	Reader  SliceReader
	Options map[string]string
}

func (p NativeProducer) ReadFileSlice(ctx context.Context) ([]*bridge.Batch, error) {
	if p.Reader == nil {
		return nil, ErrNoProducer
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts, err := EncodeOptions(p.Options)
	if err != nil {
		return nil, err
	}
	batches, err := p.Reader.ReadFileSlice(opts)
	if err != nil {
		return nil, errors.Wrap(err, "read_file_slice failed")
	}
	return batches, nil
}

// EncodeOptions serializes read options as a google.protobuf.Struct, the
// payload hudi_read_file_slice expects. Empty options encode to nil.
func EncodeOptions(options map[string]string) ([]byte, error) {
	if len(options) == 0 {
		return nil, nil
	}
	fields := make(map[string]interface{}, len(options))
	for k, v := range options {
		fields[k] = v
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build options struct")
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(st)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal options")
	}
	return b, nil
}

// DecodeOptions is the inverse of EncodeOptions. Non-string values are
// rendered with their protobuf text form.
func DecodeOptions(b []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(b) == 0 {
		return out, nil
	}
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal options")
	}
	for k, v := range st.GetFields() {
		if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			out[k] = s.StringValue
			continue
		}
		out[k] = v.String()
	}
	return out, nil
}
