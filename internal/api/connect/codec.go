// Package connect provides Connect RPC service implementations.
package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// codecName replaces connect's protobuf JSON codec, so plain Go structs travel as application/json.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSON must be passed to every handler and client of these services.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
