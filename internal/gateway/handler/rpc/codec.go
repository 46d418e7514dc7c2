package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec serves plain Go structs under the "json" codec name, replacing
// connect's protobuf JSON codec for this service.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Codec is the codec clients of CopyService dial with.
func Codec() connect.Codec { return jsonCodec{} }
