package server

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// JSONCodecName is the gRPC content-subtype of the JSON codec.
const JSONCodecName = "json"

// JSONCodec encodes gRPC messages as JSON. The risk service has no
// protobuf schema; its messages are the plain Go request/response structs.
// Registered under the "json" content-subtype, so the proto-based health
// service on the same server keeps its default codec.
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return JSONCodecName
}
