package rpc

import (
	"encoding/json"

	"archigen/internal/util/jsonutil"
)

// jsonCodec lets Connect carry plain Go structs. It replaces the default
// protobuf-backed "json" codec.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return jsonutil.MarshalNoEscape(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
