package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CodecName is the connect codec name, so requests travel as
// "application/json" on the connect protocol.
const CodecName = "json"

// Codec serializes controller messages as JSON. Unknown fields are
// rejected so that a client ahead of the controller fails loudly.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	return nil
}
