package data

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec serializes values as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	out, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling msgpack: %w", err)
	}

	return out, nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshalling msgpack: %w", err)
	}

	return nil
}

func (MsgpackCodec) ContentType() string { return "application/msgpack" }

func (MsgpackCodec) Name() string { return "msgpack" }
