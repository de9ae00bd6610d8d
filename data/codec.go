// Package data provides the serialization layer of the join framework:
// a Codec abstraction with JSON and MessagePack implementations, and
// pluggable payload compression.
package data

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownCodec indicates no codec is registered under the given name.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec serializes values to and from a wire representation.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// ContentType is the MIME type of the encoded form.
	ContentType() string
	// Name is the short registry name of the codec.
	Name() string
}

var (
	codecMu sync.RWMutex
	codecs  = make(map[string]Codec)
)

// RegisterCodec makes a codec available through LookupCodec. Registering
// the same name twice overwrites the earlier entry.
func RegisterCodec(c Codec) {
	codecMu.Lock()
	codecs[c.Name()] = c
	codecMu.Unlock()
}

// LookupCodec returns the codec registered under name.
func LookupCodec(name string) (Codec, error) {
	codecMu.RLock()
	c, ok := codecs[name]
	codecMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}

	return c, nil
}

func init() {
	RegisterCodec(JSONCodec{})
	RegisterCodec(MsgpackCodec{})
}
