package data

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name" msgpack:"name"`
	Count int      `json:"count" msgpack:"count"`
	Tags  []string `json:"tags" msgpack:"tags"`
}

func TestCodecRoundTrip(t *testing.T) {
	in := sample{Name: "join", Count: 3, Tags: []string{"a", "b"}}

	for _, name := range []string{"json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			codec, err := LookupCodec(name)
			require.NoError(t, err)
			require.Equal(t, name, codec.Name())
			require.NotEmpty(t, codec.ContentType())

			encoded, err := codec.Marshal(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, codec.Unmarshal(encoded, &out))
			require.Equal(t, in, out)
		})
	}
}

func TestLookupCodecUnknown(t *testing.T) {
	_, err := LookupCodec("xml")
	require.ErrorIs(t, err, ErrUnknownCodec)
}

func TestUnmarshalInvalid(t *testing.T) {
	var out sample

	require.Error(t, JSONCodec{}.Unmarshal([]byte("{truncated"), &out))
	require.Error(t, MsgpackCodec{}.Unmarshal([]byte{0xc1}, &out))
}

type customCodec struct{}

func (customCodec) Marshal(any) ([]byte, error) { return []byte("x"), nil }
func (customCodec) Unmarshal([]byte, any) error { return nil }
func (customCodec) ContentType() string         { return "application/x-custom" }
func (customCodec) Name() string                { return "custom" }

func TestRegisterCodec(t *testing.T) {
	RegisterCodec(customCodec{})

	c, err := LookupCodec("custom")
	require.NoError(t, err)
	require.Equal(t, "application/x-custom", c.ContentType())
}
