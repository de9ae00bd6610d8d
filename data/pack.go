package data

// Pack marshals v with the codec and compresses the result. A nil
// compressor packs without compression.
func Pack(c Codec, comp Compressor, v any) ([]byte, error) {
	encoded, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}

	if comp == nil {
		return encoded, nil
	}

	return comp.Compress(encoded)
}

// Unpack decompresses data and unmarshals it into v. The compressor must
// match the one used by Pack; nil means the payload is not compressed.
func Unpack(c Codec, comp Compressor, data []byte, v any) error {
	if comp != nil {
		decoded, err := comp.Decompress(data)
		if err != nil {
			return err
		}
		data = decoded
	}

	return c.Unmarshal(data, v)
}
