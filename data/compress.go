package data

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownCompressor indicates an unsupported compression scheme name.
var ErrUnknownCompressor = errors.New("unknown compressor")

// Compressor compresses and decompresses byte payloads.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	// Name is the short scheme name, e.g. "gzip".
	Name() string
}

// NewCompressor returns a compressor for the named scheme with the
// default compression level.
func NewCompressor(name string) (Compressor, error) {
	switch name {
	case "gzip":
		return GzipCompressor{Level: gzip.DefaultCompression}, nil
	case "zlib":
		return ZlibCompressor{Level: zlib.DefaultCompression}, nil
	case "zstd":
		return ZstdCompressor{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompressor, name)
	}
}

// GzipCompressor compresses with gzip at the configured level.
type GzipCompressor struct {
	Level int
}

func (c GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := gzip.NewWriterLevel(&buf, c.Level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip flush: %w", err)
	}

	return buf.Bytes(), nil
}

func (c GzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}

	return out, nil
}

func (GzipCompressor) Name() string { return "gzip" }

// ZlibCompressor compresses with zlib at the configured level.
type ZlibCompressor struct {
	Level int
}

func (c ZlibCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := zlib.NewWriterLevel(&buf, c.Level)
	if err != nil {
		return nil, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib flush: %w", err)
	}

	return buf.Bytes(), nil
}

func (c ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}

	return out, nil
}

func (ZlibCompressor) Name() string { return "zlib" }

// ZstdCompressor compresses with zstandard.
type ZstdCompressor struct{}

func (ZstdCompressor) Compress(data []byte) ([]byte, error) {
	w, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	out := w.EncodeAll(data, nil)
	_ = w.Close()

	return out, nil
}

func (ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer r.Close()

	out, err := r.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}

	return out, nil
}

func (ZstdCompressor) Name() string { return "zstd" }
