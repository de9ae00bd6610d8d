package join

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// LENGTHSIZE is the size in bytes of the frame length header.
	LENGTHSIZE = 2
)

// ErrInvalidMsgLength indicates a message length header is invalid.
var ErrInvalidMsgLength = errors.New("invalid message length")

// ErrMaxLenExceeded indicates the message length exceeds the maximum allowed.
var ErrMaxLenExceeded = errors.New("maximum message length exceeded")

// Write writes data prefixed with a big-endian length header of configured size.
func Write(w io.Writer, in []byte) error {
	// Validate message length against header size.
	maxLen := uint64(1<<(8*LENGTHSIZE)) - 1
	if uint64(len(in)) > maxLen {
		return ErrMaxLenExceeded
	}

	out := &bytes.Buffer{}
	// Write length header based on configured size.
	switch LENGTHSIZE {
	case 2:
		if err := binary.Write(out, binary.BigEndian, uint16(len(in))); err != nil {
			return err
		}
	case 4:
		if err := binary.Write(out, binary.BigEndian, uint32(len(in))); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported header size: %d", LENGTHSIZE)
	}
	if _, err := out.Write(in); err != nil {
		return err
	}
	if _, err := out.WriteTo(w); err != nil {
		return err
	}

	return nil
}

// readLength reads and decodes the frame length header.
func readLength(r io.Reader) (uint64, error) {
	switch LENGTHSIZE {
	case 2:
		var l2 uint16
		if err := binary.Read(r, binary.BigEndian, &l2); err != nil {
			return 0, err
		}
		return uint64(l2), nil
	case 4:
		var l4 uint32
		if err := binary.Read(r, binary.BigEndian, &l4); err != nil {
			return 0, err
		}
		return uint64(l4), nil
	default:
		return 0, fmt.Errorf("unsupported header size: %d", LENGTHSIZE)
	}
}

// unwrapNested strips one nested length header if the payload carries one.
func unwrapNested(message []byte) []byte {
	if len(message) > LENGTHSIZE {
		var innerLen uint64
		switch LENGTHSIZE {
		case 2:
			innerLen = uint64(binary.BigEndian.Uint16(message[:2]))
		case 4:
			innerLen = uint64(binary.BigEndian.Uint32(message[:4]))
		}
		if innerLen == uint64(len(message)-LENGTHSIZE) {
			message = message[LENGTHSIZE:]
		}
	}

	return message
}

// Read reads data prefixed with a big-endian length header of configured size.
func Read(r io.Reader) ([]byte, error) {
	length, err := readLength(r)
	if err != nil {
		return nil, err
	}

	message := make([]byte, int(length))
	if _, err := io.ReadFull(r, message); err != nil {
		return nil, err
	}

	return unwrapNested(message), nil
}

// ReadPooled reads a framed message into a buffer taken from the shared
// buffer pool. The caller must return the buffer with PutBuffer once the
// payload is no longer referenced.
func ReadPooled(r io.Reader) ([]byte, error) {
	length, err := readLength(r)
	if err != nil {
		return nil, err
	}

	message := GetBuffer(int(length))[:length]
	if _, err := io.ReadFull(r, message); err != nil {
		PutBuffer(message)
		return nil, err
	}

	return unwrapNested(message), nil
}
