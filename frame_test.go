package join_test

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joinframework/join"
)

// TestFraming verifies the message framing protocol implementation.
// It uses a test server to validate the complete request/response cycle.
func TestFraming(t *testing.T) {
	t.Parallel()

	addr, stop, err := StartTestServer()
	require.NoError(t, err)
	defer func() { _ = stop() }()

	t.Run("Write Success", func(t *testing.T) {
		t.Parallel()

		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err != nil {
			t.Skipf("Skipping test due to connection error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		require.NoError(t, conn.SetDeadline(time.Now().Add(1*time.Second)))

		msg := []byte("hello frame write")
		err = join.Write(conn, msg)
		require.NoError(t, err)

		readMsg, err := join.Read(conn)
		require.NoError(t, err)
		require.Equal(t, msg, readMsg)
	})

	t.Run("ReadPooled Success", func(t *testing.T) {
		t.Parallel()

		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err != nil {
			t.Skipf("Skipping test due to connection error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		require.NoError(t, conn.SetDeadline(time.Now().Add(1*time.Second)))

		msg := []byte("hello pooled read")
		err = join.Write(conn, msg)
		require.NoError(t, err)

		readMsg, err := join.ReadPooled(conn)
		require.NoError(t, err)
		require.Equal(t, msg, readMsg)
		join.PutBuffer(readMsg)
	})

	t.Run("Write Error (Closed Conn)", func(t *testing.T) {
		t.Parallel()

		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err != nil {
			t.Skipf("Skipping test due to connection error: %v", err)
			return
		}
		require.NoError(t, conn.Close())

		err = join.Write(conn, []byte("write error"))
		require.Error(t, err)
	})

	t.Run("Read Error (Closed Conn)", func(t *testing.T) {
		t.Parallel()

		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err != nil {
			t.Skipf("Skipping test due to connection error: %v", err)
			return
		}
		require.NoError(t, conn.Close())

		_, err = join.Read(conn)
		require.Error(t, err)
	})

	t.Run("Maximum Message Size", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		// Create message larger than uint16 max
		msg := make([]byte, 70000)
		err := join.Write(&buf, msg)
		require.ErrorIs(t, err, join.ErrMaxLenExceeded)
	})

	t.Run("Nested Header Unwrapped", func(t *testing.T) {
		t.Parallel()

		payload := []byte("inner payload")

		var inner bytes.Buffer
		require.NoError(t, join.Write(&inner, payload))

		var outer bytes.Buffer
		require.NoError(t, join.Write(&outer, inner.Bytes()))

		got, err := join.Read(&outer)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	})
}

// TestReadPooledAfterNestedUnwrap reuses buffers across reads where the
// first message carried a nested length header. Unwrapping returns a view
// two bytes into the pooled buffer, so the shrunk buffer must not poison
// the pool for subsequent full-class reads.
func TestReadPooledAfterNestedUnwrap(t *testing.T) {
	inner := bytes.Repeat([]byte{0x5A}, 62)

	var nested bytes.Buffer
	require.NoError(t, join.Write(&nested, inner))
	nestedFrame := nested.Bytes()

	plain := bytes.Repeat([]byte{0xA5}, 64)

	for i := 0; i < 64; i++ {
		var frame bytes.Buffer
		require.NoError(t, join.Write(&frame, nestedFrame))

		got, err := join.ReadPooled(&frame)
		require.NoError(t, err)
		require.Equal(t, inner, got)
		join.PutBuffer(got)

		frame.Reset()
		require.NoError(t, join.Write(&frame, plain))

		got, err = join.ReadPooled(&frame)
		require.NoError(t, err)
		require.Equal(t, plain, got)
		join.PutBuffer(got)
	}
}
