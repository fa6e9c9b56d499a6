package core

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageChainStream(t *testing.T) {
	t.Run("reads back a multi-page document in order", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		payload := make([]byte, 10_000)
		for i := range payload {
			payload[i] = byte(i % 251)
		}

		endPageId, err := table.WriteStream(bytes.NewReader(payload))
		require.NoError(t, err)

		stream := table.GetStream(endPageId)
		out, err := io.ReadAll(stream)
		require.NoError(t, err)
		require.Equal(t, payload, out)
	})

	t.Run("seek within a chain", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		payload := []byte("the quick brown fox jumps over the lazy dog")
		endPageId, err := table.WriteStream(bytes.NewReader(payload))
		require.NoError(t, err)

		stream := table.GetStream(endPageId)
		_, err = stream.Seek(4, io.SeekStart)
		require.NoError(t, err)

		buf := make([]byte, 5)
		n, err := stream.Read(buf)
		require.NoError(t, err)
		require.Equal(t, 5, n)
		require.Equal(t, "quick", string(buf))
	})
}
