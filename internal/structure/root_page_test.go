package structure

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootHeader(t *testing.T) {
	t.Run("freeze and defrost round trip", func(t *testing.T) {
		original := NewRootHeader()
		original.IndexLink().WriteNewLink(42)
		original.PathLookupLink().WriteNewLink(7)
		original.FreeListLink().WriteNewLink(99)

		raw, err := io.ReadAll(original.Freeze())
		require.NoError(t, err)
		require.Len(t, raw, RootHeaderSize)

		restored := NewRootHeader()
		err = restored.Defrost(bytes.NewReader(raw))
		require.NoError(t, err)

		ok, pid := restored.IndexLink().TryGetLink(0)
		require.True(t, ok)
		require.Equal(t, 42, pid)

		ok, pid = restored.PathLookupLink().TryGetLink(0)
		require.True(t, ok)
		require.Equal(t, 7, pid)

		ok, pid = restored.FreeListLink().TryGetLink(0)
		require.True(t, ok)
		require.Equal(t, 99, pid)
	})

	t.Run("rejects a stream with the wrong magic", func(t *testing.T) {
		bad := make([]byte, RootHeaderSize)
		restored := NewRootHeader()
		err := restored.Defrost(bytes.NewReader(bad))
		require.Error(t, err)
	})

	t.Run("rejects a truncated stream", func(t *testing.T) {
		restored := NewRootHeader()
		err := restored.Defrost(bytes.NewReader(RootHeaderMagic[:4]))
		require.Error(t, err)
	})
}
