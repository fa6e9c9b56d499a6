package structure

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

func TestPage(t *testing.T) {
	t.Run("creating, freezing and defrosting", func(t *testing.T) {
		input := []byte("Buddhasaurus has prehistoric chill")

		original := NewPage(5)
		original.SetPageType(PageTypeData)

		err := original.Write(bytes.NewReader(input), 0, len(input))
		require.NoError(t, err)

		require.False(t, original.ValidateCrc(), "crc before update")
		original.UpdateCrc()
		require.True(t, original.ValidateCrc(), "crc after update")

		original.SetPrevPageId(4)
		require.False(t, original.ValidateCrc(), "crc stale after header change")
		original.UpdateCrc()
		require.True(t, original.ValidateCrc(), "crc after second update")

		rdr := original.Freeze()
		restored := NewPage(5)
		err = restored.Defrost(rdr)
		require.NoError(t, err)

		require.True(t, restored.ValidateCrc())
		require.EqualValues(t, 4, restored.GetPrevPageId())
		require.Equal(t, PageTypeData, restored.GetPageType())

		buf, err := io.ReadAll(restored.BodyReader())
		require.NoError(t, err)
		require.Equal(t, string(input), string(buf))
	})

	t.Run("free flag is independent of page type", func(t *testing.T) {
		page := NewPage(1)
		page.SetPageType(PageTypeIndex)
		page.SetFree(true)

		require.Equal(t, PageTypeIndex, page.GetPageType())
		require.True(t, page.IsFree())

		page.SetFree(false)
		require.False(t, page.IsFree())
		require.Equal(t, PageTypeIndex, page.GetPageType())
	})

	t.Run("DID round-trips through freeze and defrost", func(t *testing.T) {
		did, err := support.NewDocumentID()
		require.NoError(t, err)

		page := NewPage(2)
		page.SetDID(did)
		page.UpdateCrc()

		restored := NewPage(2)
		err = restored.Defrost(page.Freeze())
		require.NoError(t, err)

		require.Zero(t, did.CompareTo(restored.GetDID()))
	})

	t.Run("a torn page fails its CRC check on read", func(t *testing.T) {
		page := NewPage(3)
		_ = page.Write(bytes.NewReader([]byte("hello")), 0, 5)
		page.UpdateCrc()

		raw, err := io.ReadAll(page.Freeze())
		require.NoError(t, err)
		raw[100] ^= 0xFF // flip every bit of one payload byte, simulating a torn write

		restored := NewPage(3)
		err = restored.Defrost(bytes.NewReader(raw))
		require.Error(t, err)
	})
}
