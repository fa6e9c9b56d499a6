package structure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

func TestIndexPage(t *testing.T) {
	t.Run("manipulating indexes", func(t *testing.T) {
		page := NewIndexPage()

		did0, _ := support.NewDocumentID()
		did1, _ := support.NewDocumentID()
		pid1 := 10
		did2, _ := support.NewDocumentID()
		pid2 := 20
		did3, _ := support.NewDocumentID()
		pid3 := 30

		ok, err := page.TryInsert(did1, pid1)
		require.NoError(t, err)
		require.True(t, ok, "ins 1")

		ok, err = page.TryInsert(did2, pid2)
		require.NoError(t, err)
		require.True(t, ok, "ins 2")

		ok, err = page.TryInsert(did3, pid3)
		require.NoError(t, err)
		require.True(t, ok, "ins 3")

		link, found := page.Search(did3)
		require.True(t, found, "find 1")
		ok, pageId := link.TryGetLink(0)
		require.True(t, ok)
		require.Equal(t, pid3, pageId)

		link, found = page.Search(did1)
		require.True(t, found, "find 2")
		_, pageId = link.TryGetLink(0)
		require.Equal(t, pid1, pageId)

		_, found = page.Search(did0)
		require.False(t, found, "unbound id should not be found")

		ok = page.Remove(did1)
		require.True(t, ok, "remove")

		_, found = page.Search(did1)
		require.False(t, found, "slot is cleared to the zero DID, not just its link")
	})

	t.Run("duplicate insert is rejected", func(t *testing.T) {
		page := NewIndexPage()
		did, _ := support.NewDocumentID()

		ok, err := page.TryInsert(did, 1)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = page.TryInsert(did, 2)
		require.Error(t, err)
	})

	t.Run("freeze and defrost", func(t *testing.T) {
		original := NewIndexPage()

		did1, _ := support.NewDocumentID()
		pid1 := 10
		did2, _ := support.NewDocumentID()
		pid2 := 20
		did3, _ := support.NewDocumentID()
		pid3 := 30

		_, _ = original.TryInsert(did1, pid1)
		_, _ = original.TryInsert(did2, pid2)
		_, _ = original.TryInsert(did3, pid3)

		rdr := original.Freeze()
		restored := NewIndexPage()
		err := restored.Defrost(rdr)
		require.NoError(t, err)

		link, found := restored.Search(did1)
		require.True(t, found)
		_, pageId := link.TryGetLink(0)
		require.Equal(t, pid1, pageId)

		link, found = restored.Search(did2)
		require.True(t, found)
		_, pageId = link.TryGetLink(0)
		require.Equal(t, pid2, pageId)

		link, found = restored.Search(did3)
		require.True(t, found)
		_, pageId = link.TryGetLink(0)
		require.Equal(t, pid3, pageId)
	})
}
