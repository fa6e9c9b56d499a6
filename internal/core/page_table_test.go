package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

func TestPageTable(t *testing.T) {
	t.Run("opening an empty stream initialises a fresh database", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)
		require.NotNil(t, table)

		stats, err := table.Stats()
		require.NoError(t, err)
		require.Equal(t, 1, stats.IndexChainLength)
		require.Equal(t, 1, stats.FreeListChainLength)
		require.Equal(t, 1, stats.PathLookupChainLength)
	})

	t.Run("re-opening a populated stream preserves its bindings", func(t *testing.T) {
		backing := NewMemoryRws()
		table, err := Open(backing, Options{})
		require.NoError(t, err)

		did, err := support.NewDocumentID()
		require.NoError(t, err)

		pageId, err := table.WriteDocumentStream(did, bytes.NewReader([]byte("hello world")))
		require.NoError(t, err)

		_, err = table.BindIndex(did, pageId)
		require.NoError(t, err)

		reopened, err := Open(backing, Options{})
		require.NoError(t, err)

		head, err := reopened.GetDocumentHead(did)
		require.NoError(t, err)
		require.Equal(t, pageId, head)
	})

	t.Run("writing an empty document is rejected", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		_, err = table.WriteStream(bytes.NewReader([]byte{}))
		require.Error(t, err)
	})

	t.Run("binding, rebinding and unbinding a document in the index", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		did, err := support.NewDocumentID()
		require.NoError(t, err)

		headV1, err := table.WriteDocumentStream(did, bytes.NewReader([]byte("v1")))
		require.NoError(t, err)
		expired, err := table.BindIndex(did, headV1)
		require.NoError(t, err)
		require.Equal(t, -1, expired)

		found, err := table.GetDocumentHead(did)
		require.NoError(t, err)
		require.Equal(t, headV1, found)

		headV2, err := table.WriteDocumentStream(did, bytes.NewReader([]byte("v2, a bit longer")))
		require.NoError(t, err)
		expired, err = table.BindIndex(did, headV2)
		require.NoError(t, err)
		require.Equal(t, -1, expired, "first rebinding keeps the previous head as revision 1")

		found, err = table.GetDocumentHead(did)
		require.NoError(t, err)
		require.Equal(t, headV2, found)

		err = table.UnbindIndex(did)
		require.NoError(t, err)

		found, err = table.GetDocumentHead(did)
		require.NoError(t, err)
		require.Equal(t, -1, found)
	})

	t.Run("index chain extends across many pages worth of documents", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		for i := 0; i < 300; i++ {
			did, err := support.NewDocumentID()
			require.NoError(t, err)
			pageId, err := table.WriteDocumentStream(did, bytes.NewReader([]byte("doc")))
			require.NoError(t, err)
			_, err = table.BindIndex(did, pageId)
			require.NoError(t, err)

			head, err := table.GetDocumentHead(did)
			require.NoError(t, err)
			require.Equal(t, pageId, head)
		}

		stats, err := table.Stats()
		require.NoError(t, err)
		require.Greater(t, stats.IndexChainLength, 1, "should have extended beyond the first index page")
	})

	t.Run("path binding, lookup and search", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		a, err := support.NewDocumentID()
		require.NoError(t, err)
		b, err := support.NewDocumentID()
		require.NoError(t, err)

		_, err = table.BindPath("/docs/a", a)
		require.NoError(t, err)
		_, err = table.BindPath("/docs/b", b)
		require.NoError(t, err)

		found, err := table.GetDocumentIDByPath("/docs/a")
		require.NoError(t, err)
		require.Zero(t, found.CompareTo(a))

		matches := table.SearchPaths("/docs/")
		require.ElementsMatch(t, []string{"/docs/a", "/docs/b"}, matches)

		paths, err := table.PathsForDocument(a)
		require.NoError(t, err)
		require.Equal(t, []string{"/docs/a"}, paths)

		err = table.UnbindPath("/docs/a")
		require.NoError(t, err)

		found, err = table.GetDocumentIDByPath("/docs/a")
		require.NoError(t, err)
		require.Nil(t, found)
	})

	t.Run("rebinding a path returns the displaced document id", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		a, _ := support.NewDocumentID()
		b, _ := support.NewDocumentID()

		prev, err := table.BindPath("/x", a)
		require.NoError(t, err)
		require.Nil(t, prev)

		prev, err = table.BindPath("/x", b)
		require.NoError(t, err)
		require.NotNil(t, prev)
		require.Zero(t, prev.CompareTo(a))
	})

	t.Run("released pages are reused by later allocations", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		did, _ := support.NewDocumentID()
		pageId, err := table.WriteDocumentStream(did, bytes.NewReader([]byte("short-lived")))
		require.NoError(t, err)

		statsBefore, err := table.Stats()
		require.NoError(t, err)

		released, err := table.ReleaseChain(pageId)
		require.NoError(t, err)
		require.Equal(t, 1, released)

		// a fresh write of similar size should reuse the released page
		// rather than growing the backing stream further; we assert this
		// indirectly via the free-list chain not growing unexpectedly.
		did2, _ := support.NewDocumentID()
		_, err = table.WriteDocumentStream(did2, bytes.NewReader([]byte("short-lived")))
		require.NoError(t, err)

		statsAfter, err := table.Stats()
		require.NoError(t, err)
		require.Equal(t, statsBefore.FreeListChainLength, statsAfter.FreeListChainLength)
	})

	t.Run("releasing an invalid chain id is a no-op", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		released, err := table.ReleaseChain(-1)
		require.NoError(t, err)
		require.Zero(t, released)
	})

	t.Run("Close tears down the path trie cache", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		did, _ := support.NewDocumentID()
		_, err = table.BindPath("/a", did)
		require.NoError(t, err)

		table.Close()

		// stream is closed; any further lease acquisition should fail
		_, err = table.GetRawPage(0)
		require.Error(t, err)
	})

	t.Run("WriteDocumentStream stamps the document id into every page header", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		did, err := support.NewDocumentID()
		require.NoError(t, err)

		pageId, err := table.WriteDocumentStream(did, bytes.NewReader(bytes.Repeat([]byte("x"), 9000)))
		require.NoError(t, err)

		page, err := table.GetRawPage(pageId)
		require.NoError(t, err)
		require.Zero(t, page.GetDID().CompareTo(did))
	})

	t.Run("reading an out-of-range page id returns an error", func(t *testing.T) {
		table, err := Open(NewMemoryRws(), Options{})
		require.NoError(t, err)

		_, err = table.GetRawPage(9999)
		require.Error(t, err)
	})
}
