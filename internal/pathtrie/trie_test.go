package pathtrie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

func docValueCtor() PathValue { return support.NewZeroDocumentID() }

func TestPathTrie(t *testing.T) {
	t.Run("add, get and search", func(t *testing.T) {
		trie := NewPathTrie(docValueCtor)

		a, err := support.NewDocumentID()
		require.NoError(t, err)
		b, err := support.NewDocumentID()
		require.NoError(t, err)

		_, err = trie.Add("/docs/a", a)
		require.NoError(t, err)
		_, err = trie.Add("/docs/b", b)
		require.NoError(t, err)

		value, found, err := trie.Get("/docs/a")
		require.NoError(t, err)
		require.True(t, found)
		require.Zero(t, value.CompareTo(a))

		_, found, err = trie.Get("/docs/missing")
		require.NoError(t, err)
		require.False(t, found)

		matches := trie.Search("/docs/")
		require.ElementsMatch(t, []string{"/docs/a", "/docs/b"}, matches)
	})

	t.Run("re-binding a path returns the previous value", func(t *testing.T) {
		trie := NewPathTrie(docValueCtor)
		a, _ := support.NewDocumentID()
		b, _ := support.NewDocumentID()

		prev, err := trie.Add("/x", a)
		require.NoError(t, err)
		require.Nil(t, prev)

		prev, err = trie.Add("/x", b)
		require.NoError(t, err)
		require.NotNil(t, prev)
		require.Zero(t, prev.CompareTo(a))
	})

	t.Run("delete clears the value but keeps the path usable for re-add", func(t *testing.T) {
		trie := NewPathTrie(docValueCtor)
		a, _ := support.NewDocumentID()

		_, _ = trie.Add("/y", a)
		require.True(t, trie.Delete("/y"))
		require.False(t, trie.Delete("/y"), "second delete has nothing to do")

		_, found, err := trie.Get("/y")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("paths for value survive a freeze and defrost round trip through a fresh document id instance", func(t *testing.T) {
		original := NewPathTrie(docValueCtor)
		a, _ := support.NewDocumentID()

		_, _ = original.Add("/p/one", a)
		_, _ = original.Add("/p/two", a)

		restored := NewPathTrie(docValueCtor)
		err := restored.Defrost(original.Freeze())
		require.NoError(t, err)

		// look the value up by path, rather than re-using the `a` instance,
		// so the reverse cache must match on frozen bytes, not pointer identity
		reloaded, found, err := restored.Get("/p/one")
		require.NoError(t, err)
		require.True(t, found)

		paths := restored.PathsForValue(reloaded)
		require.ElementsMatch(t, []string{"/p/one", "/p/two"}, paths)
	})
}
