package pathtrie

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/i-e-b/StreamDb-sub000/internal/comparable"
	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

// PathValue is the requirement for a value bound to a path in the trie.
type PathValue interface {
	support.StreamSerialisable
	comparable.Comparable
}

// PathTrie is a serialisable search trie storing paths as reverse-linked
// nodes (each node points back to its parent, never forward). A forward
// cache of (parent, rune) -> child is rebuilt on load and kept current on
// every mutation, so lookups don't need to walk the reverse links.
type PathTrie struct {
	lock *sync.RWMutex

	// store is the append-only node list; this is the only part serialised.
	store []trieNode

	// fwdCache is parent index -> rune -> child index.
	fwdCache map[int]childMap

	// valueCache maps a value's frozen byte representation to the set of
	// node indexes it is bound to, for reverse (value -> paths) lookups.
	// Keying by the frozen bytes (rather than by the value's own interface
	// identity) means two distinct *DocumentID instances holding the same
	// 16 bytes -- e.g. one freshly deserialised -- hit the same cache entry.
	valueCache map[string]nodeSet

	valueCtor func() PathValue
}

// NewPathTrie sets up a new, empty trie. Every value later stored or
// deserialised must be of the kind returned by constructor.
func NewPathTrie(constructor func() PathValue) *PathTrie {
	trie := &PathTrie{
		lock:       &sync.RWMutex{},
		store:      []trieNode{},
		fwdCache:   map[int]childMap{},
		valueCache: map[string]nodeSet{},
		valueCtor:  constructor,
	}
	addNode(rootValue, rootParent, trie)
	return trie
}

// Add binds a path to a value. If the path already held a value, the
// previous value is returned.
func (trie *PathTrie) Add(path string, value PathValue) (PathValue, error) {
	trie.lock.Lock()
	defer trie.lock.Unlock()

	if value == nil {
		return nil, errors.New("value must not be nil")
	}
	if path == "" {
		return nil, errors.New("path must not be empty")
	}

	q := []rune(path)
	current := 0
	for len(q) > 0 {
		c := q[0]
		q = q[1:]

		next := trie.nextNode(current, c)
		if next > 0 {
			current = next
			continue
		}
		current = trie.linkNewNode(current, c)
	}

	if current >= len(trie.store) {
		panic("internal logic error in PathTrie.Add")
	}

	old := trie.store[current].Data
	trie.store[current].Data = value
	trie.addToValueCache(current, value)

	return old, nil
}

// Get reads the value bound to an exact path. found is false if nothing is
// bound there.
func (trie *PathTrie) Get(path string) (value PathValue, found bool, err error) {
	trie.lock.RLock()
	defer trie.lock.RUnlock()

	if path == "" {
		return nil, false, errors.New("path must not be empty")
	}

	idx, found := trie.tryFindNodeIndex(path)
	if !found {
		return nil, false, nil
	}
	if idx >= len(trie.store) {
		return nil, false, errors.New("internal logic error in PathTrie.Get")
	}
	value = trie.store[idx].Data
	return value, value != nil, nil
}

// Search returns every bound path that extends prefix; a path exactly equal
// to prefix is not included. An empty prefix yields an empty result, not
// every path.
func (trie *PathTrie) Search(prefix string) []string {
	trie.lock.RLock()
	defer trie.lock.RUnlock()

	var accum []string
	if prefix == "" {
		return accum
	}

	idx, found := trie.tryFindNodeIndex(prefix)
	if !found {
		return accum
	}

	for _, c := range keysOf(trie.fwdCache[idx]) {
		child := trie.fwdCache[idx][c]
		accum = append(accum, trie.recursiveSearch(child)...)
	}
	return accum
}

// Delete clears the value at exactPath, if any, and reports whether a value
// was removed. The path's node stays in the tree (paths are never
// compacted) but no longer carries a value.
func (trie *PathTrie) Delete(exactPath string) (valueRemoved bool) {
	trie.lock.Lock()
	defer trie.lock.Unlock()

	if exactPath == "" {
		return false
	}

	idx, found := trie.tryFindNodeIndex(exactPath)
	if !found {
		return false
	}
	if idx >= len(trie.store) {
		panic("internal logic error in PathTrie.Delete")
	}

	old := trie.store[idx].Data
	trie.store[idx].Data = nil

	if old != nil {
		key := freezeKey(old)
		set := trie.valueCache[key]
		delete(set, idx)
		if len(set) == 0 {
			delete(trie.valueCache, key)
		}
	}
	return old != nil
}

// PathsForValue lists every path currently bound to value.
func (trie *PathTrie) PathsForValue(value PathValue) (paths []string) {
	trie.lock.RLock()
	defer trie.lock.RUnlock()

	if value == nil {
		return []string{}
	}
	set, found := trie.valueCache[freezeKey(value)]
	if !found || set == nil {
		return []string{}
	}
	for idx := range set {
		paths = append(paths, trie.traceNodePath(idx))
	}
	return paths
}

// Freeze converts to a byte stream. Only the reverse node list is stored;
// both caches are rebuilt on Defrost.
func (trie *PathTrie) Freeze() support.LengthReader {
	buf := &bytes.Buffer{}
	dest := support.BitwiseStreamWrapper(buf, 1)

	mustWrite(dest.EncodeUint(uint32(len(trie.store) + 1)))

	for _, node := range trie.store {
		if node.SelfIndex == 0 {
			continue // root is implicit, never stored
		}

		mustWrite(dest.EncodeUint(uint32(node.Parent)))
		mustWrite(dest.EncodeUint(uint32(node.Value)))

		if node.Data == nil {
			mustWrite(dest.EncodeUint(0))
			continue
		}

		raw := node.Data.Freeze()
		length := raw.Len()

		mustWrite(dest.EncodeUint(uint32(length)))
		mustWrite(dest.Flush())
		n, err := buf.ReadFrom(raw)
		mustWrite(err)
		if int(n) != length {
			panic("path trie freeze: declared length did not match actual data")
		}
	}

	// end-of-stream marker
	mustWrite(dest.EncodeUint(0))
	mustWrite(dest.EncodeUint(0))
	mustWrite(dest.EncodeUint(0))
	mustWrite(dest.Flush())

	return buf
}

// Defrost populates data from a byte stream produced by Freeze.
func (trie *PathTrie) Defrost(reader io.Reader) error {
	all, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	buf := bytes.NewBuffer(all)
	src := support.BitwiseStreamWrapper(buf, 64)

	trie.store = []trieNode{}
	trie.fwdCache = map[int]childMap{}
	trie.valueCache = map[string]nodeSet{}
	addNode(rootValue, rootParent, trie)

	expectedLength, ok := src.TryDecodeUint()
	if !ok {
		return errors.New("path trie stream is invalid")
	}
	if expectedLength < 1 {
		return errors.New("path trie prefix length is invalid")
	}
	expectedLength--

	for i := 0; i < int(expectedLength); i++ {
		uParent, ok := src.TryDecodeUint()
		if !ok {
			break
		}
		parent := int(uParent)

		uValue, ok := src.TryDecodeUint()
		if !ok {
			return errors.New("path trie entry truncated at child")
		}
		value := rune(uValue)

		if parent == 0 && value == 0 {
			break // end-of-stream marker
		}

		uDataLength, ok := src.TryDecodeUint()
		if !ok {
			return errors.New("path trie entry truncated at data")
		}
		dataLength := int(uDataLength)

		if parent > len(trie.store) {
			return errors.New("path trie: parent forward of child")
		}

		newIdx := addNode(value, parent, trie)
		if newIdx <= parent {
			return errors.New("path trie: found a forward pointer")
		}

		cache := trie.fwdCache[parent]
		if cache == nil {
			cache = childMap{}
			trie.fwdCache[parent] = cache
		}
		cache[value] = newIdx

		if dataLength <= 0 {
			continue
		}

		if src.IsEmpty() {
			return errors.New("path trie data declared but stream ran out")
		}
		if buf.Len() < dataLength {
			return errors.New("path trie stream too short for declared data")
		}

		sub := make([]byte, dataLength)
		n, err := buf.Read(sub)
		if err != nil {
			return err
		}
		if n != dataLength {
			return errors.New("path trie sub-stream did not copy out completely")
		}

		newData := trie.valueCtor()
		if err := newData.Defrost(bytes.NewReader(sub)); err != nil {
			return err
		}

		trie.store[newIdx].Data = newData
		trie.addToValueCache(newIdx, newData)
	}
	return nil
}

func mustWrite(err error) {
	if err != nil {
		panic(err)
	}
}

func freezeKey(value PathValue) string {
	raw, err := io.ReadAll(value.Freeze())
	if err != nil {
		panic(err)
	}
	return string(raw)
}

func (trie *PathTrie) addToValueCache(idx int, data PathValue) {
	key := freezeKey(data)
	set := trie.valueCache[key]
	if set == nil {
		set = nodeSet{}
		trie.valueCache[key] = set
	}
	set[idx] = idx
}

func (trie *PathTrie) recursiveSearch(nodeIdx int) []string {
	var accum []string

	node := trie.store[nodeIdx]
	if node.Data != nil {
		accum = append(accum, trie.traceNodePath(nodeIdx))
	}

	for _, c := range keysOf(trie.fwdCache[nodeIdx]) {
		child := trie.fwdCache[nodeIdx][c]
		accum = append(accum, trie.recursiveSearch(child)...)
	}
	return accum
}

func (trie *PathTrie) traceNodePath(nodeIdx int) string {
	var stack []rune
	for nodeIdx > 0 {
		if nodeIdx >= len(trie.store) {
			panic("internal logic error in PathTrie.traceNodePath")
		}
		node := trie.store[nodeIdx]
		stack = append(stack, node.Value)
		nodeIdx = node.Parent
	}
	reverseRunes(stack)
	return string(stack)
}

func (trie *PathTrie) tryFindNodeIndex(path string) (nodeIndex int, found bool) {
	q := []rune(path)
	current := 0
	for len(q) > 0 {
		c := q[0]
		q = q[1:]
		next := trie.nextNode(current, c)
		if next < 0 {
			return -1, false
		}
		current = next
	}
	return current, true
}

func (trie *PathTrie) nextNode(current int, c rune) int {
	links := trie.fwdCache[current]
	if links == nil {
		links = childMap{}
		trie.fwdCache[current] = links
	}
	idx, found := links[c]
	if !found {
		return -1
	}
	return idx
}

func (trie *PathTrie) linkNewNode(current int, c rune) int {
	idx := addNode(c, current, trie)

	links := trie.fwdCache[current]
	if links == nil {
		panic("internal logic error in PathTrie.linkNewNode")
	}
	links[c] = idx
	return idx
}

func reverseRunes(list []rune) {
	end := len(list) - 1
	for i := 0; i < end; i++ {
		if i >= end {
			return
		}
		list[i], list[end] = list[end], list[i]
		end--
	}
}

func keysOf(m childMap) []rune {
	result := make([]rune, 0, len(m))
	for r := range m {
		result = append(result, r)
	}
	return result
}

type nodeSet map[int]int
type childMap map[rune]int

type trieNode struct {
	Value     rune
	Parent    int
	SelfIndex int
	Data      PathValue
}

func addNode(value rune, parent int, target *PathTrie) int {
	idx := len(target.store)
	target.store = append(target.store, trieNode{
		Value:     value,
		Parent:    parent,
		SelfIndex: idx,
	})
	return idx
}

const (
	rootValue  = rune(0)
	rootParent = -1
)
