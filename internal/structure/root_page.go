package structure

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/i-e-b/StreamDb-sub000/internal/enginerr"
	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

// RootHeaderMagic is written at the very start of a database stream. It is
// never a full page -- just the magic bytes followed by three versioned
// links, occupying a fixed prefix before page 0 begins.
var RootHeaderMagic = []byte{0x55, 0xAA, 0xFE, 0xED, 0xFA, 0xCE, 0xDA, 0x7A}

const (
	// RootMagicSize is the number of magic bytes at the start of the stream.
	RootMagicSize = 8

	// RootHeaderSize is the full size of the root header: magic plus the
	// three versioned links (index, path-lookup, free-list).
	RootHeaderSize = RootMagicSize + (support.VersionLinkByteSize * 3)

	// LinkIdxIndex, LinkIdxPathLookup and LinkIdxFreeList identify which of
	// the three root links an offset or accessor refers to.
	LinkIdxIndex      = 0
	LinkIdxPathLookup = 1
	LinkIdxFreeList   = 2
)

// RootHeader is the fixed-size prefix of a database stream: the magic bytes
// plus versioned links to the three chain heads the rest of the store hangs
// off of. It has no page id and is never CRC-protected as a whole -- each
// versioned link carries its own integrity via the page chain it points at.
type RootHeader struct {
	indexLink      *support.VersionedLink
	pathLookupLink *support.VersionedLink
	freeListLink   *support.VersionedLink
}

// NewRootHeader builds a fresh header with all three chains empty.
func NewRootHeader() *RootHeader {
	return &RootHeader{
		indexLink:      support.NewVersionedLink(),
		pathLookupLink: support.NewVersionedLink(),
		freeListLink:   support.NewVersionedLink(),
	}
}

func (root *RootHeader) IndexLink() *support.VersionedLink      { return root.indexLink }
func (root *RootHeader) PathLookupLink() *support.VersionedLink { return root.pathLookupLink }
func (root *RootHeader) FreeListLink() *support.VersionedLink   { return root.freeListLink }

func (root *RootHeader) SetIndexLink(link *support.VersionedLink)      { root.indexLink = link }
func (root *RootHeader) SetPathLookupLink(link *support.VersionedLink) { root.pathLookupLink = link }
func (root *RootHeader) SetFreeListLink(link *support.VersionedLink)   { root.freeListLink = link }

// Freeze converts the header to its on-disk byte layout.
func (root *RootHeader) Freeze() support.LengthReader {
	buf := newConcatReader(
		bytes.NewReader(RootHeaderMagic),
		root.indexLink.Freeze(),
		root.pathLookupLink.Freeze(),
		root.freeListLink.Freeze(),
	)
	return buf
}

// Defrost reads and validates the magic bytes, then the three versioned
// links, from reader.
func (root *RootHeader) Defrost(reader io.Reader) error {
	magic := make([]byte, RootMagicSize)
	count, err := io.ReadFull(reader, magic)
	if err != nil || count < RootMagicSize {
		return errors.Wrap(enginerr.ErrNotADatabase, "root header too short")
	}
	for i := 0; i < RootMagicSize; i++ {
		if magic[i] != RootHeaderMagic[i] {
			return errors.WithStack(enginerr.ErrNotADatabase)
		}
	}

	root.indexLink = support.NewVersionedLink()
	if err := root.indexLink.Defrost(reader); err != nil {
		return err
	}
	root.pathLookupLink = support.NewVersionedLink()
	if err := root.pathLookupLink.Defrost(reader); err != nil {
		return err
	}
	root.freeListLink = support.NewVersionedLink()
	if err := root.freeListLink.Defrost(reader); err != nil {
		return err
	}
	return nil
}

// LinkOffset returns the byte offset of one of the three root links,
// relative to the start of the stream, for random-access updates.
func LinkOffset(which int) int64 {
	return int64(RootMagicSize) + (int64(support.VersionLinkByteSize) * int64(which))
}

// concatReader chains a fixed sequence of readers, used only to freeze the
// root header without an intermediate buffer copy.
type concatReader struct {
	parts []io.Reader
	idx   int
	total int
}

func newConcatReader(parts ...io.Reader) *concatReader {
	total := 0
	for _, p := range parts {
		if lr, ok := p.(support.LengthReader); ok {
			total += lr.Len()
		}
	}
	return &concatReader{parts: parts, total: total}
}

func (c *concatReader) Read(p []byte) (int, error) {
	for c.idx < len(c.parts) {
		n, err := c.parts[c.idx].Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		c.idx++
	}
	return 0, io.EOF
}

func (c *concatReader) Len() int { return c.total }
