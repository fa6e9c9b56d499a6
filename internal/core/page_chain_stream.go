package core

import (
	"io"

	"github.com/pkg/errors"

	"github.com/i-e-b/StreamDb-sub000/internal/enginerr"
	"github.com/i-e-b/StreamDb-sub000/internal/structure"
)

// PageChainStream presents a reverse-linked page chain as a seekable,
// read-only, forward-order byte stream. Pages are only ever linked
// backwards (PrevPageId); forward order is reconstructed once into an
// in-memory cache the first time the stream is used, never persisted.
//
// Mutating a chain's content goes through PageTable.WriteStream, which
// always lays down a fresh chain rather than editing one in place -- see
// DESIGN.md for why an incremental in-place Write on this type was tried
// and dropped.
type PageChainStream struct {
	table     *PageTable
	endPageId int
	length    int32
	position  int32
	cached    bool
	pages     []*structure.Page
}

// NewPageChainStream wraps the chain ending at endPageId as a stream.
func NewPageChainStream(table *PageTable, endPageId int) *PageChainStream {
	return &PageChainStream{
		table:     table,
		endPageId: endPageId,
	}
}

// Read consumes bytes from the chain in forward order.
func (stream *PageChainStream) Read(p []byte) (n int, err error) {
	if err := stream.loadCache(); err != nil {
		return 0, err
	}

	pageIdx := int(stream.position / structure.PageDataCapacity)
	pageOffset := int32(stream.position) % structure.PageDataCapacity

	if pageIdx < 0 {
		return 0, errors.New("page chain stream: read started out of bounds")
	}
	if pageIdx >= len(stream.pages) {
		return 0, io.EOF
	}

	remaining := minInt32(int32(len(p)), stream.length-stream.position)
	if remaining <= 0 {
		return 0, io.EOF
	}

	written := int32(0)
	for remaining > 0 {
		if pageIdx >= len(stream.pages) {
			break
		}
		page := stream.pages[pageIdx]

		usedLen := pageUsedLength(page, pageIdx, len(stream.pages))
		available := usedLen - pageOffset
		if available < 1 {
			return int(written), errors.New("page chain stream: page reported no available bytes")
		}

		request := minInt32(available, remaining)
		buf := make([]byte, request)
		rdr := page.BodyReaderN(usedLen)
		if err := discard(rdr, int64(pageOffset)); err != nil {
			return int(written), err
		}
		actual, err := io.ReadFull(rdr, buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			return int(written), err
		}

		copy(p[written:], buf[:actual])
		written += int32(actual)
		remaining -= int32(actual)

		pageIdx++
		pageOffset = 0
	}

	if written == 0 {
		return 0, io.EOF
	}
	stream.position += written
	return int(written), nil
}

// Seek changes the read position within the stream.
func (stream *PageChainStream) Seek(offset int64, whence int) (int64, error) {
	if err := stream.loadCache(); err != nil {
		return 0, err
	}
	switch whence {
	case io.SeekStart:
		stream.position = int32(offset)
	case io.SeekCurrent:
		stream.position = minInt32(stream.position+int32(offset), stream.length)
	case io.SeekEnd:
		stream.position = stream.length + int32(offset)
	default:
		return 0, errors.New("page chain stream: invalid seek whence")
	}
	return int64(stream.position), nil
}

// Len returns the total byte length of the chain.
func (stream *PageChainStream) Len() int32 {
	if err := stream.loadCache(); err != nil {
		panic(err)
	}
	return stream.length
}

func (stream *PageChainStream) loadCache() error {
	if stream.cached {
		return nil
	}

	var bytesTotal int32
	var pages []*structure.Page

	seen := map[int]bool{}
	page, err := stream.table.GetRawPage(stream.endPageId)
	if err != nil {
		return err
	}
	for page != nil {
		if seen[page.PageId] {
			return errors.WithStack(enginerr.ErrChainLoop)
		}
		seen[page.PageId] = true

		pages = append(pages, page)
		page, err = stream.table.GetRawPage(int(page.GetPrevPageId()))
		if err != nil {
			return err
		}
	}

	reversePages(pages)

	for i, p := range pages {
		bytesTotal += pageUsedLength(p, i, len(pages))
	}

	stream.pages = pages
	stream.length = bytesTotal
	stream.cached = true
	return nil
}

// pageUsedLength returns how many payload bytes of page are actually part of
// the document: every page but the last in forward order is full capacity
// (its NextPageId field, which doubles as used-length, is always -1 per
// DESIGN.md Open Question #6); only the terminal page's GetUsedLength is
// meaningful.
func pageUsedLength(page *structure.Page, idxInChain, chainLen int) int32 {
	if idxInChain == chainLen-1 {
		return page.GetUsedLength()
	}
	return structure.PageDataCapacity
}

func reversePages(list []*structure.Page) {
	end := len(list) - 1
	for i := 0; i < end; i++ {
		if i >= end {
			return
		}
		list[i], list[end] = list[end], list[i]
		end--
	}
}

func discard(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	actual, err := io.CopyN(io.Discard, r, n)
	if err != nil {
		return err
	}
	if actual < n {
		return errors.New("page chain stream: short discard while seeking within page")
	}
	return nil
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
