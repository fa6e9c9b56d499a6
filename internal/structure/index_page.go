package structure

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	. "github.com/i-e-b/StreamDb-sub000/internal/comparable"
	"github.com/i-e-b/StreamDb-sub000/internal/enginerr"
	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

const (
	IndexEntryCount = 126 // 2+4+8+16+32+64
	IndexPackedSize = 26 * IndexEntryCount

	same    = 0
	less    = -1
	greater = 1
)

var (
	zeroDocId    = support.NewZeroDocumentID()
	neutralDocId = support.NewNeutralDocumentID()
)

// IndexPage holds the content of a single index page: a chained list of
// separate binary trees keyed by document id.
/*

   Layout: [ DID (16 bytes) | VersionedLink (10 bytes) ] --> 26 bytes
   126 entries -> 3276 bytes, comfortably inside the 4061B payload.

   We assume but DON'T store a root node with id {127,127,...,127} -- the
   first two entries are its 'left' and 'right' children at the second
   level of the implicit tree.
*/
type IndexPage struct {
	links  []*support.VersionedLink
	docIds []*support.DocumentID
}

func NewIndexPage() *IndexPage {
	page := IndexPage{
		links:  make([]*support.VersionedLink, IndexEntryCount),
		docIds: make([]*support.DocumentID, IndexEntryCount),
	}
	for i := 0; i < IndexEntryCount; i++ {
		page.links[i] = support.NewVersionedLink()
		page.docIds[i] = support.NewZeroDocumentID()
	}

	return &page
}

// TryInsert places a new document id / page link pair. Returns ok=false if
// the implicit tree walk ran off this page's 126 slots (caller should try
// the next index page in the chain, or allocate a new one). Returns
// enginerr.ErrDuplicateDocument if this page already holds docId.
func (page *IndexPage) TryInsert(docId *support.DocumentID, pageId int) (bool, error) {
	index := find(page, docId)
	if index < 0 || index >= IndexEntryCount {
		return false, nil // no space left on this page
	}

	if Is(page.docIds[index]).NotEqual(zeroDocId) {
		return false, errors.WithStack(enginerr.ErrDuplicateDocument)
	}

	_ = page.links[index].WriteNewLink(pageId)
	page.docIds[index] = docId
	return true, nil
}

// Search tries to find a link in this index page. Returns found=false if
// docId is not present on this page.
func (page *IndexPage) Search(docId *support.DocumentID) (link *support.VersionedLink, found bool) {
	index := find(page, docId)
	if index < 0 || index >= IndexEntryCount {
		return nil, false
	}
	if Is(page.docIds[index]).EqualTo(zeroDocId) {
		return nil, false
	}
	if Is(page.docIds[index]).NotEqual(docId) {
		panic("index page Search: logic error")
	}

	return page.links[index], true
}

// Update writes a new page id into the link for docId. Returns found=false
// if docId is not present on this page.
func (page *IndexPage) Update(docId *support.DocumentID, pageId int) (expiredPage int, found bool) {
	index := find(page, docId)
	if index < 0 || index >= IndexEntryCount {
		return -1, false
	}
	if Is(page.docIds[index]).EqualTo(zeroDocId) {
		return -1, false
	}
	if Is(page.docIds[index]).NotEqual(docId) {
		panic("index page Update: logic error")
	}

	expiredPage = page.links[index].WriteNewLink(pageId)
	return expiredPage, true
}

// Remove clears a slot back to the zero-DID sentinel. Index entries are
// never compacted -- the slot stays reserved in the tree shape.
func (page *IndexPage) Remove(docId *support.DocumentID) bool {
	index := find(page, docId)
	if index < 0 || index >= IndexEntryCount {
		return false
	}
	if Is(page.docIds[index]).EqualTo(zeroDocId) {
		return false
	}
	if Is(page.docIds[index]).NotEqual(docId) {
		panic("index page Remove: logic error")
	}

	page.docIds[index] = support.NewZeroDocumentID()
	page.links[index] = support.NewVersionedLink()
	return true
}

// Freeze converts to a byte stream
func (page *IndexPage) Freeze() support.LengthReader {
	buf := bytes.NewBuffer([]byte{})

	for i := 0; i < IndexEntryCount; i++ {
		id := page.docIds[i].Freeze()
		_, _ = io.Copy(buf, id)

		link := page.links[i].Freeze()
		_, _ = io.Copy(buf, link)
	}

	return buf
}

// Defrost populates data from a byte stream
func (page *IndexPage) Defrost(reader io.Reader) error {
	for i := 0; i < IndexEntryCount; i++ {
		id := support.NewZeroDocumentID()
		err := id.Defrost(reader)
		if err != nil {
			return err
		}
		page.docIds[i] = id

		link := support.NewVersionedLink()
		err = link.Defrost(reader)
		if err != nil {
			return err
		}
		page.links[i] = link
	}
	return nil
}

// find walks the implicit binary tree to locate target's slot index. If no
// such entry exists but there is room for it, the returned index's docIds
// entry will be the zero-DID sentinel -- callers must check for that.
func find(page *IndexPage, target *support.DocumentID) int {
	cmpNode := neutralDocId
	leftIdx := 0
	rightIdx := 1

	current := -1

	for i := 0; i < 7; i++ {
		switch cmpNode.CompareTo(target) {
		case same:
			return current // found it!
		case less:
			current = leftIdx
		case greater:
			current = rightIdx
		default:
			panic("comparable returned unexpected value")
		}

		leftIdx = (current * 2) + 2
		rightIdx = (current * 2) + 3

		if current < 0 {
			panic("index tree find: logic error")
		}
		if current >= IndexEntryCount {
			return -1
		}

		cmpNode = page.docIds[current]
		if Is(cmpNode).EqualTo(zeroDocId) {
			return current
		}
	}
	panic("index tree find: out of loop bounds")
}
