package structure

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/i-e-b/StreamDb-sub000/internal/enginerr"
	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

// QuickAndDirtyMode, if set, skips CRC checks on read for faster (but
// unsafe) reads. It never affects writes. core.Open sets it from
// Options.QuickAndDirty, so the setting is shared by every page read in the
// process.
var QuickAndDirtyMode = false

const (
	// PageRawSize is the size of a page in storage, including the header.
	PageRawSize = 4096

	// PageHeaderSize is the number of bytes of metadata at the start of
	// every page: DID(16) + FirstPageId(4) + PageType(1) +
	// DocumentSequence(2) + PrevPageId(4) + NextPageId(4) + CRC32(4).
	PageHeaderSize = 16 + 4 + 1 + 2 + 4 + 4 + 4

	// PageDataCapacity is the maximum payload capacity of a page.
	PageDataCapacity = PageRawSize - PageHeaderSize

	// MaxInt32Index is the maximum payload index usable as an int32 slot.
	MaxInt32Index = (PageDataCapacity / 4) - 1
)

// header field offsets, all little-endian (spec decision: §9).
const (
	offDID              = 0
	offFirstPageId       = offDID + 16
	offPageType          = offFirstPageId + 4
	offDocumentSequence  = offPageType + 1
	offPrevPageId        = offDocumentSequence + 2
	offNextPageId        = offPrevPageId + 4
	offCRC32             = offNextPageId + 4
	offPayload           = offCRC32 + 4 // must equal PageHeaderSize
)

// PageType identifies the role a page plays in the store. The top bit of
// the on-disk byte is the "Free" flag, kept in a separate bit range so a
// freed variant of any type remains representable without losing the type
// it used to hold.
type PageType byte

const (
	PageTypeInvalid PageType = iota
	PageTypeRoot
	PageTypeIndex
	PageTypeFreeList
	PageTypePathLookup
	PageTypeData

	pageTypeMask = 0x7F
	pageFreeBit  = 0x80
)

// Page is a single fixed-size (4096B) block of the store: a typed header
// plus CRC-protected payload. Implements support.StreamSerialisable.
type Page struct {
	// data is the page exactly as read from or written to storage.
	data []byte

	// PageId is the id this instance was loaded from/written to. It is
	// not itself part of the serialised bytes.
	PageId int
}

// NewPage allocates a zeroed page for pageId, with both links set invalid.
func NewPage(pageId int) *Page {
	page := &Page{
		data:   make([]byte, PageRawSize),
		PageId: pageId,
	}
	page.SetPrevPageId(-1)
	page.SetNextPageId(-1)
	page.SetFirstPageId(-1)
	page.SetPageType(PageTypeInvalid)
	return page
}

func (page *Page) SetDID(id *support.DocumentID) {
	copy(page.data[offDID:offDID+16], id.Bytes())
}
func (page *Page) GetDID() *support.DocumentID {
	id, err := support.DocumentIDFromBytes(page.data[offDID : offDID+16])
	if err != nil {
		panic(err) // slice is always exactly 16 bytes; cannot happen
	}
	return id
}

func (page *Page) SetFirstPageId(v int32) { page.writeInt32(offFirstPageId, v) }
func (page *Page) GetFirstPageId() int32  { return page.readInt32(offFirstPageId) }

func (page *Page) SetPageType(t PageType) {
	raw := page.data[offPageType] & pageFreeBit
	page.data[offPageType] = raw | (byte(t) & pageTypeMask)
}
func (page *Page) GetPageType() PageType {
	return PageType(page.data[offPageType] & pageTypeMask)
}
func (page *Page) SetFree(free bool) {
	if free {
		page.data[offPageType] |= pageFreeBit
	} else {
		page.data[offPageType] &^= pageFreeBit
	}
}
func (page *Page) IsFree() bool { return page.data[offPageType]&pageFreeBit != 0 }

func (page *Page) SetDocumentSequence(v uint16) {
	binary.LittleEndian.PutUint16(page.data[offDocumentSequence:], v)
}
func (page *Page) GetDocumentSequence() uint16 {
	return binary.LittleEndian.Uint16(page.data[offDocumentSequence:])
}

func (page *Page) SetPrevPageId(v int32) { page.writeInt32(offPrevPageId, v) }
func (page *Page) GetPrevPageId() int32  { return page.readInt32(offPrevPageId) }

// SetNextPageId sets the raw NextPageId field. On every page but the last
// one written in a chain this should be -1 (no persisted forward link is
// ever kept: forward order is reconstructed from a cache, see
// DESIGN.md §Open Questions #6). On the last page, this field is reused to
// carry that page's used payload length via SetUsedLength/GetUsedLength.
func (page *Page) SetNextPageId(v int32) { page.writeInt32(offNextPageId, v) }
func (page *Page) GetNextPageId() int32  { return page.readInt32(offNextPageId) }

// SetUsedLength/GetUsedLength alias the NextPageId field for the terminal
// page of a chain, where there is no real "next" to record.
func (page *Page) SetUsedLength(v int32) { page.SetNextPageId(v) }
func (page *Page) GetUsedLength() int32  { return page.GetNextPageId() }

func (page *Page) SetCrcHash(v uint32) { page.writeUint32(offCRC32, v) }
func (page *Page) GetCrcHash() uint32  { return page.readUint32(offCRC32) }

// UpdateCrc recomputes the CRC over the whole page with the CRC field
// zeroed, and stores the result.
func (page *Page) UpdateCrc() {
	page.SetCrcHash(0)
	page.SetCrcHash(support.ComputeCRC32(page.data))
}

// ValidateCrc checks the stored checksum against the page's current bytes.
func (page *Page) ValidateCrc() bool {
	if QuickAndDirtyMode {
		return true
	}

	stored := page.GetCrcHash()
	page.SetCrcHash(0)
	computed := support.ComputeCRC32(page.data)
	page.SetCrcHash(stored)

	return stored == computed
}

// Write copies data from a reader into the payload at pageOffset, up to
// length bytes, and records the used length via SetUsedLength.
func (page *Page) Write(input io.Reader, pageOffset, length int) error {
	if input == nil {
		return errors.New("invalid input")
	}
	if pageOffset+length > PageDataCapacity {
		return errors.New("page write exceeds page capacity")
	}

	buf := make([]byte, length)
	actual, err := io.ReadFull(input, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	writeExtent := pageOffset + actual

	base := offPayload + pageOffset
	copy(page.data[base:base+length], buf)

	page.SetUsedLength(int32(writeExtent))
	return nil
}

// ZeroPayload clears all payload bytes. Header values are untouched.
func (page *Page) ZeroPayload() {
	for i := offPayload; i < len(page.data); i++ {
		page.data[i] = 0
	}
}

// BodyReader returns a reader over this page's used payload bytes, per its
// own recorded used-length. Only meaningful for a page whose NextPageId
// field is genuinely unused as a forward link -- i.e. a standalone page
// (index, free-list, path-lookup) or the terminal page of a data chain. An
// interior data-chain page's NextPageId is always -1 (see DESIGN.md Open
// Question #6); callers walking a chain should use BodyReaderN instead.
func (page *Page) BodyReader() io.Reader {
	return page.BodyReaderN(page.GetUsedLength())
}

// BodyReaderN returns a reader over exactly n bytes of this page's payload,
// ignoring whatever the page's own NextPageId/used-length field holds.
func (page *Page) BodyReaderN(n int32) io.Reader {
	end := offPayload + int(n)
	if end > len(page.data) {
		end = len(page.data)
	}
	if end < offPayload {
		end = offPayload
	}
	return bytes.NewReader(page.data[offPayload:end])
}

// ReadDataInt32 treats the payload as an array of int32 and reads slot idx.
func (page *Page) ReadDataInt32(idx int) (int32, error) {
	if idx < 0 || idx > MaxInt32Index {
		return 0, errors.New("index out of range")
	}
	return page.readInt32(offPayload + idx*4), nil
}

// WriteDataInt32 treats the payload as an array of int32 and writes slot idx.
func (page *Page) WriteDataInt32(idx int, value int32) error {
	if idx < 0 || idx > MaxInt32Index {
		return errors.New("index out of range")
	}
	page.writeInt32(offPayload+idx*4, value)
	return nil
}

// Freeze converts to a byte stream.
func (page *Page) Freeze() support.LengthReader {
	return bytes.NewBuffer(page.data)
}

// Defrost populates data from a byte stream, validating its CRC.
func (page *Page) Defrost(reader io.Reader) error {
	if len(page.data) != PageRawSize {
		page.data = make([]byte, PageRawSize)
	}
	n, err := io.ReadFull(reader, page.data)
	if err != nil {
		return errors.Wrap(err, "reading page body")
	}
	if n < PageRawSize {
		return errors.New("source was not long enough to fill a whole page")
	}
	if !page.ValidateCrc() {
		return enginerr.ErrCorruptPage
	}
	return nil
}

func (page *Page) readInt32(pos int) int32 {
	return int32(binary.LittleEndian.Uint32(page.data[pos:]))
}
func (page *Page) readUint32(pos int) uint32 {
	return binary.LittleEndian.Uint32(page.data[pos:])
}
func (page *Page) writeInt32(pos int, value int32) {
	binary.LittleEndian.PutUint32(page.data[pos:], uint32(value))
}
func (page *Page) writeUint32(pos int, value uint32) {
	binary.LittleEndian.PutUint32(page.data[pos:], value)
}

// PageCountRequired returns how many pages are needed to store byteLength
// bytes of payload.
func PageCountRequired(byteLength int64) int {
	full := byteLength / PageDataCapacity
	spare := byteLength % PageDataCapacity
	if spare > 0 {
		full++
	}
	return int(full)
}
