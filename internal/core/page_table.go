package core

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/i-e-b/StreamDb-sub000/internal/enginerr"
	"github.com/i-e-b/StreamDb-sub000/internal/pathtrie"
	"github.com/i-e-b/StreamDb-sub000/internal/structure"
	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

const badPage = -1

// The reserved page ids are written by initialiseDb and never handed back
// by the free list: 0 is unused (reserved for future header growth), 1 is the
// initial index-chain page, 2 the initial free-list page, 3 the initial
// path-lookup page.
const (
	initialIndexPageId      = 1
	initialFreeListPageId   = 2
	initialPathLookupPageId = 3
)

// Options configures a PageTable. The zero value is usable: quick-and-dirty
// CRC checking is off and logging goes to a disabled logger.
type Options struct {
	// QuickAndDirty skips CRC validation on page read, trading safety for
	// speed. Open applies it through the package-level
	// structure.QuickAndDirtyMode var, so it takes effect for every
	// PageTable in the process, not just this one.
	QuickAndDirty bool

	// Logger receives structured lifecycle events (open, commit, release,
	// corrupt page, revision-1 fallback). The zero value is zerolog.Nop(), which
	// discards everything.
	Logger zerolog.Logger

	// Flush is invoked after every write that should be considered
	// durable. It may be nil, in which case writes are not explicitly
	// synced beyond what the underlying stream does on its own.
	Flush func(io.ReadWriteSeeker)
}

// PageTable is the top-level orchestrator for a page-based document store:
// it owns the byte stream, the root header's three chain links, the
// document index, the path lookup trie, and the free-page recycler. All
// access is safe for concurrent use.
type PageTable struct {
	stream *ByteStream
	opts   Options
	log    zerolog.Logger

	root *structure.RootHeader

	// pathCacheMu guards pathTrieCache itself (the field, not the trie's own
	// data -- PathTrie has its own internal lock for that).
	pathCacheMu   sync.Mutex
	pathTrieCache *pathtrie.PathTrie

	// pathMu serialises the whole load -> mutate -> persist sequence for a
	// path-trie write. The per-page ByteStream lease only ever covers a
	// single page's read or write, not this multi-step operation, so two
	// concurrent BindPath/UnbindPath calls could otherwise race on the
	// shared trie and on which chain's WriteNewLink result gets released.
	pathMu sync.Mutex
}

func pathTrieValueCtor() pathtrie.PathValue { return support.NewZeroDocumentID() }

// Open wraps fs as a page table, initialising a fresh database if the
// stream is empty, or validating and attaching to an existing one
// otherwise.
func Open(fs io.ReadWriteSeeker, opts Options) (*PageTable, error) {
	if fs == nil {
		return nil, errors.New("page table: stream must not be nil")
	}

	// QuickAndDirtyMode is a package-level flag on internal/structure (kept
	// for parity with the teacher's single var); set it once here rather
	// than per-read. Running multiple PageTables with different
	// QuickAndDirty settings concurrently in the same process shares this
	// flag -- the same limitation the teacher's design had.
	structure.QuickAndDirtyMode = opts.QuickAndDirty

	table := &PageTable{
		stream: NewByteStream(fs, opts.Flush),
		opts:   opts,
		log:    opts.Logger,
	}

	size, err := fs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	if size == 0 {
		table.log.Info().Msg("initialising new page table")
		if err := table.initialiseDb(); err != nil {
			return nil, err
		}
		return table, nil
	}

	if _, err := fs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	magic := make([]byte, structure.RootMagicSize)
	if _, err := io.ReadFull(fs, magic); err != nil || !bytes.Equal(magic, structure.RootHeaderMagic) {
		return nil, errors.WithStack(enginerr.ErrNotADatabase)
	}
	if size < pagePhysicalLocation(initialPathLookupPageId+1) {
		return nil, errors.WithStack(enginerr.ErrTruncatedDatabase)
	}

	if _, err := fs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	root := structure.NewRootHeader()
	if err := root.Defrost(fs); err != nil {
		return nil, err
	}
	table.root = root

	table.log.Info().Msg("attached to existing page table")
	return table, nil
}

// initialiseDb lays down a fresh root header and the three reserved
// starting pages for the index, free-list and path-lookup chains.
func (table *PageTable) initialiseDb() error {
	return table.stream.WithLease(func(fs io.ReadWriteSeeker) error {
		if _, err := fs.Seek(0, io.SeekStart); err != nil {
			return err
		}

		root := structure.NewRootHeader()
		root.IndexLink().WriteNewLink(initialIndexPageId)
		root.FreeListLink().WriteNewLink(initialFreeListPageId)
		root.PathLookupLink().WriteNewLink(initialPathLookupPageId)

		if _, err := io.Copy(fs, root.Freeze()); err != nil {
			return wrapWriteErr(err)
		}

		// Page 0 is reserved and left untyped.
		if err := table.commitPageLocked(fs, structure.NewPage(0)); err != nil {
			return err
		}

		indexPage := structure.NewPage(initialIndexPageId)
		indexPage.SetPageType(structure.PageTypeIndex)
		indexPage.SetPrevPageId(-1)
		emptyIndex := structure.NewIndexPage().Freeze()
		if err := indexPage.Write(emptyIndex, 0, emptyIndex.Len()); err != nil {
			return err
		}
		if err := table.commitPageLocked(fs, indexPage); err != nil {
			return err
		}

		freeListPage := structure.WrapFreeListPage(structure.NewPage(initialFreeListPageId))
		if err := table.commitPageLocked(fs, freeListPage.Page()); err != nil {
			return err
		}

		pathPage := structure.NewPage(initialPathLookupPageId)
		pathPage.SetPageType(structure.PageTypePathLookup)
		pathPage.SetPrevPageId(-1)
		emptyTrie := pathtrie.NewPathTrie(pathTrieValueCtor).Freeze()
		if err := pathPage.Write(emptyTrie, 0, emptyTrie.Len()); err != nil {
			return err
		}
		if err := table.commitPageLocked(fs, pathPage); err != nil {
			return err
		}

		table.root = root
		table.stream.Flush()
		return nil
	})
}

// GetStream returns a read-only page-chain stream for the chain ending at
// endPageId.
func (table *PageTable) GetStream(endPageId int) *PageChainStream {
	return NewPageChainStream(table, endPageId)
}

// WriteStream stores dataSource as a new page chain and returns the id of
// its last page. The DID header field on every page is left zero; use
// WriteDocumentStream to bind a document id at write time.
func (table *PageTable) WriteStream(dataSource io.Reader) (endPageId int, err error) {
	return table.writeStream(support.NewZeroDocumentID(), dataSource)
}

// WriteDocumentStream is WriteStream but stamps did into every page's
// header, so a page read back out of the chain carries its owning
// document's id without a second pass (see DESIGN.md Open Question #7).
func (table *PageTable) WriteDocumentStream(did *support.DocumentID, dataSource io.Reader) (endPageId int, err error) {
	return table.writeStream(did, dataSource)
}

func (table *PageTable) writeStream(did *support.DocumentID, dataSource io.Reader) (endPageId int, err error) {
	if dataSource == nil {
		return badPage, errors.New("cannot write a nil data source")
	}

	data, err := io.ReadAll(dataSource)
	if err != nil {
		return badPage, err
	}
	if len(data) == 0 {
		return badPage, errors.WithStack(enginerr.ErrEmptyPayload)
	}

	pagesRequired := structure.PageCountRequired(int64(len(data)))
	pageIds := make([]int, pagesRequired)
	if err := table.allocatePageBlock(pageIds); err != nil {
		return badPage, err
	}

	return table.writeStreamToPages(did, data, pageIds)
}

func (table *PageTable) writeStreamToPages(did *support.DocumentID, data []byte, pageIds []int) (endPageId int, err error) {
	prev := int32(-1)
	var sequence uint16 = 0
	for i, pageId := range pageIds {
		page, err := table.GetRawPage(pageId)
		if err != nil {
			return badPage, err
		}
		if page == nil {
			return badPage, errors.New("failed to load a freshly allocated page")
		}

		offset := i * structure.PageDataCapacity
		remaining := len(data) - offset
		if remaining > structure.PageDataCapacity {
			remaining = structure.PageDataCapacity
		}

		if err := page.Write(bytes.NewReader(data[offset:offset+remaining]), 0, remaining); err != nil {
			return badPage, err
		}
		page.SetPageType(structure.PageTypeData)
		page.SetDID(did)
		page.SetFirstPageId(int32(pageIds[0]))
		page.SetPrevPageId(prev)
		page.SetDocumentSequence(sequence)
		if i == len(pageIds)-1 {
			page.SetUsedLength(int32(remaining))
		} else {
			page.SetNextPageId(-1)
		}

		if err := table.CommitPage(page); err != nil {
			return badPage, err
		}
		prev = int32(page.PageId)
		sequence++
	}
	return int(prev), nil
}

// CommitPage writes page to storage, recomputing its CRC first.
func (table *PageTable) CommitPage(page *structure.Page) error {
	if page == nil {
		return errors.New("cannot commit a nil page")
	}
	if page.PageId < 0 {
		return errors.New("page id must be valid")
	}
	return table.stream.WithLease(func(fs io.ReadWriteSeeker) error {
		return table.commitPageLocked(fs, page)
	})
}

func (table *PageTable) commitPageLocked(fs io.ReadWriteSeeker, page *structure.Page) error {
	page.UpdateCrc()
	if _, err := fs.Seek(pagePhysicalLocation(page.PageId), io.SeekStart); err != nil {
		return err
	}
	if _, err := io.Copy(fs, page.Freeze()); err != nil {
		return wrapWriteErr(err)
	}
	table.stream.Flush()
	table.log.Debug().Int("page", page.PageId).Msg("committed page")
	return nil
}

// wrapWriteErr surfaces a write failure as enginerr.ErrReadOnlyStream: the
// only way a correctly-sized, correctly-sought write to the backing stream
// fails is that the stream itself rejects writes.
func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(enginerr.ErrReadOnlyStream, err.Error())
}

// GetRawPage reads a single page from storage, validating its CRC unless
// QuickAndDirty is set. Returns (nil, nil) for a negative page id.
func (table *PageTable) GetRawPage(pageId int) (*structure.Page, error) {
	if pageId < 0 {
		return nil, nil
	}

	var result *structure.Page
	err := table.stream.WithLease(func(fs io.ReadWriteSeeker) error {
		if _, err := fs.Seek(pagePhysicalLocation(pageId), io.SeekStart); err != nil {
			return err
		}
		page := structure.NewPage(pageId)
		if err := page.Defrost(fs); err != nil {
			table.log.Warn().Int("page", pageId).Err(err).Msg("page failed CRC validation")
			return err
		}
		result = page
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveChainHead returns the page at the head of the metadata chain link
// points to, trying the newest revision (0) first and falling back to the
// previous revision (1) if the newest page fails CRC or loop validation --
// the versioned link's crash-recovery guarantee, since a torn write only
// ever touches the newest revision and leaves the previous one intact.
// Returns enginerr.ErrDamagedMetadata if neither revision names a page that
// can be read; if revision 0 fails and revision 1 also fails, the
// underlying read error from revision 1 is returned instead.
func (table *PageTable) resolveChainHead(link *support.VersionedLink, label string) (*structure.Page, error) {
	if ok0, pid0 := link.TryGetLink(0); ok0 {
		page, err := table.GetRawPage(pid0)
		if err == nil {
			return page, nil
		}
		if !isRecoverableReadErr(err) {
			return nil, err
		}

		table.log.Warn().Str("chain", label).Int("page", pid0).Err(err).
			Msg("newest revision failed validation, falling back to revision 1")

		ok1, pid1 := link.TryGetLink(1)
		if !ok1 {
			return nil, errors.WithStack(enginerr.ErrDamagedMetadata)
		}
		fallback, ferr := table.GetRawPage(pid1)
		if ferr != nil {
			return nil, ferr
		}
		table.log.Info().Str("chain", label).Int("page", pid1).
			Msg("recovered chain head via revision 1 fallback")
		return fallback, nil
	}

	ok1, pid1 := link.TryGetLink(1)
	if !ok1 {
		return nil, errors.WithStack(enginerr.ErrDamagedMetadata)
	}
	return table.GetRawPage(pid1)
}

func isRecoverableReadErr(err error) bool {
	return errors.Is(err, enginerr.ErrCorruptPage) || errors.Is(err, enginerr.ErrChainLoop)
}

// ReleaseChain walks endPageId's chain via PrevPageId and frees every page
// in it. An invalid (negative) endPageId is a silent no-op.
func (table *PageTable) ReleaseChain(endPageId int) (released int, err error) {
	if endPageId < 0 {
		return 0, nil
	}

	seen := map[int]bool{}
	current, err := table.GetRawPage(endPageId)
	if err != nil {
		return released, err
	}

	for current != nil {
		if seen[current.PageId] {
			return released, errors.WithStack(enginerr.ErrChainLoop)
		}
		seen[current.PageId] = true

		if err := table.releaseSinglePage(current.PageId); err != nil {
			return released, err
		}
		released++

		next := current.GetPrevPageId()
		current, err = table.GetRawPage(int(next))
		if err != nil {
			return released, err
		}
	}
	table.log.Debug().Int("released", released).Msg("released page chain")
	return released, nil
}

// BindIndex maps documentId to newPageId (the end of a page chain). If the
// document already had a binding, newPageId becomes its newest revision and
// the previous head is kept as revision 1; only when both revisions were
// already in use does the older one expire, and the page it pointed at is
// returned so the caller can release it. Otherwise -1 is returned.
func (table *PageTable) BindIndex(documentId *support.DocumentID, newPageId int) (expiredPageId int, err error) {
	indexLink := table.root.IndexLink()
	head, err := table.resolveChainHead(indexLink, "index")
	if err != nil {
		return badPage, err
	}
	indexTopPageId := head.PageId

	// try to update an existing binding first
	current := head
	seen := map[int]bool{}
	for current != nil {
		if seen[current.PageId] {
			return badPage, errors.WithStack(enginerr.ErrChainLoop)
		}
		seen[current.PageId] = true

		snapshot := structure.NewIndexPage()
		if err := snapshot.Defrost(current.BodyReader()); err != nil {
			return badPage, err
		}

		expiredPageId, found := snapshot.Update(documentId, newPageId)
		if found {
			return expiredPageId, table.writeIndexPage(snapshot, current)
		}

		current, err = table.GetRawPage(int(current.GetPrevPageId()))
		if err != nil {
			return badPage, err
		}
	}

	// no existing binding: try to insert into an existing page in the chain
	expiredPageId = -1
	current = head
	seen = map[int]bool{}
	for current != nil {
		if seen[current.PageId] {
			return badPage, errors.WithStack(enginerr.ErrChainLoop)
		}
		seen[current.PageId] = true

		snapshot := structure.NewIndexPage()
		if err := snapshot.Defrost(current.BodyReader()); err != nil {
			return badPage, err
		}

		inserted, err := snapshot.TryInsert(documentId, newPageId)
		if err != nil {
			return badPage, err
		}
		if inserted {
			return expiredPageId, table.writeIndexPage(snapshot, current)
		}

		current, err = table.GetRawPage(int(current.GetPrevPageId()))
		if err != nil {
			return badPage, err
		}
	}

	// no room anywhere: extend the index chain with a new page
	newIndex := structure.NewIndexPage()
	if ok, err := newIndex.TryInsert(documentId, newPageId); err != nil || !ok {
		return badPage, errors.New("failed to write to a freshly allocated index page")
	}

	slot := make([]int, 1)
	if err := table.allocatePageBlock(slot); err != nil {
		return badPage, err
	}

	newPage, err := table.GetRawPage(slot[0])
	if err != nil {
		return badPage, err
	}
	newPage.SetPageType(structure.PageTypeIndex)
	newPage.SetPrevPageId(int32(indexTopPageId))
	rdr := newIndex.Freeze()
	if err := newPage.Write(rdr, 0, rdr.Len()); err != nil {
		return badPage, err
	}
	if err := table.CommitPage(newPage); err != nil {
		return badPage, err
	}

	indexLink.WriteNewLink(newPage.PageId)
	if err := table.persistRootLink(structure.LinkIdxIndex, indexLink); err != nil {
		return badPage, err
	}
	return expiredPageId, nil
}

// UnbindIndex removes documentId's binding, if any. The page chain it
// pointed at is not released; the caller decides that.
func (table *PageTable) UnbindIndex(documentId *support.DocumentID) error {
	current, err := table.resolveChainHead(table.root.IndexLink(), "index")
	if err != nil {
		return err
	}

	seen := map[int]bool{}
	for current != nil {
		if seen[current.PageId] {
			return errors.WithStack(enginerr.ErrChainLoop)
		}
		seen[current.PageId] = true

		snapshot := structure.NewIndexPage()
		if err := snapshot.Defrost(current.BodyReader()); err != nil {
			return err
		}

		if snapshot.Remove(documentId) {
			if err := table.writeIndexPage(snapshot, current); err != nil {
				return err
			}
		}
		current, err = table.GetRawPage(int(current.GetPrevPageId()))
		if err != nil {
			return err
		}
	}
	return nil
}

// GetDocumentHead finds the top page id bound to documentId via the index.
// Returns -1 if no binding exists.
func (table *PageTable) GetDocumentHead(documentId *support.DocumentID) (headPageId int, err error) {
	current, err := table.resolveChainHead(table.root.IndexLink(), "index")
	if err != nil {
		return badPage, err
	}

	seen := map[int]bool{}
	for current != nil {
		if seen[current.PageId] {
			return badPage, errors.WithStack(enginerr.ErrChainLoop)
		}
		seen[current.PageId] = true

		snapshot := structure.NewIndexPage()
		if err := snapshot.Defrost(current.BodyReader()); err != nil {
			return badPage, err
		}

		if link, found := snapshot.Search(documentId); found && link != nil {
			if ok, pageId := link.TryGetLink(0); ok {
				return pageId, nil
			}
		}

		current, err = table.GetRawPage(int(current.GetPrevPageId()))
		if err != nil {
			return badPage, err
		}
	}
	return badPage, nil
}

// BindPath links path to documentId. Any document previously bound to the
// same exact path is returned.
func (table *PageTable) BindPath(path string, documentId *support.DocumentID) (previousDocId *support.DocumentID, err error) {
	if path == "" {
		return nil, errors.New("path must not be empty")
	}

	table.pathMu.Lock()
	defer table.pathMu.Unlock()

	pathIndex, err := table.loadPathTrie()
	if err != nil {
		return nil, err
	}

	previous, err := pathIndex.Add(path, documentId)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		previousDocId = previous.(*support.DocumentID)
	}

	if err := table.persistPathTrie(pathIndex); err != nil {
		return nil, err
	}
	return previousDocId, nil
}

// UnbindPath removes a path's binding, if any. The document it pointed at
// is left untouched.
func (table *PageTable) UnbindPath(exactPath string) error {
	table.pathMu.Lock()
	defer table.pathMu.Unlock()

	pathIndex, err := table.loadPathTrie()
	if err != nil {
		return err
	}

	if !pathIndex.Delete(exactPath) {
		return nil
	}
	return table.persistPathTrie(pathIndex)
}

// GetDocumentIDByPath reads the document id bound to exactPath, if any.
func (table *PageTable) GetDocumentIDByPath(exactPath string) (docId *support.DocumentID, err error) {
	pathIndex, err := table.loadPathTrie()
	if err != nil {
		return nil, err
	}
	value, found, err := pathIndex.Get(exactPath)
	if err != nil {
		return nil, err
	}
	if !found || value == nil {
		return nil, nil
	}
	return value.(*support.DocumentID), nil
}

// PathsForDocument lists every path currently bound to docId.
func (table *PageTable) PathsForDocument(docId *support.DocumentID) (paths []string, err error) {
	pathIndex, err := table.loadPathTrie()
	if err != nil {
		return nil, err
	}
	return pathIndex.PathsForValue(docId), nil
}

// SearchPaths lists every bound path starting with pathPrefix.
func (table *PageTable) SearchPaths(pathPrefix string) []string {
	pathIndex, err := table.loadPathTrie()
	if err != nil {
		return nil
	}
	return pathIndex.Search(pathPrefix)
}

// Stats is a read-only snapshot of table sizing, for diagnostics only (not
// part of any tested invariant).
type Stats struct {
	IndexChainLength      int
	FreeListChainLength   int
	PathLookupChainLength int
}

// Stats walks the three chains and counts their lengths.
func (table *PageTable) Stats() (Stats, error) {
	var out Stats

	n, err := table.statsChainLength(table.root.IndexLink(), "index")
	if err != nil {
		return out, err
	}
	out.IndexChainLength = n

	n, err = table.statsChainLength(table.root.FreeListLink(), "free-list")
	if err != nil {
		return out, err
	}
	out.FreeListChainLength = n

	n, err = table.statsChainLength(table.root.PathLookupLink(), "path-lookup")
	if err != nil {
		return out, err
	}
	out.PathLookupChainLength = n

	return out, nil
}

// statsChainLength reports a chain's length, treating damaged/never-written
// metadata as a length of zero rather than a hard failure -- Stats is a
// diagnostics snapshot, not a correctness-critical read path.
func (table *PageTable) statsChainLength(link *support.VersionedLink, label string) (int, error) {
	head, err := table.resolveChainHead(link, label)
	if err != nil {
		if errors.Is(err, enginerr.ErrDamagedMetadata) {
			return 0, nil
		}
		return 0, err
	}
	return table.chainLength(head.PageId)
}

func (table *PageTable) chainLength(endPageId int) (int, error) {
	count := 0
	current, err := table.GetRawPage(endPageId)
	if err != nil {
		return 0, err
	}
	for current != nil {
		count++
		current, err = table.GetRawPage(int(current.GetPrevPageId()))
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

// Close drops the in-memory path-trie cache and closes the underlying byte
// stream lease, per the spec's "tear down on close" requirement. The
// underlying io.ReadWriteSeeker itself is left open -- callers own it.
func (table *PageTable) Close() {
	table.pathCacheMu.Lock()
	table.pathTrieCache = nil
	table.pathCacheMu.Unlock()
	table.stream.Close()
}

func (table *PageTable) loadPathTrie() (*pathtrie.PathTrie, error) {
	table.pathCacheMu.Lock()
	defer table.pathCacheMu.Unlock()

	if table.pathTrieCache != nil {
		return table.pathTrieCache, nil
	}

	head, err := table.resolveChainHead(table.root.PathLookupLink(), "path-lookup")
	if err != nil {
		return nil, err
	}

	trie := pathtrie.NewPathTrie(pathTrieValueCtor)
	if err := trie.Defrost(table.GetStream(head.PageId)); err != nil {
		return nil, err
	}

	table.pathTrieCache = trie
	return trie, nil
}

func (table *PageTable) persistPathTrie(pathIndex *pathtrie.PathTrie) error {
	newPageId, err := table.WriteStream(pathIndex.Freeze())
	if err != nil {
		return err
	}

	pathLink := table.root.PathLookupLink()
	expired := pathLink.WriteNewLink(newPageId)
	if err := table.persistRootLink(structure.LinkIdxPathLookup, pathLink); err != nil {
		return err
	}

	if _, err := table.ReleaseChain(expired); err != nil {
		return err
	}
	table.stream.Flush()
	return nil
}

func (table *PageTable) writeIndexPage(snapshot *structure.IndexPage, onto *structure.Page) error {
	rdr := snapshot.Freeze()
	if err := onto.Write(rdr, 0, rdr.Len()); err != nil {
		return err
	}
	if err := table.CommitPage(onto); err != nil {
		return err
	}
	table.stream.Flush()
	return nil
}

// persistRootLink writes just one of the three root links back to disk,
// without rewriting the whole header.
func (table *PageTable) persistRootLink(which int, link *support.VersionedLink) error {
	return table.stream.WithLease(func(fs io.ReadWriteSeeker) error {
		if _, err := fs.Seek(structure.LinkOffset(which), io.SeekStart); err != nil {
			return err
		}
		if _, err := io.Copy(fs, link.Freeze()); err != nil {
			return wrapWriteErr(err)
		}
		table.stream.Flush()
		return nil
	})
}

func (table *PageTable) releaseSinglePage(pageToReleaseId int) error {
	current, err := table.resolveChainHead(table.root.FreeListLink(), "free-list")
	if err != nil {
		return err
	}

	for current != nil {
		freePage := structure.WrapFreeListPage(current)
		if freePage.TryAdd(int32(pageToReleaseId)) {
			return table.CommitPage(current)
		}

		prev := current.GetPrevPageId()
		if prev >= 0 {
			current, err = table.GetRawPage(int(prev))
			if err != nil {
				return err
			}
			continue
		}

		// no room anywhere in the chain: recycle the page being released
		// itself into a new (empty) free-list page, per the spec's
		// documented edge case.
		newFreePage := structure.NewPage(pageToReleaseId)
		newFreePage.ZeroPayload()
		newFreePage.SetPrevPageId(-1)
		newFreePage = structure.WrapFreeListPage(newFreePage).Page()
		if err := table.CommitPage(newFreePage); err != nil {
			return err
		}

		current.SetPrevPageId(int32(newFreePage.PageId))
		return table.CommitPage(current)
	}
	return errors.New("page table: free list extension loop exited without finding a page")
}

// allocatePageBlock fills pageIds with fresh page ids, preferring recycled
// pages from the free list before extending the stream.
func (table *PageTable) allocatePageBlock(pageIds []int) error {
	if len(pageIds) < 1 {
		return nil
	}

	stopIdx, err := table.reassignReleasedPages(pageIds)
	if err != nil {
		return err
	}
	return table.directlyAllocatePages(pageIds, stopIdx)
}

func (table *PageTable) reassignReleasedPages(block []int) (int, error) {
	i := 0
	for ; i < len(block); i++ {
		pageId, err := table.reassignSinglePage()
		if err != nil {
			return i, err
		}
		if pageId < 0 {
			return i, nil
		}
		block[i] = int(pageId)
	}
	return i, nil
}

func (table *PageTable) reassignSinglePage() (pageId int32, err error) {
	topPage, err := table.resolveChainHead(table.root.FreeListLink(), "free-list")
	if err != nil {
		if errors.Is(err, enginerr.ErrDamagedMetadata) {
			return badPage, nil
		}
		return badPage, err
	}

	freePage := structure.WrapFreeListPage(topPage)
	if pid, found := freePage.GetNext(); found {
		if err := table.CommitPage(topPage); err != nil {
			return badPage, err
		}
		return pid, nil
	}

	// this free-list page is now empty; the chain head is never released
	// (see DESIGN.md Open Question #1), so there is nothing further to
	// reclaim here even if older free-list pages down the chain hold
	// entries -- matching the teacher's commented-out unlink path.
	return badPage, nil
}

func (table *PageTable) directlyAllocatePages(ids []int, startIdx int) error {
	for i := startIdx; i < len(ids); i++ {
		var pageId int
		err := table.stream.WithLease(func(fs io.ReadWriteSeeker) error {
			baseLength, err := fs.Seek(0, io.SeekEnd)
			if err != nil {
				return err
			}
			pageId = int((baseLength - structure.RootHeaderSize) / structure.PageRawSize)
			return table.commitPageLocked(fs, structure.NewPage(pageId))
		})
		if err != nil {
			return err
		}
		ids[i] = pageId
	}
	return nil
}

func pagePhysicalLocation(pageId int) int64 {
	return int64(structure.RootHeaderSize) + (int64(pageId) * int64(structure.PageRawSize))
}
