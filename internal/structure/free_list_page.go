package structure

/*
FreeListPage is a thin view over a Page's payload, interpreting it per the
spec's count-prefixed layout: slot 0 holds the number of live entries, slots
1..count hold freed page ids, used as a stack (most recently freed page is
popped first). Capacity is (PageDataCapacity/4)-1, one slot short of the
full int32 array because slot 0 is the count.

Each free-list page can hold ~1014 page ids (≈3.9MB of document data space
at 4061B/page) -- so needing more than one is rare. The page table chains
free-list pages via PrevPageId when one fills up; the head page is never
released (see DESIGN.md Open Question #1).

The free list provides no protection from double-free -- callers must not
hand back a page id that's still reachable from a live chain.
*/
type FreeListPage struct {
	page *Page
}

// FreeListCapacity is the maximum number of page ids a single free-list
// page can hold.
const FreeListCapacity = (PageDataCapacity / 4) - 1

// reservedPageCount is the number of low page ids that are never valid to
// free (root, first index, first free-list, first path-lookup pages).
const reservedPageCount = 4

// WrapFreeListPage interprets an already-allocated page as a free-list page,
// tagging its type.
func WrapFreeListPage(page *Page) *FreeListPage {
	page.SetPageType(PageTypeFreeList)
	return &FreeListPage{page: page}
}

// Page returns the underlying page, for committing back to storage.
func (f *FreeListPage) Page() *Page { return f.page }

// Count returns the number of live entries in this page. For diagnostics.
func (f *FreeListPage) Count() int {
	n, err := f.page.ReadDataInt32(0)
	if err != nil {
		return 0
	}
	return int(n)
}

// TryAdd appends a freed page id to this page. Returns false if pageId is
// one of the reserved low ids, or if this page has no room left -- in
// either case the caller must find or allocate another free-list page.
func (f *FreeListPage) TryAdd(pageId int32) bool {
	if pageId < reservedPageCount {
		return false
	}
	count := f.Count()
	if count >= FreeListCapacity {
		return false
	}

	_ = f.page.WriteDataInt32(count+1, pageId)
	_ = f.page.WriteDataInt32(0, int32(count+1))
	return true
}

// GetNext pops the most recently freed page id from this page. Returns
// false if this page currently holds no entries.
func (f *FreeListPage) GetNext() (int32, bool) {
	count := f.Count()
	if count <= 0 {
		return -1, false
	}

	pid, err := f.page.ReadDataInt32(count)
	if err != nil {
		return -1, false
	}

	_ = f.page.WriteDataInt32(count, 0)
	_ = f.page.WriteDataInt32(0, int32(count-1))
	return pid, true
}
