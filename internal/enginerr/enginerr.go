// Package enginerr names the error taxonomy of the page-based storage
// engine. Every sentinel here is matchable with errors.Is; call sites wrap
// them with github.com/pkg/errors so a caller debugging a CorruptPage-family
// failure keeps a stack trace without losing the sentinel.
package enginerr

import "errors"

var (
	// ErrNotADatabase is returned when a non-empty stream's first bytes
	// don't match the magic constant.
	ErrNotADatabase = errors.New("stream does not contain a recognised database header")

	// ErrTruncatedDatabase is returned when a non-empty stream has the
	// magic but is too short to hold the header and first metadata pages.
	ErrTruncatedDatabase = errors.New("stream has a database header but is too short to be valid")

	// ErrCorruptPage is returned when a page's stored CRC does not match
	// its computed CRC on read.
	ErrCorruptPage = errors.New("page failed its CRC check")

	// ErrChainLoop is returned when walking a page chain revisits a page
	// already seen.
	ErrChainLoop = errors.New("page chain contains a loop")

	// ErrDuplicateDocument is returned when inserting an index entry for
	// a document ID that already has one.
	ErrDuplicateDocument = errors.New("document id is already present in the index")

	// ErrEmptyPayload is returned when asked to write a zero-length
	// document.
	ErrEmptyPayload = errors.New("cannot write an empty document")

	// ErrReadOnlyStream is returned when a write is attempted against a
	// stream that rejects writes.
	ErrReadOnlyStream = errors.New("underlying stream is read-only")

	// ErrDamagedMetadata is returned when a root-page versioned link
	// yields no valid page id on either revision.
	ErrDamagedMetadata = errors.New("root metadata link has no valid page")

	// ErrStreamClosed is returned when the byte-stream adapter is used
	// after its underlying stream has gone away.
	ErrStreamClosed = errors.New("underlying byte stream is closed")
)
