package support

import (
	"bytes"
	"errors"
	"io"

	"github.com/google/uuid"
)

// DocumentID is a 128-bit opaque value identifying a document. It implements
// StreamSerialisable and comparable.Comparable so it can be stored as a
// trie value and as an index-page tree key.
//
// Two values are reserved and never returned by NewDocumentID: the all-zero
// value (an empty index slot) and the all-127 value (the implicit root of
// the index tree).
type DocumentID struct {
	value []byte
}

// NewZeroDocumentID returns the reserved "empty slot" value.
func NewZeroDocumentID() *DocumentID {
	u := make([]byte, 16)
	return &DocumentID{value: u}
}

// NewNeutralDocumentID returns the reserved all-127 value used as the
// implicit root of the index-page tree.
func NewNeutralDocumentID() *DocumentID {
	u := make([]byte, 16)
	for i := range u {
		u[i] = 127
	}
	return &DocumentID{value: u}
}

// NewDocumentID mints a fresh random document ID, guaranteed never to equal
// the zero or neutral sentinel.
func NewDocumentID() (*DocumentID, error) {
	zero := NewZeroDocumentID()
	neutral := NewNeutralDocumentID()

	for {
		u := uuid.New()
		candidate := &DocumentID{value: append([]byte{}, u[:]...)}
		if candidate.CompareTo(zero) == 0 || candidate.CompareTo(neutral) == 0 {
			continue
		}
		return candidate, nil
	}
}

// DocumentIDFromBytes wraps a pre-existing 16-byte value (e.g. read out of a
// page header) as a DocumentID.
func DocumentIDFromBytes(raw []byte) (*DocumentID, error) {
	if len(raw) != 16 {
		return nil, errors.New("document id must be exactly 16 bytes")
	}
	cp := make([]byte, 16)
	copy(cp, raw)
	return &DocumentID{value: cp}, nil
}

// Bytes returns the raw 16-byte value.
func (id *DocumentID) Bytes() []byte {
	return id.value
}

func (id *DocumentID) CompareTo(other interface{}) int {
	otherID, ok := other.(*DocumentID)
	if !ok {
		oc2, ok2 := other.(DocumentID)
		if !ok2 {
			return 0
		}
		otherID = &oc2
	}

	// bytes are compared [0] -> most-significant, [15] -> least-significant
	for i := 0; i < 16; i++ {
		a := id.value[i]
		b := otherID.value[i]
		cmp := int(a) - int(b)
		if cmp < 0 {
			return -1
		}
		if cmp > 0 {
			return 1
		}
	}
	return 0
}

// Freeze converts to a byte stream
func (id *DocumentID) Freeze() LengthReader {
	return bytes.NewReader(id.value)
}

// Defrost populates data from a byte stream
func (id *DocumentID) Defrost(reader io.Reader) error {
	if len(id.value) != 16 {
		id.value = make([]byte, 16)
	}
	count, err := io.ReadFull(reader, id.value)
	if err != nil {
		return err
	}
	if count != 16 {
		return errors.New("invalid id length")
	}
	return nil
}
