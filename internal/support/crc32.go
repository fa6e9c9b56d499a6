package support

import "hash/crc32"

// DefaultPolynomial and DefaultSeed document the exact CRC variant used to
// protect every page: CRC-32 with the IEEE polynomial, seeded to all-ones,
// with a final XOR of all-ones. This is bit-for-bit the same table the
// standard library's crc32.IEEE uses, so we reach for hash/crc32 instead of
// hand-rolling the table.
const (
	DefaultPolynomial uint32 = 0xedb88320
	DefaultSeed       uint32 = 0xffffffff
)

var ieeeTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC32 computes the CRC-32/IEEE checksum of buffer.
func ComputeCRC32(buffer []byte) uint32 {
	if buffer == nil {
		return 0
	}
	return crc32.Checksum(buffer, ieeeTable)
}
