package session

import "encoding/binary"

// DefaultTag is the leading byte of a chunk in the secondary binary layout.
const DefaultTag byte = 0x02

const (
	binaryIndexOffset = 17
	binaryHeaderLen   = 21
)

// DecodeBinary parses instruction data in the secondary program's layout:
//
//	byte 0       tag
//	bytes 1-16   ignored
//	bytes 17-20  little-endian uint32 chunk index
//	bytes 21-    payload
//
// The payload may carry a little-endian uint32 length prefix.
// The prefix is stripped only when it equals the number of bytes after it;
// otherwise the whole payload is the chunk.
// The boolean is false when data is too short or has a different tag.
func DecodeBinary(data []byte, tag byte) (uint32, []byte, bool) {
	if len(data) < binaryHeaderLen || data[0] != tag {
		return 0, nil, false
	}
	index := binary.LittleEndian.Uint32(data[binaryIndexOffset:binaryHeaderLen])
	rest := data[binaryHeaderLen:]
	if len(rest) >= 4 && int(binary.LittleEndian.Uint32(rest[:4])) == len(rest)-4 {
		return index, rest[4:], true
	}
	return index, rest, true
}
