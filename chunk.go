package chainblob

import "bytes"

// DefaultChunkSize is the default maximum size of one chunk in bytes.
const DefaultChunkSize = 850

// Split cuts payload into consecutive chunks of at most max bytes.
// An empty payload has no chunks.
// The chunks share storage with payload.
func Split(payload []byte, max int) [][]byte {
	if max <= 0 {
		max = DefaultChunkSize
	}
	chunks := make([][]byte, 0, (len(payload)+max-1)/max)
	for len(payload) > 0 {
		n := max
		if n > len(payload) {
			n = len(payload)
		}
		chunks = append(chunks, payload[:n:n])
		payload = payload[n:]
	}
	return chunks
}

// Join concatenates chunks in order.
func Join(chunks [][]byte) []byte {
	return bytes.Join(chunks, nil)
}
