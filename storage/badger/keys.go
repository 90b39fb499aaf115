package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/lokalrag/core"
)

// Key prefixes for different data types
const (
	documentPrefix    = "docrec"
	documentTagPrefix = "doctag"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeDocumentTagKey generates a composite key for the tag index.
// Format: prefix:tag:id
func makeDocumentTagKey(tag string, id core.ID) []byte {
	prefix := documentTagPrefix + ":" + tag + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDocumentTagKey generates a partial key for tag index scans.
// Format: prefix:tag:
func makePartialDocumentTagKey(tag string) []byte {
	return []byte(documentTagPrefix + ":" + tag + ":")
}
