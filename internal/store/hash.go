package store

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash is the hash recorded for a file's content. It only detects
// change; it is not collision resistant.
func ContentHash(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
