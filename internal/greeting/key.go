package greeting

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key is the cache key of a greeting text.
type Key string

// KeyOf hashes text with xxHash64. The value is stable across restarts and
// platforms and is used verbatim as the asset file name.
func KeyOf(text string) Key {
	return Key(strconv.FormatUint(xxhash.Sum64String(text), 10))
}

func (k Key) String() string { return string(k) }
