package core

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// shortHashBytes is how much of the BLAKE3 digest ends up in artifact names.
const shortHashBytes = 8

// ShortHash names content-addressed artifacts. Same bytes, same name, on every
// run.
func ShortHash(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:shortHashBytes])
}
