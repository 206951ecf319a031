// Package idgen generates opaque entity ids: a short kind prefix
// ("sym_", "met_") followed by a base36 encoding of a random UUID,
// retried on collision against a caller-supplied existence check.
package idgen

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// suffixLength is the number of base36 characters in the random
// suffix. 12 characters of base36 (~62 bits) makes collisions
// astronomically unlikely; the retry loop below exists for
// correctness, not because collisions are expected in practice.
const suffixLength = 12

// maxAttempts bounds the collision-retry loop so generation can never
// spin forever; exhausting it indicates something is structurally
// wrong (e.g. the exists predicate always returns true).
const maxAttempts = 64

// EncodeBase36 converts a byte slice to a base36 string of the given
// length, left-padding with zeros or truncating to the least
// significant digits as needed.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)

	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var b strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		b.WriteByte(chars[i])
	}
	str := b.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

func randomSuffix() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("idgen: generate uuid: %w", err)
	}
	return EncodeBase36(u[:], suffixLength), nil
}

// Generate produces an id of the form "<prefix>_<suffix>" that does not
// already satisfy exists, retrying on collision. exists is typically a
// store's "do I already have this id" check.
func Generate(prefix string, exists func(id string) bool) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		suffix, err := randomSuffix()
		if err != nil {
			return "", err
		}
		id := prefix + "_" + suffix
		if !exists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("idgen: exhausted %d attempts generating a unique %q id", maxAttempts, prefix)
}
