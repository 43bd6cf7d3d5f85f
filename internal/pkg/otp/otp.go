package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"
)

// Alphabet excludes glyphs that are easy to misread in an email or on a
// phone screen: 0/O, 1/I.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// New draws a code of the given length from Alphabet. Each position is an
// independent crypto/rand.Int over the alphabet size, so selection is
// unbiased regardless of the alphabet not dividing 256.
func New(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(Alphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Canonicalize uppercases and strips whitespace so user input compares
// against what was issued.
func Canonicalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Hash is the one-way form stored in place of the code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Equal compares two code hashes in constant time.
func Equal(hashA, hashB string) bool {
	return subtle.ConstantTimeCompare([]byte(hashA), []byte(hashB)) == 1
}
