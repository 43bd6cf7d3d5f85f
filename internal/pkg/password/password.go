package password

import "golang.org/x/crypto/bcrypt"

// Hash derives a bcrypt hash at the default cost. bcrypt salts internally,
// so two hashes of the same password differ.
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Compare reports whether plaintext matches hash. Returns false rather than
// an error for any mismatch or malformed hash — callers collapse all causes
// into one generic authentication failure anyway.
func Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
