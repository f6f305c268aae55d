package verification

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

// Codes are 6 decimal digits drawn uniformly from [100000, 999999]. Starting
// at 100000 rules out leading zeros, so every code is exactly 6 digits.
const (
	codeMin  = 100000
	codeSpan = 900000
)

// GenerateCode draws a one-time code from randSource and returns it together
// with its digest. Only the digest is ever persisted.
//
// The digest is plain unsalted sha256. With 900k possible codes that does not
// resist offline brute force, and it is not meant to: a code is single-use and
// expires in minutes, so the only attack that matters is online guessing,
// which expiry (and the login rate limiter) addresses. Do not add a salt here
// without also adding an attempt counter.
func GenerateCode(randSource io.Reader) (code, hash string, err error) {
	if randSource == nil {
		randSource = rand.Reader
	}
	n, err := rand.Int(randSource, big.NewInt(codeSpan))
	if err != nil {
		return "", "", fmt.Errorf("draw verification code: %w", err)
	}
	code = fmt.Sprintf("%d", codeMin+n.Int64())
	return code, HashCode(code), nil
}

// HashCode returns the hex-encoded sha256 digest of a plaintext code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// CodeMatches compares a submitted plaintext against a stored digest in
// constant time. The digest is deterministic, so a bytewise short-circuit
// comparison would leak matching-prefix information through timing.
func CodeMatches(code, storedHash string) bool {
	stored, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}
	sum := sha256.Sum256([]byte(code))
	return hmac.Equal(sum[:], stored)
}
