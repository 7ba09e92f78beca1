// Package otpcode generates numeric one-time codes and stores them as bcrypt
// hashes.
package otpcode

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pquerna/otp"
	"golang.org/x/crypto/bcrypt"
)

// DefaultLength is the number of digits in a login code.
const DefaultLength = 6

// Codec hashes and verifies codes. The zero value uses bcrypt.DefaultCost.
type Codec struct {
	Cost int
}

// Generate returns a uniformly random numeric code of exactly length digits.
func (c Codec) Generate(length int) (string, error) {
	if length < 1 || length > 9 {
		return "", fmt.Errorf("otpcode: unsupported length %d", length)
	}
	digits := otp.Digits(length)
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("otpcode: read random: %w", err)
	}
	return digits.Format(int32(n.Int64())), nil
}

// Hash returns a salted bcrypt hash of code.
func (c Codec) Hash(code string) (string, error) {
	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("otpcode: hash: %w", err)
	}
	return string(h), nil
}

// Verify reports whether code matches hash. An empty hash never matches.
func (c Codec) Verify(code, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
