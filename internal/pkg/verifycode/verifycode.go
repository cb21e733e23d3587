package verifycode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeRange spans the six-digit codes 100000..999999 inclusive.
const (
	codeMin   = 100000
	codeRange = 900000
)

// New draws a six-digit verification code uniformly from 100000-999999.
// The first digit is never zero, so the code survives contexts that strip
// leading zeros.
func New() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
