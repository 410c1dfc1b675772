package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateRefreshToken returns a 512-bit random hex string. The value only
// ever lives in the token cache; it is never returned to clients.
func GenerateRefreshToken() (string, error) {
	return randomHex(64)
}

// GenerateResetToken returns a 256-bit random hex string for password reset links.
func GenerateResetToken() (string, error) {
	return randomHex(32)
}

// GenerateVerificationCode returns a 6-digit numeric code.
func GenerateVerificationCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomHex(numBytes int) (string, error) {
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
