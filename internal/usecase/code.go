package usecase

import (
	"crypto/rand"
	"io"
	"strings"
)

// codeAlphabet is URL-safe, uppercase, and avoids ambiguous characters
// (O/0, I/1, L). 32 characters, so the modulo below introduces no bias.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultCodeLength yields 60 bits of entropy, enough to make collisions
// and guessing negligible at any plausible issuance volume.
const DefaultCodeLength = 12

// GenerateCode produces a short, URL-safe, uppercase activation code from a
// cryptographically strong source. Codes double as bearer tokens carried in
// plain URLs, so they must be unguessable and carry no information about
// the subscription they authorize. The generator knows nothing about
// existing codes; collision handling is the record store's job.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf), nil
}

// NormalizeCode uppercases and trims caller-supplied codes so redemption is
// case-insensitive end to end.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
