// Package knol identifies cards by their content so that re-importing the
// same source does not duplicate them.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/spacedeck/internal/domain"
)

// Normalize cleans both sides of a card (trimmed, lowercased, LF line
// endings) and joins them with a newline so that "ab"+"c" and "a"+"bc" stay
// distinct.
func Normalize(front, back string) string {
	return normalizePart(front) + "\n" + normalizePart(back)
}

func normalizePart(part string) string {
	p := strings.ReplaceAll(part, "\r\n", "\n")
	return strings.TrimSpace(strings.ToLower(p))
}

// Hash returns the SHA-256 of the normalized content as a hex string.
func Hash(front, back string) string {
	sum := sha256.Sum256([]byte(Normalize(front, back)))
	return fmt.Sprintf("%x", sum)
}

// CardHash is Hash over a card's two sides.
func CardHash(c *domain.Card) string {
	return Hash(c.Front, c.Back)
}
