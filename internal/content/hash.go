package content

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/sidneypayan/linguami-srs/internal/domain"
)

// Normalize concatenates the word's identifying content after cleaning
// each part: trimmed, lowercased, line endings normalized. The language
// participates so the same spelling in two languages stays two words.
func Normalize(w domain.Word) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	parts := []string{
		normalizePart(w.Language),
		normalizePart(w.Front),
		normalizePart(w.Back),
		normalizePart(w.Example),
	}

	// Joined with newlines so adjacent fields cannot run together and
	// collide with a differently-split word.
	return strings.Join(parts, "\n")
}

// Hash returns the word's stable identity: the SHA-256 of its
// normalized content as a hex string. Moving a word between decks does
// not change its hash, so user progress survives deck reorganization.
func Hash(w domain.Word) string {
	normalized := Normalize(w)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
