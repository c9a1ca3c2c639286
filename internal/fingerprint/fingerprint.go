// Package fingerprint derives the cache key for submitted message text.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// Fingerprint returns the SHA-256 digest of the normalized message as a
// 64-character lowercase hex string. Normalization trims surrounding
// whitespace and case-folds the text so case and padding variants of the
// same message share one cache key. Folding rather than lowercasing keeps
// the equivalence for Unicode pairs like ß and SS. Accepts any string,
// including empty.
// Parameters:
//   - text: raw message text as submitted.
// Returns:
//   - string: fixed-length lowercase hex digest.
func Fingerprint(text string) string {
	// A Caser is stateful, so each call gets its own.
	normalized := cases.Fold().String(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
