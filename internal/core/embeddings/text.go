package embeddings

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText returns the canonical form of a reel description used for
// embedding: Unicode NFC, whitespace runs collapsed to single spaces and
// surrounding whitespace removed. Reruns over the same description therefore
// embed byte-identical input.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
