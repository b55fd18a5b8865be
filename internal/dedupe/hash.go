package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// descPrefixLen bounds how much of the description participates in the
// content hash, so trailing boilerplate does not defeat exact matching.
const descPrefixLen = 256

// ContentHash computes a deterministic digest over the normalized URL,
// lowercased title, and lowercased description prefix. Two candidates with
// equal hashes are always duplicates.
func ContentHash(normalizedURL, title, description string) string {
	desc := strings.ToLower(strings.TrimSpace(description))
	if len(desc) > descPrefixLen {
		desc = desc[:descPrefixLen]
	}

	h := sha256.New()
	h.Write([]byte(normalizedURL))
	h.Write([]byte{'\n'})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	h.Write([]byte{'\n'})
	h.Write([]byte(desc))
	return hex.EncodeToString(h.Sum(nil))
}
