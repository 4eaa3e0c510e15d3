package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signature derives the deterministic cache key for a request.
//
// The request text is normalized (trimmed, lowercased, internal whitespace
// collapsed) before hashing, so requests differing only in case or formatting
// are cache-equivalent. The project and user identifiers are hashed in with
// the text: cache entries are scoped per tenant, never shared across them.
func Signature(requestText, projectID, userID string) string {
	h := sha256.New()
	h.Write([]byte(NormalizeText(requestText)))
	h.Write([]byte{0})
	h.Write([]byte(projectID))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeText applies the signature normalization: trim, lowercase, and
// collapse runs of internal whitespace to single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
