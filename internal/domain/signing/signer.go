// Package signing implements the canonical request signing scheme used by
// the proxy. The canonical string is built from method, path+query, and
// timestamp only; request bodies are deliberately excluded so that the
// backend can verify signatures without buffering payloads.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CanonicalString builds the exact byte sequence that is signed.
// Three newline-terminated fields: upper-cased method, path+query verbatim,
// timestamp. The backend must reconstruct this string byte-for-byte to
// verify the signature, so field order and newline placement are a wire
// contract and must never change.
func CanonicalString(method, pathAndQuery, timestamp string) string {
	if !strings.HasPrefix(pathAndQuery, "/") {
		pathAndQuery = "/" + pathAndQuery
	}
	return strings.ToUpper(method) + "\n" + pathAndQuery + "\n" + timestamp + "\n"
}

// Sign computes the hex-encoded HMAC-SHA256 of the canonical string for
// (method, pathAndQuery, timestamp) using secret as the key. The result is
// a 64-character lowercase hex string and is deterministic for identical
// inputs.
func Sign(secret, method, pathAndQuery, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalString(method, pathAndQuery, timestamp)))
	return hex.EncodeToString(mac.Sum(nil))
}
