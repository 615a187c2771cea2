package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTree   = "exprgen/tree/v1"
	DomainMethod = "exprgen/method/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TreeHash computes the content-addressed identity of a tree.
// Structurally identical trees hash identically regardless of how they were
// built or whether subtrees are shared. Trees holding unencodable constants
// return an error wrapping ErrUnencodable.
func TreeHash(n Node) (string, error) {
	canonical, err := MarshalCanonical(n)
	if err != nil {
		return "", fmt.Errorf("TreeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}

// MustTreeHash is like TreeHash but panics on error.
// Use only in tests or when the tree is known to be encodable.
func MustTreeHash(n Node) string {
	h, err := TreeHash(n)
	if err != nil {
		panic(err)
	}
	return h
}

// Hash returns the content-addressed identity of a method descriptor.
// Unlike Key it is stable across processes sharing a type table layout.
func (m Method) Hash() string {
	var buf bytes.Buffer
	// Method documents only hold int64, string and []any values, which
	// writeCanonical always accepts.
	_ = writeCanonical(&buf, toWireMethod(m).document())
	return hashWithDomain(DomainMethod, buf.Bytes())
}
