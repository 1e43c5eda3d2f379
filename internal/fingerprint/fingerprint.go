// Package fingerprint derives content-addressed cache keys for generation
// regions.
//
// A key covers the directive, the payload, and an explicit snapshot of
// declared inputs. Equal keys mean computationally equivalent regions: the
// compile cache never evaluates two regions with the same key independently,
// and changing any declared input invalidates the key without inspecting the
// strategy.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed keys. The version suffix enables
// algorithm migration: keys from an incompatible format never collide.
const domainRegion = "pytextgen/region/v1"

// Key computes the fingerprint for one region.
//
// Deterministic: equal (directive, payload, inputs) always produce the same
// key. The hash is SHA-256 with domain separation,
// SHA256(domain + 0x00 + canonical JSON), hex-encoded to 64 characters. The
// null separator prevents domain/data boundary ambiguity.
func Key(directive, payload string, inputs map[string]string) (string, error) {
	canonical, err := marshalCanonical(directive, payload, inputs)
	if err != nil {
		return "", fmt.Errorf("fingerprint: failed to marshal snapshot: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(domainRegion))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustKey is like Key but panics on error. Use only in tests or when inputs
// are known to be valid.
func MustKey(directive, payload string, inputs map[string]string) string {
	key, err := Key(directive, payload, inputs)
	if err != nil {
		panic(err)
	}
	return key
}
