// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package envelope

import "crypto/sha1" //nolint:gosec // truncated SHA-1 key identifiers are a wire-format convention (RFC 5280 §4.2.1.2 method 1), not a security primitive

// KeyIdentifier computes the RFC 5280 §4.2.1.2 method-1
// subjectKeyIdentifier: the full 20-byte SHA-1 digest of the encoded
// SubjectPublicKey BIT STRING contents (the key bytes, not the
// surrounding SubjectPublicKeyInfo SEQUENCE). cryptlib's SSH/SSL session
// key identifiers use the same truncated-hash convention for matching
// recipient identifiers without carrying a full certificate, which is
// why this lives in the envelope package rather than certchain: it's a
// wire-identifier helper, not a certificate field.
func KeyIdentifier(publicKeyBytes []byte) [20]byte {
	return sha1.Sum(publicKeyBytes)
}

// TruncatedKeyIdentifier returns the low n bytes of KeyIdentifier, the
// form used when a RecipientIdentifier's subjectKeyIdentifier has been
// deliberately shortened to save space in a KEK-based exchange (spec
// §6.2's ad-hoc key identifier case).
func TruncatedKeyIdentifier(publicKeyBytes []byte, n int) []byte {
	full := KeyIdentifier(publicKeyBytes)
	if n > len(full) {
		n = len(full)
	}
	return full[:n]
}
