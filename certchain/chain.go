// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package certchain implements the certificate chain engine spec §5.2
// names: reconstructing an ordered leaf-to-root chain from an unordered
// bag of certificates, and checking path-length/name/policy constraints
// along the ordered result. Grounded directly on
// original_source/Cryptl21a/KEYMGMT/CERTCHN.C's findLeafNode/sortCertChain/
// copyCertChain and the constraint-walk section that follows them; the
// certificates themselves are crypto/x509.Certificate, since that's the
// representation every CMS/PKCS#7 implementation in the pack (ietf-cms,
// smallstep/pkcs7) standardizes on and there is no reason to invent a
// parallel one here.
package certchain

import (
	"bytes"
	"crypto/x509"

	"github.com/luxfi/envelope/cerr"
	"github.com/luxfi/envelope/certdn"
)

// Chain is an ordered certificate chain, leaf first, root (or the
// highest-available issuer) last.
type Chain struct {
	Certs []*x509.Certificate
}

// Leaf returns the end-entity certificate, or nil if the chain is empty.
func (c Chain) Leaf() *x509.Certificate {
	if len(c.Certs) == 0 {
		return nil
	}
	return c.Certs[0]
}

// maxChainLength bounds chain reconstruction the way CERTCHN.C's
// MAX_CHAINLENGTH array bound does, guarding against a maliciously
// constructed bag of certificates that would otherwise make the O(n^2)
// reconstruction walk unbounded.
const maxChainLength = 64

// BuildChain reconstructs an ordered leaf-to-root chain from an unordered
// bag of certificates, the operation CERTCHN.C's copyCertChain performs in
// two steps (findLeafNode then sortCertChain). If leaf is nil, the leaf is
// located by walking subject/issuer links as far as possible starting from
// bag[0], matching findLeafNode's fallback behavior.
func BuildChain(bag []*x509.Certificate, leaf *x509.Certificate) (Chain, error) {
	if len(bag) == 0 {
		return Chain{}, cerr.New(cerr.DataNotFound)
	}
	if len(bag) > maxChainLength {
		return Chain{}, cerr.New(cerr.Overflow)
	}

	if leaf == nil {
		var err error
		leaf, bag, err = findLeafNode(bag)
		if err != nil {
			return Chain{}, err
		}
	} else {
		bag = removeCert(bag, leaf)
	}

	ordered, err := sortChain(bag, leaf)
	if err != nil {
		return Chain{}, err
	}
	return Chain{Certs: ordered}, nil
}

// findLeafNode walks down the bag from bag[0], following subject->issuer
// links until no certificate's issuer DN matches the current subject DN,
// at which point the current certificate is the leaf. Mirrors
// findLeafNode's used-bitmap walk exactly.
func findLeafNode(bag []*x509.Certificate) (*x509.Certificate, []*x509.Certificate, error) {
	used := make([]bool, len(bag))
	used[0] = true
	current := bag[0]

	for {
		next := -1
		for i, cert := range bag {
			if used[i] {
				continue
			}
			if dnEqual(current.RawSubject, cert.RawIssuer) {
				next = i
				break
			}
		}
		if next == -1 {
			break
		}
		used[next] = true
		current = bag[next]
	}

	remaining := make([]*x509.Certificate, 0, len(bag)-1)
	for i, cert := range bag {
		if cert != current {
			_ = i
			remaining = append(remaining, cert)
		}
	}
	return current, remaining, nil
}

// sortChain is the Go counterpart of sortCertChain: starting from leaf,
// repeatedly find the certificate in bag whose subject DN equals the
// current parent DN (initially the leaf's issuer DN), appending it and
// advancing the parent DN to that certificate's issuer, until no match
// remains (we've reached the root, or run out of useful certs). Certs
// left over in the bag are simply dropped, matching the original's
// "anything left over isn't needed" cleanup.
func sortChain(bag []*x509.Certificate, leaf *x509.Certificate) ([]*x509.Certificate, error) {
	ordered := []*x509.Certificate{leaf}
	used := make([]bool, len(bag))
	parentDN := leaf.RawIssuer

	for {
		idx := -1
		for i, cert := range bag {
			if used[i] {
				continue
			}
			if dnEqual(parentDN, cert.RawSubject) {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		used[idx] = true
		ordered = append(ordered, bag[idx])
		parentDN = bag[idx].RawIssuer
	}

	return ordered, nil
}

func removeCert(bag []*x509.Certificate, cert *x509.Certificate) []*x509.Certificate {
	out := make([]*x509.Certificate, 0, len(bag))
	for _, c := range bag {
		if c != cert && !bytes.Equal(c.Raw, cert.Raw) {
			out = append(out, c)
		}
	}
	return out
}

// dnEqual compares raw DER-encoded Names using certdn's whitespace/case
// insensitive equality rule rather than a byte-exact match, tolerating
// CAs that re-encode the same DN with different string types or spacing
// between certificates in the same chain (spec §5.1/§5.2).
func dnEqual(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	na, err := certdn.ParseName(a)
	if err != nil {
		return false
	}
	nb, err := certdn.ParseName(b)
	if err != nil {
		return false
	}
	return na.Equal(nb)
}

// IsSelfSigned reports whether a certificate's subject and issuer DNs
// match, the terminating condition for a chain that reaches a trust
// anchor rather than running out of available issuer certificates.
func IsSelfSigned(cert *x509.Certificate) bool {
	return dnEqual(cert.RawSubject, cert.RawIssuer)
}
