// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package certchain

import (
	"crypto/x509"
	"strings"

	"github.com/luxfi/envelope/cerr"
)

// CheckConstraints walks the chain from the leaf (index 0) to the root,
// enforcing each issuer's path-length, name, and policy constraints
// against every certificate below it — the three constraint classes
// CERTCHN.C's checkConstraints handles, minus the "noone agrees how this
// should work" policy-mapping edge cases it explicitly declines to
// implement (spec §5.2 Non-goals keeps the same scope).
func CheckConstraints(chain Chain) error {
	certs := chain.Certs
	for issuerIdx := 1; issuerIdx < len(certs); issuerIdx++ {
		issuer := certs[issuerIdx]
		subjectsBelow := certs[:issuerIdx] // indices 0..issuerIdx-1, leaf-ward of issuer

		if err := checkPathLength(issuer, issuerIdx); err != nil {
			return err
		}
		if err := checkNameConstraints(issuer, subjectsBelow); err != nil {
			return err
		}
		if err := checkPolicyConstraints(issuer, subjectsBelow); err != nil {
			return err
		}
	}
	return nil
}

// checkPathLength enforces BasicConstraints.pathLenConstraint: the number
// of intermediate certificates between issuer and the leaf must not
// exceed the constraint. distanceFromLeaf is issuer's position in the
// chain (1 = immediately above the leaf).
func checkPathLength(issuer *x509.Certificate, distanceFromLeaf int) error {
	if !issuer.BasicConstraintsValid || !issuer.IsCA {
		return nil
	}
	if issuer.MaxPathLen == 0 && !issuer.MaxPathLenZero {
		return nil // unconstrained
	}
	if IsSelfSigned(issuer) {
		return nil // root's own constraint never applies to itself
	}
	// distanceFromLeaf - 1 intermediates sit strictly between issuer and
	// the leaf; MaxPathLen bounds how many intermediates may follow this
	// cert, so the count below issuer (excluding the leaf) must fit.
	intermediatesBelow := distanceFromLeaf - 1
	if intermediatesBelow > issuer.MaxPathLen {
		return cerr.New(cerr.InvalidConstraint)
	}
	return nil
}

// checkNameConstraints enforces NameConstraints.permittedSubtrees and
// excludedSubtrees against every subject certificate beneath issuer in
// the chain. Only the DNS-name and email-address forms are checked,
// matching what crypto/x509 exposes without re-parsing the raw extension.
func checkNameConstraints(issuer *x509.Certificate, subjects []*x509.Certificate) error {
	if len(issuer.PermittedDNSDomains) == 0 && len(issuer.ExcludedDNSDomains) == 0 &&
		len(issuer.PermittedEmailAddresses) == 0 && len(issuer.ExcludedEmailAddresses) == 0 {
		return nil
	}

	for _, subject := range subjects {
		for _, name := range subject.DNSNames {
			if matchesAnySuffix(name, issuer.ExcludedDNSDomains) {
				return cerr.New(cerr.InvalidConstraint)
			}
			if len(issuer.PermittedDNSDomains) > 0 && !matchesAnySuffix(name, issuer.PermittedDNSDomains) {
				return cerr.New(cerr.InvalidConstraint)
			}
		}
		for _, email := range subject.EmailAddresses {
			if matchesAnySuffix(email, issuer.ExcludedEmailAddresses) {
				return cerr.New(cerr.InvalidConstraint)
			}
			if len(issuer.PermittedEmailAddresses) > 0 && !matchesAnySuffix(email, issuer.PermittedEmailAddresses) {
				return cerr.New(cerr.InvalidConstraint)
			}
		}
	}
	return nil
}

func matchesAnySuffix(name string, domains []string) bool {
	name = strings.ToLower(name)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(d, "."))
		if name == d || strings.HasSuffix(name, "."+d) {
			return true
		}
	}
	return false
}

// checkPolicyConstraints enforces the requireExplicitPolicy idea the
// original describes: every certificate below a policy-constraining
// issuer must carry at least one of the issuer's declared policy OIDs
// (or anyPolicy). The ambiguous policy-mapping/policy-qualifier
// machinery is intentionally left unimplemented, as CERTCHN.C itself
// does ("this particular rathole").
func checkPolicyConstraints(issuer *x509.Certificate, subjects []*x509.Certificate) error {
	if len(issuer.PolicyIdentifiers) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(issuer.PolicyIdentifiers))
	for _, oid := range issuer.PolicyIdentifiers {
		allowed[oid.String()] = true
	}

	for _, subject := range subjects {
		if len(subject.PolicyIdentifiers) == 0 {
			continue
		}
		ok := false
		for _, oid := range subject.PolicyIdentifiers {
			if allowed[oid.String()] || oid.String() == "2.5.29.32.0" { // anyPolicy
				ok = true
				break
			}
		}
		if !ok {
			return cerr.New(cerr.InvalidConstraint)
		}
	}
	return nil
}
