// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cerr defines the error taxonomy shared by the codec, CMS object
// model, certificate engine, action list, and envelope pipeline.
package cerr

import "fmt"

// Kind is one of the closed set of error categories a component may report.
type Kind int

const (
	_ Kind = iota
	BadData             // structural ASN.1/CMS malformation
	Underflow           // need more input to continue parsing
	Overflow            // a length or count exceeded an implementation limit
	NoMemory            // allocation failure
	NoAlgorithm         // OID or algorithm/mode combination is unknown
	NoMode              // mode is not valid for the algorithm
	WrongKey            // key material doesn't match what's required
	BadSignature        // signature or MAC verification failed
	Signalled           // the crypto provider lost its state
	DataNotFound        // a lookup (OID table, keystore, trust store) missed
	DataDuplicate       // an add operation found an existing entry
	InvalidConstraint   // a chain constraint (path/name/policy) was violated
	ResourceRequired    // push returned because the caller must supply a key
	AlreadyInited       // a second add of a singleton action/entry
	NotInitialized      // a required controller/resource was never added
	IncompleteOperation // poisoned object: further operations are blocked
	NotAllowed          // operation is disallowed by configuration or state
)

func (k Kind) String() string {
	switch k {
	case BadData:
		return "BadData"
	case Underflow:
		return "Underflow"
	case Overflow:
		return "Overflow"
	case NoMemory:
		return "NoMemory"
	case NoAlgorithm:
		return "NoAlgorithm"
	case NoMode:
		return "NoMode"
	case WrongKey:
		return "WrongKey"
	case BadSignature:
		return "BadSignature"
	case Signalled:
		return "Signalled"
	case DataNotFound:
		return "DataNotFound"
	case DataDuplicate:
		return "DataDuplicate"
	case InvalidConstraint:
		return "InvalidConstraint"
	case ResourceRequired:
		return "ResourceRequired"
	case AlreadyInited:
		return "AlreadyInited"
	case NotInitialized:
		return "NotInitialized"
	case IncompleteOperation:
		return "IncompleteOperation"
	case NotAllowed:
		return "NotAllowed"
	default:
		return "Unknown"
	}
}

// Locus pins a constraint-check or verification failure to the certificate
// and attribute that caused it, per spec §7.
type Locus struct {
	CertIndex int    // position in the chain, leaf = 0
	Attribute string // OID or attribute name, empty if not attribute-specific
	Detail    string // free-form diagnostic, e.g. the offending OID
}

// Error is the error type returned across package boundaries in this module.
type Error struct {
	Kind  Kind
	Locus *Locus
	// PKCS11Code retains a provider's fine-grained return code for
	// diagnostics when Kind was mapped down from something more specific.
	PKCS11Code int64
	Err        error
}

func (e *Error) Error() string {
	if e.Locus != nil {
		if e.Err != nil {
			return fmt.Sprintf("%s at cert %d (%s): %v", e.Kind, e.Locus.CertIndex, e.Locus.Attribute, e.Err)
		}
		return fmt.Sprintf("%s at cert %d (%s)", e.Kind, e.Locus.CertIndex, e.Locus.Attribute)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a bare Error of the given kind.
func New(kind Kind) *Error { return &Error{Kind: kind} }

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return New(kind)
	}
	return &Error{Kind: kind, Err: err}
}

// WithLocus attaches a constraint-check locus to an error.
func WithLocus(kind Kind, locus Locus, err error) *Error {
	e := Wrap(kind, err)
	e.Locus = &locus
	return e
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
