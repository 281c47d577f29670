// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package envelope implements the streaming envelope pipeline spec §6.1
// names: a push/pop state machine that incrementally wraps (envelope) or
// unwraps (de-envelope) a CMS message without requiring the whole message
// to be buffered in memory. The per-message action scheduling is
// delegated to the action package (itself grounded on
// original_source/Cryptl21a/ENVELOPE/RESOURCE.C); the state machine shape
// here follows the push/pop/flush contract codec.Reader and codec.Writer
// already establish for partial/streaming input — envelope is effectively
// one level up the same stack, so it reuses that idiom rather than
// inventing a new streaming convention.
package envelope

import (
	"bytes"

	"github.com/luxfi/envelope/action"
	"github.com/luxfi/envelope/cerr"
)

// State is the pipeline's current phase.
type State int

const (
	// StatePreamble: collecting/emitting the header material (ContentInfo
	// wrapper, RecipientInfos/SignerInfos that precede the body) before
	// any content bytes can flow.
	StatePreamble State = iota
	// StateBody: streaming content bytes through the configured actions
	// (hash, encrypt/decrypt) one chunk at a time.
	StateBody
	// StatePostamble: collecting/emitting the trailer material (signature
	// values, unsigned attributes) once all content has been seen.
	StatePostamble
	// StateFinished: the envelope is complete; no further Push/Pop calls
	// are meaningful.
	StateFinished
)

// Direction distinguishes enveloping (wrapping plaintext into CMS) from
// de-enveloping (unwrapping CMS back to plaintext).
type Direction int

const (
	DirectionEnvelope Direction = iota
	DirectionDeenvelope
)

// ContentListEntry records one as-yet-unresolved requirement the
// de-envelope side discovered while parsing the preamble — e.g. "this
// message needs a private key matching one of these RecipientInfos
// before the body can be decrypted," or "this message needs a trusted
// certificate to verify the signature in the postamble." The caller
// resolves these out-of-band (key lookup, user prompt) and feeds the
// result back via Pipeline.Resolve before Pop can make further progress.
type ContentListEntry struct {
	Kind        RequirementKind
	Description string
	resolved    bool
	handle      action.Handle
}

// RequirementKind enumerates what a ContentListEntry is blocked on.
type RequirementKind int

const (
	RequirementPrivateKey RequirementKind = iota
	RequirementConventionalKey
	RequirementPassword
	RequirementVerificationCert
)

// Resolved reports whether the caller has supplied a handle for this
// requirement.
func (c *ContentListEntry) Resolved() bool { return c.resolved }

// Resolve attaches a handle (decryption key, verification cert, etc.) to
// satisfy this requirement.
func (c *ContentListEntry) Resolve(h action.Handle) {
	c.handle = h
	c.resolved = true
}

// Pipeline is the streaming envelope/de-envelope state machine.
type Pipeline struct {
	Phase     State
	direction Direction
	scheduler *action.Scheduler

	pending     bytes.Buffer // unconsumed input (Push) or unread output (Pop)
	contentList []*ContentListEntry

	// transform applies the Body-phase per-chunk operation (hash update,
	// bulk cipher) configured from the scheduler's Actions list; nil
	// until BeginBody has resolved every action into a concrete
	// transform function.
	transform func(chunk []byte) ([]byte, error)

	// blockSize is the block size transform requires its input in (0 or
	// 1 means transform tolerates arbitrary chunk sizes, e.g. a hash
	// update or stream cipher). When set above 1, pushBody buffers
	// pending.Write calls have not yet produced full blocks, so a chunk
	// boundary falling mid-block never reaches transform.
	blockSize int
	// bodyBuf holds Body-phase input bytes not yet passed to transform:
	// the incomplete trailing block on the envelope side, or (on
	// de-envelope) the most recently received full block as well, held
	// back because it may carry the final PKCS#7 padding that only
	// Flush can identify.
	bodyBuf []byte

	preambleBuilt  bool
	postambleBuilt bool
}

// New creates a Pipeline in StatePreamble for the given direction, backed
// by sched for its action bookkeeping.
func New(direction Direction, sched *action.Scheduler) *Pipeline {
	return &Pipeline{Phase: StatePreamble, direction: direction, scheduler: sched}
}

// State returns the pipeline's current phase.
func (p *Pipeline) State() State { return p.Phase }

// ContentList returns the outstanding (possibly already-resolved)
// requirements discovered in the preamble, for de-envelope callers that
// need to prompt for a key or password before the body can proceed.
func (p *Pipeline) ContentList() []*ContentListEntry { return p.contentList }

// unresolvedRequirement returns the first ContentListEntry still waiting
// on a caller-supplied handle, or nil if every requirement is satisfied.
func (p *Pipeline) unresolvedRequirement() *ContentListEntry {
	for _, c := range p.contentList {
		if !c.resolved {
			return c
		}
	}
	return nil
}

// AddRequirement appends a new ContentListEntry, used by the preamble
// parser when it discovers a RecipientInfo/SignerInfo the caller must
// resolve before the body can be processed.
func (p *Pipeline) AddRequirement(kind RequirementKind, description string) *ContentListEntry {
	entry := &ContentListEntry{Kind: kind, Description: description}
	p.contentList = append(p.contentList, entry)
	return entry
}

// SetBodyTransform installs the per-chunk Body-phase transform once the
// caller (or the preamble parser, for de-envelope) has resolved enough
// key material to build it. Must be called before the pipeline can
// advance out of StatePreamble.
func (p *Pipeline) SetBodyTransform(transform func(chunk []byte) ([]byte, error)) {
	p.transform = transform
}

// SetBlockSize declares the block size transform requires, for a bulk
// cipher action that cannot process a partial block. Leaving it unset (or
// 0/1) keeps the previous chunk-at-a-time behavior, correct for hash
// updates and stream ciphers.
func (p *Pipeline) SetBlockSize(n int) {
	p.blockSize = n
}

// advanceFromPreamble transitions Preamble -> Body once the preamble
// bytes have been fully produced/consumed and every ContentListEntry is
// resolved.
func (p *Pipeline) advanceFromPreamble() error {
	if !p.preambleBuilt {
		return cerr.New(cerr.IncompleteOperation)
	}
	if req := p.unresolvedRequirement(); req != nil {
		return cerr.WithLocus(cerr.ResourceRequired, cerr.Locus{Detail: req.Description}, nil)
	}
	if p.transform == nil {
		return cerr.New(cerr.IncompleteOperation)
	}
	p.Phase = StateBody
	return nil
}

// advanceFromBody transitions Body -> Postamble. Called once the caller
// signals end-of-content (Flush), after draining whatever partial or
// held-back block pushBody left buffered.
func (p *Pipeline) advanceFromBody() error {
	if p.blockSize > 1 {
		if err := p.finishBody(); err != nil {
			return err
		}
	}
	p.Phase = StatePostamble
	return nil
}

// advanceFromPostamble transitions Postamble -> Finished once the
// trailer has been fully produced/consumed.
func (p *Pipeline) advanceFromPostamble() error {
	if !p.postambleBuilt {
		return cerr.New(cerr.IncompleteOperation)
	}
	p.Phase = StateFinished
	return nil
}
