// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package action implements the action-list scheduler spec §6 names: an
// ordered, deduplicated list of cryptographic operations (hash, encrypt,
// sign, key-exchange) an envelope applies to its content, plus the
// dependency link between a signature action and the hash action it
// signs. Grounded directly on
// original_source/Cryptl21a/ENVELOPE/RESOURCE.C's createAction/findAction/
// findCheckLastAction/addAction/deleteActionList, translated from an
// intrusive singly-linked C list into a Go slice-backed list (idiomatic
// Go code builds ordered collections on slices, not hand-rolled linked
// lists, the way the pack's registry.go builds its lookup tables).
package action

// Type is the kind of cryptographic operation an Entry represents. Order
// matters: findCheckLastAction groups entries by ascending Type (or
// descending, see Add's orderBackwards parameter) and relies on
// comparing Type values directly.
type Type int

const (
	TypeKeyExchangePKC Type = iota + 1
	TypeKeyExchange
	TypeCompress
	TypeCrypt
	TypeHash
	TypeSign
)

// Handle identifies the cryptographic object (context or certificate) an
// Entry wraps. SameKeyAs mirrors the original's krnlSendMessage
// RESOURCE_IMESSAGE_COMPARE call: two handles match only if they are the
// same concrete kind (context vs. certificate) AND carry the same key
// material — a context and a certificate are never considered equal even
// if they hold the same key, since cert reissue/duplication means that
// can't be trusted to mean "the same thing" (the original's comment on
// this exact point is preserved as the rationale).
type Handle interface {
	SameKeyAs(other Handle) bool
}

// Entry is one node of an ActionList.
type Entry struct {
	Action Type
	Handle Handle

	// AssociatedAction links a ACTION_SIGN entry to the ACTION_HASH entry
	// it signs (spec §6: "a signature action depends on a hash action").
	AssociatedAction *Entry

	// AddedAutomatically marks an entry the scheduler inserted as a
	// side-effect of adding another action (e.g. auto-adding a hash
	// action when a sign action is added with no existing hash present).
	// The first explicit caller request for the same action afterward is
	// not an error — it's treated as confirming the auto-added entry.
	AddedAutomatically bool

	// NeedsController marks a hash entry whose digest value is still
	// owned by an in-progress sign action rather than finalized.
	NeedsController bool
}

// List is an ordered collection of Entry, analogous to the original's
// ACTION_LIST linked list but backed by a slice for idiomatic iteration.
type List struct {
	entries []*Entry
}

// Result is the outcome of FindCheckLast, mirroring ACTION_RESULT.
type Result int

const (
	// ResultEmpty: the list (or the requested action group) is empty; the
	// caller should insert at InsertBefore (shown as -1).
	ResultEmpty Result = iota
	// ResultOK: no matching handle found in the group; insert at
	// InsertBefore.
	ResultOK
	// ResultPresent: a matching entry existed but was AddedAutomatically;
	// it has now been confirmed (the flag is cleared) and the caller's
	// add is a no-op.
	ResultPresent
	// ResultInited: a matching entry already exists and was NOT
	// auto-added — the caller is trying to add a duplicate explicit
	// action, an error condition.
	ResultInited
)

// New returns an empty action list.
func New() *List { return &List{} }

// Entries returns the list contents in order, for callers that need to
// iterate without mutating.
func (l *List) Entries() []*Entry { return l.entries }

// Find returns the first entry of the given Type, the start of that
// type's group, or nil if no such entry exists. Corresponds to findAction.
func (l *List) Find(t Type) *Entry {
	for _, e := range l.entries {
		if e.Action == t {
			return e
		}
	}
	return nil
}

// FindCheckLast locates the insertion point for a new entry of the given
// type and handle, and simultaneously checks whether an entry with the
// same handle already exists in that type's group. insertBefore is the
// slice index Add should insert at (== len(l.entries) to append).
// orderBackwards reverses the sort direction within the group-ordering
// scan, the behavior the original selects via a negative actionType
// (used for the main action list during de-enveloping, spec §6: actions
// run in reverse order when unwrapping rather than wrapping).
func (l *List) FindCheckLast(t Type, handle Handle, orderBackwards bool) (Result, int) {
	if len(l.entries) == 0 {
		return ResultEmpty, 0
	}

	i := 0
	for i < len(l.entries) {
		cur := l.entries[i].Action
		if orderBackwards {
			if cur < t {
				break
			}
		} else if cur >= t {
			break
		}
		i++
	}

	insertBefore := i
	for i < len(l.entries) && l.entries[i].Action == t {
		entry := l.entries[i]
		if handle != nil && entry.Handle != nil && entry.Handle.SameKeyAs(handle) {
			if entry.AddedAutomatically {
				entry.AddedAutomatically = false
				return ResultPresent, i
			}
			return ResultInited, i
		}
		insertBefore = i + 1
		i++
	}

	return ResultOK, insertBefore
}

// Add inserts a new entry of the given type/handle at position, returning
// the inserted Entry. Corresponds to addAction; callers choose `position`
// from the value FindCheckLast returned.
func (l *List) Add(t Type, handle Handle, position int) *Entry {
	entry := &Entry{Action: t, Handle: handle}
	l.entries = append(l.entries, nil)
	copy(l.entries[position+1:], l.entries[position:])
	l.entries[position] = entry
	return entry
}

// Delete removes every entry from the list. Corresponds to
// deleteActionList; Go's GC reclaims the handles, so no explicit
// refcount teardown is needed the way the original's
// RESOURCE_IMESSAGE_DECREFCOUNT calls were.
func (l *List) Delete() {
	l.entries = nil
}

// Len reports the number of entries.
func (l *List) Len() int { return len(l.entries) }
