// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package action

import "github.com/luxfi/envelope/cerr"

// HashFactory creates a default hash Handle for a given algorithm when the
// scheduler needs to auto-add one. Callers supply this so the action
// package stays independent of the capability/provider packages it would
// otherwise have to import to create cryptographic contexts.
type HashFactory func() (Handle, error)

// Scheduler wraps the three lists an envelope maintains (spec §6):
// PreActions run before the bulk transform (key exchange), Actions is the
// bulk transform itself (hash and/or encrypt), and PostActions run after
// it (signature). This mirrors envelopeInfoPtr's preActionList/
// actionList/postActionList trio in the original.
type Scheduler struct {
	PreActions  *List
	Actions     *List
	PostActions *List

	// DefaultHash builds a hash Handle on demand when a signature action
	// is added with no existing hash action to attach to.
	DefaultHash HashFactory
}

// NewScheduler returns an empty Scheduler.
func NewScheduler(defaultHash HashFactory) *Scheduler {
	return &Scheduler{
		PreActions:  New(),
		Actions:     New(),
		PostActions: New(),
		DefaultHash: defaultHash,
	}
}

// AddHash inserts a hash action into Actions, ordered backwards
// (descending by Type) when deenveloping, matching the original's
// negative-actionType convention for the de-envelope side.
func (s *Scheduler) AddHash(handle Handle, deenvelope bool) (*Entry, error) {
	t := TypeHash
	result, pos := s.Actions.FindCheckLast(t, handle, deenvelope)
	switch result {
	case ResultInited:
		return nil, cerr.New(cerr.AlreadyInited)
	case ResultPresent:
		return s.Actions.entries[pos], nil
	}
	entry := s.Actions.Add(t, handle, pos)
	entry.NeedsController = true
	return entry, nil
}

// AddCrypt inserts a bulk-encryption action into Actions.
func (s *Scheduler) AddCrypt(handle Handle, deenvelope bool) (*Entry, error) {
	t := TypeCrypt
	result, pos := s.Actions.FindCheckLast(t, handle, deenvelope)
	switch result {
	case ResultInited:
		return nil, cerr.New(cerr.AlreadyInited)
	case ResultPresent:
		return s.Actions.entries[pos], nil
	}
	return s.Actions.Add(t, handle, pos), nil
}

// AddKeyExchange inserts a key-exchange action into PreActions — PKC
// (public-key) key transport uses TypeKeyExchangePKC, conventional
// (KEK-based) key wrap uses TypeKeyExchange.
func (s *Scheduler) AddKeyExchange(handle Handle, pkc bool) (*Entry, error) {
	t := TypeKeyExchange
	if pkc {
		t = TypeKeyExchangePKC
	}
	result, pos := s.PreActions.FindCheckLast(t, handle, false)
	switch result {
	case ResultInited:
		return nil, cerr.New(cerr.AlreadyInited)
	case ResultPresent:
		return s.PreActions.entries[pos], nil
	}
	return s.PreActions.Add(t, handle, pos), nil
}

// AddSign inserts a signature action into PostActions and connects it to
// a hash action in Actions, auto-creating a default hash action via
// DefaultHash if none exists yet — the addedAutomatically dance from
// RESOURCE.C lines ~1145-1183. The auto-created hash action's
// NeedsController is left false since the signature action just attached
// to it immediately satisfies that requirement.
func (s *Scheduler) AddSign(handle Handle) (*Entry, error) {
	result, pos := s.PostActions.FindCheckLast(TypeSign, handle, false)
	switch result {
	case ResultInited:
		return nil, cerr.New(cerr.AlreadyInited)
	case ResultPresent:
		return s.PostActions.entries[pos], nil
	}
	signEntry := s.PostActions.Add(TypeSign, handle, pos)

	hashEntry := s.Actions.Find(TypeHash)
	if hashEntry == nil {
		if s.DefaultHash == nil {
			return nil, cerr.New(cerr.ResourceRequired)
		}
		hashHandle, err := s.DefaultHash()
		if err != nil {
			return nil, err
		}
		_, hashPos := s.Actions.FindCheckLast(TypeHash, nil, false)
		hashEntry = s.Actions.Add(TypeHash, hashHandle, hashPos)
		hashEntry.AddedAutomatically = true
	} else {
		// Find the last hash action added, matching
		// findCheckLastAction's group-scan behavior with a nil handle.
		if last := findLastOfType(s.Actions, TypeHash); last != nil {
			hashEntry = last
		}
	}

	signEntry.AssociatedAction = hashEntry
	hashEntry.NeedsController = false
	return signEntry, nil
}

func findLastOfType(l *List, t Type) *Entry {
	var last *Entry
	for _, e := range l.entries {
		if e.Action == t {
			last = e
		}
	}
	return last
}
