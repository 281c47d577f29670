// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package action

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testHandle struct{ id string }

func (h *testHandle) SameKeyAs(other Handle) bool {
	o, ok := other.(*testHandle)
	return ok && o.id == h.id
}

func TestFindCheckLastEmptyList(t *testing.T) {
	l := New()
	result, pos := l.FindCheckLast(TypeHash, &testHandle{"h1"}, false)
	require.Equal(t, ResultEmpty, result)
	require.Equal(t, 0, pos)
}

func TestAddOrdersByAscendingType(t *testing.T) {
	l := New()
	_, pos := l.FindCheckLast(TypeSign, &testHandle{"s"}, false)
	l.Add(TypeSign, &testHandle{"s"}, pos)

	_, pos = l.FindCheckLast(TypeHash, &testHandle{"h"}, false)
	l.Add(TypeHash, &testHandle{"h"}, pos)

	require.Equal(t, TypeHash, l.entries[0].Action)
	require.Equal(t, TypeSign, l.entries[1].Action)
}

func TestFindCheckLastDetectsDuplicateHandle(t *testing.T) {
	l := New()
	h := &testHandle{"same"}
	_, pos := l.FindCheckLast(TypeHash, h, false)
	l.Add(TypeHash, h, pos)

	result, _ := l.FindCheckLast(TypeHash, h, false)
	require.Equal(t, ResultInited, result)
}

func TestFindCheckLastAddedAutomaticallyClearsOnConfirm(t *testing.T) {
	l := New()
	h := &testHandle{"auto"}
	_, pos := l.FindCheckLast(TypeHash, h, false)
	entry := l.Add(TypeHash, h, pos)
	entry.AddedAutomatically = true

	result, _ := l.FindCheckLast(TypeHash, h, false)
	require.Equal(t, ResultPresent, result)
	require.False(t, entry.AddedAutomatically)

	result, _ = l.FindCheckLast(TypeHash, h, false)
	require.Equal(t, ResultInited, result)
}

func TestDeleteClearsList(t *testing.T) {
	l := New()
	_, pos := l.FindCheckLast(TypeHash, &testHandle{"x"}, false)
	l.Add(TypeHash, &testHandle{"x"}, pos)
	require.Equal(t, 1, l.Len())

	l.Delete()
	require.Equal(t, 0, l.Len())
}

func TestSchedulerAddSignAutoCreatesHash(t *testing.T) {
	var created bool
	sched := NewScheduler(func() (Handle, error) {
		created = true
		return &testHandle{"default-hash"}, nil
	})

	signEntry, err := sched.AddSign(&testHandle{"signer"})
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, signEntry.AssociatedAction)
	require.Equal(t, TypeHash, signEntry.AssociatedAction.Action)
	require.True(t, signEntry.AssociatedAction.AddedAutomatically)
	require.False(t, signEntry.AssociatedAction.NeedsController)
}

func TestSchedulerAddSignReusesExistingHash(t *testing.T) {
	sched := NewScheduler(func() (Handle, error) { return nil, nil })
	hashEntry, err := sched.AddHash(&testHandle{"h"}, false)
	require.NoError(t, err)

	signEntry, err := sched.AddSign(&testHandle{"s"})
	require.NoError(t, err)
	require.Same(t, hashEntry, signEntry.AssociatedAction)
	require.False(t, hashEntry.NeedsController)
}

func TestSchedulerAddHashThenExplicitAddIsNoOpWhenAutoAdded(t *testing.T) {
	sched := NewScheduler(func() (Handle, error) { return &testHandle{"auto-hash"}, nil })
	signEntry, err := sched.AddSign(&testHandle{"s"})
	require.NoError(t, err)
	autoHash := signEntry.AssociatedAction

	entry, err := sched.AddHash(autoHash.Handle, false)
	require.NoError(t, err)
	require.Same(t, autoHash, entry)

	_, err = sched.AddHash(autoHash.Handle, false)
	require.Error(t, err)
}

func TestSchedulerAddKeyExchangeDistinguishesPKC(t *testing.T) {
	sched := NewScheduler(nil)
	_, err := sched.AddKeyExchange(&testHandle{"kek"}, false)
	require.NoError(t, err)
	_, err = sched.AddKeyExchange(&testHandle{"pubkey"}, true)
	require.NoError(t, err)
	require.Equal(t, 2, sched.PreActions.Len())
}
