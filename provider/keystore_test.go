// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryKeyStoreGetPutDelete(t *testing.T) {
	ks := NewMemoryKeyStore()
	keyID := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}

	_, err := ks.Get(keyID)
	require.Error(t, err)

	require.NoError(t, ks.Put(keyID, []byte("wire key bytes")))
	got, err := ks.Get(keyID)
	require.NoError(t, err)
	require.Equal(t, []byte("wire key bytes"), got)

	require.NoError(t, ks.Delete(keyID))
	_, err = ks.Get(keyID)
	require.Error(t, err)
}

func TestMemoryKeyStoreLookupByLabel(t *testing.T) {
	ks := NewMemoryKeyStore()
	keyID := []byte{0xAA, 0xBB}
	require.NoError(t, ks.PutLabeled(keyID, "alice@example.com", []byte("alice key")))

	gotID, gotKey, err := ks.Lookup("alice@example.com")
	require.NoError(t, err)
	require.Equal(t, keyID, gotID)
	require.Equal(t, []byte("alice key"), gotKey)

	_, _, err = ks.Lookup("nobody@example.com")
	require.Error(t, err)
}
