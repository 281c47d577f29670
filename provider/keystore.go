// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"sync"

	"github.com/luxfi/envelope/cerr"
)

// KeyStore is the boundary trait spec.md §1 carves keysets out behind:
// file, database, LDAP, HTTP, smart-card, and PKCS #11 backends all
// implement this same lookup/put/delete surface. Only the in-memory
// default below is in scope; the exotic backends are the spec's
// explicit non-goals.
type KeyStore interface {
	// Get returns the wire-form key bytes stored under keyID, the same
	// truncated-SHA-1 identifier envelope/keyid.go computes.
	Get(keyID []byte) ([]byte, error)
	// Put stores wireKey under keyID, replacing any prior entry.
	Put(keyID []byte, wireKey []byte) error
	// Delete removes the entry for keyID, if any.
	Delete(keyID []byte) error
	// Lookup scans for an entry whose stored label matches label,
	// cryptlib's keyset label lookup (`keysetGetItem` by CRYPT_KEYID_NAME).
	Lookup(label string) (keyID []byte, wireKey []byte, err error)
}

type memoryEntry struct {
	label   string
	wireKey []byte
}

// MemoryKeyStore is the default in-memory KeyStore, keyed by the
// truncated-SHA-1 key identifier. It holds no secret-wiping guarantees
// beyond what secret.Buffer gives a loaded Context; entries here are
// wire-form bytes the caller has already chosen to persist.
type MemoryKeyStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryKeyStore constructs an empty in-memory keystore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryKeyStore) Get(keyID []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[string(keyID)]
	if !ok {
		return nil, cerr.New(cerr.DataNotFound)
	}
	return e.wireKey, nil
}

func (m *MemoryKeyStore) Put(keyID []byte, wireKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[string(keyID)] = memoryEntry{wireKey: append([]byte(nil), wireKey...)}
	return nil
}

// PutLabeled is Put plus a human-readable label Lookup can search by,
// matching keysets that index entries by both ID and name.
func (m *MemoryKeyStore) PutLabeled(keyID []byte, label string, wireKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[string(keyID)] = memoryEntry{label: label, wireKey: append([]byte(nil), wireKey...)}
	return nil
}

func (m *MemoryKeyStore) Delete(keyID []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[string(keyID)]; !ok {
		return cerr.New(cerr.DataNotFound)
	}
	delete(m.entries, string(keyID))
	return nil
}

func (m *MemoryKeyStore) Lookup(label string) ([]byte, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, e := range m.entries {
		if e.label == label {
			return []byte(id), e.wireKey, nil
		}
	}
	return nil, nil, cerr.New(cerr.DataNotFound)
}
