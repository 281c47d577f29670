// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package capability

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"sync"

	"github.com/luxfi/envelope/cerr"
	"github.com/luxfi/envelope/codec"
	"github.com/luxfi/envelope/provider"
)

// KeyGenStatus is a KeyGenTask's lifecycle state, mirroring the
// Pending/Running/Complete/Failed progression the teacher's
// KeygenRequest.Status field drives for distributed key generation.
type KeyGenStatus int

const (
	KeyGenPending KeyGenStatus = iota
	KeyGenRunning
	KeyGenComplete
	KeyGenFailed
	KeyGenCancelled
)

// KeyGenTask is a pollable/cancellable handle over an in-flight
// key-generation operation, per spec §9's redesign flag: "async key
// generation ... a worker-thread keygen" becomes a goroutine plus a
// context.Context here, grounded on the teacher's KeygenRequest
// bookkeeping (request ID, status field, completion callback) adapted
// from a cross-chain DKG request into a single-process async task.
type KeyGenTask struct {
	ID [32]byte

	mu         sync.Mutex
	status     KeyGenStatus
	privateKey []byte
	publicKey  []byte
	err        error

	cancel context.CancelFunc
	done   chan struct{}
}

func newTaskID(algo codec.AlgorithmID, mode codec.Mode) [32]byte {
	seed := make([]byte, 8)
	_, _ = rand.Read(seed)
	data := append([]byte{byte(algo), byte(mode)}, seed...)
	return sha256.Sum256(data)
}

// GenerateKeyAsync starts generating a fresh keypair for (algo, mode) on
// a worker goroutine and returns immediately with a pollable task. The
// registry's underlying provider must implement provider.KeyPairGenerator;
// a provider that can't (a PKCS #11 device doing on-card generation,
// say) returns NoAlgorithm instead of ever starting work.
func (r *Registry) GenerateKeyAsync(algo codec.AlgorithmID, mode codec.Mode) (*KeyGenTask, error) {
	gen, ok := r.provider.(provider.KeyPairGenerator)
	if !ok {
		return nil, cerr.New(cerr.NoAlgorithm)
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &KeyGenTask{
		ID:     newTaskID(algo, mode),
		status: KeyGenPending,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go task.run(ctx, gen, algo)
	return task, nil
}

func (t *KeyGenTask) run(ctx context.Context, gen provider.KeyPairGenerator, algo codec.AlgorithmID) {
	defer close(t.done)

	t.mu.Lock()
	t.status = KeyGenRunning
	t.mu.Unlock()

	priv, pub, err := gen.GenerateKeyPair(algo)

	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-ctx.Done():
		t.status = KeyGenCancelled
		t.err = ctx.Err()
		return
	default:
	}
	if err != nil {
		t.status = KeyGenFailed
		t.err = err
		return
	}
	t.privateKey, t.publicKey = priv, pub
	t.status = KeyGenComplete
}

// Poll reports the task's current status without blocking, the
// non-blocking half of spec §5's "query_progress / cancel pair".
func (t *KeyGenTask) Poll() KeyGenStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Cancel requests the task stop; generation already past the point of
// no return (the underlying GenerateKeyPair call has no cancellation
// hook of its own) still completes, but the result is discarded and
// Poll/Wait report KeyGenCancelled.
func (t *KeyGenTask) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes or ctx is done, then returns the
// generated keypair (wire-form private and public key bytes) or the
// failure/cancellation error.
func (t *KeyGenTask) Wait(ctx context.Context) (priv, pub []byte, err error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.status {
	case KeyGenComplete:
		return t.privateKey, t.publicKey, nil
	case KeyGenCancelled:
		return nil, nil, cerr.New(cerr.IncompleteOperation)
	default:
		return nil, nil, t.err
	}
}
