// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package capability

import (
	"sync"

	"github.com/luxfi/threshold/pkg/party"
	"github.com/luxfi/threshold/pkg/protocol"
)

// simNetwork is an in-memory message bus standing in for a real
// transport between threshold-protocol participants: every party in a
// ThresholdSession runs in this same process, so messages are handed
// off over channels instead of a socket. Adapted from the teacher's
// simpleNetwork/handlerLoop pair in threshold/client.go.
type simNetwork struct {
	mu        sync.RWMutex
	channels  map[party.ID]chan *protocol.Message
	closeChan chan struct{}
}

func newSimNetwork(ids []party.ID) *simNetwork {
	n := &simNetwork{
		channels:  make(map[party.ID]chan *protocol.Message, len(ids)),
		closeChan: make(chan struct{}),
	}
	for _, id := range ids {
		n.channels[id] = make(chan *protocol.Message, 1000)
	}
	return n
}

func (n *simNetwork) send(msg *protocol.Message) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	select {
	case <-n.closeChan:
		return
	default:
	}
	if msg.Broadcast || msg.To == "" {
		for id, ch := range n.channels {
			if id != msg.From {
				select {
				case ch <- msg:
				default:
				}
			}
		}
		return
	}
	if ch, ok := n.channels[msg.To]; ok {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (n *simNetwork) close() {
	close(n.closeChan)
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.channels {
		close(ch)
	}
}

// handlerLoop pumps a party's outgoing protocol messages onto the
// network and its incoming network messages into the protocol handler.
func (n *simNetwork) handlerLoop(id party.ID, h *protocol.Handler) {
	out := h.Listen()
	go func() {
		for msg := range out {
			n.send(msg)
		}
	}()
	n.mu.RLock()
	in := n.channels[id]
	n.mu.RUnlock()
	for msg := range in {
		if h.CanAccept(msg) {
			h.Accept(msg)
		}
	}
}
