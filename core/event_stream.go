package core

import (
	"context"
	"sync"

	"marketchain/core/types"
)

const eventSubscriberBuffer = 64

// StreamedEvent is a committed event tagged with its position in the node's
// event sequence. Sequence numbers start at one and never repeat.
type StreamedEvent struct {
	Sequence uint64
	Height   uint64
	Event    types.Event
}

// record appends the events committed at height to the history and fans them
// out to subscribers. Slow subscribers miss events rather than block commits.
func (n *Node) record(height uint64, evts []types.Event) {
	if len(evts) == 0 {
		return
	}
	n.historyMu.Lock()
	defer n.historyMu.Unlock()

	batch := make([]StreamedEvent, 0, len(evts))
	for _, evt := range evts {
		n.eventSeq++
		batch = append(batch, StreamedEvent{Sequence: n.eventSeq, Height: height, Event: evt})
	}
	n.history = append(n.history, batch...)
	if overflow := len(n.history) - n.historyLimit; overflow > 0 {
		n.history = append([]StreamedEvent(nil), n.history[overflow:]...)
	}
	for _, ch := range n.subs {
		for _, entry := range batch {
			select {
			case ch <- entry:
			default:
			}
		}
	}
}

// RecentEvents returns up to limit of the most recently committed events,
// oldest first. A non-positive limit returns the whole history.
func (n *Node) RecentEvents(limit int) []types.Event {
	n.historyMu.RLock()
	defer n.historyMu.RUnlock()
	start := 0
	if limit > 0 && limit < len(n.history) {
		start = len(n.history) - limit
	}
	out := make([]types.Event, 0, len(n.history)-start)
	for _, entry := range n.history[start:] {
		out = append(out, entry.Event)
	}
	return out
}

// SubscribeEvents registers a subscriber for committed events. The backlog
// holds the retained events with a sequence above since; later events arrive
// on the channel. The channel is closed by cancel or when ctx ends.
func (n *Node) SubscribeEvents(ctx context.Context, since uint64) (<-chan StreamedEvent, func(), []StreamedEvent) {
	updates := make(chan StreamedEvent, eventSubscriberBuffer)

	n.historyMu.Lock()
	if n.subs == nil {
		n.subs = make(map[uint64]chan StreamedEvent)
	}
	id := n.nextSubID
	n.nextSubID++
	n.subs[id] = updates
	backlog := make([]StreamedEvent, 0, len(n.history))
	for _, entry := range n.history {
		if entry.Sequence > since {
			backlog = append(backlog, entry)
		}
	}
	n.historyMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.historyMu.Lock()
			if sub, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(sub)
			}
			n.historyMu.Unlock()
		})
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return updates, cancel, backlog
}
