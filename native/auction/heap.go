package auction

import "container/heap"

// bidHeap is a min-heap over kept bids. The root is the next bid to evict:
// the lowest value, and among equal values the latest arrival.
type bidHeap []Bid

func (h bidHeap) Len() int { return len(h) }

func (h bidHeap) Less(i, j int) bool {
	if c := h[i].Value.Cmp(h[j].Value); c != 0 {
		return c < 0
	}
	return h[i].Seq > h[j].Seq
}

func (h bidHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *bidHeap) Push(x any) { *h = append(*h, x.(Bid)) }

func (h *bidHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// bidBook wraps the heap with a fixed capacity.
type bidBook struct {
	bids     bidHeap
	capacity uint64
}

func newBidBook(bids []Bid, capacity uint64) *bidBook {
	b := &bidBook{bids: bidHeap(cloneBids(bids)), capacity: capacity}
	heap.Init(&b.bids)
	return b
}

func (b *bidBook) full() bool { return uint64(b.bids.Len()) >= b.capacity }

// min returns the next bid to evict. The book must not be empty.
func (b *bidBook) min() Bid { return b.bids[0] }

func (b *bidBook) push(bid Bid) { heap.Push(&b.bids, bid) }

func (b *bidBook) evict() Bid { return heap.Pop(&b.bids).(Bid) }

func (b *bidBook) list() []Bid { return cloneBids(b.bids) }
