package holdindex

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Heap is an in-process ExpiryIndex backed by a binary min-heap.
type Heap struct {
	mu    sync.Mutex
	items entryHeap
	pos   map[string]*heapItem
}

type heapItem struct {
	Entry
	index int
}

type entryHeap []*heapItem

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].ExpiresAt.Equal(h[j].ExpiresAt) {
		return h[i].HoldID < h[j].HoldID
	}
	return h[i].ExpiresAt.Before(h[j].ExpiresAt)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	it := x.(*heapItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

var _ ExpiryIndex = (*Heap)(nil)

func NewHeap() *Heap {
	return &Heap{pos: map[string]*heapItem{}}
}

func (h *Heap) Add(_ context.Context, e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if it, ok := h.pos[e.HoldID]; ok {
		it.Entry = e
		heap.Fix(&h.items, it.index)
		return nil
	}
	it := &heapItem{Entry: e}
	heap.Push(&h.items, it)
	h.pos[e.HoldID] = it
	return nil
}

func (h *Heap) Remove(_ context.Context, holdID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	it, ok := h.pos[holdID]
	if !ok {
		return nil
	}
	heap.Remove(&h.items, it.index)
	delete(h.pos, holdID)
	return nil
}

// Due does not remove entries; the sweeper removes what it settles.
func (h *Heap) Due(_ context.Context, now time.Time, limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []Entry{}
	if len(h.items) == 0 || h.items[0].ExpiresAt.After(now) {
		return out, nil
	}
	// Walk the heap breadth-first, skipping subtrees whose root is not due.
	queue := []int{0}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if i >= len(h.items) || h.items[i].ExpiresAt.After(now) {
			continue
		}
		out = append(out, h.items[i].Entry)
		queue = append(queue, 2*i+1, 2*i+2)
	}
	sortEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *Heap) Len(context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items), nil
}
