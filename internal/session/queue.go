package session

import (
	"container/heap"
	"time"

	"github.com/conorfennell/spacedeck/internal/deck"
	"github.com/conorfennell/spacedeck/internal/domain"
)

// item refers to a card by ID through the deck that owns it.
type item struct {
	id    uint64
	owner *deck.Deck
	due   time.Time
	index int
}

func (it *item) card() (*domain.Card, bool) {
	return it.owner.Card(it.id)
}

type workQueue []*item

var _ heap.Interface = (*workQueue)(nil)

func (q workQueue) Len() int { return len(q) }

func (q workQueue) Less(i, j int) bool {
	return domain.DueBefore(q[i].due, q[i].id, q[j].due, q[j].id)
}

func (q workQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *workQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *workQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}
