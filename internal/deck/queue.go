package deck

import (
	"container/heap"
	"time"

	"github.com/conorfennell/spacedeck/internal/domain"
)

// entry is a card plus the due time it is currently filed under. The key is
// a snapshot so a card mutated in place cannot corrupt the heap before it is
// explicitly rescheduled.
type entry struct {
	card  *domain.Card
	due   time.Time
	index int
}

// dueQueue is a min-heap of entries ordered by (due, card ID).
type dueQueue []*entry

var _ heap.Interface = (*dueQueue)(nil)

func (q dueQueue) Len() int { return len(q) }

func (q dueQueue) Less(i, j int) bool {
	return domain.DueBefore(q[i].due, q[i].card.ID, q[j].due, q[j].card.ID)
}

func (q dueQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *dueQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *dueQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
