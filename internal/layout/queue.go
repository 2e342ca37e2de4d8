package layout

import "github.com/san-kum/forcegraph/internal/dynamo"

// NodeItem asks for a descriptor particle, optionally tied to a parent.
type NodeItem struct {
	ID       dynamo.ID
	ParentID dynamo.ID
	Name     string
	Fixed    bool
}

// EdgeItem asks for the relation particle between Source and Target.
type EdgeItem struct {
	Source   dynamo.ID
	Relation dynamo.ID
	Target   dynamo.ID
	Type     string
}

// queue is FIFO. Only the head is ever considered for admission.
type queue[T any] struct {
	items []T
}

func (q *queue[T]) push(v T) { q.items = append(q.items, v) }
func (q *queue[T]) len() int { return len(q.items) }

func (q *queue[T]) head() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

func (q *queue[T]) pop() {
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
}

func (q *queue[T]) clear() { q.items = nil }
