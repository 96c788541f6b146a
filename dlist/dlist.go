// Package dlist implements a pointer-based doubly-linked list with
// optional per-list dup/free/match hooks on its values, used wherever
// O(1) splice/insert in the middle matters more than cache locality.
package dlist

// Node is one element of a List. Nodes are owned exclusively by the
// list that holds them.
type Node struct {
	prev, next *Node
	value      interface{}
}

// Value returns the node's stored value.
func (n *Node) Value() interface{} {
	return n.value
}

// DupFunc deep-copies a value for List.Dup.
type DupFunc func(v interface{}) interface{}

// FreeFunc releases a value when its node is deleted.
type FreeFunc func(v interface{})

// MatchFunc reports whether v matches key, used by SearchKey. When nil,
// SearchKey falls back to pointer/interface equality.
type MatchFunc func(v, key interface{}) bool

// List is a doubly-linked list of owned nodes.
type List struct {
	head, tail *Node
	len        int

	DupValue DupFunc
	Free     FreeFunc
	Match    MatchFunc
}

// Create returns an empty list.
func Create() *List {
	return &List{}
}

// Release detaches every node, invoking Free on each value if set.
func (l *List) Release() {
	n := l.head
	for n != nil {
		next := n.next
		if l.Free != nil {
			l.Free(n.value)
		}
		n.prev, n.next = nil, nil
		n = next
	}
	l.head, l.tail, l.len = nil, nil, 0
}

// Len returns the number of nodes.
func (l *List) Len() int {
	return l.len
}

// Values returns a snapshot slice of every node's value, head to tail.
func (l *List) Values() []interface{} {
	out := make([]interface{}, 0, l.len)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}

// AddHead prepends a new node holding v and returns it.
func (l *List) AddHead(v interface{}) *Node {
	n := &Node{value: v}
	if l.head == nil {
		l.head, l.tail = n, n
	} else {
		n.next = l.head
		l.head.prev = n
		l.head = n
	}
	l.len++
	return n
}

// AddTail appends a new node holding v and returns it.
func (l *List) AddTail(v interface{}) *Node {
	n := &Node{value: v}
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.len++
	return n
}

// InsertBefore inserts a new node holding v immediately before p.
func (l *List) InsertBefore(p *Node, v interface{}) *Node {
	if p == l.head {
		return l.AddHead(v)
	}
	n := &Node{value: v, prev: p.prev, next: p}
	p.prev.next = n
	p.prev = n
	l.len++
	return n
}

// InsertAfter inserts a new node holding v immediately after p.
func (l *List) InsertAfter(p *Node, v interface{}) *Node {
	if p == l.tail {
		return l.AddTail(v)
	}
	n := &Node{value: v, prev: p, next: p.next}
	p.next.prev = n
	p.next = n
	l.len++
	return n
}

// Delete removes n from the list, invoking Free on its value if set.
func (l *List) Delete(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	if l.Free != nil {
		l.Free(n.value)
	}
	n.prev, n.next = nil, nil
	l.len--
}

// Direction controls which way an Iterator walks.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Iterator is a stateful cursor over a List. It is not invalidated by
// deletion of nodes other than the one it currently points to; deleting
// the current node requires advancing the iterator first.
type Iterator struct {
	next      *Node // node returned by Next when cur is nil
	cur       *Node // node most recently returned by Next
	direction Direction
}

// Iterator returns an iterator that walks in the given direction,
// starting at the list's head (Forward) or tail (Backward).
func (l *List) Iterator(direction Direction) *Iterator {
	it := &Iterator{direction: direction}
	it.RewindHead(l)
	if direction == Backward {
		it.RewindTail(l)
	}
	return it
}

// RewindHead resets it to start from l's head, walking Forward.
func (it *Iterator) RewindHead(l *List) {
	it.next = l.head
	it.cur = nil
	it.direction = Forward
}

// RewindTail resets it to start from l's tail, walking Backward.
func (it *Iterator) RewindTail(l *List) {
	it.next = l.tail
	it.cur = nil
	it.direction = Backward
}

// Next returns the next node in the iterator's direction, or nil when
// exhausted.
func (it *Iterator) Next() *Node {
	if it.cur != nil {
		if it.direction == Forward {
			it.next = it.cur.next
		} else {
			it.next = it.cur.prev
		}
	}
	it.cur = it.next
	return it.cur
}

// ReleaseIter discards the iterator. Provided for symmetry with the
// allocator-backed hooks the rest of the core exposes; Go's garbage
// collector makes it a no-op.
func ReleaseIter(it *Iterator) {
	_ = it
}

// Dup returns a deep copy of l. If l.DupValue is set, it is used to copy
// each value; otherwise values are shared by reference with the copy.
func (l *List) Dup() *List {
	out := Create()
	out.DupValue, out.Free, out.Match = l.DupValue, l.Free, l.Match
	for n := l.head; n != nil; n = n.next {
		v := n.value
		if l.DupValue != nil {
			v = l.DupValue(v)
		}
		out.AddTail(v)
	}
	return out
}

// SearchKey performs a linear search from head for a node whose value
// matches key, using l.Match if set, else pointer/interface equality.
func (l *List) SearchKey(key interface{}) *Node {
	for n := l.head; n != nil; n = n.next {
		if l.Match != nil {
			if l.Match(n.value, key) {
				return n
			}
		} else if n.value == key {
			return n
		}
	}
	return nil
}

// IndexAt returns the node at position i (0-based from head); negative
// i counts from the tail (-1 is the last node). Returns nil if out of
// range.
func (l *List) IndexAt(i int) *Node {
	if i >= 0 {
		n := l.head
		for ; n != nil && i > 0; i-- {
			n = n.next
		}
		return n
	}
	n := l.tail
	i = -i - 1
	for ; n != nil && i > 0; i-- {
		n = n.prev
	}
	return n
}

// Rotate pops the tail node and pushes it onto the head, in place.
func (l *List) Rotate() {
	if l.len <= 1 {
		return
	}
	tail := l.tail
	l.tail = tail.prev
	l.tail.next = nil
	tail.prev = nil
	tail.next = l.head
	l.head.prev = tail
	l.head = tail
}
