// Package queue implements an indexed min-priority queue of point ids keyed
// by a mutable score. Entries with equal scores pop in ascending id order.
package queue

import (
	"container/heap"
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is returned when inserting an id that is already queued
	ErrDuplicate = errors.New("id already queued")
	// ErrNotFound is returned when updating or removing an id that is not queued
	ErrNotFound = errors.New("id not queued")
)

type entry struct {
	id    int
	score float64
}

// entries is the heap.Interface backing a Queue
type entries struct {
	items []entry
	pos   map[int]int
}

func (e *entries) Len() int { return len(e.items) }

func (e *entries) Less(i, j int) bool {
	a, b := e.items[i], e.items[j]
	if a.score != b.score {
		return a.score < b.score
	}
	return a.id < b.id
}

func (e *entries) Swap(i, j int) {
	e.items[i], e.items[j] = e.items[j], e.items[i]
	e.pos[e.items[i].id] = i
	e.pos[e.items[j].id] = j
}

func (e *entries) Push(x any) {
	it := x.(entry)
	e.pos[it.id] = len(e.items)
	e.items = append(e.items, it)
}

func (e *entries) Pop() any {
	last := len(e.items) - 1
	it := e.items[last]
	e.items = e.items[:last]
	delete(e.pos, it.id)
	return it
}

// Queue is a min-priority queue over integer ids. All operations run in
// O(log n). A Queue is not safe for concurrent use.
type Queue struct {
	h entries
}

// New creates an empty queue sized for capacity entries
func New(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		h: entries{
			items: make([]entry, 0, capacity),
			pos:   make(map[int]int, capacity),
		},
	}
}

// Insert adds id with the given score
func (q *Queue) Insert(id int, score float64) error {
	if _, ok := q.h.pos[id]; ok {
		return fmt.Errorf("insert %d: %w", id, ErrDuplicate)
	}
	heap.Push(&q.h, entry{id: id, score: score})
	return nil
}

// PopMin removes and returns the entry with the lowest score.
// ok is false when the queue is empty.
func (q *Queue) PopMin() (id int, score float64, ok bool) {
	if q.h.Len() == 0 {
		return 0, 0, false
	}
	it := heap.Pop(&q.h).(entry)
	return it.id, it.score, true
}

// Peek returns the lowest entry without removing it
func (q *Queue) Peek() (id int, score float64, ok bool) {
	if q.h.Len() == 0 {
		return 0, 0, false
	}
	it := q.h.items[0]
	return it.id, it.score, true
}

// UpdateScore changes the score of a queued id and repositions it
func (q *Queue) UpdateScore(id int, score float64) error {
	i, ok := q.h.pos[id]
	if !ok {
		return fmt.Errorf("update %d: %w", id, ErrNotFound)
	}
	q.h.items[i].score = score
	heap.Fix(&q.h, i)
	return nil
}

// Remove deletes id from the queue
func (q *Queue) Remove(id int) error {
	i, ok := q.h.pos[id]
	if !ok {
		return fmt.Errorf("remove %d: %w", id, ErrNotFound)
	}
	heap.Remove(&q.h, i)
	return nil
}

// Score returns the current score of id
func (q *Queue) Score(id int) (float64, bool) {
	i, ok := q.h.pos[id]
	if !ok {
		return 0, false
	}
	return q.h.items[i].score, true
}

// Contains reports whether id is queued
func (q *Queue) Contains(id int) bool {
	_, ok := q.h.pos[id]
	return ok
}

// Len returns the number of queued ids
func (q *Queue) Len() int { return q.h.Len() }

// IsEmpty reports whether the queue holds no ids
func (q *Queue) IsEmpty() bool { return q.h.Len() == 0 }
