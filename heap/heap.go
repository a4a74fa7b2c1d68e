// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package heap implements a generic min-heap
// with a stable ordering among equal elements.
package heap

// Queue is a min-priority queue of T.
//
// Elements that compare equal under the
// ordering function are popped in the order
// in which they were pushed, so the sequence
// of Pop results is fully determined by the
// sequence of Push calls.
//
// The zero Queue is not usable; see New.
type Queue[T any] struct {
	items []entry[T]
	seq   uint64
	less  func(x, y T) bool
}

type entry[T any] struct {
	val T
	seq uint64
}

// New returns an empty Queue ordered by less.
// The capacity hint sizes the backing slice.
func New[T any](capacity int, less func(x, y T) bool) *Queue[T] {
	return &Queue[T]{
		items: make([]entry[T], 0, capacity),
		less:  less,
	}
}

func (q *Queue[T]) before(x, y entry[T]) bool {
	if q.less(x.val, y.val) {
		return true
	}
	if q.less(y.val, x.val) {
		return false
	}
	return x.seq < y.seq
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int { return len(q.items) }

// Push adds v to the queue.
func (q *Queue[T]) Push(v T) {
	pushSlice(&q.items, entry[T]{val: v, seq: q.seq}, q.before)
	q.seq++
}

// Pop removes and returns the smallest element.
// Pop panics if the queue is empty.
func (q *Queue[T]) Pop() T {
	return popSlice(&q.items, q.before).val
}

// popSlice removes the "smallest" element from x
// and updates x to preserve the heap invariant.
func popSlice[T any](x *[]T, less func(x, y T) bool) T {
	ret := (*x)[0]
	(*x)[0], *x = (*x)[len(*x)-1], (*x)[:len(*x)-1]
	if len(*x) > 0 {
		siftDown((*x), 0, less)
	}
	return ret
}

// pushSlice adds item to x while preserving
// the min-heap invariant.
func pushSlice[T any](x *[]T, item T, less func(x, y T) bool) {
	*x = append(*x, item)
	siftUp(*x, len(*x)-1, less)
}

func siftUp[T any](x []T, index int, less func(x, y T) bool) {
	for index > 0 {
		p := (index - 1) / 2
		if less(x[p], x[index]) {
			break
		}
		x[p], x[index] = x[index], x[p]
		index = p
	}
}

func siftDown[T any](x []T, index int, less func(x, y T) bool) {
	for {
		left := (index * 2) + 1
		right := left + 1
		if left >= len(x) {
			break
		}
		c := left
		if len(x) > right && less(x[right], x[left]) {
			c = right
		}
		if less(x[index], x[c]) {
			break
		}
		x[c], x[index] = x[index], x[c]
		index = c
	}
}
