// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package autom

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

type setT[T comparable] map[T]struct{}

func newSet[T comparable]() setT[T] {
	return map[T]struct{}{}
}

func (s *setT[T]) empty() bool {
	return len(*s) == 0
}

func (s *setT[T]) contains(e T) bool {
	_, present := (*s)[e]
	return present
}

func (s *setT[T]) insert(e T) {
	(*s)[e] = struct{}{}
}

func (s *setT[T]) erase(e T) {
	delete(*s, e)
}

func (s *setT[T]) clear() {
	*s = map[T]struct{}{}
}

func (s *setT[T]) len() int {
	return len(*s)
}

func (s *setT[T]) toVector() vectorT[T] {
	return maps.Keys(*s)
}

func (s *setT[T]) equal(other *setT[T]) bool {
	return maps.Equal(*s, *other)
}

// sortedVector returns the elements in ascending order; use it
// wherever iteration order leaks into the output.
func sortedVector[T cmp.Ordered](s setT[T]) vectorT[T] {
	v := s.toVector()
	slices.Sort(v)
	return v
}

type mapT[K comparable, V comparable] map[K]V

func newMap[K comparable, V comparable]() mapT[K, V] {
	return map[K]V{}
}

func (m *mapT[K, V]) at(k K) V {
	if value, present := (*m)[k]; present {
		return value
	}
	panic(fmt.Sprintf("7c1e90da: key %v not present in map %v", k, m))
}

func (m *mapT[K, V]) insert(k K, v V) {
	(*m)[k] = v
}

func (m *mapT[K, V]) clear() {
	*m = map[K]V{}
}

func (m *mapT[K, V]) containsKey(k K) bool {
	_, present := (*m)[k]
	return present
}

type vectorT[T comparable] []T

func newVector[T comparable]() vectorT[T] {
	var v vectorT[T]
	return v
}

func (v *vectorT[T]) empty() bool {
	return len(*v) == 0
}

func (v *vectorT[T]) size() int {
	return len(*v)
}

func (v *vectorT[T]) at(index int) T {
	return (*v)[index]
}

func (v *vectorT[T]) pushBack(e T) {
	*v = append(*v, e)
}

func (v *vectorT[T]) contains(e T) bool {
	return slices.Contains(*v, e)
}

func (v *vectorT[T]) clear() {
	*v = (*v)[:0]
}

type stackT []nodeIDT

func newStack() stackT {
	var s stackT
	return s
}

func (s *stackT) empty() bool {
	return len(*s) == 0
}

func (s *stackT) pop() {
	if len(*s) > 0 {
		*s = (*s)[:len(*s)-1]
	}
}

func (s *stackT) top() nodeIDT {
	return (*s)[len(*s)-1]
}

func (s *stackT) push(e nodeIDT) {
	*s = append(*s, e)
}

type queueT []nodeIDT

func newQueue() queueT {
	var q queueT
	return q
}

func (q *queueT) empty() bool {
	return len(*q) == 0
}

func (q *queueT) pop() {
	if len(*q) > 0 {
		*q = (*q)[1:]
	}
}

func (q *queueT) front() nodeIDT {
	return (*q)[0]
}

func (q *queueT) push(e nodeIDT) {
	*q = append(*q, e)
}
