/*
 * MIT License
 *
 * Copyright (c) 2026 the siwire authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package ctxstore provides a generic, concurrency-safe key/value store used
// for the dispatcher's name-to-protocol-builder table. It adapts
// nabbar-golib/context's Config[T] (itself backed by nabbar-golib/atomic's
// generic Map[T]) to this module's needs: a plain sync.Map wrapper with typed
// Load/Store/Range, no context.Context plumbing since nothing here is
// request-scoped.
package ctxstore

import "sync"

// Store is a typed, concurrency-safe map keyed by K.
type Store[K comparable] struct {
	m sync.Map
}

// New returns an empty Store.
func New[K comparable]() *Store[K] {
	return &Store[K]{}
}

func (s *Store[K]) Load(key K) (interface{}, bool) {
	return s.m.Load(key)
}

func (s *Store[K]) Store(key K, val interface{}) {
	s.m.Store(key, val)
}

func (s *Store[K]) Delete(key K) {
	s.m.Delete(key)
}

// Range calls f for each entry until f returns false. The callback may
// safely mutate the store during the walk; the walk is not a consistent
// snapshot, so entries stored or deleted concurrently may or may not be seen.
func (s *Store[K]) Range(f func(key K, val interface{}) bool) {
	s.m.Range(func(k, v interface{}) bool {
		return f(k.(K), v)
	})
}

func (s *Store[K]) Clean() {
	s.m.Range(func(k, _ interface{}) bool {
		s.m.Delete(k)
		return true
	})
}
