/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package binding is the boundary a foreign-function caller (a Node
// addon, a CLI, anything outside this module) talks to instead of the Go
// types directly: Client, Batch, and Tracker are exposed as opaque
// uint64 handles, keys/values/timestamps cross as byte buffers and plain
// integers, and every call returns a binding.Error carrying a numeric
// code instead of a Go error value. Handle bookkeeping is built on the
// kept atomic package's typed map, matching the release/acquire
// publication discipline package tracker already uses for its counters.
package binding

import (
	libatm "github.com/hpkv-io/rioc/atomic"
)

// registry hands out monotonically increasing handles and maps them to
// live objects of type T. Disposal is LoadAndDelete: a handle removed
// once returns "not found" harmlessly on any later call, making dispose
// idempotent without a separate freed flag.
type registry[T any] struct {
	next libatm.Value[uint64]
	m    libatm.MapTyped[uint64, T]
}

func newRegistry[T any]() *registry[T] {
	r := &registry[T]{
		next: libatm.NewValue[uint64](),
		m:    libatm.NewMapTyped[uint64, T](),
	}

	// CompareAndSwap never succeeds on a Value nothing was stored in yet.
	r.next.Store(0)
	return r
}

func (r *registry[T]) add(v T) uint64 {
	var h uint64
	for {
		old := r.next.Load()
		h = old + 1
		if r.next.CompareAndSwap(old, h) {
			break
		}
	}

	r.m.Store(h, v)
	return h
}

func (r *registry[T]) get(h uint64) (T, bool) {
	return r.m.Load(h)
}

func (r *registry[T]) remove(h uint64) (T, bool) {
	return r.m.LoadAndDelete(h)
}
