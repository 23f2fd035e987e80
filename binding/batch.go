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

package binding

import (
	"github.com/hpkv-io/rioc/batch"
)

// BatchHandle is an opaque reference to a live *batch.Batch. A batch is
// built independently of any ClientHandle — it only needs a connection at
// ExecuteAsync time — matching package batch's own "never talks to a
// socket itself" design.
type BatchHandle uint64

// RangeResult mirrors batch.RangeResult at the binding boundary so callers
// never need to import package batch directly.
type RangeResult struct {
	Key   []byte
	Value []byte
}

var batches = newRegistry[*batch.Batch]()

// NewBatch allocates an empty batch and returns its handle.
func NewBatch() BatchHandle {
	return BatchHandle(batches.add(batch.Create()))
}

func (h BatchHandle) resolve() (*batch.Batch, *Error) {
	b, ok := batches.get(uint64(h))
	if !ok {
		return nil, errNotFound
	}

	return b, nil
}

// Len returns the number of operations appended to h so far.
func (h BatchHandle) Len() (int, *Error) {
	b, err := h.resolve()
	if err != nil {
		return 0, err
	}

	return b.Len(), nil
}

// AddGet appends a GET operation to h.
func (h BatchHandle) AddGet(key []byte) *Error {
	b, err := h.resolve()
	if err != nil {
		return err
	}

	return wrap(b.AddGet(key))
}

// AddInsert appends an INSERT operation to h.
func (h BatchHandle) AddInsert(key, value []byte, timestamp uint64) *Error {
	b, err := h.resolve()
	if err != nil {
		return err
	}

	return wrap(b.AddInsert(key, value, timestamp))
}

// AddDelete appends a DELETE operation to h.
func (h BatchHandle) AddDelete(key []byte, timestamp uint64) *Error {
	b, err := h.resolve()
	if err != nil {
		return err
	}

	return wrap(b.AddDelete(key, timestamp))
}

// AddAtomicIncDec appends an ATOMIC_INC_DEC operation to h.
func (h BatchHandle) AddAtomicIncDec(key []byte, delta int64, timestamp uint64) *Error {
	b, err := h.resolve()
	if err != nil {
		return err
	}

	return wrap(b.AddAtomicIncDec(key, delta, timestamp))
}

// AddRangeQuery appends a RANGE_QUERY operation to h.
func (h BatchHandle) AddRangeQuery(startKey, endKey []byte) *Error {
	b, err := h.resolve()
	if err != nil {
		return err
	}

	return wrap(b.AddRangeQuery(startKey, endKey))
}

// FreeBatch releases h's underlying batch. Calling it on a handle an
// in-flight Tracker still owns is reported back through *Error rather
// than panicking, and the handle stays registered so the caller can
// retry after the tracker finishes. Calling it again on an already
// freed handle, or on one that was never valid, is a no-op.
func FreeBatch(h BatchHandle) *Error {
	b, ok := batches.get(uint64(h))
	if !ok {
		return nil
	}

	if err := b.Free(); err != nil {
		return wrap(err)
	}

	batches.remove(uint64(h))
	return nil
}
