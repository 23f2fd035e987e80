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

package client

import (
	"encoding/binary"

	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/protocol"
	"github.com/hpkv-io/rioc/tracker"
)

// runOne frames build's single op as a one-op batch, ships it, blocks for
// the reply, and tears both the tracker and the batch down before
// returning. Only one call runs at a time per Connection.
func (c *Connection) runOne(build func(b *batch.Batch) error) ([]byte, []batch.RangeResult, protocol.Status, error) {
	c.busy.Lock()
	defer c.busy.Unlock()

	b := batch.Create()
	if err := build(b); err != nil {
		return nil, nil, 0, err
	}

	tr, err := tracker.ExecuteAsync(b, c)
	if err != nil {
		_ = b.Free()
		return nil, nil, 0, err
	}

	waitErr := tr.Wait(0)
	value, ranges, status, getErr := tr.GetResponse(0)

	_ = tr.Free()
	_ = b.Free()

	if waitErr != nil {
		return nil, nil, 0, waitErr
	}
	if getErr != nil {
		return nil, nil, 0, getErr
	}

	return value, ranges, status, nil
}

// Get reads key. A missing key is not an error: it reports (nil, nil).
func (c *Connection) Get(key []byte) ([]byte, error) {
	value, _, status, err := c.runOne(func(b *batch.Batch) error { return b.AddGet(key) })
	if err != nil {
		return nil, err
	}

	switch status {
	case protocol.StatusSuccess:
		return value, nil
	case protocol.StatusNoEnt:
		return nil, nil
	default:
		return nil, &OpError{Op: "get", Status: status}
	}
}

// Insert writes key=value with the caller-supplied timestamp. The server
// reporting the key already exists is treated by some deployments as
// success-equivalent; that tolerance, where wanted, belongs to the caller
// inspecting the returned OpError's Status, not to this call.
func (c *Connection) Insert(key, value []byte, timestamp uint64) error {
	_, _, status, err := c.runOne(func(b *batch.Batch) error { return b.AddInsert(key, value, timestamp) })
	if err != nil {
		return err
	}

	if !status.OK() {
		return &OpError{Op: "insert", Status: status}
	}

	return nil
}

// Delete removes key, stamped with timestamp.
func (c *Connection) Delete(key []byte, timestamp uint64) error {
	_, _, status, err := c.runOne(func(b *batch.Batch) error { return b.AddDelete(key, timestamp) })
	if err != nil {
		return err
	}

	if !status.OK() {
		return &OpError{Op: "delete", Status: status}
	}

	return nil
}

// AtomicIncDec adds delta to key's counter and returns the post-operation
// value. tracker already reports StatusProto if the server's reply isn't
// exactly 8 bytes.
func (c *Connection) AtomicIncDec(key []byte, delta int64, timestamp uint64) (int64, error) {
	value, _, status, err := c.runOne(func(b *batch.Batch) error { return b.AddAtomicIncDec(key, delta, timestamp) })
	if err != nil {
		return 0, err
	}

	if !status.OK() {
		return 0, &OpError{Op: "atomic_inc_dec", Status: status}
	}

	return int64(binary.LittleEndian.Uint64(value)), nil
}

// RangeQuery returns every key in [startKey, endKey], inclusive on both
// ends, in server-delivered order.
func (c *Connection) RangeQuery(startKey, endKey []byte) ([]batch.RangeResult, error) {
	_, ranges, status, err := c.runOne(func(b *batch.Batch) error { return b.AddRangeQuery(startKey, endKey) })
	if err != nil {
		return nil, err
	}

	if !status.OK() {
		return nil, &OpError{Op: "range_query", Status: status}
	}

	return ranges, nil
}
