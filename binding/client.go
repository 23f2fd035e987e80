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
	"context"

	"github.com/hpkv-io/rioc/client"
)

// ClientHandle is an opaque reference to a live *client.Connection.
type ClientHandle uint64

var clients = newRegistry[*client.Connection]()

// OpenClient dials cfg and registers the resulting Connection, returning
// the handle a caller uses for every subsequent call.
func OpenClient(ctx context.Context, cfg client.ClientConfig) (ClientHandle, *Error) {
	conn, err := client.Connect(ctx, cfg)
	if err != nil {
		return 0, wrap(err)
	}

	return ClientHandle(clients.add(conn)), nil
}

func (h ClientHandle) resolve() (*client.Connection, *Error) {
	conn, ok := clients.get(uint64(h))
	if !ok {
		return nil, errNotFound
	}

	return conn, nil
}

// CloseClient disconnects and disposes h. Calling it again on the same
// handle, or on one that was never valid, is a no-op.
func CloseClient(h ClientHandle) *Error {
	conn, ok := clients.remove(uint64(h))
	if !ok {
		return nil
	}

	if err := conn.Disconnect(); err != nil {
		return wrap(err)
	}

	return nil
}

// Get reads key through h. A missing key reports (nil, nil), matching
// the single-op API's "absent value, not a fault" contract.
func (h ClientHandle) Get(key []byte) ([]byte, *Error) {
	conn, err := h.resolve()
	if err != nil {
		return nil, err
	}

	value, gerr := conn.Get(key)
	if gerr != nil {
		return nil, wrap(gerr)
	}

	return value, nil
}

// Insert writes key=value stamped with timestamp through h.
func (h ClientHandle) Insert(key, value []byte, timestamp uint64) *Error {
	conn, err := h.resolve()
	if err != nil {
		return err
	}

	return wrap(conn.Insert(key, value, timestamp))
}

// Delete removes key, stamped with timestamp, through h.
func (h ClientHandle) Delete(key []byte, timestamp uint64) *Error {
	conn, err := h.resolve()
	if err != nil {
		return err
	}

	return wrap(conn.Delete(key, timestamp))
}

// AtomicIncDec adds delta to key's counter through h and returns the
// post-operation value.
func (h ClientHandle) AtomicIncDec(key []byte, delta int64, timestamp uint64) (int64, *Error) {
	conn, err := h.resolve()
	if err != nil {
		return 0, err
	}

	v, aerr := conn.AtomicIncDec(key, delta, timestamp)
	if aerr != nil {
		return 0, wrap(aerr)
	}

	return v, nil
}

// RangeQuery returns every key in [startKey, endKey] through h.
func (h ClientHandle) RangeQuery(startKey, endKey []byte) ([]RangeResult, *Error) {
	conn, err := h.resolve()
	if err != nil {
		return nil, err
	}

	ranges, rerr := conn.RangeQuery(startKey, endKey)
	if rerr != nil {
		return nil, wrap(rerr)
	}

	out := make([]RangeResult, len(ranges))
	for i, r := range ranges {
		out[i] = RangeResult{Key: r.Key, Value: r.Value}
	}

	return out, nil
}

// Sequence returns h's monotonically increasing per-connection counter.
func (h ClientHandle) Sequence() (uint64, *Error) {
	conn, err := h.resolve()
	if err != nil {
		return 0, err
	}

	return conn.Sequence(), nil
}
