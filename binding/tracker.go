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
	"time"

	"github.com/hpkv-io/rioc/tracker"
)

// TrackerHandle is an opaque reference to a live *tracker.Tracker.
type TrackerHandle uint64

var trackers = newRegistry[*tracker.Tracker]()

// ExecuteAsync sends batchHandle's operations over clientHandle's
// connection in one vectored write and returns a handle to the resulting
// in-flight Tracker.
func ExecuteAsync(clientHandle ClientHandle, batchHandle BatchHandle) (TrackerHandle, *Error) {
	conn, err := clientHandle.resolve()
	if err != nil {
		return 0, err
	}

	b, err := batchHandle.resolve()
	if err != nil {
		return 0, err
	}

	tr, terr := tracker.ExecuteAsync(b, conn)
	if terr != nil {
		return 0, wrap(terr)
	}

	return TrackerHandle(trackers.add(tr)), nil
}

func (h TrackerHandle) resolve() (*tracker.Tracker, *Error) {
	tr, ok := trackers.get(uint64(h))
	if !ok {
		return nil, errNotFound
	}

	return tr, nil
}

// Wait blocks until h's batch completes or timeoutMs elapses, whichever
// comes first. timeoutMs of 0 waits forever, matching the original
// contract's "no deadline" sentinel.
func (h TrackerHandle) Wait(timeoutMs uint64) *Error {
	tr, err := h.resolve()
	if err != nil {
		return err
	}

	var timeout time.Duration
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}

	return wrap(tr.Wait(timeout))
}

// GetResponse returns slot index's response: its value (GET,
// ATOMIC_INC_DEC), its range rows (RANGE_QUERY), and its wire status. At
// most one of value and ranges is populated for any given operation.
func (h TrackerHandle) GetResponse(index int) ([]byte, []RangeResult, int32, *Error) {
	tr, err := h.resolve()
	if err != nil {
		return nil, nil, 0, err
	}

	value, ranges, status, gerr := tr.GetResponse(index)
	if gerr != nil {
		return nil, nil, int32(status), wrap(gerr)
	}

	out := make([]RangeResult, len(ranges))
	for i, r := range ranges {
		out[i] = RangeResult{Key: r.Key, Value: r.Value}
	}

	return value, out, int32(status), nil
}

// FreeTracker joins the tracker's completer goroutine and disposes h.
// Calling it again on the same handle is a no-op.
func FreeTracker(h TrackerHandle) *Error {
	tr, ok := trackers.remove(uint64(h))
	if !ok {
		return nil
	}

	return wrap(tr.Free())
}
