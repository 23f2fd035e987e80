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

// Package tracker sends a built batch with one vectored write and spawns a
// background completer that parses the server's response stream in
// submission order. Progress is published through the atomic package's
// Value[T] so a caller can poll Wait/GetResponse from another goroutine
// without taking a lock.
package tracker

import (
	"encoding/binary"
	"io"
	"time"

	libatm "github.com/hpkv-io/rioc/atomic"
	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/errors"
	"github.com/hpkv-io/rioc/protocol"
)

// pollInterval is the sleep between completed polls inside Wait, mirroring
// the original client's 100 microsecond nanosleep.
const pollInterval = 100 * time.Microsecond

// Transport is what a Tracker needs from a connection: a way to read
// response bytes and a way to ship the whole batch frame in one shot.
// Package client's Connection implements this, dispatching to the plain
// TCP or TLS channel and applying cork/nopush around the plaintext path.
type Transport interface {
	io.Reader
	SendVectored(bufs [][]byte) error
}

// Tracker represents one in-flight batch. It owns the completer goroutine
// from ExecuteAsync until Free joins it.
type Tracker struct {
	b     *batch.Batch
	conn  Transport
	count int

	responsesReceived libatm.Value[int]
	completed         libatm.Value[bool]
	errStatus         libatm.Value[protocol.Status]

	done chan struct{}
}

// ExecuteAsync sends b in a single vectored write and returns a Tracker
// whose completer begins parsing responses immediately in the background.
// b must have at least one operation.
func ExecuteAsync(b *batch.Batch, conn Transport) (*Tracker, errors.Error) {
	count := b.Len()
	if count == 0 {
		return nil, ErrorEmptyBatch.Error(nil)
	}

	if err := conn.SendVectored(buildVectors(b, count)); err != nil {
		return nil, ErrorSend.Error(err)
	}

	b.MarkInFlight()

	t := &Tracker{
		b:                 b,
		conn:              conn,
		count:             count,
		responsesReceived: libatm.NewValue[int](),
		completed:         libatm.NewValue[bool](),
		errStatus:         libatm.NewValue[protocol.Status](),
		done:              make(chan struct{}),
	}

	go t.complete()

	return t, nil
}

// buildVectors lays out the batch header, every op header and key, and
// every op's request payload (if any) as one flat list of byte slices —
// expected length 1 + 2*count + (ops carrying a payload), per the wire
// framing invariant.
func buildVectors(b *batch.Batch, count int) [][]byte {
	bufs := make([][]byte, 0, 1+2*count+count)

	hdr := make([]byte, protocol.BatchHeaderSize)
	b.Header().Put(hdr)
	bufs = append(bufs, hdr)

	for i := 0; i < count; i++ {
		s := b.Slot(i)

		oh := make([]byte, protocol.OpHeaderSize)
		s.Header.Put(oh)
		bufs = append(bufs, oh, s.Key)

		if p := b.Payload(i); p != nil {
			bufs = append(bufs, p)
		}
	}

	return bufs
}

// complete drains exactly count ResponseHeaders and their payloads from
// the connection, in submission order, publishing responsesReceived with
// a release store after each slot and completed as the terminal
// publication. A per-slot non-SUCCESS status (including a malformed
// ATOMIC_INC_DEC payload length) does not stop the loop; only a read
// failure does, since at that point the stream can no longer be trusted
// to be framed correctly.
func (t *Tracker) complete() {
	defer close(t.done)

	hdr := make([]byte, protocol.ResponseHeaderSize)

	for i := 0; i < t.count; i++ {
		if _, err := io.ReadFull(t.conn, hdr); err != nil {
			t.fail(protocol.StatusIO)
			return
		}

		resp := protocol.ParseResponseHeader(hdr)
		cmd := t.b.Slot(i).Header.Command

		switch {
		case resp.ValueLen == 0:
			if cmd == protocol.CmdAtomicIncDec && resp.Status.OK() {
				resp.Status = protocol.StatusProto
			}
			t.b.SetResult(i, resp, nil, nil)

		case cmd == protocol.CmdGet:
			value, err := t.readValue(resp.ValueLen)
			if err != nil {
				t.fail(protocol.StatusIO)
				return
			}
			t.b.SetResult(i, resp, value, nil)

		case cmd == protocol.CmdAtomicIncDec:
			value, err := t.readValue(resp.ValueLen)
			if err != nil {
				t.fail(protocol.StatusIO)
				return
			}
			if resp.ValueLen != 8 {
				resp.Status = protocol.StatusProto
			}
			t.b.SetResult(i, resp, value, nil)

		case cmd == protocol.CmdRangeQuery:
			ranges, err := t.readRanges(resp.ValueLen)
			if err != nil {
				t.fail(protocol.StatusIO)
				return
			}
			t.b.SetResult(i, resp, nil, ranges)

		default:
			t.b.SetResult(i, resp, nil, nil)
		}

		t.responsesReceived.Store(i + 1)
	}

	t.errStatus.Store(protocol.StatusSuccess)
	t.completed.Store(true)
}

// readValue allocates a buffer one byte larger than n and reads exactly n
// bytes into its prefix — the extra byte leaves room for a GET caller to
// NUL-terminate if it treats the value as a C string; ATOMIC_INC_DEC
// responses simply leave it unused.
func (t *Tracker) readValue(n uint32) ([]byte, error) {
	buf := make([]byte, n+1)
	if _, err := io.ReadFull(t.conn, buf[:n]); err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// readRanges treats count as a result count (not a byte length) and reads
// count records of key_len:u16, key, value_len:u64, value.
func (t *Tracker) readRanges(count uint32) ([]batch.RangeResult, error) {
	results := make([]batch.RangeResult, 0, count)

	keyLenBuf := make([]byte, 2)
	valLenBuf := make([]byte, 8)

	for j := uint32(0); j < count; j++ {
		if _, err := io.ReadFull(t.conn, keyLenBuf); err != nil {
			return nil, err
		}
		keyLen := binary.LittleEndian.Uint16(keyLenBuf)

		key := make([]byte, keyLen)
		if _, err := io.ReadFull(t.conn, key); err != nil {
			return nil, err
		}

		if _, err := io.ReadFull(t.conn, valLenBuf); err != nil {
			return nil, err
		}
		valLen := binary.LittleEndian.Uint64(valLenBuf)

		value := make([]byte, valLen)
		if _, err := io.ReadFull(t.conn, value); err != nil {
			return nil, err
		}

		results = append(results, batch.RangeResult{Key: key, Value: value})
	}

	return results, nil
}

// fail is the fatal path: the stream can no longer be trusted, so the
// completer stops short of count, recording how far it got.
func (t *Tracker) fail(status protocol.Status) {
	t.errStatus.Store(status)
	t.completed.Store(true)
}

// Wait blocks until the completer finishes. timeout <= 0 polls
// indefinitely; otherwise a wall-clock budget applies and exceeding it
// returns ErrorWaitTimeout without affecting the still-running completer.
func (t *Tracker) Wait(timeout time.Duration) errors.Error {
	deadline := time.Now().Add(timeout)

	for !t.completed.Load() {
		if timeout > 0 && time.Now().After(deadline) {
			return ErrorWaitTimeout.Error(nil)
		}
		time.Sleep(pollInterval)
	}

	if s := t.errStatus.Load(); s != protocol.StatusSuccess {
		return errors.New(0, s.String())
	}

	return nil
}

// Completed reports whether the completer has finished, successfully or
// not.
func (t *Tracker) Completed() bool {
	return t.completed.Load()
}

// ResponsesReceived returns the number of slots whose response has been
// fully published so far; GetResponse rejects any index at or beyond it.
func (t *Tracker) ResponsesReceived() int {
	return t.responsesReceived.Load()
}

// Status returns the tracker's terminal status: StatusSuccess once every
// slot was read, or the fatal status the completer stopped on.
func (t *Tracker) Status() protocol.Status {
	return t.errStatus.Load()
}

// GetResponse returns slot i's owned value, owned range results (for
// RANGE_QUERY), and per-slot status. It rejects i >= count or an index
// not yet published by the completer instead of blocking.
func (t *Tracker) GetResponse(i int) ([]byte, []batch.RangeResult, protocol.Status, errors.Error) {
	if i < 0 || i >= t.count {
		return nil, nil, 0, ErrorIndex.Error(nil)
	}

	if t.responsesReceived.Load() <= i {
		return nil, nil, 0, ErrorIndex.Error(nil)
	}

	resp, value, ranges := t.b.Result(i)
	return value, ranges, resp.Status, nil
}

// Free joins the completer (blocking until it exits), releases the
// tracker's hold on the batch, and drops every slot's owned response
// buffers so the garbage collector can reclaim them — the Go analogue of
// the original client's per-slot/per-row free walk, since nothing here
// was allocated outside the managed heap to begin with.
func (t *Tracker) Free() errors.Error {
	<-t.done

	for i := 0; i < t.count; i++ {
		t.b.ClearResult(i)
	}

	t.b.ClearInFlight()
	return nil
}
