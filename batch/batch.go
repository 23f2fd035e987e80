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

// Package batch accumulates operations into a fixed-capacity slot array
// plus a shared value arena, the same shape the client hands to package
// tracker for a single vectored send. A Batch never talks to a socket
// itself; it only knows how to grow, validate, and lay its own bytes out
// for whoever sends them.
package batch

import (
	"encoding/binary"
	"sync"

	libatm "github.com/hpkv-io/rioc/atomic"
	"github.com/hpkv-io/rioc/errors"
	"github.com/hpkv-io/rioc/protocol"
)

// Slot is the in-memory record backing one operation: its header, its key,
// and (once a tracker has run) its response.
type Slot struct {
	Header protocol.OpHeader
	Key    []byte

	arenaOffset int
	arenaLen    int

	Response protocol.ResponseHeader
	Value    []byte
	Ranges   []RangeResult
}

// RangeResult is one row of a RANGE_QUERY result: a key and value pair
// owned by whichever tracker (or batch, for the single-op path) produced
// it. Unlike the original C client there is nothing to explicitly free
// here — the Go garbage collector reclaims it once the owning Batch drops
// its reference, which Tracker.Free and Batch.Free both do on teardown.
type RangeResult struct {
	Key   []byte
	Value []byte
}

// Batch is a fixed-capacity, append-only list of up to protocol.MaxBatchSize
// operations sharing one value arena. The zero value is not usable; build
// one with Create.
type Batch struct {
	mu     sync.Mutex
	header protocol.BatchHeader
	slots  []Slot
	arena  []byte
	freed  bool

	inFlight libatm.Value[bool]
}

// Create allocates an empty Batch: a BatchHeader with the client's fixed
// PIPELINE|MORE flags (preserved byte-for-byte regardless of what the
// batch ends up carrying) and a value arena sized for the worst case,
//128 slots of MaxValueSize plus one alignment line of slack.
func Create() *Batch {
	return &Batch{
		header: protocol.BatchHeader{
			Magic:   protocol.Magic,
			Version: protocol.Version,
			Flags:   protocol.FlagPipeline | protocol.FlagMore,
		},
		slots:    make([]Slot, 0, protocol.MaxBatchSize),
		arena:    make([]byte, protocol.MaxBatchSize*protocol.MaxValueSize+protocol.ValueArenaSlack),
		inFlight: libatm.NewValue[bool](),
	}
}

// Len returns the number of operations appended so far.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// Header returns the BatchHeader with Count set to the current operation
// count, ready to be put on the wire.
func (b *Batch) Header() protocol.BatchHeader {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.header
	h.Count = uint16(len(b.slots))
	return h
}

// Slot returns a copy of slot i's header and key. It does not copy the
// response payload; use Result for that.
func (b *Batch) Slot(i int) Slot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.slots[i]
}

// Payload returns the request payload bytes for slot i — the arena slice
// copied in by the matching Add* call — or nil if that operation carries
// no request payload (GET, DELETE).
func (b *Batch) Payload(i int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.slots[i]
	if s.arenaLen == 0 {
		return nil
	}

	return b.arena[s.arenaOffset : s.arenaOffset+s.arenaLen]
}

// SetResult records a completer's parsed response for slot i. Exactly one
// of value or ranges is non-nil for GET/ATOMIC_INC_DEC and RANGE_QUERY
// respectively; both are nil for DELETE and INSERT responses, and for any
// operation the server answered with a non-SUCCESS status.
func (b *Batch) SetResult(i int, resp protocol.ResponseHeader, value []byte, ranges []RangeResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.slots[i].Response = resp
	b.slots[i].Value = value
	b.slots[i].Ranges = ranges
}

// Result returns slot i's response header, owned value (if any), and
// owned range results (if any).
func (b *Batch) Result(i int) (protocol.ResponseHeader, []byte, []RangeResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.slots[i]
	return s.Response, s.Value, s.Ranges
}

// ClearResult drops slot i's owned response buffers, the Go equivalent of
// the original client's per-slot free during tracker teardown: letting the
// garbage collector reclaim them rather than walking a free list.
func (b *Batch) ClearResult(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.slots[i].Value = nil
	b.slots[i].Ranges = nil
}

// MarkInFlight records that a tracker now owns this batch's wire bytes;
// Free refuses to run until ClearInFlight is called back.
func (b *Batch) MarkInFlight() {
	b.inFlight.Store(true)
}

// ClearInFlight releases the in-flight mark; called by Tracker.Free once
// its completer has been joined.
func (b *Batch) ClearInFlight() {
	b.inFlight.Store(false)
}

func (b *Batch) checkAppend(key []byte) errors.Error {
	if b.freed {
		return ErrorFreed.Error(nil)
	}

	if len(key) == 0 {
		return ErrorEmptyKey.Error(nil)
	}

	if len(key) > protocol.MaxKeySize {
		return ErrorKeySize.Error(nil)
	}

	if len(b.slots) >= protocol.MaxBatchSize {
		return ErrorBatchFull.Error(nil)
	}

	return nil
}

// copyPayload copies payload into the arena sub-region reserved for slot
// index, which begins at offset index*MaxValueSize — a cache-line-aligned
// offset since MaxValueSize is itself a multiple of CacheLineSize.
func (b *Batch) copyPayload(index int, payload []byte) (offset, length int, err errors.Error) {
	if len(payload) > protocol.MaxValueSize {
		return 0, 0, ErrorValueSize.Error(nil)
	}

	offset = index * protocol.MaxValueSize
	n := copy(b.arena[offset:], payload)
	return offset, n, nil
}

// AddGet appends a GET operation. GET carries no request payload.
func (b *Batch) AddGet(key []byte) errors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAppend(key); err != nil {
		return err
	}

	b.slots = append(b.slots, Slot{
		Header: protocol.OpHeader{Command: protocol.CmdGet, KeyLen: uint16(len(key))},
		Key:    append([]byte(nil), key...),
	})

	return nil
}

// AddInsert appends an INSERT operation carrying value as its payload and
// ts as the caller-supplied timestamp.
func (b *Batch) AddInsert(key, value []byte, ts uint64) errors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAppend(key); err != nil {
		return err
	}

	if len(value) > protocol.MaxValueSize {
		return ErrorValueSize.Error(nil)
	}

	index := len(b.slots)
	offset, length, err := b.copyPayload(index, value)
	if err != nil {
		return err
	}

	b.slots = append(b.slots, Slot{
		Header: protocol.OpHeader{
			Command:   protocol.CmdInsert,
			KeyLen:    uint16(len(key)),
			ValueLen:  uint32(len(value)),
			Timestamp: ts,
		},
		Key:         append([]byte(nil), key...),
		arenaOffset: offset,
		arenaLen:    length,
	})

	return nil
}

// AddDelete appends a DELETE operation. DELETE carries no request payload.
func (b *Batch) AddDelete(key []byte, ts uint64) errors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAppend(key); err != nil {
		return err
	}

	b.slots = append(b.slots, Slot{
		Header: protocol.OpHeader{Command: protocol.CmdDelete, KeyLen: uint16(len(key)), Timestamp: ts},
		Key:    append([]byte(nil), key...),
	})

	return nil
}

// AddAtomicIncDec appends an ATOMIC_INC_DEC operation carrying delta as an
// 8-byte little-endian i64 payload.
func (b *Batch) AddAtomicIncDec(key []byte, delta int64, ts uint64) errors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAppend(key); err != nil {
		return err
	}

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, uint64(delta))

	index := len(b.slots)
	offset, length, err := b.copyPayload(index, payload)
	if err != nil {
		return err
	}

	b.slots = append(b.slots, Slot{
		Header: protocol.OpHeader{
			Command:   protocol.CmdAtomicIncDec,
			KeyLen:    uint16(len(key)),
			ValueLen:  uint32(length),
			Timestamp: ts,
		},
		Key:         append([]byte(nil), key...),
		arenaOffset: offset,
		arenaLen:    length,
	})

	return nil
}

// AddRangeQuery appends a RANGE_QUERY operation. start is carried as the
// op's key, end as its value payload; ValueLen on the wire therefore
// doubles as end's length, not a byte count of the response.
func (b *Batch) AddRangeQuery(start, end []byte) errors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAppend(start); err != nil {
		return err
	}

	if len(end) == 0 {
		return ErrorEmptyKey.Error(nil)
	}

	index := len(b.slots)
	offset, length, err := b.copyPayload(index, end)
	if err != nil {
		return err
	}

	b.slots = append(b.slots, Slot{
		Header: protocol.OpHeader{
			Command:  protocol.CmdRangeQuery,
			KeyLen:   uint16(len(start)),
			ValueLen: uint32(length),
		},
		Key:         append([]byte(nil), start...),
		arenaOffset: offset,
		arenaLen:    length,
	})

	return nil
}

// Free releases the batch's arena and slots. It is an error to free a
// batch that a tracker is still running against; call Tracker.Free first.
func (b *Batch) Free() errors.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight.Load() {
		return ErrorInFlight.Error(nil)
	}

	if b.freed {
		return nil
	}

	b.slots = nil
	b.arena = nil
	b.freed = true

	return nil
}
