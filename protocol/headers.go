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

package protocol

import "encoding/binary"

// BatchHeaderSize is the on-wire size, in bytes, of a BatchHeader.
const BatchHeaderSize = 12

// OpHeaderSize is the on-wire size, in bytes, of an OpHeader.
const OpHeaderSize = 16

// ResponseHeaderSize is the on-wire size, in bytes, of a ResponseHeader.
const ResponseHeaderSize = 8

// BatchHeader precedes every batch (including single-op calls, which are
// sent as a one-operation batch) on the wire. All fields are little-endian.
type BatchHeader struct {
	Magic   uint32
	Version uint16
	Count   uint16
	Flags   Flag
}

// Put encodes h into b, which must be at least BatchHeaderSize bytes.
func (h BatchHeader) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.Count)
	binary.LittleEndian.PutUint32(b[8:12], uint32(h.Flags))
}

// ParseBatchHeader decodes a BatchHeader from b, which must be at least
// BatchHeaderSize bytes.
func ParseBatchHeader(b []byte) BatchHeader {
	return BatchHeader{
		Magic:   binary.LittleEndian.Uint32(b[0:4]),
		Version: binary.LittleEndian.Uint16(b[4:6]),
		Count:   binary.LittleEndian.Uint16(b[6:8]),
		Flags:   Flag(binary.LittleEndian.Uint32(b[8:12])),
	}
}

// OpHeader precedes the key and value bytes of a single operation within a
// batch.
type OpHeader struct {
	Command   Command
	KeyLen    uint16
	ValueLen  uint32
	Timestamp uint64
}

// Put encodes h into b, which must be at least OpHeaderSize bytes.
func (h OpHeader) Put(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(h.Command))
	binary.LittleEndian.PutUint16(b[2:4], h.KeyLen)
	binary.LittleEndian.PutUint32(b[4:8], h.ValueLen)
	binary.LittleEndian.PutUint64(b[8:16], h.Timestamp)
}

// ParseOpHeader decodes an OpHeader from b, which must be at least
// OpHeaderSize bytes.
func ParseOpHeader(b []byte) OpHeader {
	return OpHeader{
		Command:   Command(binary.LittleEndian.Uint16(b[0:2])),
		KeyLen:    binary.LittleEndian.Uint16(b[2:4]),
		ValueLen:  binary.LittleEndian.Uint32(b[4:8]),
		Timestamp: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// ResponseHeader precedes the payload of each response slot: value bytes
// for GET, an 8-byte little-endian i64 counter for ATOMIC_INC_DEC, or a
// result-count-then-records stream for RANGE_QUERY (ValueLen holds the
// result count, not a byte length, in that case).
type ResponseHeader struct {
	Status   Status
	ValueLen uint32
}

// Put encodes h into b, which must be at least ResponseHeaderSize bytes.
func (h ResponseHeader) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.Status))
	binary.LittleEndian.PutUint32(b[4:8], h.ValueLen)
}

// ParseResponseHeader decodes a ResponseHeader from b, which must be at
// least ResponseHeaderSize bytes.
func ParseResponseHeader(b []byte) ResponseHeader {
	return ResponseHeader{
		Status:   Status(binary.LittleEndian.Uint32(b[0:4])),
		ValueLen: binary.LittleEndian.Uint32(b[4:8]),
	}
}
