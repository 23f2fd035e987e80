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

// Package protocol defines the RIOC wire format: the fixed-size header
// records exchanged between client and server, the command/flag/status
// vocabulary, and the size limits a conforming implementation enforces
// before ever touching the socket.
package protocol

// Magic identifies a RIOC batch header on the wire ("RIOC" as a big-endian
// uint32).
const Magic uint32 = 0x524F4943

// Version is the only protocol version this client speaks.
const Version uint16 = 2

// Size limits enforced client-side, mirroring the server's own bounds.
const (
	MaxKeySize      = 512
	MaxValueSize    = 102400
	MaxBatchSize    = 128
	TCPBufferSize   = 1024 * 1024
	MaxIOVecPerOp   = 3
	CacheLineSize   = 128
	ValueArenaSlack = 128
)

// Command identifies the operation carried by an OpHeader.
type Command uint16

const (
	CmdGet           Command = 1
	CmdInsert        Command = 2
	CmdDelete        Command = 3
	CmdPartialUpdate Command = 4 // reserved, not implemented by any known server build
	CmdBatch         Command = 5 // reserved, batches are framed implicitly, not dispatched as an op
	CmdRangeQuery    Command = 6
	CmdAtomicIncDec  Command = 7
)

func (c Command) String() string {
	switch c {
	case CmdGet:
		return "GET"
	case CmdInsert:
		return "INSERT"
	case CmdDelete:
		return "DELETE"
	case CmdPartialUpdate:
		return "PARTIAL_UPDATE"
	case CmdBatch:
		return "BATCH"
	case CmdRangeQuery:
		return "RANGE_QUERY"
	case CmdAtomicIncDec:
		return "ATOMIC_INC_DEC"
	}

	return "UNKNOWN"
}

// Flag is a bitmask carried in a BatchHeader.
type Flag uint32

const (
	FlagError    Flag = 0x1 // server-set only, never sent by a client
	FlagPipeline Flag = 0x2
	FlagMore     Flag = 0x4
)

// Has reports whether f is set in the flag word.
func (f Flag) Has(bit Flag) bool {
	return f&bit != 0
}
