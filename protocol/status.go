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

import "fmt"

// Status is the signed 32-bit result code carried in a ResponseHeader.
// It is distinct from the internal diagnostic codes in package errors:
// Status values are the only codes that ever cross the wire.
type Status int32

const (
	StatusSuccess  Status = 0
	StatusParam    Status = -1
	StatusMem      Status = -2
	StatusIO       Status = -3
	StatusProto    Status = -4
	StatusDevice   Status = -5
	StatusNoEnt    Status = -6
	StatusBusy     Status = -7
	StatusOverflow Status = -8
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusParam:
		return "ERR_PARAM"
	case StatusMem:
		return "ERR_MEM"
	case StatusIO:
		return "ERR_IO"
	case StatusProto:
		return "ERR_PROTO"
	case StatusDevice:
		return "ERR_DEVICE"
	case StatusNoEnt:
		return "ERR_NOENT"
	case StatusBusy:
		return "ERR_BUSY"
	case StatusOverflow:
		return "ERR_OVERFLOW"
	}

	return fmt.Sprintf("ERR_UNKNOWN(%d)", int32(s))
}

// Error implements the error interface so a bare Status can be returned or
// wrapped wherever idiomatic Go expects one; callers that want the richer
// errors.Error diagnostic type use client.OpError instead.
func (s Status) Error() string {
	return s.String()
}

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool {
	return s == StatusSuccess
}
