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
	"fmt"

	"github.com/hpkv-io/rioc/client"
	"github.com/hpkv-io/rioc/errors"
	"github.com/hpkv-io/rioc/protocol"
)

// Error is what a Node (or other foreign-function) caller receives instead
// of a Go error: a numeric code plus a human-readable message. Code is
// always one of the wire-visible status values, never an internal
// errors.CodeError — a binding caller has no use for RIOC's per-package
// diagnostic ranges, only the small status table every language binding
// understands.
type Error struct {
	Code    int32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rioc: code=%d: %s", e.Code, e.Message)
}

// wrap classifies err into a binding Error. A *client.OpError already
// carries the precise wire Status; anything else (config, dial, TLS,
// handle-not-found) is a local failure the server never weighed in on,
// so it is reported as ERR_IO or ERR_PARAM by category rather than
// invented a new wire code for it.
func wrap(err error) *Error {
	if err == nil {
		return nil
	}

	if opErr, ok := err.(*client.OpError); ok {
		return &Error{Code: int32(opErr.Status), Message: opErr.Error()}
	}

	if handleErr, ok := err.(*Error); ok {
		return handleErr
	}

	code := int32(protocol.StatusIO)
	if libErr, ok := err.(errors.Error); ok {
		switch libErr.GetCode() {
		case client.ErrorValidatorError:
			code = int32(protocol.StatusParam)
		default:
			code = int32(protocol.StatusIO)
		}
	}

	return &Error{Code: code, Message: err.Error()}
}

var errNotFound = &Error{Code: int32(protocol.StatusParam), Message: "handle not found or already disposed"}
