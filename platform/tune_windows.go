//go:build windows

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

package platform

import "net"

type windowsTuner struct{}

// New returns the Tuner for the running GOOS.
func New() Tuner {
	return windowsTuner{}
}

// Tune applies the portable subset of the tuning contract: Windows has no
// IP_TOS/TCP_QUICKACK/TCP_CORK equivalents exposed the same way, so only
// TCP_NODELAY, the socket buffer sizes, and keepalive are set.
func (windowsTuner) Tune(conn *net.TCPConn, warn func(op string, err error)) {
	_ = conn.SetNoDelay(true)

	if err := conn.SetReadBuffer(RecvBufferSize); err != nil {
		warn("SetReadBuffer", err)
	}

	if err := conn.SetWriteBuffer(SendBufferSize); err != nil {
		warn("SetWriteBuffer", err)
	}

	_ = conn.SetKeepAlive(true)
	_ = conn.SetKeepAlivePeriod(KeepAliveIdle)
}

type corkHandle struct{}

func (corkHandle) Uncork() error { return nil }

// cork is a no-op on Windows: there is no CORK/NOPUSH equivalent, so a
// batch's vectored write is simply issued as-is.
func cork(*net.TCPConn) CorkHandle {
	return corkHandle{}
}
