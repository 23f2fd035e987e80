//go:build linux

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

import (
	"net"

	"golang.org/x/sys/unix"
)

func tuneKeepaliveProbes(fd int, warn func(op string, err error)) {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(KeepAliveIdle.Seconds())); err != nil {
		warn("setsockopt(TCP_KEEPIDLE)", err)
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(KeepAliveInterval.Seconds())); err != nil {
		warn("setsockopt(TCP_KEEPINTVL)", err)
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, KeepAliveCount); err != nil {
		warn("setsockopt(TCP_KEEPCNT)", err)
	}
}

// tuneQuickAck asks the kernel to skip delayed ACKs on this connection;
// it must be re-applied periodically since Linux clears it after use, but a
// one-shot hint at connect time is enough to avoid the initial handshake's
// delayed-ack penalty for request/response batches.
func tuneQuickAck(fd int, warn func(op string, err error)) {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1); err != nil {
		warn("setsockopt(TCP_QUICKACK)", err)
	}
}

func cork(conn *net.TCPConn) CorkHandle {
	h := corkHandle{conn: conn}

	raw, err := conn.SyscallConn()
	if err != nil {
		return h
	}

	_ = raw.Control(func(fd uintptr) {
		h.fd = int(fd)
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_CORK, 1)
	})

	return h
}

func uncork(fd int, _ *net.TCPConn) error {
	if fd == 0 {
		return nil
	}

	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_CORK, 0)
}
