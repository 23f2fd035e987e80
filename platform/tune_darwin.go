//go:build darwin

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
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, int(KeepAliveIdle.Seconds())); err != nil {
		warn("setsockopt(TCP_KEEPALIVE)", err)
	}
}

// tuneQuickAck is a no-op: Darwin has no TCP_QUICKACK equivalent.
func tuneQuickAck(int, func(op string, err error)) {}

// cork uses TCP_NOPUSH, Darwin's cork equivalent; unlike Linux's TCP_CORK
// it does not itself force a flush on clear, so Uncork additionally sends
// a zero-byte write to push any coalesced data out immediately.
func cork(conn *net.TCPConn) CorkHandle {
	h := corkHandle{conn: conn}

	raw, err := conn.SyscallConn()
	if err != nil {
		return h
	}

	_ = raw.Control(func(fd uintptr) {
		h.fd = int(fd)
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NOPUSH, 1)
	})

	return h
}

func uncork(fd int, conn *net.TCPConn) error {
	if fd == 0 {
		return nil
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NOPUSH, 0); err != nil {
		return err
	}

	// Clearing TCP_NOPUSH alone does not force a flush on Darwin; a
	// zero-byte write does.
	if conn != nil {
		_, _ = conn.Write(nil)
	}

	return nil
}
