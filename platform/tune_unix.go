//go:build linux || darwin || freebsd || netbsd || openbsd

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

type unixTuner struct{}

// New returns the Tuner for the running GOOS.
func New() Tuner {
	return unixTuner{}
}

func (unixTuner) Tune(conn *net.TCPConn, warn func(op string, err error)) {
	_ = conn.SetNoDelay(true)

	if err := conn.SetReadBuffer(RecvBufferSize); err != nil {
		warn("setsockopt(SO_RCVBUF)", err)
	}

	if err := conn.SetWriteBuffer(SendBufferSize); err != nil {
		warn("setsockopt(SO_SNDBUF)", err)
	}

	_ = conn.SetKeepAlive(true)
	_ = conn.SetKeepAlivePeriod(KeepAliveIdle)

	raw, err := conn.SyscallConn()
	if err != nil {
		warn("SyscallConn", err)
		return
	}

	ctlErr := raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, lowDelayTOS); e != nil {
			warn("setsockopt(IP_TOS)", e)
		}

		tuneKeepaliveProbes(int(fd), warn)
		tuneQuickAck(int(fd), warn)
	})
	if ctlErr != nil {
		warn("SyscallConn.Control", ctlErr)
	}
}

// lowDelayTOS is IPTOS_LOWDELAY from <netinet/ip.h>.
const lowDelayTOS = 0x10

type corkHandle struct {
	fd   int
	conn *net.TCPConn
}

func (h corkHandle) Uncork() error {
	return uncork(h.fd, h.conn)
}
