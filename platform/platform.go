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

// Package platform applies the socket-level tuning a low-latency RIOC
// connection wants: TCP_NODELAY, large send/receive buffers, short-interval
// keepalive, low-delay TOS, and (where the kernel offers it) cork/quickack
// around a batch's vectored send. None of it is load-bearing for protocol
// correctness — a connection with every tunable left at its OS default still
// speaks correct RIOC — so failures here are logged, not fatal.
package platform

import (
	"net"
	"time"
)

// SendBufferSize and RecvBufferSize mirror RIOC_TCP_BUFFER_SIZE: 1 MiB each,
// chosen so a full 128-op batch's worth of pipelined traffic fits without
// the kernel stalling the writer.
const (
	SendBufferSize = 1024 * 1024
	RecvBufferSize = 1024 * 1024

	KeepAliveIdle     = 10 * time.Second
	KeepAliveInterval = 3 * time.Second
	KeepAliveCount    = 3
)

// Tuner applies best-effort socket options to a freshly dialed connection.
// Implementations are platform-specific (see tune_unix.go / tune_windows.go)
// and never return an error: a tuning failure is recorded through the
// supplied logger hook and otherwise ignored.
type Tuner interface {
	Tune(conn *net.TCPConn, warn func(op string, err error))
}

// CorkHandle begins best-effort coalescing around a vectored batch send and
// must be closed (Uncork) once the send completes, regardless of outcome.
type CorkHandle interface {
	Uncork() error
}

// Cork begins platform-appropriate coalescing (TCP_CORK on Linux,
// TCP_NOPUSH on Darwin/BSD, a no-op elsewhere) around the vectored write
// that ships one batch frame. Callers must always call Uncork on the
// returned handle.
func Cork(conn *net.TCPConn) CorkHandle {
	return cork(conn)
}

// TimestampNS returns a monotonic nanosecond timestamp suitable for the
// caller-supplied op timestamps the protocol carries; it is not wall-clock
// time and must not be persisted or compared across processes.
func TimestampNS() uint64 {
	return uint64(time.Now().UnixNano())
}

// DialTimeout resolves host:port (IPv4 or IPv6, either literal or via DNS)
// and opens a TCP connection, applying the platform Tuner before handing
// the connection back.
func DialTimeout(network, address string, timeout time.Duration, tuner Tuner, warn func(op string, err error)) (*net.TCPConn, error) {
	d := net.Dialer{Timeout: timeout}

	c, err := d.Dial(network, address)
	if err != nil {
		return nil, err
	}

	tc, ok := c.(*net.TCPConn)
	if !ok {
		_ = c.Close()
		return nil, &net.OpError{Op: "dial", Net: network, Err: net.UnknownNetworkError(network)}
	}

	if tuner != nil {
		tuner.Tune(tc, warn)
	}

	return tc, nil
}
