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

// Package tlsconn wraps a dialed TCP connection in a TLS 1.3 client channel.
// It mirrors the chunked read/write discipline and emulated vectored write
// of the RIOC C client's TLS layer (original_source/src/rioc_tls.c) on top
// of crypto/tls: WANT_READ/WANT_WRITE retry and the hostname/IP SNI choice
// that C implementation hand-rolls both fall out for free from tls.Conn's
// blocking I/O and from ServerName's native IP-literal handling, so neither
// is reimplemented here. What does need an explicit port is the 16000-byte
// chunk ceiling the server enforces per read/write and the coalesce-then-
// flush vectored write, since crypto/tls has no equivalent of either.
package tlsconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/hpkv-io/rioc/certificates"
	"github.com/hpkv-io/rioc/errors"
)

const (
	// ChunkSize mirrors RIOC_TLS_CHUNK_SIZE: no single Read or Write call
	// ever crosses a TLS record of more than this many bytes.
	ChunkSize = 16000

	// VerifyDepth mirrors the depth argument to SSL_CTX_set_verify_depth in
	// rioc_tls_client_ctx_create: a verified chain longer than this is
	// rejected even if it otherwise validates.
	VerifyDepth = 4

	shutdownTimeout = 2 * time.Second
)

const (
	ErrorHandshake errors.CodeError = iota + errors.MinPkgTLS
	ErrorVerifyDepth
	ErrorShutdown
)

var isCodeError = false

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorHandshake)
	errors.RegisterIdFctMessage(ErrorHandshake, getMessage)
}

// IsCodeError reports whether this package's error codes were already
// registered by an earlier import, mirroring the teacher's idempotent
// init-registration guard.
func IsCodeError() bool {
	return isCodeError
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorHandshake:
		return "tls handshake failed"
	case ErrorVerifyDepth:
		return "tls: verified chain exceeds max depth"
	case ErrorShutdown:
		return "tls: shutdown failed"
	}

	return ""
}

// Channel is a TLS 1.3 client channel over an already-dialed, already
// platform-tuned net.Conn. It is not safe for concurrent Read and Write
// from multiple goroutines simultaneously calling the same method, the
// same contract tls.Conn itself offers.
type Channel struct {
	conn net.Conn
}

// Dial performs the TLS client handshake over tcp, which the caller has
// already dialed and tuned (see package platform). serverName is used for
// both SNI and certificate verification; it may be a hostname or an IP
// literal. When verifyPeer is false the server certificate is not
// authenticated at all (RIOC_TLS_VERIFY_NONE); when true, verification
// runs with the standard library's usual chain building plus the
// VerifyDepth cap (RIOC_TLS_VERIFY_PEER, depth 4).
func Dial(ctx context.Context, tcp net.Conn, cfg certificates.TLSConfig, serverName string, verifyPeer bool) (*Channel, error) {
	base := cfg.TLS(serverName)
	base.InsecureSkipVerify = !verifyPeer

	if verifyPeer {
		base.VerifyConnection = verifyChainDepth
	}

	tc := tls.Client(tcp, base)

	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, ErrorHandshake.Error(err)
	}

	return &Channel{conn: tc}, nil
}

// verifyChainDepth rejects a connection whose verified chain is longer
// than VerifyDepth, even though it otherwise validated; it is only
// installed when the caller asked for peer verification, since
// InsecureSkipVerify leaves VerifiedChains empty.
func verifyChainDepth(cs tls.ConnectionState) error {
	for _, chain := range cs.VerifiedChains {
		if len(chain) <= VerifyDepth {
			return nil
		}
	}

	return fmt.Errorf("%w: max %d", ErrorVerifyDepth.Error(nil), VerifyDepth)
}

// Read fills b with at most one ChunkSize-bounded TLS record's worth of
// plaintext and returns however much was actually read, the ordinary
// io.Reader short-read contract. Callers that need an exact count (every
// RIOC header and value read does) compose this with io.ReadFull rather
// than RIOC_TLS_CHUNK_SIZE-sized looping being reimplemented here.
func (c *Channel) Read(b []byte) (int, error) {
	if len(b) > ChunkSize {
		b = b[:ChunkSize]
	}

	return c.conn.Read(b)
}

// Write writes all of b, chunked into ChunkSize-sized TLS records,
// mirroring rioc_tls_write's loop. It satisfies io.Writer's full-write-or-
// error contract.
func (c *Channel) Write(b []byte) (int, error) {
	written := 0

	for len(b) > 0 {
		n := len(b)
		if n > ChunkSize {
			n = ChunkSize
		}

		w, err := c.conn.Write(b[:n])
		written += w

		if err != nil {
			return written, err
		}

		b = b[n:]
	}

	return written, nil
}

// WriteVectored is the emulated vectored write from rioc_tls_writev:
// OpenSSL's BIO layer has no real writev, so the C client concatenates
// every buffer into a single ChunkSize scratch buffer and only hits the
// socket when that buffer fills or the final byte of the final buffer has
// been queued. It returns the total number of bytes accepted across all
// of bufs.
func (c *Channel) WriteVectored(bufs [][]byte) (int64, error) {
	var (
		total int64
		chunk = make([]byte, 0, ChunkSize)
	)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}

		if _, err := c.Write(chunk); err != nil {
			return err
		}

		chunk = chunk[:0]
		return nil
	}

	for i, b := range bufs {
		last := i == len(bufs)-1

		for len(b) > 0 {
			room := ChunkSize - len(chunk)
			n := len(b)
			if n > room {
				n = room
			}

			chunk = append(chunk, b[:n]...)
			b = b[n:]
			total += int64(n)

			if len(chunk) == ChunkSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}

		if last {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	return total, nil
}

// Close performs a bidirectional TLS shutdown: send our close_notify,
// retry once if that first attempt doesn't go through, then drain the
// peer's close_notify before closing the socket. This mirrors
// rioc_tls_cleanup_ssl, which calls SSL_shutdown a second time if the
// first returns 0 (our half sent, peer's not yet received) and always
// runs SSL_free/closes the socket regardless of how shutdown went.
func (c *Channel) Close() error {
	type closeWriter interface {
		CloseWrite() error
	}

	if cw, ok := c.conn.(closeWriter); ok {
		_ = c.conn.SetReadDeadline(time.Now().Add(shutdownTimeout))

		if err := cw.CloseWrite(); err != nil {
			if err = cw.CloseWrite(); err != nil {
				_ = c.conn.Close()
				return ErrorShutdown.Error(err)
			}
		}

		buf := make([]byte, 1)
		for {
			if _, err := c.conn.Read(buf); err != nil {
				break
			}
		}
	}

	return c.conn.Close()
}

// LocalAddr and RemoteAddr pass through to the underlying connection, for
// callers (package client) that log or key connection pools on them.
func (c *Channel) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *Channel) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SetDeadline, SetReadDeadline and SetWriteDeadline pass through so
// package client can apply the same per-call timeout discipline it uses
// on a plaintext connection.
func (c *Channel) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *Channel) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *Channel) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
