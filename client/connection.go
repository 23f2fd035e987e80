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

// Package client owns one RIOC connection: dialing and tuning the socket,
// optionally wrapping it in a TLS channel, and exposing both the raw
// single-operation calls and a sequence counter a caller can stamp onto
// its own request bookkeeping. Every single-op call is built on top of
// package batch and package tracker rather than re-implementing framing,
// so a one-key Get and a 128-op batch share one code path to the wire.
package client

import (
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	libatm "github.com/hpkv-io/rioc/atomic"
	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/certificates"
	"github.com/hpkv-io/rioc/certificates/ca"
	"github.com/hpkv-io/rioc/certificates/certs"
	"github.com/hpkv-io/rioc/errors"
	"github.com/hpkv-io/rioc/platform"
	"github.com/hpkv-io/rioc/riolog"
	"github.com/hpkv-io/rioc/tlsconn"
	"github.com/hpkv-io/rioc/tracker"
)

// Connection is a dialed, tuned, single-owner RIOC socket. At most one
// request or tracker may be in flight at a time; busy enforces that for
// the single-op helpers on this type, and a caller driving batch.Batch
// and tracker.ExecuteAsync directly against the same Connection must
// honor the same rule itself.
type Connection struct {
	host string
	tcp  *net.TCPConn
	ch   *tlsconn.Channel

	sequence libatm.Value[uint64]
	busy     sync.Mutex
	closed   bool

	log riolog.Logger
}

var _ tracker.Transport = (*Connection)(nil)

// Connect resolves cfg.Host, dials it with the platform tuner applied,
// and, if cfg.TLS is set, performs the TLS 1.3 handshake over it. cfg's
// timeout budgets only this path: resolution, dial, and handshake, not
// any later request or batch wait.
func Connect(ctx context.Context, cfg ClientConfig) (*Connection, errors.Error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	timeout := time.Duration(cfg.effectiveTimeout()) * time.Millisecond
	address := net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10))

	log := riolog.Discard

	tcp, err := platform.DialTimeout("tcp4", address, timeout, platform.New(), func(op string, e error) {
		log.WithFields(riolog.Fields{"op": op, "error": e.Error()}).Warn("socket tuning failed")
	})
	if err != nil {
		return nil, ErrorDial.Error(err)
	}

	conn := &Connection{
		host:     cfg.Host,
		tcp:      tcp,
		sequence: libatm.NewValue[uint64](),
		log:      log,
	}

	// CompareAndSwap never succeeds on a Value nothing was stored in yet.
	conn.sequence.Store(0)

	if cfg.TLS != nil {
		tlsCfg, berr := buildTLSConfig(cfg.TLS)
		if berr != nil {
			_ = tcp.Close()
			return nil, berr
		}

		serverName := cfg.TLS.VerifyHostname
		if serverName == "" {
			serverName = cfg.Host
		}

		dctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		ch, derr := tlsconn.Dial(dctx, tcp, tlsCfg, serverName, cfg.TLS.VerifyPeer)
		if derr != nil {
			_ = tcp.Close()
			return nil, ErrorHandshake.Error(derr)
		}

		conn.ch = ch
	}

	return conn, nil
}

// buildTLSConfig turns a TlsConfig into a certificates.TLSConfig: TLS 1.3
// only (via InheritDefault), the client's own certificate pair always
// presented, and the CA pool loaded only when verification is requested
// (InsecureSkipVerify otherwise, since an unverified peer has no use for
// a trust anchor).
func buildTLSConfig(t *TlsConfig) (certificates.TLSConfig, errors.Error) {
	pair, perr := certs.ParsePair(t.KeyPath, t.CertPath)
	if perr != nil {
		return nil, ErrorTLSLoad.Error(perr)
	}

	decl := &certificates.Config{
		Certs:              []certs.Certif{pair.Model()},
		InheritDefault:     true,
		InsecureSkipVerify: !t.VerifyPeer,
	}

	if t.VerifyPeer && t.CAPath != "" {
		caPEM := t.CAPath
		if b, rerr := os.ReadFile(t.CAPath); rerr == nil {
			caPEM = string(b)
		}

		root, cerr := ca.Parse(caPEM)
		if cerr != nil {
			return nil, ErrorTLSLoad.Error(cerr)
		}

		decl.RootCA = append(decl.RootCA, root.Model())
	}

	return decl.New(), nil
}

// Disconnect performs the TLS channel's close (which itself sends a
// close_notify alert before tearing down) when present, then closes the
// socket. Both steps run even if the first fails, so the file descriptor
// is never leaked.
func (c *Connection) Disconnect() errors.Error {
	c.busy.Lock()
	defer c.busy.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var tlsErr error
	if c.ch != nil {
		tlsErr = c.ch.Close()
	}

	if err := c.tcp.Close(); err != nil {
		return ErrorShutdown.Error(err)
	}

	if tlsErr != nil {
		return ErrorShutdown.Error(tlsErr)
	}

	return nil
}

// Sequence returns a monotonically increasing per-connection counter a
// caller may stamp onto its own request bookkeeping; RIOC itself does not
// require it on the wire.
func (c *Connection) Sequence() uint64 {
	for {
		old := c.sequence.Load()
		next := old + 1
		if c.sequence.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Read implements tracker.Transport, delegating to the TLS channel when
// present or the raw socket otherwise.
func (c *Connection) Read(p []byte) (int, error) {
	if c.ch != nil {
		return c.ch.Read(p)
	}
	return c.tcp.Read(p)
}

// SendVectored implements tracker.Transport. The TLS path forwards
// straight to the channel's chunked vectored write; the plaintext path
// corks the socket around a net.Buffers write so the kernel ships the
// whole batch frame as one (or few) segments instead of one per slice.
func (c *Connection) SendVectored(bufs [][]byte) error {
	if c.ch != nil {
		_, err := c.ch.WriteVectored(bufs)
		return err
	}

	cork := platform.Cork(c.tcp)
	defer func() {
		if err := cork.Uncork(); err != nil {
			c.log.WithFields(riolog.Fields{"error": err.Error()}).Warn("uncork failed")
		}
	}()

	_, err := net.Buffers(bufs).WriteTo(c.tcp)
	return err
}
