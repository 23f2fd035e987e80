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

package binding_test

import (
	"context"
	"net"

	"github.com/hpkv-io/rioc/binding"
	"github.com/hpkv-io/rioc/client"
	"github.com/hpkv-io/rioc/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client handles", func() {
	It("rejects an unknown handle instead of panicking", func() {
		_, err := binding.ClientHandle(999).Get([]byte("k"))
		Expect(err).ToNot(BeNil())
	})

	It("disposes idempotently", func() {
		srv := newFakeServer(func(conn net.Conn, op protocol.OpHeader, key []byte, payload []byte) {})
		defer srv.Close()

		host, port := srv.hostPort()
		h, err := binding.OpenClient(context.Background(), client.ClientConfig{Host: host, Port: port})
		Expect(err).To(BeNil())

		Expect(binding.CloseClient(h)).To(BeNil())
		Expect(binding.CloseClient(h)).To(BeNil())
	})

	It("round-trips a GET through the handle", func() {
		srv := newFakeServer(func(conn net.Conn, op protocol.OpHeader, key []byte, payload []byte) {
			writeResponse(conn, protocol.StatusSuccess, []byte("v"))
		})
		defer srv.Close()

		host, port := srv.hostPort()
		h, err := binding.OpenClient(context.Background(), client.ClientConfig{Host: host, Port: port})
		Expect(err).To(BeNil())
		defer binding.CloseClient(h)

		value, gerr := h.Get([]byte("k"))
		Expect(gerr).To(BeNil())
		Expect(value).To(Equal([]byte("v")))
	})
})

var _ = Describe("Batch handles", func() {
	It("rejects an unknown handle instead of panicking", func() {
		err := binding.BatchHandle(999).AddGet([]byte("k"))
		Expect(err).ToNot(BeNil())
	})

	It("accumulates operations and disposes idempotently", func() {
		h := binding.NewBatch()

		Expect(h.AddInsert([]byte("k"), []byte("v"), 1)).To(BeNil())
		n, lerr := h.Len()
		Expect(lerr).To(BeNil())
		Expect(n).To(Equal(1))

		Expect(binding.FreeBatch(h)).To(BeNil())
		Expect(binding.FreeBatch(h)).To(BeNil())
	})
})

var _ = Describe("Tracker handles", func() {
	It("executes a batch and returns its response through the handle", func() {
		srv := newFakeServer(func(conn net.Conn, op protocol.OpHeader, key []byte, payload []byte) {
			writeResponse(conn, protocol.StatusSuccess, []byte("hello"))
		})
		defer srv.Close()

		host, port := srv.hostPort()
		ch, err := binding.OpenClient(context.Background(), client.ClientConfig{Host: host, Port: port})
		Expect(err).To(BeNil())
		defer binding.CloseClient(ch)

		bh := binding.NewBatch()
		Expect(bh.AddGet([]byte("k"))).To(BeNil())

		th, terr := binding.ExecuteAsync(ch, bh)
		Expect(terr).To(BeNil())

		Expect(th.Wait(1000)).To(BeNil())

		value, ranges, status, gerr := th.GetResponse(0)
		Expect(gerr).To(BeNil())
		Expect(status).To(Equal(int32(protocol.StatusSuccess)))
		Expect(value).To(Equal([]byte("hello")))
		Expect(ranges).To(BeEmpty())

		Expect(binding.FreeTracker(th)).To(BeNil())
		Expect(binding.FreeTracker(th)).To(BeNil())
		Expect(binding.FreeBatch(bh)).To(BeNil())
	})

	It("rejects an unknown handle instead of panicking", func() {
		_, _, _, err := binding.TrackerHandle(999).GetResponse(0)
		Expect(err).ToNot(BeNil())
	})
})
