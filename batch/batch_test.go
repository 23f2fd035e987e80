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

package batch_test

import (
	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Batch", func() {
	var b *batch.Batch

	BeforeEach(func() {
		b = batch.Create()
	})

	It("starts empty with the fixed PIPELINE|MORE flags", func() {
		Expect(b.Len()).To(Equal(0))
		h := b.Header()
		Expect(h.Magic).To(Equal(protocol.Magic))
		Expect(h.Version).To(Equal(protocol.Version))
		Expect(h.Count).To(Equal(uint16(0)))
		Expect(h.Flags).To(Equal(protocol.FlagPipeline | protocol.FlagMore))
	})

	It("appends a GET with no request payload", func() {
		Expect(b.AddGet([]byte("k"))).To(BeNil())
		Expect(b.Len()).To(Equal(1))

		s := b.Slot(0)
		Expect(s.Header.Command).To(Equal(protocol.CmdGet))
		Expect(s.Header.KeyLen).To(Equal(uint16(1)))
		Expect(b.Payload(0)).To(BeNil())
	})

	It("copies an INSERT's value into the arena at slot index * MaxValueSize", func() {
		Expect(b.AddGet([]byte("filler"))).To(BeNil())
		Expect(b.AddInsert([]byte("k2"), []byte("hello"), 7)).To(BeNil())

		s := b.Slot(1)
		Expect(s.Header.Command).To(Equal(protocol.CmdInsert))
		Expect(s.Header.Timestamp).To(Equal(uint64(7)))
		Expect(b.Payload(1)).To(Equal([]byte("hello")))
	})

	It("rejects an empty key before mutating state", func() {
		Expect(b.AddGet(nil)).ToNot(BeNil())
		Expect(b.Len()).To(Equal(0))
	})

	It("rejects a key over MaxKeySize before mutating state", func() {
		big := make([]byte, protocol.MaxKeySize+1)
		err := b.AddGet(big)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(batch.ErrorKeySize)).To(BeTrue())
		Expect(b.Len()).To(Equal(0))
	})

	It("rejects a value over MaxValueSize before mutating state", func() {
		big := make([]byte, protocol.MaxValueSize+1)
		err := b.AddInsert([]byte("k"), big, 1)
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(batch.ErrorValueSize)).To(BeTrue())
		Expect(b.Len()).To(Equal(0))
	})

	It("rejects appends once the batch holds MaxBatchSize ops", func() {
		for i := 0; i < protocol.MaxBatchSize; i++ {
			Expect(b.AddGet([]byte("k"))).To(BeNil())
		}

		err := b.AddGet([]byte("k"))
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(batch.ErrorBatchFull)).To(BeTrue())
		Expect(b.Len()).To(Equal(protocol.MaxBatchSize))
	})

	It("encodes an ATOMIC_INC_DEC delta as an 8-byte little-endian payload", func() {
		Expect(b.AddAtomicIncDec([]byte("counter"), -5, 3)).To(BeNil())

		s := b.Slot(0)
		Expect(s.Header.Command).To(Equal(protocol.CmdAtomicIncDec))
		Expect(s.Header.ValueLen).To(Equal(uint32(8)))
		Expect(b.Payload(0)).To(HaveLen(8))
	})

	It("carries RANGE_QUERY's end key as the value payload", func() {
		Expect(b.AddRangeQuery([]byte("lo"), []byte("hi"))).To(BeNil())

		s := b.Slot(0)
		Expect(s.Header.Command).To(Equal(protocol.CmdRangeQuery))
		Expect(s.Header.KeyLen).To(Equal(uint16(2)))
		Expect(s.Header.ValueLen).To(Equal(uint32(2)))
		Expect(b.Payload(0)).To(Equal([]byte("hi")))
	})

	It("rejects Free while a tracker holds the batch in flight", func() {
		b.MarkInFlight()
		err := b.Free()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(batch.ErrorInFlight)).To(BeTrue())

		b.ClearInFlight()
		Expect(b.Free()).To(BeNil())
	})

	It("records and clears a slot's result", func() {
		Expect(b.AddGet([]byte("k"))).To(BeNil())
		b.SetResult(0, protocol.ResponseHeader{Status: protocol.StatusSuccess, ValueLen: 3}, []byte("abc"), nil)

		resp, value, ranges := b.Result(0)
		Expect(resp.Status).To(Equal(protocol.StatusSuccess))
		Expect(value).To(Equal([]byte("abc")))
		Expect(ranges).To(BeNil())

		b.ClearResult(0)
		_, value, _ = b.Result(0)
		Expect(value).To(BeNil())
	})
})
