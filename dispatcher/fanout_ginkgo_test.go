/*
 * MIT License
 *
 * Copyright (c) 2026 the siwire authors
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

package dispatcher_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/siwire/dispatcher"
	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/session"
)

// recordingProtocol is a dispatcher.Protocol double that records every
// submitted packet and can be told to fail, standing in for a concrete
// transport the way fakeProto does in dispatcher_test.go's own package.
type recordingProtocol struct {
	mu       sync.Mutex
	received []*packet.Packet
	failWith error
}

func (r *recordingProtocol) Submit(p *packet.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.received = append(r.received, p)
	return nil
}

func (r *recordingProtocol) Connect() error    { return nil }
func (r *recordingProtocol) Disconnect() error { return nil }
func (r *recordingProtocol) Start()            {}

func (r *recordingProtocol) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func logEntry(title string) *packet.Packet {
	return packet.New(level.Message, &packet.LogEntry{Title: title})
}

var _ = Describe("Dispatcher fan-out", func() {
	var (
		d    *dispatcher.Dispatcher
		a, b *recordingProtocol
	)

	BeforeEach(func() {
		d = dispatcher.New(nil, session.Defaults{})
		a = &recordingProtocol{}
		b = &recordingProtocol{}
	})

	Context("with a single protocol", func() {
		BeforeEach(func() {
			d.AddProtocol("a", a)
		})

		It("forwards a submitted packet without marking it thread-safe", func() {
			p := logEntry("hello")
			Expect(d.Submit(p)).To(Succeed())
			Expect(a.count()).To(Equal(1))
			Expect(p.ThreadSafe).To(BeFalse())
		})
	})

	Context("with more than one protocol", func() {
		BeforeEach(func() {
			d.AddProtocol("a", a)
			d.AddProtocol("b", b)
		})

		It("fans the same packet out to every protocol and marks it thread-safe", func() {
			p := logEntry("hello")
			Expect(d.Submit(p)).To(Succeed())
			Expect(a.count()).To(Equal(1))
			Expect(b.count()).To(Equal(1))
			Expect(p.ThreadSafe).To(BeTrue())
		})

		It("reports the first protocol failure but still submits to the rest", func() {
			a.failWith = errors.New("boom")
			Expect(d.Submit(logEntry("hello"))).To(MatchError("boom"))
			Expect(b.count()).To(Equal(1))
		})
	})

	Context("with a filter listener that vetoes a packet", func() {
		BeforeEach(func() {
			d.AddProtocol("a", a)
			d.AddFilterListener(func(p *packet.Packet) bool { return false })
		})

		It("drops the packet before any protocol sees it", func() {
			Expect(d.Submit(logEntry("hello"))).To(Succeed())
			Expect(a.count()).To(Equal(0))
		})
	})

	Context("error aggregation", func() {
		It("delivers a protocol-reported error to every registered error listener", func() {
			var got []string
			var mu sync.Mutex
			d.AddErrorListener(func(name string, err error) {
				mu.Lock()
				defer mu.Unlock()
				got = append(got, name+":"+err.Error())
			})

			d.ReportError("a", errors.New("disconnected"))

			mu.Lock()
			defer mu.Unlock()
			Expect(got).To(ContainElement("a:disconnected"))
		})
	})

	Context("SetEnabled idempotence", func() {
		It("accepts a repeated call with the same value as a no-op", func() {
			d.AddProtocol("gate", &recordingProtocol{})
			Expect(d.SetEnabled(true)).To(Succeed())
			Expect(d.SetEnabled(true)).To(Succeed())
			Expect(d.SetEnabled(false)).To(Succeed())
		})
	})
})
