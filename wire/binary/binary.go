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

// Package binary implements the wire formatter shared by every binary sink
// (file, memory, pipe, TCP, cloud): §4.3's fixed-header-then-tail-strings
// layout, little-endian throughout, plus the envelope framing of §6.2.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nabbar/siwire/packet"
)

const spreadsheetEpochDays = 25569
const microsPerDay = 86_400_000_000

// Timestamp converts microseconds-since-Unix-epoch into the classic
// spreadsheet double (days since 1899-12-30), per §4.3.
func Timestamp(micros int64) float64 {
	days := micros / microsPerDay
	rem := micros % microsPerDay
	if rem < 0 {
		days--
		rem += microsPerDay
	}
	frac := float64(rem) / float64(microsPerDay)
	return float64(days+spreadsheetEpochDays) + frac
}

// Encode renders p as a full wire envelope: 2-byte kind id, 4-byte body
// length, body bytes (§3, §6.2).
func Encode(p *packet.Packet) ([]byte, error) {
	body, err := encodeBody(p)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 6+len(body))
	binary.LittleEndian.PutUint16(out[0:2], uint16(p.Kind()))
	binary.LittleEndian.PutUint32(out[2:6], uint32(len(body)))
	copy(out[6:], body)
	return out, nil
}

func encodeBody(p *packet.Packet) ([]byte, error) {
	switch b := p.Body().(type) {
	case *packet.LogEntry:
		return encodeLogEntry(b), nil
	case *packet.Watch:
		return encodeWatch(b), nil
	case *packet.ControlCommand:
		return encodeControlCommand(b), nil
	case *packet.ProcessFlow:
		return encodeProcessFlow(b), nil
	case *packet.LogHeader:
		return encodeLogHeader(b), nil
	case *packet.Chunk:
		return encodeChunk(b), nil
	default:
		return nil, fmt.Errorf("binary: unsupported body type %T", b)
	}
}

func putI32(buf *bytes.Buffer, v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	buf.Write(tmp[:])
}

func putF64(buf *bytes.Buffer, v float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	buf.Write(tmp[:])
}

func encodeLogEntry(e *packet.LogEntry) []byte {
	var buf bytes.Buffer
	buf.Grow(packet.KindLogEntry.HeaderSize() + len(e.AppName) + len(e.SessionName) + len(e.Title) + len(e.HostName) + len(e.Payload))

	putI32(&buf, int32(e.SubType))
	putI32(&buf, int32(e.Viewer))
	putI32(&buf, int32(len(e.AppName)))
	putI32(&buf, int32(len(e.SessionName)))
	putI32(&buf, int32(len(e.Title)))
	putI32(&buf, int32(len(e.HostName)))
	putI32(&buf, int32(len(e.Payload)))
	putI32(&buf, e.Pid)
	putI32(&buf, e.Tid)
	putF64(&buf, Timestamp(e.TimestampUS))
	putI32(&buf, e.Color.Int32())

	buf.WriteString(e.AppName)
	buf.WriteString(e.SessionName)
	buf.WriteString(e.Title)
	buf.WriteString(e.HostName)
	buf.Write(e.Payload)

	return buf.Bytes()
}

func encodeProcessFlow(f *packet.ProcessFlow) []byte {
	var buf bytes.Buffer
	putI32(&buf, int32(f.FlowKind))
	putI32(&buf, int32(len(f.Title)))
	putI32(&buf, int32(len(f.HostName)))
	putI32(&buf, f.Pid)
	putI32(&buf, f.Tid)
	putF64(&buf, Timestamp(f.TimestampUS))
	buf.WriteString(f.Title)
	buf.WriteString(f.HostName)
	return buf.Bytes()
}

func encodeWatch(w *packet.Watch) []byte {
	var buf bytes.Buffer
	putI32(&buf, int32(len(w.Name)))
	putI32(&buf, int32(len(w.Value)))
	putI32(&buf, int32(w.WatchKind))
	putF64(&buf, Timestamp(w.TimestampUS))
	buf.WriteString(w.Name)
	buf.WriteString(w.Value)
	return buf.Bytes()
}

func encodeControlCommand(c *packet.ControlCommand) []byte {
	var buf bytes.Buffer
	putI32(&buf, int32(c.Command))
	putI32(&buf, int32(len(c.Payload)))
	buf.Write(c.Payload)
	return buf.Bytes()
}

func encodeLogHeader(h *packet.LogHeader) []byte {
	var buf bytes.Buffer
	content := []byte(h.Content)
	putI32(&buf, int32(len(content)))
	buf.Write(content)
	return buf.Bytes()
}

// chunkDescribedSize is the constant written into the chunk's self-describing
// header-size field: the byte count of chunk-format + count + payload-length
// that follows it, not including the header-size field itself (§4.3).
const chunkDescribedSize = 10

func encodeChunk(c *packet.Chunk) []byte {
	var buf bytes.Buffer
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[0:2], chunkDescribedSize)
	binary.LittleEndian.PutUint16(hdr[2:4], c.Format)
	buf.Write(hdr[:])
	putI32(&buf, c.Count)
	putI32(&buf, int32(len(c.PayloadData)))
	buf.Write(c.PayloadData)
	return buf.Bytes()
}

// DecodeEnvelope reads the kind id and body length from the front of a wire
// envelope, per the testable property in §8 ("first two bytes decode to
// p.kind_id and bytes [2..6) decode to the remaining body length").
func DecodeEnvelope(b []byte) (kind packet.Kind, bodyLen uint32, err error) {
	if len(b) < 6 {
		return 0, 0, fmt.Errorf("binary: envelope too short (%d bytes)", len(b))
	}
	kind = packet.Kind(binary.LittleEndian.Uint16(b[0:2]))
	bodyLen = binary.LittleEndian.Uint32(b[2:6])
	return kind, bodyLen, nil
}

// DecodeLogHeaderContent reverses encodeLogHeader's body for the §8 round-trip
// property: it takes the body slice (post envelope framing), reads the i32
// content length, and returns the exact key=value string that follows.
func DecodeLogHeaderContent(body []byte) (string, error) {
	if len(body) < 4 {
		return "", fmt.Errorf("binary: log header body too short")
	}
	n := binary.LittleEndian.Uint32(body[0:4])
	if uint32(len(body)-4) < n {
		return "", fmt.Errorf("binary: log header body truncated")
	}
	return string(body[4 : 4+n]), nil
}
