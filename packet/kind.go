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

// Package packet implements the tagged packet variants (§3) delivered
// end-to-end by every protocol: LogEntry, Watch, ControlCommand, ProcessFlow,
// LogHeader, and Chunk. Per the "Tagged packets instead of inheritance"
// design note, these are modeled as a discriminated union — one envelope
// type carrying a Kind tag and a kind-specific body — rather than a class
// hierarchy; size accounting and serialization become switch-dispatched
// functions instead of virtual methods.
package packet

// Kind is the 2-byte little-endian wire identifier in every packet envelope
// (§3, §6.2).
type Kind uint16

const (
	KindControlCommand Kind = 1
	KindLogEntry       Kind = 4
	KindWatch          Kind = 5
	KindProcessFlow    Kind = 6
	KindLogHeader      Kind = 7
	KindChunk          Kind = 8
)

func (k Kind) String() string {
	switch k {
	case KindControlCommand:
		return "ControlCommand"
	case KindLogEntry:
		return "LogEntry"
	case KindWatch:
		return "Watch"
	case KindProcessFlow:
		return "ProcessFlow"
	case KindLogHeader:
		return "LogHeader"
	case KindChunk:
		return "Chunk"
	default:
		return "Unknown"
	}
}

// HeaderSize returns the kind-specific fixed header size used by the binary
// formatter and by size() accounting (§3, §4.3).
func (k Kind) HeaderSize() int {
	switch k {
	case KindLogEntry:
		return 48
	case KindWatch:
		return 20
	case KindControlCommand:
		return 8
	case KindProcessFlow:
		return 28
	case KindLogHeader:
		return 4
	case KindChunk:
		return 10
	default:
		return 0
	}
}
