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

// Package vars implements the process-wide $name$ substitution table used by
// the connection-string parser (§6.1), kept as its own small package rather
// than folded into connstring, matching the source's separation between
// protocol_variables.py and the connections parser (SPEC_FULL.md
// "Supplemented features" #7).
package vars

import (
	"strings"
	"sync"
)

// Table is a concurrency-safe set of named substitution variables.
type Table struct {
	mu   sync.RWMutex
	vals map[string]string
}

// New returns an empty Table.
func New() *Table {
	return &Table{vals: make(map[string]string)}
}

// Set installs or replaces the value for name.
func (t *Table) Set(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.vals == nil {
		t.vals = make(map[string]string)
	}
	t.vals[name] = value
}

// Get returns the value for name and whether it was present.
func (t *Table) Get(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vals[name]
	return v, ok
}

// Remove deletes name from the table.
func (t *Table) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.vals, name)
}

// Expand replaces every "$name$" occurrence in s with its value from the
// table, in a single left-to-right pass. An unmatched "$name$" (name absent
// from the table) is left verbatim, matching the source's
// protocol_variables.py behavior of only substituting known names.
func (t *Table) Expand(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var sb strings.Builder
	pos := 0
	n := len(s)
	for pos < n {
		start := strings.IndexByte(s[pos:], '$')
		if start < 0 {
			sb.WriteString(s[pos:])
			break
		}
		start += pos
		sb.WriteString(s[pos:start])

		end := strings.IndexByte(s[start+1:], '$')
		if end < 0 {
			sb.WriteString(s[start:])
			break
		}
		end += start + 1

		name := s[start+1 : end]
		if v, ok := t.vals[name]; ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(s[start : end+1])
		}
		pos = end + 1
	}
	return sb.String()
}

// defTable is the process-wide default table the connection-string parser
// falls back to when no explicit Table is supplied.
var defTable = New()

// Default returns the process-wide variable table.
func Default() *Table { return defTable }
