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

// Package lookup implements LookupTable, the case-insensitive option table
// every protocol is configured from, and its typed accessors (§3). Parsing is
// grounded on nabbar-golib/duration's suffix-based parser, generalized to the
// byte-size/timespan/color/rotate/fixed-byte-string grammar this spec needs.
package lookup

import (
	"strconv"
	"strings"
	"sync"

	"github.com/nabbar/siwire/level"
)

const (
	secondsFactor = 1000
	minutesFactor = secondsFactor * 60
	hoursFactor   = minutesFactor * 60
	daysFactor    = hoursFactor * 24

	kbFactor = 1024
	mbFactor = kbFactor * 1024
	gbFactor = mbFactor * 1024
)

// Table is a case-insensitive string->string option map with typed
// accessors. The zero value is ready to use.
type Table struct {
	mu    sync.RWMutex
	items map[string]string
}

// New returns an empty Table.
func New() *Table {
	return &Table{items: make(map[string]string)}
}

// Put sets key (case-folded) to value, overwriting any prior value.
func (t *Table) Put(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.items == nil {
		t.items = make(map[string]string)
	}
	t.items[strings.ToLower(key)] = value
}

// Add sets key to value only if key is not already present.
func (t *Table) Add(key, value string) {
	if t.Contains(key) {
		return
	}
	t.Put(key, value)
}

func (t *Table) Contains(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.items[strings.ToLower(key)]
	return ok
}

func (t *Table) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, strings.ToLower(key))
}

func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]string)
}

func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Keys returns a snapshot of every option key currently set, lower-cased.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.items))
	for k := range t.items {
		out = append(out, k)
	}
	return out
}

func (t *Table) GetString(key, def string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.items[strings.ToLower(key)]; ok {
		return v
	}
	return def
}

func (t *Table) GetInt(key string, def int) int {
	v := t.GetString(key, "")
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return n
	}
	return def
}

func (t *Table) GetBool(key string, def bool) bool {
	v := t.GetString(key, "")
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

func (t *Table) GetLevel(key string, def level.Level) level.Level {
	v := t.GetString(key, "")
	if v == "" {
		return def
	}
	return level.Parse(v)
}

func (t *Table) GetColor(key string, def Color) Color {
	v := t.GetString(key, "")
	if v == "" {
		return def
	}
	if c, ok := parseColor(v); ok {
		return c
	}
	return def
}

func (t *Table) GetRotate(key string, def Rotate) Rotate {
	return parseRotate(t.GetString(key, ""), def)
}

// GetSize returns a byte count. The raw string accepts a KB|MB|GB suffix
// (default KB when no unit is given and the string is purely numeric). When
// the key is absent, the spec (and the source it distills) multiplies
// defaultValue by the KB factor even though defaultValue is itself expressed
// in KB-ish raw units — §9 design note (a) documents this as source intent
// carried forward rather than a bug to silently fix.
func (t *Table) GetSize(key string, defaultValueKB int) int64 {
	v := t.GetString(key, "")
	if v == "" {
		return int64(defaultValueKB) * kbFactor
	}
	return sizeToInt(v, defaultValueKB)
}

func sizeToInt(value string, defaultValueKB int) int64 {
	v := strings.TrimSpace(value)
	factor := int64(kbFactor)

	if len(v) >= 2 {
		unit := strings.ToLower(v[len(v)-2:])
		if unit == "kb" || unit == "mb" || unit == "gb" {
			v = strings.TrimSpace(v[:len(v)-2])
			switch unit {
			case "kb":
				factor = kbFactor
			case "mb":
				factor = mbFactor
			case "gb":
				factor = gbFactor
			}
		}
	}

	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return factor * n
	}
	return int64(defaultValueKB) * kbFactor
}

// GetTimespan returns a duration in milliseconds. The raw string accepts an
// s|m|h|d suffix (default s). Absent key falls back to defaultValueSeconds,
// expressed in ms.
func (t *Table) GetTimespan(key string, defaultValueSeconds int) int64 {
	v := t.GetString(key, "")
	if v == "" {
		return int64(defaultValueSeconds) * secondsFactor
	}
	return timespanToMillis(v, defaultValueSeconds)
}

func timespanToMillis(value string, defaultValueSeconds int) int64 {
	v := strings.TrimSpace(value)
	factor := int64(secondsFactor)

	if len(v) >= 1 {
		unit := strings.ToLower(v[len(v)-1:])
		switch unit {
		case "s", "m", "h", "d":
			v = strings.TrimSpace(v[:len(v)-1])
			switch unit {
			case "s":
				factor = secondsFactor
			case "m":
				factor = minutesFactor
			case "h":
				factor = hoursFactor
			case "d":
				factor = daysFactor
			}
		}
	}

	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return factor * n
	}
	return int64(defaultValueSeconds) * secondsFactor
}

// GetBytes returns a fixed-length byte string: the raw option value is
// UTF-8 encoded, then truncated or zero-padded to size bytes. An empty
// option value returns def unchanged.
func (t *Table) GetBytes(key string, size int, def []byte) []byte {
	v := t.GetString(key, "")
	if v == "" {
		return def
	}

	raw := []byte(strings.TrimSpace(v))
	if len(raw) == size {
		return raw
	}

	out := make([]byte, size)
	copy(out, raw)
	return out
}
