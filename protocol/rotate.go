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

package protocol

import (
	"fmt"
	"sync"
	"time"

	"github.com/nabbar/siwire/lookup"
)

// RotateTracker detects calendar-period boundaries (hourly/daily/weekly/
// monthly) for the file protocol's by-period rotation and the cloud
// protocol's virtual-file rotation (SPEC_FULL.md supplemented feature #4,
// common/file_rotater.py's "store last timestamp, compare calendar bucket"
// approach, carried into both consumers).
type RotateTracker struct {
	mode lookup.Rotate

	mu         sync.Mutex
	have       bool
	lastBucket string
}

// NewRotateTracker builds a tracker for mode. lookup.NoRotate always reports
// no rotation.
func NewRotateTracker(mode lookup.Rotate) *RotateTracker {
	return &RotateTracker{mode: mode}
}

func (rt *RotateTracker) bucket(t time.Time) string {
	switch rt.mode {
	case lookup.Hourly:
		return t.Format("2006010215")
	case lookup.Daily:
		return t.Format("20060102")
	case lookup.Weekly:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case lookup.Monthly:
		return t.Format("200601")
	default:
		return ""
	}
}

// Check reports whether now falls in a different calendar bucket than the
// last time Check returned true (or than the first call). The first call
// never reports a rotation — it only establishes the baseline bucket.
func (rt *RotateTracker) Check(now time.Time) bool {
	if rt.mode == lookup.NoRotate {
		return false
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	b := rt.bucket(now)
	if !rt.have {
		rt.have = true
		rt.lastBucket = b
		return false
	}
	if b != rt.lastBucket {
		rt.lastBucket = b
		return true
	}
	return false
}
