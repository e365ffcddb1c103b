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

// Package protocol implements the protocol base (§4.2): the common option
// set, derived keep_open, lifecycle state, and the sync/async write path
// every concrete transport (file, mem, pipe, tcp, cloud) builds on.
package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
)

// Options is the parsed common option set shared by every protocol (§4.2).
// Struct tags are checked by Validate, the same validator/v10.Struct pattern
// httpserver/config.go's ServerConfig.Validate uses.
type Options struct {
	Level   level.Level
	Caption string

	Reconnect         bool
	ReconnectInterval time.Duration `validate:"gte=0"`

	BacklogEnabled  bool
	BacklogQueue    int64 `validate:"gte=0"` // bytes
	BacklogFlushOn  level.Level
	BacklogKeepOpen bool

	AsyncEnabled           bool
	AsyncQueue             int64 `validate:"gte=0"` // bytes
	AsyncThrottle          bool
	AsyncClearOnDisconnect bool
}

// Validate re-checks o's struct tags, the last step of ParseOptions. The
// LookupTable size and timespan accessors pass a negative number through
// (e.g. "backlog.queue=-1"), and a hand-built Options in a test can carry
// one too; this turns that into a Configuration error instead of a silent
// negative queue threshold.
func (o Options) Validate() error {
	err := validator.New().Struct(o)
	if err == nil {
		return nil
	}

	if _, ok := err.(*validator.InvalidValidationError); ok {
		return errs.New(errs.Configuration, "protocol: options validation could not run", err)
	}

	var msgs []string
	for _, e := range err.(validator.ValidationErrors) {
		msgs = append(msgs, fmt.Sprintf("field %q fails constraint %q", e.Field(), e.ActualTag()))
	}
	return errs.New(errs.Configuration, "protocol: "+strings.Join(msgs, "; "))
}

// KeepOpen implements §4.2's "Derived keep_open": (!backlog.enabled) OR
// backlog.keepopen.
func (o Options) KeepOpen() bool {
	return !o.BacklogEnabled || o.BacklogKeepOpen
}

// Defaults carries the per-protocol default values the option table falls
// back to when a key is absent: backlog.queue defaults to 2048 KB everywhere,
// but async.queue defaults to 2 KB except for the cloud protocol, which
// overrides it to 20 MB (§4.2).
type Defaults struct {
	BacklogQueueKB  int
	BacklogFlushOn  level.Level
	AsyncQueueBytes int64
}

// DefaultDefaults is what every protocol except cloud uses.
var DefaultDefaults = Defaults{
	BacklogQueueKB:  2048,
	BacklogFlushOn:  level.Error,
	AsyncQueueBytes: 2 * 1024,
}

var baseKnownKeys = map[string]bool{
	"level":                   true,
	"caption":                 true,
	"reconnect":               true,
	"reconnect.interval":      true,
	"backlog.enabled":         true,
	"backlog.queue":           true,
	"backlog.flushon":         true,
	"backlog.keepopen":        true,
	"async.enabled":           true,
	"async.queue":             true,
	"async.throttle":          true,
	"async.clearondisconnect": true,
	"backlog":                 true, // legacy alias
	"flushon":                 true, // legacy alias
	"keepopen":                true, // legacy alias
}

// ParseOptions reads the common option set out of t, applying the three
// legacy aliases before the canonical keys (so a canonical key always wins
// over its alias when both are present), and rejects any key that is
// neither a base key nor listed in extraKnownKeys (the concrete protocol's
// own option surface) as a configuration error (§4.2).
func ParseOptions(t *lookup.Table, extraKnownKeys map[string]bool, d Defaults) (Options, error) {
	for _, k := range t.Keys() {
		lk := strings.ToLower(k)
		if baseKnownKeys[lk] || extraKnownKeys[lk] {
			continue
		}
		return Options{}, errs.New(errs.Configuration, fmt.Sprintf("protocol: unknown option %q", k))
	}

	o := Options{
		Level:          level.Debug,
		BacklogQueue:   int64(d.BacklogQueueKB) * 1024,
		BacklogFlushOn: d.BacklogFlushOn,
		AsyncThrottle:  true,
		AsyncQueue:     d.AsyncQueueBytes,
	}
	asyncQueueDefaultKB := int(d.AsyncQueueBytes / 1024)

	if t.Contains("backlog") {
		raw := strings.TrimSpace(t.GetString("backlog", ""))
		if b, ok := parseBoolLoose(raw); ok {
			o.BacklogEnabled = b
		} else {
			o.BacklogEnabled = true
			o.BacklogQueue = t.GetSize("backlog", d.BacklogQueueKB)
		}
	}
	if t.Contains("flushon") {
		o.BacklogFlushOn = t.GetLevel("flushon", o.BacklogFlushOn)
	}
	if t.Contains("keepopen") {
		o.BacklogKeepOpen = t.GetBool("keepopen", o.BacklogKeepOpen)
	}

	o.Level = t.GetLevel("level", o.Level)
	o.Caption = t.GetString("caption", o.Caption)
	o.Reconnect = t.GetBool("reconnect", o.Reconnect)
	o.ReconnectInterval = time.Duration(t.GetTimespan("reconnect.interval", 0)) * time.Millisecond // GetTimespan already returns ms

	if t.Contains("backlog.enabled") {
		o.BacklogEnabled = t.GetBool("backlog.enabled", o.BacklogEnabled)
	}
	if t.Contains("backlog.queue") {
		o.BacklogQueue = t.GetSize("backlog.queue", d.BacklogQueueKB)
	}
	if t.Contains("backlog.flushon") {
		o.BacklogFlushOn = t.GetLevel("backlog.flushon", o.BacklogFlushOn)
	}
	if t.Contains("backlog.keepopen") {
		o.BacklogKeepOpen = t.GetBool("backlog.keepopen", o.BacklogKeepOpen)
	}

	o.AsyncEnabled = t.GetBool("async.enabled", o.AsyncEnabled)
	if t.Contains("async.queue") {
		o.AsyncQueue = t.GetSize("async.queue", asyncQueueDefaultKB)
	}
	o.AsyncThrottle = t.GetBool("async.throttle", o.AsyncThrottle)
	o.AsyncClearOnDisconnect = t.GetBool("async.clearondisconnect", o.AsyncClearOnDisconnect)

	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// parseBoolLoose accepts the same spellings lookup.Table.GetBool does,
// reporting whether s parsed as a boolean at all (used to distinguish the
// legacy "backlog=false" spelling from "backlog=4096").
func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}
