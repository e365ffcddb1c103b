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

package text

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nabbar/siwire/packet"
)

// DefaultPattern mirrors text_formatter.py's fallback pattern.
const DefaultPattern = "$timestamp$ $level,-8$: $title$"

const defaultTimestampFormat = "2006-01-02 15:04:05.000000"

// Formatter renders LogEntry packets to the pattern-expanded text line
// described in §4.4; every other packet kind compiles to zero bytes.
type Formatter struct {
	parser      *Parser
	tsFormat    string // Go reference-time layout derived from the strftime-like default
	appName     string
	sessionName string
	hostName    string
}

// NewFormatter builds a Formatter with the given pattern (DefaultPattern if
// empty) and indentation enabled or disabled per caller preference.
func NewFormatter(pattern string, indent bool) *Formatter {
	if pattern == "" {
		pattern = DefaultPattern
	}
	p := NewParser()
	p.SetPattern(pattern)
	p.SetIndent(indent)
	return &Formatter{parser: p, tsFormat: defaultTimestampFormat}
}

func (f *Formatter) SetAppName(s string)     { f.appName = s }
func (f *Formatter) SetSessionName(s string) { f.sessionName = s }
func (f *Formatter) SetHostName(s string)    { f.hostName = s }

// SetTimestampFormat installs a Go reference-time layout used to render the
// timestamp token; the zero value keeps the microsecond-precision default.
func (f *Formatter) SetTimestampFormat(layout string) {
	if layout == "" {
		layout = defaultTimestampFormat
	}
	f.tsFormat = layout
}

// Compile renders p. LogEntry packets expand the pattern followed by "\r\n";
// any other kind produces nil, matching §4.4's "compiles to zero bytes" rule.
// ENTER_METHOD/LEAVE_METHOD log entries additionally adjust the indent level
// the way pattern_parser.py does: decrement happens before expansion on
// LEAVE_METHOD, increment happens after expansion on ENTER_METHOD.
func (f *Formatter) Compile(p *packet.Packet) []byte {
	e, ok := p.Body().(*packet.LogEntry)
	if !ok {
		return nil
	}

	if f.parser.Indent() && e.SubType == packet.EntryLeaveMethod && f.parser.indentLevel > 0 {
		f.parser.indentLevel--
	}

	line := f.expand(e)

	if f.parser.Indent() && e.SubType == packet.EntryEnterMethod {
		f.parser.indentLevel++
	}

	line += "\r\n"
	return []byte(line)
}

func (f *Formatter) expand(e *packet.LogEntry) string {
	var sb strings.Builder

	if f.parser.Indent() && f.parser.indentLevel > 0 {
		sb.WriteString(strings.Repeat("   ", f.parser.indentLevel))
	}

	for _, tok := range f.parser.tokens {
		if tok.kind == tokLiteral {
			sb.WriteString(tok.literal)
			continue
		}
		sb.WriteString(pad(f.expandVariable(tok, e), tok.width))
	}

	return sb.String()
}

func (f *Formatter) expandVariable(tok token, e *packet.LogEntry) string {
	switch tok.name {
	case "appname":
		return orFallback(e.AppName, f.appName)
	case "session":
		return orFallback(e.SessionName, f.sessionName)
	case "hostname":
		return orFallback(e.HostName, f.hostName)
	case "level":
		return entryLevelName(e.SubType)
	case "logentrytype":
		return entryTypeName(e.SubType)
	case "process":
		return strconv.Itoa(int(e.Pid))
	case "thread":
		return strconv.Itoa(int(e.Tid))
	case "timestamp":
		return f.formatTimestamp(e.TimestampUS, tok.options)
	case "title":
		return e.Title
	case "color":
		return fmt.Sprintf("0x%08X", uint32(e.Color.Int32()))
	case "viewerid":
		return strconv.Itoa(int(e.Viewer))
	default:
		return ""
	}
}

func orFallback(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// formatTimestamp converts microseconds-since-epoch to a formatted string;
// options, when present, is taken as a Go reference-time layout overriding
// the formatter-wide default for this one token occurrence.
func (f *Formatter) formatTimestamp(micros int64, options string) string {
	layout := f.tsFormat
	if options != "" {
		layout = options
	}
	t := time.UnixMicro(micros).UTC()
	return t.Format(layout)
}

// entryLevelName maps a LogEntry sub-type to the severity word the $level$
// token expands to: message-family sub-types resolve through their natural
// name, everything else (method markers, watches-adjacent types) falls back
// to "MESSAGE" per text_formatter.py's level mapping.
func entryLevelName(t packet.EntryType) string {
	switch t {
	case packet.EntryDebug:
		return "DEBUG"
	case packet.EntryVerbose:
		return "VERBOSE"
	case packet.EntryWarning:
		return "WARNING"
	case packet.EntryError, packet.EntryInternalError:
		return "ERROR"
	case packet.EntryFatal:
		return "FATAL"
	default:
		return "MESSAGE"
	}
}

func entryTypeName(t packet.EntryType) string {
	switch t {
	case packet.EntrySeparator:
		return "Separator"
	case packet.EntryEnterMethod:
		return "EnterMethod"
	case packet.EntryLeaveMethod:
		return "LeaveMethod"
	case packet.EntryResetCallstack:
		return "ResetCallstack"
	case packet.EntryMessage:
		return "Message"
	case packet.EntryWarning:
		return "Warning"
	case packet.EntryError:
		return "Error"
	case packet.EntryInternalError:
		return "InternalError"
	case packet.EntryComment:
		return "Comment"
	case packet.EntryVariableValue:
		return "VariableValue"
	case packet.EntryCheckpoint:
		return "Checkpoint"
	case packet.EntryDebug:
		return "Debug"
	case packet.EntryVerbose:
		return "Verbose"
	case packet.EntryFatal:
		return "Fatal"
	case packet.EntryConditional:
		return "Conditional"
	case packet.EntryAssert:
		return "Assert"
	case packet.EntryText:
		return "Text"
	case packet.EntryBinary:
		return "Binary"
	case packet.EntryGraphic:
		return "Graphic"
	case packet.EntrySource:
		return "Source"
	case packet.EntryObject:
		return "Object"
	case packet.EntryWebContent:
		return "WebContent"
	case packet.EntrySystem:
		return "System"
	case packet.EntryMemoryStatistic:
		return "MemoryStatistic"
	case packet.EntryDatabaseResult:
		return "DatabaseResult"
	case packet.EntryDatabaseStruct:
		return "DatabaseStruct"
	default:
		return "Unknown"
	}
}
