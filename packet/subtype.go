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

package packet

// EntryType is the LogEntry sub-type (log_entry_type.py), numbered exactly
// as the source so wire compatibility is preserved.
type EntryType int32

const (
	EntrySeparator       EntryType = 0
	EntryEnterMethod     EntryType = 1
	EntryLeaveMethod     EntryType = 2
	EntryResetCallstack  EntryType = 3
	EntryMessage         EntryType = 100
	EntryWarning         EntryType = 101
	EntryError           EntryType = 102
	EntryInternalError   EntryType = 103
	EntryComment         EntryType = 104
	EntryVariableValue   EntryType = 105
	EntryCheckpoint      EntryType = 106
	EntryDebug           EntryType = 107
	EntryVerbose         EntryType = 108
	EntryFatal           EntryType = 109
	EntryConditional     EntryType = 110
	EntryAssert          EntryType = 111
	EntryText            EntryType = 200
	EntryBinary          EntryType = 201
	EntryGraphic         EntryType = 202
	EntrySource          EntryType = 203
	EntryObject          EntryType = 204
	EntryWebContent      EntryType = 205
	EntrySystem          EntryType = 206
	EntryMemoryStatistic EntryType = 207
	EntryDatabaseResult  EntryType = 208
	EntryDatabaseStruct  EntryType = 209
)

// WatchType is the Watch packet's value-kind tag (packets/watch_type.py).
type WatchType int32

const (
	WatchStr       WatchType = 1
	WatchInt       WatchType = 2
	WatchFloat     WatchType = 3
	WatchBool      WatchType = 4
	WatchAddress   WatchType = 5
	WatchTimestamp WatchType = 6
	WatchObject    WatchType = 7
)

// ControlType is the ControlCommand sub-kind
// (packets/control_command_type.py).
type ControlType int32

const (
	ControlClearLog         ControlType = 0
	ControlClearWatches     ControlType = 1
	ControlClearAutoViews   ControlType = 2
	ControlClearAll         ControlType = 3
	ControlClearProcessFlow ControlType = 4
)

// FlowType is the ProcessFlow sub-kind (process_flow_type.py).
type FlowType int32

const (
	FlowEnterMethod  FlowType = 0
	FlowLeaveMethod  FlowType = 1
	FlowEnterThread  FlowType = 2
	FlowLeaveThread  FlowType = 3
	FlowEnterProcess FlowType = 4
	FlowLeaveProcess FlowType = 5
)

// ViewerID is the UI hint accompanying a LogEntry; the binary value is an
// opaque integer interpreted only by viewer-context formatters (out of
// scope, §1). This module treats it as a plain int32.
type ViewerID int32
