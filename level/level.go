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

// Package level defines the packet severity levels shared by every protocol
// and formatter in the transport subsystem.
package level

import "strings"

// Level orders packet severity from the most verbose to the most severe, with
// Control standing apart as a housekeeping pseudo-level that bypasses backlog
// flush-threshold comparisons.
type Level uint8

const (
	Debug Level = iota
	Verbose
	Message
	Warning
	Error
	Fatal
	Control
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Verbose:
		return "VERBOSE"
	case Message:
		return "MESSAGE"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	case Control:
		return "CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Parse maps a case-insensitive level name to its Level, defaulting to Message
// when the name is not recognized.
func Parse(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return Debug
	case "VERBOSE":
		return Verbose
	case "MESSAGE":
		return Message
	case "WARNING", "WARN":
		return Warning
	case "ERROR":
		return Error
	case "FATAL":
		return Fatal
	case "CONTROL":
		return Control
	default:
		return Message
	}
}

// Logrus maps a Level to the nearest logrus severity, for callers that want
// a packet's own level to drive a logrus logger's level.
func (l Level) Logrus() uint32 {
	switch l {
	case Debug:
		return 5 // logrus.DebugLevel
	case Verbose:
		return 6 // logrus.TraceLevel
	case Message:
		return 4 // logrus.InfoLevel
	case Warning:
		return 3 // logrus.WarnLevel
	case Error:
		return 2 // logrus.ErrorLevel
	case Fatal:
		return 0 // logrus.PanicLevel
	default:
		return 4
	}
}
