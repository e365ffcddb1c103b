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

// Package text implements the text formatter and pattern parser (§4.4): the
// only packet kind it renders is LogEntry; every other kind compiles to zero
// bytes.
package text

import (
	"strconv"
	"strings"
)

// tokenKind distinguishes a literal run from a recognized variable.
type tokenKind uint8

const (
	tokLiteral tokenKind = iota
	tokVariable
)

var knownVariables = map[string]bool{
	"appname":      true,
	"session":      true,
	"hostname":     true,
	"level":        true,
	"logentrytype": true,
	"process":      true,
	"thread":       true,
	"timestamp":    true,
	"title":        true,
	"color":        true,
	"viewerid":     true,
}

type token struct {
	kind    tokenKind
	literal string // raw text for tokLiteral
	name    string // variable name, lower-cased, for tokVariable
	width   int
	options string
	indent  bool // variable tokens are indent-capable; literals are not
}

// Parser parses a pattern string into tokens and expands a LogEntry against
// them, tracking the ENTER_METHOD/LEAVE_METHOD indentation level (§4.4).
type Parser struct {
	pattern     string
	tokens      []token
	indentOn    bool
	indentLevel int
}

// NewParser returns a Parser with no pattern set (it holds no tokens, so a
// Formatter using it renders an empty line until SetPattern is called).
func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Pattern() string { return p.pattern }

// SetPattern sets and re-tokenizes the pattern string.
func (p *Parser) SetPattern(pattern string) {
	p.pattern = strings.TrimSpace(pattern)
	p.tokens = parseTokens(p.pattern)
}

func (p *Parser) Indent() bool      { return p.indentOn }
func (p *Parser) SetIndent(on bool) { p.indentOn = on }
func (p *Parser) IndentLevel() int  { return p.indentLevel }
func (p *Parser) ResetIndentLevel() { p.indentLevel = 0 }

// parseTokens tokenizes pattern into literal runs and $...$ variable runs.
// A variable run starts at '$' and ends at the next '$'; anything between
// (including commas and braces) is the token body. Unknown variable names
// degrade to a literal spanning the original delimiters, per §4.4.
func parseTokens(pattern string) []token {
	var out []token
	pos := 0
	n := len(pattern)

	flushLiteral := func(lit string) {
		if lit == "" {
			return
		}
		out = append(out, token{kind: tokLiteral, literal: lit})
	}

	var lit strings.Builder

	for pos < n {
		if pattern[pos] != '$' {
			lit.WriteByte(pattern[pos])
			pos++
			continue
		}

		// candidate variable run: find the next '$'
		end := strings.IndexByte(pattern[pos+1:], '$')
		if end < 0 {
			// no closing '$': treat the rest as literal
			lit.WriteString(pattern[pos:])
			pos = n
			break
		}
		body := pattern[pos+1 : pos+1+end]
		next := pos + 1 + end + 1

		if tok, ok := parseVariableBody(body); ok {
			flushLiteral(lit.String())
			lit.Reset()
			out = append(out, tok)
			pos = next
			continue
		}

		// unknown variable name: the whole "$body$" run is a literal
		lit.WriteString(pattern[pos:next])
		pos = next
	}

	flushLiteral(lit.String())
	return out
}

// parseVariableBody splits "name[,width][{options}]" and validates name
// against the known-variable table.
func parseVariableBody(body string) (token, bool) {
	name := body
	width := 0
	options := ""

	if i := strings.IndexByte(name, '{'); i >= 0 && strings.HasSuffix(name, "}") {
		options = name[i+1 : len(name)-1]
		name = name[:i]
	}

	if i := strings.IndexByte(name, ','); i >= 0 {
		wstr := strings.TrimSpace(name[i+1:])
		name = name[:i]
		if w, err := strconv.Atoi(wstr); err == nil {
			width = w
		}
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if !knownVariables[name] {
		return token{}, false
	}

	return token{kind: tokVariable, name: name, width: width, options: options, indent: true}, true
}

// pad applies §4.4's width rule: negative left-aligns (pad right to |w|),
// positive right-aligns, zero is untouched.
func pad(s string, width int) string {
	if width < 0 {
		w := -width
		if len(s) >= w {
			return s
		}
		return s + strings.Repeat(" ", w-len(s))
	}
	if width > 0 {
		if len(s) >= width {
			return s
		}
		return strings.Repeat(" ", width-len(s)) + s
	}
	return s
}
