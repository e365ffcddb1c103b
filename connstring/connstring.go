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

// Package connstring implements the connection-string grammar of §6.1:
// "proto(opt=val,...), proto(...)" split into per-protocol ProtocolSpec
// values, with $name$ variable substitution performed before parsing (C11).
package connstring

import (
	"fmt"
	"strings"

	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/vars"
)

// ProtocolSpec is one parsed "name(opt=val,...)" clause.
type ProtocolSpec struct {
	Name    string
	Options *lookup.Table
}

// ParserListener is fired once per parsed clause before its Options table is
// handed to a protocol constructor, letting a caller observe or veto option
// parsing (SPEC_FULL.md supplemented feature #2, options_parser_listener.py).
// Returning a non-nil error aborts parsing of the whole connection string.
type ParserListener func(spec ProtocolSpec) error

var knownProtocols = map[string]bool{
	"pipe":  true,
	"file":  true,
	"mem":   true,
	"tcp":   true,
	"text":  true,
	"cloud": true,
}

// Parse splits a connections string into ProtocolSpecs. $name$ tokens are
// substituted from vt (vars.Default() if nil) before grammar parsing, per
// §6.1. listeners fire, in registration order, once per successfully parsed
// clause.
func Parse(connections string, vt *vars.Table, listeners ...ParserListener) ([]ProtocolSpec, error) {
	if vt == nil {
		vt = vars.Default()
	}
	expanded := vt.Expand(connections)

	clauses, err := splitClauses(expanded)
	if err != nil {
		return nil, err
	}

	specs := make([]ProtocolSpec, 0, len(clauses))
	for _, c := range clauses {
		spec, err := parseClause(c)
		if err != nil {
			return nil, err
		}
		for _, l := range listeners {
			if err := l(spec); err != nil {
				return nil, errs.New(errs.Configuration, fmt.Sprintf("connstring: listener rejected %q", spec.Name), err)
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// splitClauses splits "name(...), name(...)" into the raw clause strings,
// respecting nested parens (never, per grammar) and quoted commas.
func splitClauses(s string) ([]string, error) {
	var out []string
	depth := 0
	inQuote := false
	start := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '(':
			if !inQuote {
				depth++
			}
		case ')':
			if !inQuote {
				depth--
				if depth < 0 {
					return nil, errs.New(errs.Configuration, "connstring: unbalanced parentheses")
				}
			}
		case ',':
			if !inQuote && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, errs.New(errs.Configuration, "connstring: unterminated quoted value")
	}
	if depth != 0 {
		return nil, errs.New(errs.Configuration, "connstring: unbalanced parentheses")
	}

	last := strings.TrimSpace(s[start:])
	if last != "" {
		out = append(out, s[start:])
	}

	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out, nil
}

func parseClause(clause string) (ProtocolSpec, error) {
	open := strings.IndexByte(clause, '(')
	if open < 0 || !strings.HasSuffix(clause, ")") {
		return ProtocolSpec{}, errs.New(errs.Configuration, fmt.Sprintf("connstring: malformed protocol clause %q", clause))
	}

	name := strings.ToLower(strings.TrimSpace(clause[:open]))
	if !knownProtocols[name] {
		return ProtocolSpec{}, errs.New(errs.Configuration, fmt.Sprintf("connstring: unknown protocol %q", name))
	}

	body := clause[open+1 : len(clause)-1]
	opts, err := parseOptions(body)
	if err != nil {
		return ProtocolSpec{}, err
	}

	return ProtocolSpec{Name: name, Options: opts}, nil
}

// parseOptions splits "key=val,key=val" respecting quoted values, where a
// quoted value may itself contain commas and escapes a literal '"' as `""`.
func parseOptions(body string) (*lookup.Table, error) {
	t := lookup.New()
	pairs, err := splitOptionPairs(body)
	if err != nil {
		return nil, err
	}

	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			return nil, errs.New(errs.Configuration, fmt.Sprintf("connstring: malformed option %q", p))
		}
		key := strings.TrimSpace(p[:eq])
		raw := strings.TrimSpace(p[eq+1:])
		val, err := unquote(raw)
		if err != nil {
			return nil, err
		}
		t.Put(key, val)
	}
	return t, nil
}

func splitOptionPairs(body string) ([]string, error) {
	var out []string
	inQuote := false
	start := 0

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '"':
			if inQuote && i+1 < len(body) && body[i+1] == '"' {
				i++ // escaped quote inside quoted value
				continue
			}
			inQuote = !inQuote
		case ',':
			if !inQuote {
				out = append(out, body[start:i])
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, errs.New(errs.Configuration, "connstring: unterminated quoted value")
	}
	if rest := body[start:]; strings.TrimSpace(rest) != "" || len(out) == 0 {
		out = append(out, rest)
	}
	return out, nil
}

// unquote strips a surrounding '"..."' and collapses `""` escapes to a
// single literal quote, per §6.1's value grammar. A value with no
// surrounding quotes passes through unchanged.
func unquote(raw string) (string, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return raw, nil
	}
	inner := raw[1 : len(raw)-1]
	return strings.ReplaceAll(inner, `""`, `"`), nil
}
