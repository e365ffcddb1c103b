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

package vars

import "testing"

func TestExpand(t *testing.T) {
	tb := New()
	tb.Set("host", "localhost")
	tb.Set("port", "4228")

	got := tb.Expand("tcp(host=$host$,port=$port$)")
	want := "tcp(host=localhost,port=4228)"
	if got != want {
		t.Fatalf("Expand() = %q, want %q", got, want)
	}
}

func TestExpandUnknownLeftVerbatim(t *testing.T) {
	tb := New()
	got := tb.Expand("file(filename=$missing$)")
	want := "file(filename=$missing$)"
	if got != want {
		t.Fatalf("Expand() = %q, want %q", got, want)
	}
}

func TestExpandNoVariables(t *testing.T) {
	tb := New()
	s := "mem(astext=true)"
	if got := tb.Expand(s); got != s {
		t.Fatalf("Expand() = %q, want unchanged %q", got, s)
	}
}

func TestGetRemove(t *testing.T) {
	tb := New()
	tb.Set("a", "1")
	if v, ok := tb.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q,%v", v, ok)
	}
	tb.Remove("a")
	if _, ok := tb.Get("a"); ok {
		t.Fatalf("expected a removed")
	}
}
