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

package dispatcher

import (
	"fmt"

	"github.com/nabbar/siwire/connstring"
	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/internal/ctxstore"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/protocol"
	"github.com/nabbar/siwire/protocol/cloud"
	"github.com/nabbar/siwire/protocol/file"
	"github.com/nabbar/siwire/protocol/mem"
	"github.com/nabbar/siwire/protocol/pipe"
	"github.com/nabbar/siwire/protocol/tcp"
	"github.com/nabbar/siwire/vars"
)

// ProtocolBuilder constructs a concrete Protocol from one parsed
// connstring.ProtocolSpec, mirroring protocols/protocol_factory.py's
// name-to-class lookup: where the source looks up a class and calls
// initialize(options), a builder here parses the common options plus its
// own option surface and returns the ready-to-register Protocol.
type ProtocolBuilder func(spec connstring.ProtocolSpec, log siplog.Logger, onError protocol.ErrorListener) (Protocol, error)

// builders holds the name->ProtocolBuilder lookup protocols/protocol_factory.py
// keeps as a class-level dict behind a lock; ctxstore.Store gives the same
// concurrency-safe load/store without rolling a second mutex-guarded map
// (internal/ctxstore, supplemented from nabbar-golib/context+atomic).
var builders = ctxstore.New[string]()

func init() {
	RegisterProtocolBuilder("pipe", buildPipe)
	RegisterProtocolBuilder("file", buildFile(false))
	RegisterProtocolBuilder("text", buildFile(true))
	RegisterProtocolBuilder("mem", buildMem)
	RegisterProtocolBuilder("tcp", buildTCP)
	RegisterProtocolBuilder("cloud", buildCloud)
}

// RegisterProtocolBuilder adds or overrides the builder used for name,
// matching protocols/protocol_factory.py's register_protocol classmethod.
// Intended for tests and for embedding a custom transport without forking
// this package.
func RegisterProtocolBuilder(name string, b ProtocolBuilder) {
	builders.Store(name, b)
}

func lookupBuilder(name string) (ProtocolBuilder, bool) {
	v, ok := builders.Load(name)
	if !ok {
		return nil, false
	}
	b, ok := v.(ProtocolBuilder)
	return b, ok
}

func buildPipe(spec connstring.ProtocolSpec, log siplog.Logger, onError protocol.ErrorListener) (Protocol, error) {
	base, err := protocol.ParseOptions(spec.Options, pipe.KnownKeys, protocol.DefaultDefaults)
	if err != nil {
		return nil, err
	}
	opts, err := pipe.ParseOptions(spec.Options)
	if err != nil {
		return nil, err
	}
	return pipe.New(opts, base, log, onError), nil
}

// buildFile returns a builder fixed to asText, covering both the "file" and
// "text" connection-string protocol names (§4.6: one implementation, two
// formatter choices).
func buildFile(asText bool) ProtocolBuilder {
	name := "file"
	if asText {
		name = "text"
	}
	return func(spec connstring.ProtocolSpec, log siplog.Logger, onError protocol.ErrorListener) (Protocol, error) {
		base, err := protocol.ParseOptions(spec.Options, file.KnownKeys, protocol.DefaultDefaults)
		if err != nil {
			return nil, err
		}
		opts, err := file.ParseOptions(spec.Options, asText)
		if err != nil {
			return nil, err
		}
		return file.New(name, opts, base, log, onError), nil
	}
}

func buildMem(spec connstring.ProtocolSpec, log siplog.Logger, onError protocol.ErrorListener) (Protocol, error) {
	base, err := protocol.ParseOptions(spec.Options, mem.KnownKeys, protocol.DefaultDefaults)
	if err != nil {
		return nil, err
	}
	opts, err := mem.ParseOptions(spec.Options)
	if err != nil {
		return nil, err
	}
	return mem.New(opts, base, log, onError), nil
}

func buildTCP(spec connstring.ProtocolSpec, log siplog.Logger, onError protocol.ErrorListener) (Protocol, error) {
	base, err := protocol.ParseOptions(spec.Options, tcp.KnownKeys, protocol.DefaultDefaults)
	if err != nil {
		return nil, err
	}
	opts, err := tcp.ParseOptions(spec.Options)
	if err != nil {
		return nil, err
	}
	return tcp.New(opts, base, log, onError), nil
}

func buildCloud(spec connstring.ProtocolSpec, log siplog.Logger, onError protocol.ErrorListener) (Protocol, error) {
	base, err := protocol.ParseOptions(spec.Options, cloud.KnownKeys, cloud.Defaults)
	if err != nil {
		return nil, err
	}
	opts, err := cloud.ParseOptions(spec.Options)
	if err != nil {
		return nil, err
	}
	return cloud.New(opts, base, log, onError), nil
}

// BuildFromConnections parses connections (after $name$ substitution via vt,
// vars.Default() when nil) and constructs and registers one Protocol per
// clause, mirroring smartinspect.py's __create_connections together with
// protocol_factory.py's name lookup. Each protocol's error listener
// re-reports through d.ReportError tagged with its clause name, the same
// aggregation AddErrorListener callers already observe.
func (d *Dispatcher) BuildFromConnections(connections string, vt *vars.Table, listeners ...connstring.ParserListener) error {
	specs, err := connstring.Parse(connections, vt, listeners...)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		b, ok := lookupBuilder(spec.Name)
		if !ok {
			return errs.New(errs.Configuration, fmt.Sprintf("dispatcher: no protocol builder registered for %q", spec.Name))
		}

		name := spec.Name
		onError := func(err error) { d.ReportError(name, err) }

		proto, err := b(spec, d.log, onError)
		if err != nil {
			return err
		}
		d.AddProtocol(name, proto)
	}
	return nil
}
