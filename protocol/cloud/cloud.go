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

// Package cloud implements C10, the most intricate sink (§4.5): a TCP+TLS
// connection to a cloud packet receiver, packing small packets into
// size/age-bounded Chunk packets, rotating a synthetic virtual-file identity
// by size or calendar period, and reacting to the server's tiered
// accept/warn/reconnect-allowed/reconnect-forbidden replies. It builds on
// the same binary-envelope writer every other sink uses (wire/binary) and on
// the certs package for its TLS client configuration.
package cloud

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/siwire/certs"
	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/protocol"
	"github.com/nabbar/siwire/wire/binary"
)

const (
	defaultRegion = "eu-central-1"

	defaultChunkMaxSizeKB = 395
	minChunkMaxSizeKB     = 10
	maxChunkMaxSizeKB     = 395

	defaultChunkMaxAgeMS = 1000
	minChunkMaxAgeMS     = 500

	defaultVFMaxSizeMB = 1
	minVFMaxSizeMB     = 1
	maxVFMaxSizeMB     = 50

	defaultTLSCertLocation = "resource"
	defaultTLSCertFilepath = "client.pem"

	defaultPort        = 443
	defaultDialTimeout = 30 * time.Second

	maxCustomLabelPairs    = 5
	maxCustomLabelFieldLen = 100

	chunkAgeCheckInterval = 100 * time.Millisecond

	clientBanner = "siwire cloud client v1\n"
)

// cloudPreface is the constant 4-byte preface prepended to every packet
// written to the server, independent of the envelope framing (§4.5
// "Handshake").
var cloudPreface = [4]byte{0x29, 0x17, 0x73, 0x50}

// LabelPair is one parsed "name=value" entry from the customlabels option
// (§4.5 "Custom labels").
type LabelPair struct {
	Name  string
	Value string
}

// Options is the cloud protocol's own option surface (§4.5), layered on top
// of protocol.Options.
type Options struct {
	WriteKey     string
	CustomLabels []LabelPair
	Region       string
	Host         string // when empty, synthesized from Region
	Port         int

	AppName  string
	HostName string

	ChunkingEnabled bool
	ChunkMaxSize    int64         // bytes, clamped [10KB, 395KB]
	ChunkMaxAge     time.Duration // floor 500ms

	MaxSize int64 // virtual-file size, bytes, clamped [1MB, 50MB]
	Rotate  lookup.Rotate

	TLSEnabled      bool
	TLSCertLocation string
	TLSCertFilepath string
}

// KnownKeys is the extra option surface ParseOptions (protocol package)
// accepts for this protocol.
var KnownKeys = map[string]bool{
	"writekey":                 true,
	"customlabels":             true,
	"region":                   true,
	"host":                     true,
	"port":                     true,
	"appname":                  true,
	"hostname":                 true,
	"chunking.enabled":         true,
	"chunking.maxsize":         true,
	"chunking.maxagems":        true,
	"maxsize":                  true,
	"rotate":                   true,
	"tls.enabled":              true,
	"tls.certificate.location": true,
	"tls.certificate.filepath": true,
}

// Defaults is the protocol.Defaults the cloud protocol uses for the common
// options: async.queue defaults to 20 MB here instead of the base 2 KB
// (§4.2 "async.queue... cloud overrides to 20 MB").
var Defaults = protocol.Defaults{
	BacklogQueueKB:  protocol.DefaultDefaults.BacklogQueueKB,
	BacklogFlushOn:  protocol.DefaultDefaults.BacklogFlushOn,
	AsyncQueueBytes: 20 * 1024 * 1024,
}

func clampI64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseOptions reads the cloud-specific keys out of t, applying every
// clamp/default/floor described in §4.5.
func ParseOptions(t *lookup.Table) (Options, error) {
	o := Options{}

	o.WriteKey = t.GetString("writekey", "")
	o.CustomLabels = parseCustomLabels(t.GetString("customlabels", ""))
	o.Region = t.GetString("region", defaultRegion)
	o.Host = t.GetString("host", "")
	o.Port = t.GetInt("port", defaultPort)
	o.AppName = t.GetString("appname", "")
	o.HostName = t.GetString("hostname", "")

	o.ChunkingEnabled = t.GetBool("chunking.enabled", true)
	o.ChunkMaxSize = clampI64(t.GetSize("chunking.maxsize", defaultChunkMaxSizeKB), minChunkMaxSizeKB*1024, maxChunkMaxSizeKB*1024)

	ageMS := int64(t.GetInt("chunking.maxagems", defaultChunkMaxAgeMS))
	if ageMS < minChunkMaxAgeMS {
		ageMS = minChunkMaxAgeMS
	}
	o.ChunkMaxAge = time.Duration(ageMS) * time.Millisecond

	o.MaxSize = clampI64(t.GetSize("maxsize", defaultVFMaxSizeMB*1024), minVFMaxSizeMB*1024*1024, maxVFMaxSizeMB*1024*1024)
	o.Rotate = t.GetRotate("rotate", lookup.NoRotate)

	o.TLSEnabled = t.GetBool("tls.enabled", true)
	o.TLSCertLocation = t.GetString("tls.certificate.location", defaultTLSCertLocation)
	o.TLSCertFilepath = t.GetString("tls.certificate.filepath", defaultTLSCertFilepath)

	return o, nil
}

// parseCustomLabels implements §4.5's "name=value;name=value;..." grammar:
// at most 5 surviving pairs, each component trimmed, names/values over 100
// chars dropped entirely (not truncated).
func parseCustomLabels(raw string) []LabelPair {
	if raw == "" {
		return nil
	}
	var out []LabelPair
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(part[:eq])
		value := strings.TrimSpace(part[eq+1:])
		if len(name) > maxCustomLabelFieldLen || len(value) > maxCustomLabelFieldLen {
			continue
		}
		out = append(out, LabelPair{Name: name, Value: value})
		if len(out) >= maxCustomLabelPairs {
			break
		}
	}
	return out
}

func formatCustomLabels(pairs []LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.Name+"="+p.Value)
	}
	return strings.Join(parts, ";")
}

// chunkState is one in-progress Chunk accumulation: the concatenated,
// fully-serialized inner packet envelopes, the running packet count, and
// the timestamp of the first packet added (for the age-based flush, §4.5).
type chunkState struct {
	buf   bytes.Buffer
	count int32
	first time.Time
}

// Protocol is the cloud sink.
type Protocol struct {
	*protocol.Base

	opts    Options
	log     siplog.Logger
	certCfg certs.Config

	mu               sync.Mutex
	conn             net.Conn
	rw               *bufio.ReadWriter
	reconnectAllowed bool

	vfID    string
	vfBytes int64

	rotateTracker *protocol.RotateTracker
	chunk         *chunkState

	flushStop chan struct{}
}

// New builds a cloud Protocol. tcpFamily is always true: the base's
// requeue-on-failure (gated by ReconnectAllowed, see scheduler.ReconnectGate)
// and 1-deep staging buffer apply (§4.1, §4.5).
func New(opts Options, baseOpts protocol.Options, log siplog.Logger, onError protocol.ErrorListener) *Protocol {
	if log == nil {
		log = siplog.Default()
	}
	p := &Protocol{
		opts:             opts,
		log:              log,
		reconnectAllowed: true,
		rotateTracker:    protocol.NewRotateTracker(opts.Rotate),
	}
	p.certCfg = certs.Config{
		Location:   certs.ParseLocation(opts.TLSCertLocation),
		Filepath:   opts.TLSCertFilepath,
		ServerName: p.hostOnly(),
	}
	p.Base = protocol.NewBase("cloud", p, baseOpts, true, log, onError)
	return p
}

func (p *Protocol) hostOnly() string {
	if p.opts.Host != "" {
		return p.opts.Host
	}
	return fmt.Sprintf("packet-receiver.%s.cloud.smartinspect.com", p.opts.Region)
}

func (p *Protocol) address() string {
	port := p.opts.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", p.hostOnly(), port)
}

func (p *Protocol) hostnameTag() string {
	if p.opts.HostName != "" {
		return p.opts.HostName
	}
	return "unknown"
}

func (p *Protocol) appNameTag() string {
	if p.opts.AppName != "" {
		return p.opts.AppName
	}
	return "siwire"
}

// InternalConnect dials the cloud receiver (optionally through TLS 1.2),
// runs the client-first banner handshake (§4.5 reverses the plain-TCP
// order), mints the start-up virtual-file UUID, sends its LogHeader, and
// starts the 100ms chunk-age flush timer.
func (p *Protocol) InternalConnect() error {
	addr := p.address()
	d := net.Dialer{Timeout: defaultDialTimeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return errs.NewProtocol("cloud", fmt.Sprintf("connect to %s failed", addr), err)
	}

	if p.opts.TLSEnabled {
		tlsCfg, cErr := p.certCfg.Build()
		if cErr != nil {
			_ = conn.Close()
			return errs.NewProtocol("cloud", "tls configuration failed", cErr)
		}
		tconn := tls.Client(conn, tlsCfg)
		if hErr := tconn.Handshake(); hErr != nil {
			_ = conn.Close()
			return errs.NewProtocol("cloud", "tls handshake failed", hErr)
		}
		conn = tconn
	}

	p.mu.Lock()
	p.conn = conn
	p.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	p.mu.Unlock()

	if err := p.doHandshake(); err != nil {
		_ = conn.Close()
		p.mu.Lock()
		p.conn, p.rw = nil, nil
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.reconnectAllowed = true
	p.vfID = uuid.NewString()
	p.vfBytes = 0
	hdr := p.logHeaderContentLocked()
	p.mu.Unlock()

	if err := p.sendRaw(packet.New(level.Control, &packet.LogHeader{Content: hdr})); err != nil {
		return err
	}

	p.startAgeFlusher()
	return nil
}

// doHandshake sends the client banner first, then reads the server banner:
// the reverse of the plain TCP/pipe protocols' server-first order (§4.5
// "Handshake").
func (p *Protocol) doHandshake() error {
	if _, err := p.rw.WriteString(clientBanner); err != nil {
		return errs.NewProtocol("cloud", "could not send client banner", err)
	}
	if err := p.rw.Flush(); err != nil {
		return errs.NewProtocol("cloud", "could not send client banner", err)
	}
	if _, err := p.rw.ReadString('\n'); err != nil {
		return errs.NewProtocol("cloud", "could not read server banner: connection closed unexpectedly", err)
	}
	return nil
}

// logHeaderContentLocked builds the CRLF key=value block carried by every
// LogHeader this protocol emits (§3 LogHeader, §4.5 "writekey,
// virtualfileid, customlabels"). Caller must hold p.mu.
func (p *Protocol) logHeaderContentLocked() string {
	var b strings.Builder
	b.WriteString("hostname=" + p.hostnameTag() + "\r\n")
	b.WriteString("appname=" + p.appNameTag() + "\r\n")
	b.WriteString("writekey=" + p.opts.WriteKey + "\r\n")
	b.WriteString("virtualfileid=" + p.vfID + "\r\n")
	if cl := formatCustomLabels(p.opts.CustomLabels); cl != "" {
		b.WriteString("customlabels=" + cl + "\r\n")
	}
	return b.String()
}

// InternalReconnect implements §4.5's tiered short-circuit: once a
// ReconnectForbidden reply has been seen, every subsequent reconnect
// attempt fails immediately without dialing, matching the
// [CLOSED_PERMANENT] state in the cloud state machine.
func (p *Protocol) InternalReconnect() error {
	p.mu.Lock()
	allowed := p.reconnectAllowed
	p.mu.Unlock()
	if !allowed {
		return errs.New(errs.CloudReconnectForbidden, "cloud: reconnect forbidden by server")
	}
	return p.InternalConnect()
}

// ReconnectAllowed satisfies scheduler.ReconnectGate: once false, the
// scheduler worker stops requeueing failed writes for this protocol (§4.5
// "For the cloud protocol, requeue only happens if the protocol permits
// reconnects").
func (p *Protocol) ReconnectAllowed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reconnectAllowed
}

// InternalWritePacket implements §4.5's per-packet pipeline: virtual-file
// rotation check first, then LogHeader/chunking-disabled packets go out
// raw, everything else feeds the chunk engine. On success, the packet's
// serialized size is added to the running virtual-file byte counter so
// maybeRotate's accumulated-size comparison (§4.5 "Virtual file... check if
// its addition would exceed the virtual-file max size") actually has
// something to compare against on the next call.
func (p *Protocol) InternalWritePacket(pkt *packet.Packet) error {
	body, err := binary.Encode(pkt)
	if err != nil {
		return errs.NewProtocol("cloud", "encode failed", err)
	}

	if err := p.maybeRotate(int64(len(body))); err != nil {
		return err
	}

	if pkt.Kind() == packet.KindLogHeader || !p.opts.ChunkingEnabled {
		if err := p.sendRaw(pkt); err != nil {
			return err
		}
	} else if err := p.addToChunk(pkt, body); err != nil {
		return err
	}

	p.mu.Lock()
	p.vfBytes += int64(len(body))
	p.mu.Unlock()
	return nil
}

// maybeRotate implements §4.5's "Virtual file" rotation trigger: either
// adding the current packet would cross maxsize, or the calendar-period
// rotater reports a boundary since the last rotation.
func (p *Protocol) maybeRotate(incoming int64) error {
	p.mu.Lock()
	need := (p.opts.MaxSize > 0 && p.vfBytes+incoming > p.opts.MaxSize) || p.rotateTracker.Check(time.Now())
	p.mu.Unlock()
	if !need {
		return nil
	}
	return p.rotateVirtualFile()
}

// rotateVirtualFile flushes any open chunk, mints a fresh UUID, resets the
// byte counter, and writes a fresh LogHeader out-of-band carrying the new
// virtualfileid (§4.5 "On rotation").
func (p *Protocol) rotateVirtualFile() error {
	if err := p.flushChunk(); err != nil {
		return err
	}
	p.mu.Lock()
	p.vfID = uuid.NewString()
	p.vfBytes = 0
	hdr := p.logHeaderContentLocked()
	p.mu.Unlock()
	return p.sendRaw(packet.New(level.Control, &packet.LogHeader{Content: hdr}))
}

// addToChunk implements §4.5's "Chunking" steps 1-5.
func (p *Protocol) addToChunk(pkt *packet.Packet, body []byte) error {
	p.mu.Lock()
	if p.chunk == nil {
		p.chunk = &chunkState{}
	}
	limit := int(p.opts.ChunkMaxSize) - packet.KindChunk.HeaderSize()

	if p.chunk.buf.Len()+len(body) <= limit {
		if p.chunk.count == 0 {
			p.chunk.first = time.Now()
		}
		p.chunk.buf.Write(body)
		p.chunk.count++
		p.mu.Unlock()
		return nil
	}
	hasPending := p.chunk.count > 0
	p.mu.Unlock()

	if hasPending {
		if err := p.flushChunk(); err != nil {
			return err
		}
		return p.addToChunk(pkt, body)
	}

	// A single packet larger than the whole chunk budget: send it raw if it
	// still fits within the protocol's own chunk-size ceiling, else drop it
	// (§4.5 step 5).
	if len(body) <= int(p.opts.ChunkMaxSize) {
		return p.sendRaw(pkt)
	}
	p.log.Debugf("cloud: dropping packet of %d bytes, exceeds chunk max size %d", len(body), p.opts.ChunkMaxSize)
	return nil
}

// flushChunk emits the current chunk as a Chunk packet over the wire (if it
// holds at least one packet), then clears it.
func (p *Protocol) flushChunk() error {
	p.mu.Lock()
	if p.chunk == nil || p.chunk.count == 0 {
		p.chunk = nil
		p.mu.Unlock()
		return nil
	}
	c := p.chunk
	p.chunk = nil
	p.mu.Unlock()

	chunkPkt := packet.New(level.Control, &packet.Chunk{
		Format:      1,
		Count:       c.count,
		PayloadData: c.buf.Bytes(),
	})
	return p.sendRaw(chunkPkt)
}

// startAgeFlusher launches the 100ms periodic task that flushes the current
// chunk once it has aged past chunking.maxagems (§4.5, §8 scenario 5).
func (p *Protocol) startAgeFlusher() {
	p.mu.Lock()
	stop := make(chan struct{})
	p.flushStop = stop
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(chunkAgeCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.checkAgeFlush()
			}
		}
	}()
}

func (p *Protocol) checkAgeFlush() {
	p.mu.Lock()
	due := p.chunk != nil && p.chunk.count > 0 && time.Since(p.chunk.first) > p.opts.ChunkMaxAge
	p.mu.Unlock()
	if !due {
		return
	}
	if err := p.flushChunk(); err != nil {
		p.log.Debugf("cloud: age-triggered chunk flush failed: %v", err)
	}
}

func (p *Protocol) stopAgeFlusher() {
	p.mu.Lock()
	stop := p.flushStop
	p.flushStop = nil
	p.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// sendRaw writes pkt's full wire envelope prefixed by the 4-byte cloud
// preface, then reads and interprets the tiered server reply (§4.5, §6.2).
func (p *Protocol) sendRaw(pkt *packet.Packet) error {
	body, err := binary.Encode(pkt)
	if err != nil {
		return errs.NewProtocol("cloud", "encode failed", err)
	}
	return p.sendBytes(body)
}

func (p *Protocol) sendBytes(body []byte) error {
	p.mu.Lock()
	rw := p.rw
	p.mu.Unlock()
	if rw == nil {
		return errs.NewProtocol("cloud", "write attempted while disconnected")
	}

	if _, err := rw.Write(cloudPreface[:]); err != nil {
		return errs.NewProtocol("cloud", "write failed", err)
	}
	if _, err := rw.Write(body); err != nil {
		return errs.NewProtocol("cloud", "write failed", err)
	}
	if err := rw.Flush(); err != nil {
		return errs.NewProtocol("cloud", "flush failed", err)
	}

	answer, err := readAnswer(rw)
	if err != nil {
		return errs.NewProtocol("cloud", "could not read server answer: connection has been closed unexpectedly", err)
	}

	tier, msg := parseAnswer(answer)
	switch tier {
	case answerOK:
		return nil
	case answerWarning:
		p.log.Warnf("cloud: server warning: %s", msg)
		return nil
	case answerReconnectAllowed:
		p.log.Warnf("cloud: server requested reconnect: %s", msg)
		return errs.New(errs.CloudReconnectAllowed, msg)
	case answerReconnectForbidden:
		p.log.Warnf("cloud: server forbids reconnect: %s", msg)
		p.mu.Lock()
		p.reconnectAllowed = false
		p.mu.Unlock()
		return errs.New(errs.CloudReconnectForbidden, msg)
	default:
		return errs.NewProtocol("cloud", "unexpected server reply: "+msg)
	}
}

func readAnswer(rw *bufio.ReadWriter) (string, error) {
	line, err := rw.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type answerTier int

const (
	answerOK answerTier = iota
	answerWarning
	answerReconnectAllowed
	answerReconnectForbidden
	answerUnknown
)

// parseAnswer classifies a server reply into the tiers of §4.5 "Server
// replies".
func parseAnswer(s string) (answerTier, string) {
	switch {
	case s == "OK":
		return answerOK, ""
	case strings.HasPrefix(s, "SmartInspectProtocolExceptionReconnectAllowed"):
		return answerReconnectAllowed, trimAfterDash(s)
	case strings.HasPrefix(s, "SmartInspectProtocolExceptionReconnectForbidden"):
		return answerReconnectForbidden, trimAfterDash(s)
	case strings.HasPrefix(s, "SmartInspectProtocolExceptionWarning"):
		return answerWarning, trimAfterDash(s)
	default:
		return answerUnknown, s
	}
}

func trimAfterDash(s string) string {
	if i := strings.Index(s, " - "); i >= 0 {
		return s[i+3:]
	}
	return s
}

// InternalDisconnect stops the age flusher, best-effort flushes any
// in-progress chunk (§4.5 "Disconnect forces a flush with any remaining
// count > 0"), and closes the socket.
func (p *Protocol) InternalDisconnect() error {
	p.stopAgeFlusher()
	_ = p.flushChunk()

	p.mu.Lock()
	conn := p.conn
	p.conn, p.rw = nil, nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return errs.NewProtocol("cloud", "close failed", err)
	}
	return nil
}

// InternalDispatch is unsupported: dispatch is the memory protocol's
// operation (§4.6).
func (p *Protocol) InternalDispatch(state interface{}) error {
	return errs.New(errs.Configuration, "cloud: dispatch not supported")
}
