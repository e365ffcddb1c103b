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

// Package certs builds the *tls.Config the cloud protocol wraps its TCP
// connection in (§4.5 "tls.enabled", "tls.certificate.location/filepath").
// It is a trimmed, adapted copy of nabbar-golib/certificates's Config/rootca
// shape (certificates/config.go, certificates/rootca.go): this module needs
// only a client-trust certificate pool and a minimum TLS version, not the
// teacher's full cipher/curve/client-auth surface, since the cloud protocol
// is always a TLS client dialing one fixed receiver.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"embed"
	"fmt"
	"os"
)

// Location selects where the client-trust certificate is read from, mapping
// to the cloud protocol's "tls.certificate.location" option (§4.5).
type Location uint8

const (
	// LocationResource reads the certificate from a packaged embed.FS
	// (the option's "resource" value, and the default).
	LocationResource Location = iota
	// LocationFile reads the certificate from a filesystem path.
	LocationFile
)

// ParseLocation maps the option string to a Location, defaulting to
// LocationResource for "resource" or any unrecognized value.
func ParseLocation(s string) Location {
	if s == "file" {
		return LocationFile
	}
	return LocationResource
}

// Config builds a *tls.Config for the cloud protocol's TLS 1.2 connection.
type Config struct {
	Location Location
	Filepath string  // used when Location == LocationFile
	Resource embed.FS // used when Location == LocationResource
	ServerName string
}

// Build assembles a client *tls.Config trusting the configured certificate,
// with TLS 1.2 as the floor version (§4.5's "TLS 1.2 with a client-trust
// certificate resolved from either a packaged resource or a filesystem
// path").
func (c Config) Build() (*tls.Config, error) {
	pem, err := c.readPEM()
	if err != nil {
		return nil, err
	}

	var pool *x509.CertPool
	if len(pem) > 0 {
		pool = x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("certs: could not parse client-trust certificate")
		}
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
		ServerName: c.ServerName,
	}, nil
}

func (c Config) readPEM() ([]byte, error) {
	switch c.Location {
	case LocationFile:
		if c.Filepath == "" {
			return nil, nil
		}
		return os.ReadFile(c.Filepath)
	default:
		path := c.Filepath
		if path == "" {
			path = "client.pem"
		}
		data, err := c.Resource.ReadFile(path)
		if err != nil {
			// No packaged certificate: fall back to the system trust store
			// rather than failing the connection outright.
			return nil, nil
		}
		return data, nil
	}
}
