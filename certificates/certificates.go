/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package certificates builds a crypto/tls.Config for the RIOC client
// channel from a declarative, marshalable Config: certificate pairs, trust
// anchors, cipher/curve preferences and the TLS version window. The client
// forces TLS 1.3 at the connection layer (see package tlsconn); this
// package stays general so the same Config shape also serves a test server
// or a future non-1.3 caller.
package certificates

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	libval "github.com/go-playground/validator/v10"

	tlsaut "github.com/hpkv-io/rioc/certificates/auth"
	tlscas "github.com/hpkv-io/rioc/certificates/ca"
	tlscrt "github.com/hpkv-io/rioc/certificates/certs"
	tlscpr "github.com/hpkv-io/rioc/certificates/cipher"
	tlscrv "github.com/hpkv-io/rioc/certificates/curves"
	tlsvrs "github.com/hpkv-io/rioc/certificates/tlsversion"
	liberr "github.com/hpkv-io/rioc/errors"
)

// Config is the declarative form of a TLS configuration, the shape read
// from a config file or bound through viper. Call New (or NewFrom, to
// layer it over an existing TLSConfig) to turn it into a usable TLSConfig.
type Config struct {
	Certs                []tlscrt.Certif   `mapstructure:"certs" json:"certs" yaml:"certs" toml:"certs" validate:"required,min=1,dive"`
	RootCA               []tlscas.Certif   `mapstructure:"rootCA" json:"rootCA" yaml:"rootCA" toml:"rootCA"`
	ClientCA             []tlscas.Certif   `mapstructure:"clientCA" json:"clientCA" yaml:"clientCA" toml:"clientCA"`
	CipherList           []tlscpr.Cipher   `mapstructure:"cipherList" json:"cipherList" yaml:"cipherList" toml:"cipherList"`
	CurveList            []tlscrv.Curves   `mapstructure:"curveList" json:"curveList" yaml:"curveList" toml:"curveList"`
	VersionMin           tlsvrs.Version    `mapstructure:"versionMin" json:"versionMin" yaml:"versionMin" toml:"versionMin"`
	VersionMax           tlsvrs.Version    `mapstructure:"versionMax" json:"versionMax" yaml:"versionMax" toml:"versionMax"`
	AuthClient           tlsaut.ClientAuth `mapstructure:"authClient" json:"authClient" yaml:"authClient" toml:"authClient"`
	InsecureSkipVerify   bool              `mapstructure:"insecureSkipVerify" json:"insecureSkipVerify" yaml:"insecureSkipVerify" toml:"insecureSkipVerify"`
	InheritDefault       bool              `mapstructure:"inheritDefault" json:"inheritDefault" yaml:"inheritDefault" toml:"inheritDefault"`
	DynamicSizingDisable bool              `mapstructure:"dynamicSizingDisable" json:"dynamicSizingDisable" yaml:"dynamicSizingDisable" toml:"dynamicSizingDisable"`
	SessionTicketDisable bool              `mapstructure:"sessionTicketDisable" json:"sessionTicketDisable" yaml:"sessionTicketDisable" toml:"sessionTicketDisable"`
}

// Validate reports malformed fields and the absence of any certificate
// pair; a RIOC client channel always presents a certificate even when
// InsecureSkipVerify leaves the server unauthenticated.
func (c *Config) Validate() liberr.Error {
	err := ErrorValidatorError.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		}

		if ve, ok := er.(libval.ValidationErrors); ok {
			for _, e := range ve {
				//nolint goerr113
				err.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag()))
			}
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

// Default is the package-wide fallback layered in by New when
// InheritDefault is set: TLS 1.3 only, peer verification on.
var Default TLSConfig = &config{
	tlsMinVersion: tlsvrs.VersionTLS13.TLS(),
	tlsMaxVersion: tlsvrs.VersionTLS13.TLS(),
	declared:      &Config{VersionMin: tlsvrs.VersionTLS13, VersionMax: tlsvrs.VersionTLS13},
}

// New builds a TLSConfig from the receiver, optionally layered over
// Default.
func (c *Config) New() TLSConfig {
	if c.InheritDefault {
		return c.NewFrom(Default)
	}

	return c.NewFrom(nil)
}

// NewFrom layers the receiver's non-zero fields over cfg (nil means build
// from scratch) and returns the merged, usable TLSConfig.
func (c *Config) NewFrom(cfg TLSConfig) TLSConfig {
	var t *Config

	if cfg != nil {
		t = cfg.Config()
	}

	if t == nil {
		t = &Config{}
	}

	if c.VersionMin != tlsvrs.VersionUnknown {
		t.VersionMin = c.VersionMin
	}

	if c.VersionMax != tlsvrs.VersionUnknown {
		t.VersionMax = c.VersionMax
	}

	if c.AuthClient != tlsaut.NoClientCert {
		t.AuthClient = c.AuthClient
	}

	if c.InsecureSkipVerify {
		t.InsecureSkipVerify = true
	}

	if c.DynamicSizingDisable {
		t.DynamicSizingDisable = true
	}

	if c.SessionTicketDisable {
		t.SessionTicketDisable = true
	}

	for _, a := range c.CipherList {
		if a.Check() {
			t.CipherList = append(t.CipherList, a)
		}
	}

	for _, a := range c.CurveList {
		if a.Check() {
			t.CurveList = append(t.CurveList, a)
		}
	}

	t.Certs = append(t.Certs, c.Certs...)
	t.RootCA = append(t.RootCA, c.RootCA...)
	t.ClientCA = append(t.ClientCA, c.ClientCA...)

	res := &config{
		clientAuth:            t.AuthClient.TLS(),
		insecureSkipVerify:    t.InsecureSkipVerify,
		tlsMinVersion:         t.VersionMin.TLS(),
		tlsMaxVersion:         t.VersionMax.TLS(),
		dynSizingDisabled:     t.DynamicSizingDisable,
		ticketSessionDisabled: t.SessionTicketDisable,
		declared:              t,
	}

	for _, a := range t.CipherList {
		res.cipherList = append(res.cipherList, a.TLS())
	}

	for _, a := range t.CurveList {
		res.curveList = append(res.curveList, a.TLS())
	}

	for i := range t.Certs {
		res.cert = append(res.cert, t.Certs[i].Cert().TLS())
	}

	for i := range t.RootCA {
		if res.caRoot == nil {
			res.caRoot = x509.NewCertPool()
		}
		t.RootCA[i].Cert().AppendPool(res.caRoot)
	}

	for i := range t.ClientCA {
		if res.clientCA == nil {
			res.clientCA = x509.NewCertPool()
		}
		t.ClientCA[i].Cert().AppendPool(res.clientCA)
	}

	return res
}

// TLSConfig is a built, ready-to-use TLS configuration. Unlike Config it
// is not marshalable: crypto/tls.Certificate and x509.CertPool hold
// parsed key material, not the PEM source.
type TLSConfig interface {
	// TLS renders a *tls.Config for a connection to serverName. serverName
	// may be a hostname or an IP literal; crypto/tls already omits the SNI
	// extension when ServerName parses as an IP, so no special casing is
	// needed here.
	TLS(serverName string) *tls.Config

	// Config returns the declarative form this TLSConfig was built from,
	// suitable for re-marshaling or for NewFrom layering.
	Config() *Config

	GetCertificatePair() []tls.Certificate
	GetRootCA() *x509.CertPool
	GetClientCA() *x509.CertPool

	// AddRootCA appends a PEM-encoded certificate (or chain) to the trusted
	// root pool, initializing it from the system pool on first use. It
	// reports whether at least one certificate was parsed and added.
	AddRootCA(pem string) bool

	SetClientAuth(a tlsaut.ClientAuth)
	SetVersionMin(v tlsvrs.Version)
	SetVersionMax(v tlsvrs.Version)

	Clone() TLSConfig
}

type config struct {
	cert                  []tls.Certificate
	cipherList            []uint16
	curveList             []tls.CurveID
	caRoot                *x509.CertPool
	clientAuth            tls.ClientAuthType
	clientCA              *x509.CertPool
	insecureSkipVerify    bool
	tlsMinVersion         uint16
	tlsMaxVersion         uint16
	dynSizingDisabled     bool
	ticketSessionDisabled bool
	declared              *Config
}

func (c *config) TLS(serverName string) *tls.Config {
	cnf := &tls.Config{
		InsecureSkipVerify: c.insecureSkipVerify,
	}

	if serverName != "" {
		cnf.ServerName = serverName
	}

	if c.ticketSessionDisabled {
		cnf.SessionTicketsDisabled = true
	}

	if c.dynSizingDisabled {
		cnf.DynamicRecordSizingDisabled = true
	}

	if c.tlsMinVersion != 0 {
		cnf.MinVersion = c.tlsMinVersion
	}

	if c.tlsMaxVersion != 0 {
		cnf.MaxVersion = c.tlsMaxVersion
	}

	if len(c.cipherList) > 0 {
		cnf.CipherSuites = c.cipherList
	}

	if len(c.curveList) > 0 {
		cnf.CurvePreferences = c.curveList
	}

	if c.caRoot != nil {
		cnf.RootCAs = c.caRoot
	}

	if len(c.cert) > 0 {
		cnf.Certificates = c.cert
	}

	if c.clientAuth != tls.NoClientCert {
		cnf.ClientAuth = c.clientAuth

		if c.clientCA != nil {
			cnf.ClientCAs = c.clientCA
		}
	}

	return cnf
}

func (c *config) Config() *Config {
	return c.declared
}

func (c *config) GetCertificatePair() []tls.Certificate {
	return c.cert
}

func (c *config) GetRootCA() *x509.CertPool {
	return c.caRoot
}

func (c *config) GetClientCA() *x509.CertPool {
	return c.clientCA
}

func (c *config) AddRootCA(pem string) bool {
	if pem == "" {
		return false
	}

	if c.caRoot == nil {
		if pool, err := x509.SystemCertPool(); err == nil {
			c.caRoot = pool
		} else {
			c.caRoot = x509.NewCertPool()
		}
	}

	return c.caRoot.AppendCertsFromPEM([]byte(pem))
}

func (c *config) SetClientAuth(a tlsaut.ClientAuth) {
	c.clientAuth = a.TLS()
}

func (c *config) SetVersionMin(v tlsvrs.Version) {
	c.tlsMinVersion = v.TLS()
}

func (c *config) SetVersionMax(v tlsvrs.Version) {
	c.tlsMaxVersion = v.TLS()
}

func (c *config) Clone() TLSConfig {
	n := &config{
		clientAuth:            c.clientAuth,
		insecureSkipVerify:    c.insecureSkipVerify,
		tlsMinVersion:         c.tlsMinVersion,
		tlsMaxVersion:         c.tlsMaxVersion,
		dynSizingDisabled:     c.dynSizingDisabled,
		ticketSessionDisabled: c.ticketSessionDisabled,
		cert:                  append(make([]tls.Certificate, 0, len(c.cert)), c.cert...),
		cipherList:            append(make([]uint16, 0, len(c.cipherList)), c.cipherList...),
		curveList:             append(make([]tls.CurveID, 0, len(c.curveList)), c.curveList...),
	}

	if c.declared != nil {
		d := *c.declared
		n.declared = &d
	}

	if c.caRoot != nil {
		pool := *c.caRoot
		n.caRoot = &pool
	}

	if c.clientCA != nil {
		pool := *c.clientCA
		n.clientCA = &pool
	}

	return n
}

// isIPLiteral reports whether host is an IP address rather than a DNS
// name, for callers that need to pick SNI/verification behavior
// themselves instead of relying on TLS's serverName handling.
func isIPLiteral(host string) bool {
	return net.ParseIP(host) != nil
}
