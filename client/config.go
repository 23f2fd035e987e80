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

package client

import (
	"fmt"

	libval "github.com/go-playground/validator/v10"

	"github.com/hpkv-io/rioc/errors"
)

// DefaultTimeoutMs is applied when ClientConfig.TimeoutMs is left at zero.
const DefaultTimeoutMs = 5000

// TlsConfig declares the client certificate material and verification
// policy for a TLS-wrapped connection. CertPath and KeyPath may each be a
// PEM-encoded string or a filesystem path; certificates.certs.ParsePair
// resolves which. CAPath may likewise be either: it is read as a file when
// one exists at that path, and parsed as PEM text otherwise.
type TlsConfig struct {
	CertPath       string `mapstructure:"certPath" json:"certPath" yaml:"certPath" toml:"certPath" validate:"required"`
	KeyPath        string `mapstructure:"keyPath" json:"keyPath" yaml:"keyPath" toml:"keyPath" validate:"required"`
	CAPath         string `mapstructure:"caPath" json:"caPath" yaml:"caPath" toml:"caPath"`
	VerifyHostname string `mapstructure:"verifyHostname" json:"verifyHostname" yaml:"verifyHostname" toml:"verifyHostname"`
	VerifyPeer     bool   `mapstructure:"verifyPeer" json:"verifyPeer" yaml:"verifyPeer" toml:"verifyPeer"`
}

// ClientConfig is the declarative form handed to Connect; its tags let it
// be decoded from JSON, YAML, TOML or a mapstructure source. The cmd
// drivers fill it directly from their arguments.
type ClientConfig struct {
	Host      string     `mapstructure:"host" json:"host" yaml:"host" toml:"host" validate:"required"`
	Port      uint32     `mapstructure:"port" json:"port" yaml:"port" toml:"port" validate:"required,min=1,max=65535"`
	TimeoutMs uint32     `mapstructure:"timeoutMs" json:"timeoutMs" yaml:"timeoutMs" toml:"timeoutMs"`
	TLS       *TlsConfig `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls" validate:"omitempty,dive"`
}

// Validate reports malformed or missing required fields.
func (c *ClientConfig) Validate() errors.Error {
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

// effectiveTimeout returns TimeoutMs or DefaultTimeoutMs if unset. Per the
// connect contract this budget bounds only DNS resolution, dial, and (if
// present) the TLS handshake — never a batch wait, which has its own
// explicit timeout argument.
func (c *ClientConfig) effectiveTimeout() uint32 {
	if c.TimeoutMs == 0 {
		return DefaultTimeoutMs
	}

	return c.TimeoutMs
}
