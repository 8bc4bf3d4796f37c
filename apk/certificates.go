// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package apk

import (
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mozilla.org/pkcs7"
)

// CertInfo is the fields worth keeping out of a pkcs7 signer certificate,
// one-for-one with the teacher's own CertInfo shape.
type CertInfo struct {
	Issuer             string
	Subject            string
	NotBefore          time.Time
	NotAfter           time.Time
	SerialNumber       string
	SignatureAlgorithm x509.SignatureAlgorithm
	PublicKeyAlgorithm x509.PublicKeyAlgorithm
}

// Certificate is one JAR v1 signing block (META-INF/*.RSA or *.DSA),
// the classic PKCS#7 SignedData structure APK signing v1 reuses from
// the JAR spec.
type Certificate struct {
	Entry     string
	Content   pkcs7.PKCS7
	Info      CertInfo
	Anomalies []string
}

// Certificates returns one Certificate per JAR-signing block found under
// META-INF/, or an empty slice if the archive carries no v1 signature
// (v2/v3 APK Signing Block parsing is out of scope; see DESIGN.md).
func (p *Package) Certificates() []Certificate {
	var out []Certificate
	for _, name := range p.order {
		upper := strings.ToUpper(name)
		if !strings.HasPrefix(upper, "META-INF/") {
			continue
		}
		if !strings.HasSuffix(upper, ".RSA") && !strings.HasSuffix(upper, ".DSA") {
			continue
		}
		out = append(out, parseCertificate(name, p.entries[name].Data))
	}
	return out
}

func parseCertificate(entry string, raw []byte) Certificate {
	p7, err := pkcs7.Parse(raw)
	if err != nil {
		return Certificate{Entry: entry, Anomalies: []string{fmt.Sprintf("pkcs7 parse: %v", err)}}
	}

	c := Certificate{Entry: entry, Content: *p7}
	if len(p7.Signers) == 0 || len(p7.Certificates) == 0 {
		c.Anomalies = append(c.Anomalies, "no signer certificate present")
		return c
	}

	serial := p7.Signers[0].IssuerAndSerialNumber.SerialNumber
	for _, cert := range p7.Certificates {
		if !reflect.DeepEqual(cert.SerialNumber, serial) {
			continue
		}

		info := CertInfo{
			SerialNumber:       hex.EncodeToString(cert.SerialNumber.Bytes()),
			PublicKeyAlgorithm: cert.PublicKeyAlgorithm,
			SignatureAlgorithm: cert.SignatureAlgorithm,
			NotBefore:          cert.NotBefore,
			NotAfter:           cert.NotAfter,
		}

		if len(cert.Issuer.Country) > 0 {
			info.Issuer = cert.Issuer.Country[0]
		}
		if len(cert.Issuer.Organization) > 0 {
			info.Issuer += ", " + cert.Issuer.Organization[0]
		}
		info.Issuer += ", " + cert.Issuer.CommonName

		if len(cert.Subject.Country) > 0 {
			info.Subject = cert.Subject.Country[0]
		}
		if len(cert.Subject.Organization) > 0 {
			info.Subject += ", " + cert.Subject.Organization[0]
		}
		info.Subject += ", " + cert.Subject.CommonName

		c.Info = info
		break
	}
	return c
}
