// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// DecodeDomainList expands every RFC1035 encoded name in data. Compression
// pointers are resolved against data itself. Decoding resumes right after
// each name's on-wire encoding, so a pointer-terminated name advances by its
// compressed length only.
//
// The first name that fails to expand is reported as "" and ends the list;
// the names decoded so far are returned together with the error.
func DecodeDomainList(data []byte) ([]string, error) {
	var names []string
	off := 0
	for off < len(data) {
		name, next, err := dns.UnpackDomainName(data, off)
		if err != nil {
			names = append(names, "")
			return names, fmt.Errorf("domain name at offset %d: %w", off, err)
		}
		names = append(names, presentationName(name))
		off = next
	}
	return names, nil
}

// EncodeDomainList is the inverse of DecodeDomainList for uncompressed lists.
func EncodeDomainList(names ...string) ([]byte, error) {
	var buf []byte
	for _, name := range names {
		wire := make([]byte, 256)
		n, err := dns.PackDomainName(dns.Fqdn(name), wire, 0, nil, false)
		if err != nil {
			return nil, fmt.Errorf("failed to encode domain name %q: %w", name, err)
		}
		buf = append(buf, wire[:n]...)
	}
	return buf, nil
}

func presentationName(fqdn string) string {
	if fqdn == "." {
		return ""
	}
	return strings.TrimSuffix(fqdn, ".")
}
