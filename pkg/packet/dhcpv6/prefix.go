// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"errors"
	"fmt"
	"net/netip"
)

var ErrMalformedPrefix = errors.New("malformed prefix")

// BitsToBytes returns the number of bytes covering a prefix of the given bit length.
func BitsToBytes(bits int) int {
	return (bits + 7) / 8
}

// PrefixBytes validates that a prefix of bits length fits both the destination
// address (capacity bytes) and the bytes left in the source option.
func PrefixBytes(bits, capacity, available int) (int, error) {
	n := BitsToBytes(bits)
	if n > capacity {
		return 0, fmt.Errorf("%w: %d bits do not fit in %d bytes", ErrMalformedPrefix, bits, capacity)
	}
	if n > available {
		return 0, fmt.Errorf("%w: %d bits need %d bytes, only %d available", ErrMalformedPrefix, bits, n, available)
	}
	return n, nil
}

// DecodePrefix6 reads the minimal covering bytes of an IPv6 prefix from data
// into an otherwise zero address and reports how many bytes it consumed.
func DecodePrefix6(bits uint8, data []byte) (netip.Addr, int, error) {
	n, err := PrefixBytes(int(bits), IPv6AddressLength, len(data))
	if err != nil {
		return netip.Addr{}, 0, err
	}
	var a [IPv6AddressLength]byte
	copy(a[:], data[:n])
	return netip.AddrFrom16(a), n, nil
}

// ExcludedPrefixAddr rebuilds the excluded prefix carried by an RFC6603
// PD_EXCLUDE option: the delegated prefix followed by the subnet ID bits.
func ExcludedPrefixAddr(delegated netip.Prefix, excludedLen uint8, subnetID []byte) (netip.Addr, error) {
	if !delegated.IsValid() || !delegated.Addr().Is6() {
		return netip.Addr{}, fmt.Errorf("%w: delegated prefix %s is not IPv6", ErrMalformedPrefix, delegated)
	}
	pfxLen := delegated.Bits()
	if int(excludedLen) <= pfxLen || excludedLen > 128 {
		return netip.Addr{}, fmt.Errorf("%w: excluded length %d out of range for /%d", ErrMalformedPrefix, excludedLen, pfxLen)
	}
	idBits := int(excludedLen) - pfxLen
	if _, err := PrefixBytes(idBits, IPv6AddressLength, len(subnetID)); err != nil {
		return netip.Addr{}, err
	}

	a := delegated.Masked().Addr().As16()
	for i := range idBits {
		if subnetID[i/8]&(0x80>>(i%8)) == 0 {
			continue
		}
		pos := pfxLen + i
		a[pos/8] |= 0x80 >> (pos % 8)
	}
	return netip.AddrFrom16(a), nil
}
