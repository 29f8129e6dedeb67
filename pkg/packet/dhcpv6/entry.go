// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"encoding/binary"
	"net/netip"

	"go.uber.org/zap/zapcore"
)

type EntryKind uint8

const (
	EntryAddress EntryKind = iota
	EntryHost
	EntryRoute
	EntryPrefix
)

func (k EntryKind) String() string {
	switch k {
	case EntryAddress:
		return "address"
	case EntryHost:
		return "host"
	case EntryRoute:
		return "route"
	case EntryPrefix:
		return "prefix"
	}
	return "unknown"
}

// DefaultIAID is the IAID of the first IA, which is not reported.
const DefaultIAID uint32 = 1

// Legacy flat table layout. Lifetimes and priority are in host byte order,
// the IAID in network byte order, and every entry is followed by auxlen bytes.
const (
	EntryHeaderLength = 60

	entryRouterIndex    = 0
	entryAuxLenIndex    = 16
	entryLengthIndex    = 17
	entryTargetIndex    = 20
	entryPriorityIndex  = 36
	entryValidIndex     = 40
	entryPreferredIndex = 44
	entryT1Index        = 48
	entryT2Index        = 52
	entryIAIDIndex      = 56
	maxAuxTargetLength  = 0xff
)

// PrefixExclusion is an RFC6603 excluded prefix attached to a delegated prefix.
// Length is 16 bits wide to carry the legacy priority field unchanged.
type PrefixExclusion struct {
	Addr   netip.Addr
	Length uint16
}

// Entry is one address, host, route or prefix with its lifetimes. AuxTarget
// is the variable tail (a search domain for RA DNSSL entries).
type Entry struct {
	Target    netip.Addr
	Length    uint8
	Router    netip.Addr
	Priority  uint16
	Valid     uint32
	Preferred uint32
	T1        uint32
	T2        uint32
	IAID      uint32
	AuxTarget []byte

	// Exclusion marks a prefix entry as carrying an excluded prefix. When nil,
	// a non-zero Priority on a prefix entry is read as the legacy encoding:
	// Router holds the excluded prefix and Priority its length.
	Exclusion *PrefixExclusion
}

// ExcludedPrefix reports the excluded prefix of a prefix entry.
func (e *Entry) ExcludedPrefix() (PrefixExclusion, bool) {
	if e.Exclusion != nil {
		return *e.Exclusion, true
	}
	if e.Priority != 0 {
		return PrefixExclusion{Addr: e.Router, Length: e.Priority}, true
	}
	return PrefixExclusion{}, false
}

func (e *Entry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("target", e.Target.String())
	enc.AddUint8("length", e.Length)
	enc.AddUint32("valid", e.Valid)
	enc.AddUint32("preferred", e.Preferred)
	if e.Router.IsValid() {
		enc.AddString("router", e.Router.String())
	}
	enc.AddUint16("priority", e.Priority)
	enc.AddUint32("iaid", e.IAID)
	if len(e.AuxTarget) > 0 {
		enc.AddByteString("auxTarget", e.AuxTarget)
	}
	return nil
}

// Serialize encodes the entry in the legacy table layout. An explicit
// exclusion is folded back into the router and priority fields.
func (e *Entry) Serialize() []byte {
	aux := e.AuxTarget
	if len(aux) > maxAuxTargetLength {
		aux = aux[:maxAuxTargetLength]
	}
	buf := make([]byte, EntryHeaderLength+len(aux))

	router, priority := e.Router, e.Priority
	if e.Exclusion != nil {
		router, priority = e.Exclusion.Addr, e.Exclusion.Length
	}
	putAddr16(buf[entryRouterIndex:], router)
	buf[entryAuxLenIndex] = uint8(len(aux))
	buf[entryLengthIndex] = e.Length
	putAddr16(buf[entryTargetIndex:], e.Target)
	binary.NativeEndian.PutUint16(buf[entryPriorityIndex:], priority)
	binary.NativeEndian.PutUint32(buf[entryValidIndex:], e.Valid)
	binary.NativeEndian.PutUint32(buf[entryPreferredIndex:], e.Preferred)
	binary.NativeEndian.PutUint32(buf[entryT1Index:], e.T1)
	binary.NativeEndian.PutUint32(buf[entryT2Index:], e.T2)
	binary.BigEndian.PutUint32(buf[entryIAIDIndex:], e.IAID)
	copy(buf[EntryHeaderLength:], aux)
	return buf
}

func putAddr16(b []byte, a netip.Addr) {
	if !a.IsValid() {
		return
	}
	addr := a.As16()
	copy(b[:IPv6AddressLength], addr[:])
}

type EntryTable []Entry

func (t EntryTable) Serialize() []byte {
	var buf []byte
	for i := range t {
		buf = append(buf, t[i].Serialize()...)
	}
	return buf
}

// DecodeEntryTable decodes a legacy flat table. Each entry advances by
// EntryHeaderLength plus its own auxlen; a trailing entry that does not fit
// entirely is dropped.
func DecodeEntryTable(data []byte) EntryTable {
	var table EntryTable
	for len(data) >= EntryHeaderLength {
		stride := EntryHeaderLength + int(data[entryAuxLenIndex])
		if stride > len(data) {
			break
		}
		e := Entry{
			Router:    netip.AddrFrom16([IPv6AddressLength]byte(data[entryRouterIndex : entryRouterIndex+IPv6AddressLength])),
			Length:    data[entryLengthIndex],
			Target:    netip.AddrFrom16([IPv6AddressLength]byte(data[entryTargetIndex : entryTargetIndex+IPv6AddressLength])),
			Priority:  binary.NativeEndian.Uint16(data[entryPriorityIndex:]),
			Valid:     binary.NativeEndian.Uint32(data[entryValidIndex:]),
			Preferred: binary.NativeEndian.Uint32(data[entryPreferredIndex:]),
			T1:        binary.NativeEndian.Uint32(data[entryT1Index:]),
			T2:        binary.NativeEndian.Uint32(data[entryT2Index:]),
			IAID:      binary.BigEndian.Uint32(data[entryIAIDIndex:]),
		}
		if stride > EntryHeaderLength {
			e.AuxTarget = data[EntryHeaderLength:stride:stride]
		}
		table = append(table, e)
		data = data[stride:]
	}
	return table
}
