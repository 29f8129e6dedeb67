// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package notifier

import (
	"encoding/hex"
	"fmt"
	"net/netip"

	"go.uber.org/zap"

	"github.com/nttcom/dhcp6notify/pkg/document"
	"github.com/nttcom/dhcp6notify/pkg/packet/dhcpv6"
)

// Components reported in decode skip metrics
const (
	ComponentDomain   = "domain"
	ComponentSoftwire = "softwire"
)

// encodeIPv6List emits name as an array of the addresses packed in data.
// Trailing bytes short of a full address are ignored.
func (a *Assembler) encodeIPv6List(t *document.Table, name string, data []byte) error {
	arr, err := t.AddArray(name)
	if err != nil {
		return err
	}
	for len(data) >= dhcpv6.IPv6AddressLength {
		addr := netip.AddrFrom16([dhcpv6.IPv6AddressLength]byte(data[:dhcpv6.IPv6AddressLength]))
		if err := arr.AddString(addr.String()); err != nil {
			return err
		}
		data = data[dhcpv6.IPv6AddressLength:]
	}
	return nil
}

func (a *Assembler) encodeFQDN(t *document.Table, name string, data []byte) error {
	arr, err := t.AddArray(name)
	if err != nil {
		return err
	}
	names, decodeErr := dhcpv6.DecodeDomainList(data)
	for _, n := range names {
		if err := arr.AddString(n); err != nil {
			return err
		}
	}
	if decodeErr != nil {
		a.logger.Debug("truncated domain name list", zap.String("field", name), zap.Error(decodeErr))
		a.recorder.DecodeSkipped(ComponentDomain)
	}
	return nil
}

// encodeCustom emits one OPTION_<type> field per option in data.
func (a *Assembler) encodeCustom(t *document.Table, data []byte) error {
	for opt := range dhcpv6.Options(data) {
		if err := t.AddString(fmt.Sprintf("OPTION_%d", uint16(opt.Type)), hex.EncodeToString(opt.Value)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) encodeHex(t *document.Table, name string, data []byte) error {
	return t.AddString(name, hex.EncodeToString(data))
}

// encodeS46 emits the softwire records of mechanism m. Nothing is emitted
// for an empty option set.
func (a *Assembler) encodeS46(t *document.Table, m dhcpv6.S46Mechanism, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	arr, err := t.AddArray(m.Name())
	if err != nil {
		return err
	}

	records, skips := dhcpv6.DecodeS46(m, data)
	for _, skip := range skips {
		a.logger.Debug("skipped malformed softwire option",
			zap.String("mechanism", m.Name()),
			zap.Object("option", skip.Option),
			zap.Error(skip.Err))
		a.recorder.DecodeSkipped(ComponentSoftwire)
	}

	for _, r := range records {
		tbl, err := arr.AddTable()
		if err != nil {
			return err
		}
		if err := encodeS46Record(tbl, r); err != nil {
			return err
		}
	}
	return nil
}

func encodeS46Record(t *document.Table, r *dhcpv6.S46Record) error {
	if err := t.AddString("ipv4prefix", r.IPv4Prefix.String()); err != nil {
		return err
	}
	if err := t.AddString("ipv6prefix", r.IPv6Prefix.String()); err != nil {
		return err
	}
	if r.IsRule() {
		if err := t.AddUint8("fmr", r.Flags); err != nil {
			return err
		}
	}
	if err := t.AddString("type", r.Mechanism.TypeName()); err != nil {
		return err
	}
	if r.IsRule() {
		if err := t.AddUint8("ealen", r.EALen); err != nil {
			return err
		}
	}
	if err := t.AddUint8("prefix4len", r.Prefix4Len); err != nil {
		return err
	}
	if err := t.AddUint8("prefix6len", r.Prefix6Len); err != nil {
		return err
	}

	for _, p := range r.PortParams {
		if err := t.AddUint8("offset", p.Offset); err != nil {
			return err
		}
		if err := t.AddUint8("psidlen", p.PSIDLen); err != nil {
			return err
		}
		if err := t.AddUint16("psid", p.PSID); err != nil {
			return err
		}
	}

	for _, br := range r.BorderRelays {
		if err := t.AddString("br", br.String()); err != nil {
			return err
		}
	}
	for _, dmr := range r.DMRs {
		if err := t.AddString("dmr", dmr.Prefix.String()); err != nil {
			return err
		}
		if err := t.AddUint8("dmrprefix6len", dmr.Prefix6Len); err != nil {
			return err
		}
	}
	return nil
}

// encodeEntries emits one table per entry. Entries that are no longer valid
// are left out, except delegated prefixes, so that a withdrawn prefix is
// reported right away.
func (a *Assembler) encodeEntries(t *document.Table, name string, kind dhcpv6.EntryKind, entries dhcpv6.EntryTable) error {
	arr, err := t.AddArray(name)
	if err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		if e.Valid == 0 && kind != dhcpv6.EntryPrefix {
			continue
		}
		tbl, err := arr.AddTable()
		if err != nil {
			return err
		}
		if err := encodeEntry(tbl, kind, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeEntry(t *document.Table, kind dhcpv6.EntryKind, e *dhcpv6.Entry) error {
	if err := t.AddString("target", addrString(e.Target)); err != nil {
		return err
	}
	if kind == dhcpv6.EntryHost {
		return nil
	}
	if err := t.AddUint8("length", e.Length); err != nil {
		return err
	}

	if kind == dhcpv6.EntryRoute {
		if e.Router.IsValid() && !e.Router.IsUnspecified() {
			if err := t.AddString("router", e.Router.String()); err != nil {
				return err
			}
		}
		if err := t.AddUint32("valid", e.Valid); err != nil {
			return err
		}
		return t.AddUint16("priority", e.Priority)
	}

	for _, f := range []struct {
		name  string
		value uint32
	}{
		{"valid", e.Valid},
		{"preferred", e.Preferred},
		{"t1", e.T1},
		{"t2", e.T2},
	} {
		if err := t.AddUint32(f.name, f.value); err != nil {
			return err
		}
	}

	if kind != dhcpv6.EntryPrefix {
		return nil
	}
	if e.IAID != dhcpv6.DefaultIAID {
		if err := t.AddUint32("iaid", e.IAID); err != nil {
			return err
		}
	}
	if excl, ok := e.ExcludedPrefix(); ok {
		if err := t.AddString("excluded", addrString(excl.Addr)); err != nil {
			return err
		}
		if err := t.AddUint16("excluded_length", excl.Length); err != nil {
			return err
		}
	}
	return nil
}

// addrString renders the zero Addr as the unspecified address, the value an
// all-zero field carries on the wire.
func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return netip.IPv6Unspecified().String()
	}
	return a.String()
}

// encodeSearch emits the auxiliary target of every valid entry as a string.
func (a *Assembler) encodeSearch(t *document.Table, name string, entries dhcpv6.EntryTable) error {
	arr, err := t.AddArray(name)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Valid == 0 {
			continue
		}
		if err := arr.AddString(string(entries[i].AuxTarget)); err != nil {
			return err
		}
	}
	return nil
}
