// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nttcom/dhcp6notify/pkg/notifier"
	"github.com/nttcom/dhcp6notify/pkg/packet/dhcpv6"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// File is the YAML representation of a client state.
type File struct {
	Bound     bool           `yaml:"bound"`
	Server    []string       `yaml:"server"`
	DNS       []string       `yaml:"dns"`
	Search    []string       `yaml:"search"`
	SNTP      []string       `yaml:"sntp"`
	NTP       []string       `yaml:"ntp"`
	NTPFQDN   []string       `yaml:"ntp_fqdn"`
	SIP       []string       `yaml:"sip"`
	SIPDomain []string       `yaml:"sip_domain"`
	AFTR      []string       `yaml:"aftr"`
	CER       []string       `yaml:"cer"`
	MAPE      *S46Set        `yaml:"mape"`
	MAPT      *S46Set        `yaml:"mapt"`
	LW4O6     *S46Set        `yaml:"lw4o6"`
	Custom    []CustomOption `yaml:"custom"`
	Passthru  string         `yaml:"passthru"` // hex
	Prefixes  []Lease        `yaml:"prefixes"`
	Addresses []Lease        `yaml:"addresses"`
	RA        RA             `yaml:"ra"`
}

// S46Set is one softwire option set. For lw4o6 the rules are binds and
// IPv4Prefix holds the bound address.
type S46Set struct {
	Rules []S46Rule `yaml:"rules"`
	BR    []string  `yaml:"br"`
	DMR   []string  `yaml:"dmr"`
}

type S46Rule struct {
	IPv4Prefix string       `yaml:"ipv4prefix"`
	IPv6Prefix string       `yaml:"ipv6prefix"`
	EALen      uint8        `yaml:"ealen"`
	FMR        bool         `yaml:"fmr"`
	PortParams []PortParams `yaml:"portparams"`
}

type PortParams struct {
	Offset  uint8  `yaml:"offset"`
	PSIDLen uint8  `yaml:"psidlen"`
	PSID    uint16 `yaml:"psid"`
}

type CustomOption struct {
	Code  uint16 `yaml:"code"`
	Value string `yaml:"value"` // hex
}

// Lease describes an address, prefix, route or host entry. Prefix accepts
// either "addr/len" or a bare address.
type Lease struct {
	Prefix    string  `yaml:"prefix"`
	Router    string  `yaml:"router"`
	Valid     uint32  `yaml:"valid"`
	Preferred uint32  `yaml:"preferred"`
	T1        uint32  `yaml:"t1"`
	T2        uint32  `yaml:"t2"`
	Priority  uint16  `yaml:"priority"`
	IAID      *uint32 `yaml:"iaid"`
	Excluded  string  `yaml:"excluded"`
}

type Domain struct {
	Domain string `yaml:"domain"`
	Valid  uint32 `yaml:"valid"`
}

type RA struct {
	Addresses []Lease  `yaml:"addresses"`
	Routes    []Lease  `yaml:"routes"`
	DNS       []Lease  `yaml:"dns"`
	Domains   []Domain `yaml:"domains"`
	RAParams  `yaml:",inline"`
}

// LoadFile reads a YAML snapshot into a new State.
func LoadFile(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*State, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return file.State()
}

// State converts the file into wire buffers and entry tables.
func (f *File) State() (*State, error) {
	s := NewState()
	s.SetBound(f.Bound)
	s.SetRA(f.RA.RAParams)

	for _, l := range []struct {
		t     notifier.StateType
		addrs []string
	}{
		{notifier.StateServerAddr, f.Server},
		{notifier.StateDNS, f.DNS},
		{notifier.StateSNTPIP, f.SNTP},
		{notifier.StateNTPIP, f.NTP},
		{notifier.StateSIPIP, f.SIP},
		{notifier.StateCER, f.CER},
	} {
		b, err := packAddrs(l.addrs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, l.t, err)
		}
		s.SetBuffer(l.t, b)
	}

	for _, l := range []struct {
		t     notifier.StateType
		names []string
	}{
		{notifier.StateSearch, f.Search},
		{notifier.StateNTPFQDN, f.NTPFQDN},
		{notifier.StateSIPFQDN, f.SIPDomain},
		{notifier.StateAFTRName, f.AFTR},
	} {
		b, err := dhcpv6.EncodeDomainList(l.names...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, l.t, err)
		}
		s.SetBuffer(l.t, b)
	}

	for _, set := range []struct {
		t   notifier.StateType
		m   dhcpv6.S46Mechanism
		set *S46Set
	}{
		{notifier.StateS46MAPE, dhcpv6.S46MAPE, f.MAPE},
		{notifier.StateS46MAPT, dhcpv6.S46MAPT, f.MAPT},
		{notifier.StateS46LW, dhcpv6.S46LW4O6, f.LW4O6},
	} {
		if set.set == nil {
			continue
		}
		b, err := set.set.serialize(set.m)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSnapshot, set.t, err)
		}
		s.SetBuffer(set.t, b)
	}

	var custom []dhcpv6.Option
	for _, c := range f.Custom {
		v, err := hex.DecodeString(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: custom option %d: %w", ErrInvalidSnapshot, c.Code, err)
		}
		custom = append(custom, dhcpv6.Option{Type: dhcpv6.OptionType(c.Code), Value: v})
	}
	b, err := dhcpv6.SerializeOptions(custom...)
	if err != nil {
		return nil, fmt.Errorf("%w: custom options: %w", ErrInvalidSnapshot, err)
	}
	s.SetBuffer(notifier.StateCustomOpts, b)

	passthru, err := hex.DecodeString(f.Passthru)
	if err != nil {
		return nil, fmt.Errorf("%w: passthru: %w", ErrInvalidSnapshot, err)
	}
	s.SetBuffer(notifier.StatePassthru, passthru)

	for _, l := range []struct {
		t      notifier.StateType
		kind   dhcpv6.EntryKind
		leases []Lease
	}{
		{notifier.StateIAPD, dhcpv6.EntryPrefix, f.Prefixes},
		{notifier.StateIANA, dhcpv6.EntryAddress, f.Addresses},
		{notifier.StateRAPrefix, dhcpv6.EntryAddress, f.RA.Addresses},
		{notifier.StateRARoute, dhcpv6.EntryRoute, f.RA.Routes},
		{notifier.StateRADNS, dhcpv6.EntryHost, f.RA.DNS},
	} {
		for i, lease := range l.leases {
			e, err := lease.entry(l.kind)
			if err != nil {
				return nil, fmt.Errorf("%w: %s entry %d: %w", ErrInvalidSnapshot, l.t, i, err)
			}
			s.AddEntry(l.t, e)
		}
	}
	for _, d := range f.RA.Domains {
		s.AddEntry(notifier.StateRASearch, dhcpv6.Entry{Valid: d.Valid, AuxTarget: []byte(d.Domain)})
	}
	return s, nil
}

func packAddrs(addrs []string) ([]byte, error) {
	var buf []byte
	for _, s := range addrs {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, err
		}
		a16 := a.As16()
		buf = append(buf, a16[:]...)
	}
	return buf, nil
}

// parsePrefix accepts "addr/len" or a bare address, which gets a full length.
func parsePrefix(s string) (netip.Prefix, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p, nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid prefix %q", s)
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}

func (l *Lease) entry(kind dhcpv6.EntryKind) (dhcpv6.Entry, error) {
	p, err := parsePrefix(l.Prefix)
	if err != nil {
		return dhcpv6.Entry{}, err
	}
	if !p.Addr().Is6() {
		return dhcpv6.Entry{}, fmt.Errorf("%s is not an IPv6 prefix", p)
	}
	e := dhcpv6.Entry{
		Target:    p.Addr(),
		Length:    uint8(p.Bits()),
		Valid:     l.Valid,
		Preferred: l.Preferred,
		T1:        l.T1,
		T2:        l.T2,
		Priority:  l.Priority,
		IAID:      dhcpv6.DefaultIAID,
	}
	if l.IAID != nil {
		e.IAID = *l.IAID
	}
	if l.Router != "" {
		if e.Router, err = netip.ParseAddr(l.Router); err != nil {
			return dhcpv6.Entry{}, err
		}
	}
	if l.Excluded != "" {
		if kind != dhcpv6.EntryPrefix {
			return dhcpv6.Entry{}, fmt.Errorf("only prefixes can exclude a prefix")
		}
		excl, err := parsePrefix(l.Excluded)
		if err != nil {
			return dhcpv6.Entry{}, err
		}
		e.Exclusion = &dhcpv6.PrefixExclusion{Addr: excl.Addr(), Length: uint16(excl.Bits())}
	}
	return e, nil
}

func (set *S46Set) serialize(m dhcpv6.S46Mechanism) ([]byte, error) {
	var records []*dhcpv6.S46Record
	for i, rule := range set.Rules {
		r, err := rule.record(m)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		records = append(records, r)
	}
	var brs []netip.Addr
	for _, s := range set.BR {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, err
		}
		brs = append(brs, a)
	}
	var dmrs []dhcpv6.DMR
	for _, s := range set.DMR {
		p, err := parsePrefix(s)
		if err != nil {
			return nil, err
		}
		dmrs = append(dmrs, dhcpv6.DMR{Prefix6Len: uint8(p.Bits()), Prefix: p.Addr()})
	}
	return dhcpv6.SerializeS46(records, brs, dmrs), nil
}

func (rule *S46Rule) record(m dhcpv6.S46Mechanism) (*dhcpv6.S46Record, error) {
	v4, err := parsePrefix(rule.IPv4Prefix)
	if err != nil {
		return nil, err
	}
	if !v4.Addr().Is4() {
		return nil, fmt.Errorf("%s is not an IPv4 prefix", v4)
	}
	v6, err := parsePrefix(rule.IPv6Prefix)
	if err != nil {
		return nil, err
	}
	r := &dhcpv6.S46Record{
		Mechanism:  m,
		IPv4Prefix: v4.Addr(),
		Prefix4Len: uint8(v4.Bits()),
		IPv6Prefix: v6.Addr(),
		Prefix6Len: uint8(v6.Bits()),
		EALen:      rule.EALen,
	}
	if m == dhcpv6.S46LW4O6 {
		r.Prefix4Len = dhcpv6.S46LW4O6IPv4PrefixLength
	}
	r.Flags = dhcpv6.SetBit(r.Flags, dhcpv6.S46RuleFlagFMR, rule.FMR)
	for _, p := range rule.PortParams {
		r.PortParams = append(r.PortParams, dhcpv6.PortParams{Offset: p.Offset, PSIDLen: p.PSIDLen, PSID: p.PSID})
	}
	return r, nil
}
