// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"go.uber.org/zap/zapcore"
)

type S46Mechanism uint8

const (
	S46MAPE S46Mechanism = iota
	S46MAPT
	S46LW4O6
)

// Name is the notification array key of the mechanism.
func (m S46Mechanism) Name() string {
	switch m {
	case S46MAPE:
		return "MAPE"
	case S46MAPT:
		return "MAPT"
	default:
		return "LW4O6"
	}
}

// TypeName is the value of the "type" field of every record of the mechanism.
func (m S46Mechanism) TypeName() string {
	switch m {
	case S46MAPE:
		return "map-e"
	case S46MAPT:
		return "map-t"
	default:
		return "lw4o6"
	}
}

func (m S46Mechanism) String() string {
	return m.TypeName()
}

// Container is the DHCPv6 option that carries the mechanism's option set.
func (m S46Mechanism) Container() OptionType {
	switch m {
	case S46MAPE:
		return OptS46ContMAPE
	case S46MAPT:
		return OptS46ContMAPT
	default:
		return OptS46ContLW
	}
}

// Fixed parts of the softwire options (RFC7598), excluding the option header
const (
	S46RuleHeaderLength       = 8 // flags, ea-len, prefix4-len, ipv4-prefix(4), prefix6-len
	S46BindHeaderLength       = 5 // ipv4-address(4), bindprefix6-len
	S46DMRHeaderLength        = 1 // dmr-prefix6-len
	S46PortParamsValueLength  = 4 // offset, psid-len, psid(2)
	S46BRValueLength          = IPv6AddressLength
	S46LW4O6IPv4PrefixLength  = 32
	S46RuleFlagFMR            = uint8(0x01)
	s46RulePrefix6LenIndex    = 7
	s46BindPrefix6LenIndex    = 4
	s46RuleIPv4PrefixIndex    = 3
	s46RuleEALenIndex         = 1
	s46RulePrefix4LenIndex    = 2
	s46PortParamsPSIDLenIndex = 1
)

type PortParams struct {
	Offset  uint8
	PSIDLen uint8
	PSID    uint16
}

func (p PortParams) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("offset", p.Offset)
	enc.AddUint8("psidLen", p.PSIDLen)
	enc.AddUint16("psid", p.PSID)
	return nil
}

// DMR is a MAP-T default mapping rule prefix.
type DMR struct {
	Prefix6Len uint8
	Prefix     netip.Addr
}

func (d DMR) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("prefix", d.Prefix.String())
	enc.AddUint8("prefix6Len", d.Prefix6Len)
	return nil
}

// S46Record is a decoded S46_RULE (MAP-E, MAP-T) or S46_V4V6BIND (lw4o6).
type S46Record struct {
	Mechanism  S46Mechanism
	IPv4Prefix netip.Addr
	Prefix4Len uint8
	IPv6Prefix netip.Addr
	Prefix6Len uint8
	// rules only
	Flags uint8
	EALen uint8

	PortParams []PortParams
	// Companions are declared once per option set, so every record of a set
	// carries the same values.
	BorderRelays []netip.Addr
	DMRs         []DMR
}

func (r *S46Record) IsRule() bool {
	return r.Mechanism != S46LW4O6
}

func (r *S46Record) FMR() bool {
	return IsBitSet(r.Flags, S46RuleFlagFMR)
}

func (r *S46Record) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", r.Mechanism.TypeName())
	enc.AddString("ipv4Prefix", r.IPv4Prefix.String())
	enc.AddUint8("prefix4Len", r.Prefix4Len)
	enc.AddString("ipv6Prefix", r.IPv6Prefix.String())
	enc.AddUint8("prefix6Len", r.Prefix6Len)
	if r.IsRule() {
		enc.AddUint8("flags", r.Flags)
		enc.AddUint8("eaLen", r.EALen)
	}
	return nil
}

// DecodeS46Rule decodes the value of an S46_RULE option and returns the bytes
// following the IPv6 prefix, where the rule's sub-options live.
func DecodeS46Rule(value []byte) (*S46Record, []byte, error) {
	if len(value) < S46RuleHeaderLength {
		return nil, nil, fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for S46_RULE", S46RuleHeaderLength, len(value))
	}
	r := &S46Record{
		Flags:      value[0],
		EALen:      value[s46RuleEALenIndex],
		Prefix4Len: value[s46RulePrefix4LenIndex],
		IPv4Prefix: netip.AddrFrom4([IPv4AddressLength]byte(value[s46RuleIPv4PrefixIndex : s46RuleIPv4PrefixIndex+IPv4AddressLength])),
		Prefix6Len: value[s46RulePrefix6LenIndex],
	}
	prefix, n, err := DecodePrefix6(r.Prefix6Len, value[S46RuleHeaderLength:])
	if err != nil {
		return nil, nil, fmt.Errorf("S46_RULE ipv6-prefix: %w", err)
	}
	r.IPv6Prefix = prefix
	return r, value[S46RuleHeaderLength+n:], nil
}

// DecodeS46Bind decodes the value of an S46_V4V6BIND option and returns the
// bytes following the IPv6 prefix.
func DecodeS46Bind(value []byte) (*S46Record, []byte, error) {
	if len(value) < S46BindHeaderLength {
		return nil, nil, fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for S46_V4V6BIND", S46BindHeaderLength, len(value))
	}
	r := &S46Record{
		Mechanism:  S46LW4O6,
		IPv4Prefix: netip.AddrFrom4([IPv4AddressLength]byte(value[0:IPv4AddressLength])),
		Prefix4Len: S46LW4O6IPv4PrefixLength,
		Prefix6Len: value[s46BindPrefix6LenIndex],
	}
	prefix, n, err := DecodePrefix6(r.Prefix6Len, value[S46BindHeaderLength:])
	if err != nil {
		return nil, nil, fmt.Errorf("S46_V4V6BIND bindprefix6: %w", err)
	}
	r.IPv6Prefix = prefix
	return r, value[S46BindHeaderLength+n:], nil
}

func DecodeS46DMR(value []byte) (*DMR, error) {
	if len(value) < S46DMRHeaderLength {
		return nil, fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for S46_DMR", S46DMRHeaderLength, len(value))
	}
	prefix, _, err := DecodePrefix6(value[0], value[S46DMRHeaderLength:])
	if err != nil {
		return nil, fmt.Errorf("S46_DMR dmr-ipv6-prefix: %w", err)
	}
	return &DMR{Prefix6Len: value[0], Prefix: prefix}, nil
}

// DecodeS46PortParams collects every S46_PORTPARAMS option of exactly the
// expected length found in a rule's or bind's sub-options. Others are ignored.
func DecodeS46PortParams(data []byte) []PortParams {
	var params []PortParams
	for opt := range Options(data) {
		if opt.Type != OptS46PortParams || len(opt.Value) != S46PortParamsValueLength {
			continue
		}
		params = append(params, PortParams{
			Offset:  opt.Value[0],
			PSIDLen: opt.Value[s46PortParamsPSIDLenIndex],
			PSID:    binary.BigEndian.Uint16(opt.Value[2:4]),
		})
	}
	return params
}

// S46Skip describes an outer record DecodeS46 could not use.
type S46Skip struct {
	Option Option
	Err    error
}

// DecodeS46 decodes the softwire option set of mechanism m. Each record is
// decoded with two walks over different spans:
//
//   - the record's own tail, for its port parameters;
//   - the whole option set, for the border relay (MAP-E, lw4o6) or the
//     default mapping rule (MAP-T).
//
// The second walk is scoped to the option set because those companions are
// declared once per set, so each record of a set reports the same values.
// Malformed records are left out and returned as skips; the walk continues.
func DecodeS46(m S46Mechanism, data []byte) ([]*S46Record, []S46Skip) {
	var records []*S46Record
	var skips []S46Skip

	for opt := range Options(data) {
		var (
			r    *S46Record
			tail []byte
			err  error
		)
		switch {
		case m != S46LW4O6 && opt.Type == OptS46Rule:
			r, tail, err = DecodeS46Rule(opt.Value)
		case m == S46LW4O6 && opt.Type == OptS46V4V6Bind:
			r, tail, err = DecodeS46Bind(opt.Value)
		default:
			continue
		}
		if err != nil {
			skips = append(skips, S46Skip{Option: opt, Err: err})
			continue
		}
		r.Mechanism = m

		r.PortParams = DecodeS46PortParams(tail)

		for companion := range Options(data) {
			switch {
			case m != S46MAPT && companion.Type == OptS46BR && len(companion.Value) == S46BRValueLength:
				r.BorderRelays = append(r.BorderRelays, netip.AddrFrom16([IPv6AddressLength]byte(companion.Value)))
			case m == S46MAPT && companion.Type == OptS46DMR:
				dmr, err := DecodeS46DMR(companion.Value)
				if err != nil {
					skips = append(skips, S46Skip{Option: companion, Err: err})
					continue
				}
				r.DMRs = append(r.DMRs, *dmr)
			}
		}

		records = append(records, r)
	}
	return records, skips
}

func (p PortParams) Serialize() []byte {
	return Option{
		Type:  OptS46PortParams,
		Value: AppendByteSlices([]byte{p.Offset, p.PSIDLen}, Uint16ToByteSlice(p.PSID)),
	}.Serialize()
}

func (d DMR) Serialize() []byte {
	return Option{
		Type:  OptS46DMR,
		Value: AppendByteSlices([]byte{d.Prefix6Len}, prefix6Bytes(d.Prefix, d.Prefix6Len)),
	}.Serialize()
}

// BorderRelayOption returns the S46_BR option for addr.
func BorderRelayOption(addr netip.Addr) Option {
	a := addr.As16()
	return Option{Type: OptS46BR, Value: a[:]}
}

// Serialize encodes the record as an S46_RULE, or an S46_V4V6BIND for lw4o6,
// followed by its port parameters. Companions are not part of the record's
// encoding.
func (r *S46Record) Serialize() []byte {
	var v4 [IPv4AddressLength]byte
	if r.IPv4Prefix.Is4() {
		v4 = r.IPv4Prefix.As4()
	}
	prefix := prefix6Bytes(r.IPv6Prefix, r.Prefix6Len)
	var value []byte
	if r.IsRule() {
		value = AppendByteSlices([]byte{r.Flags, r.EALen, r.Prefix4Len}, v4[:], []byte{r.Prefix6Len}, prefix)
	} else {
		value = AppendByteSlices(v4[:], []byte{r.Prefix6Len}, prefix)
	}
	for _, p := range r.PortParams {
		value = append(value, p.Serialize()...)
	}
	typ := OptS46Rule
	if !r.IsRule() {
		typ = OptS46V4V6Bind
	}
	return Option{Type: typ, Value: value}.Serialize()
}

// SerializeS46 encodes a complete softwire option set: the records followed
// by the border relays and DMRs shared by all of them.
func SerializeS46(records []*S46Record, borderRelays []netip.Addr, dmrs []DMR) []byte {
	var buf []byte
	for _, r := range records {
		buf = append(buf, r.Serialize()...)
	}
	for _, br := range borderRelays {
		buf = append(buf, BorderRelayOption(br).Serialize()...)
	}
	for _, d := range dmrs {
		buf = append(buf, d.Serialize()...)
	}
	return buf
}

func prefix6Bytes(addr netip.Addr, bits uint8) []byte {
	a := addr.As16()
	n := min(BitsToBytes(int(bits)), IPv6AddressLength)
	return a[:n]
}
