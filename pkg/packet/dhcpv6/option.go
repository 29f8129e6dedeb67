// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"iter"

	"go.uber.org/zap/zapcore"
)

type OptionType uint16

// DHCPv6 option codes
const (
	OptClientID        OptionType = 1
	OptServerID        OptionType = 2
	OptIANA            OptionType = 3
	OptIATA            OptionType = 4
	OptIAAddr          OptionType = 5
	OptORO             OptionType = 6
	OptPreference      OptionType = 7
	OptElapsedTime     OptionType = 8
	OptStatusCode      OptionType = 13
	OptRapidCommit     OptionType = 14
	OptVendorOpts      OptionType = 17
	OptReconfAccept    OptionType = 20
	OptSIPServerDomain OptionType = 21
	OptSIPServerAddr   OptionType = 22
	OptDNSServers      OptionType = 23
	OptDomainList      OptionType = 24
	OptIAPD            OptionType = 25
	OptIAPrefix        OptionType = 26
	OptSNTPServers     OptionType = 31
	OptInfoRefreshTime OptionType = 32
	OptFQDN            OptionType = 39
	OptNTPServer       OptionType = 56
	OptAFTRName        OptionType = 64
	OptPDExclude       OptionType = 67
	OptSolMaxRT        OptionType = 82
	OptInfMaxRT        OptionType = 83
	OptS46Rule         OptionType = 89
	OptS46BR           OptionType = 90
	OptS46DMR          OptionType = 91
	OptS46V4V6Bind     OptionType = 92
	OptS46PortParams   OptionType = 93
	OptS46ContMAPE     OptionType = 94
	OptS46ContMAPT     OptionType = 95
	OptS46ContLW       OptionType = 96
	OptCERID           OptionType = 0x8001 // draft-donley-dhc-cer-id-option-03, private use
)

// NTP_SERVER sub-options (RFC5908)
const (
	NTPSubOptSrvAddr OptionType = 1
	NTPSubOptMCAddr  OptionType = 2
	NTPSubOptSrvFQDN OptionType = 3
)

// Option header length (type + length)
const OptionHeaderLength = 4

const (
	IPv6AddressLength = 16
	IPv4AddressLength = 4

	maxOptionValueLength = 0xffff
)

var optionDescriptions = map[OptionType]struct {
	Description string
	Reference   string
}{
	OptClientID:        {"CLIENTID", "RFC8415"},
	OptServerID:        {"SERVERID", "RFC8415"},
	OptIANA:            {"IA_NA", "RFC8415"},
	OptIATA:            {"IA_TA", "RFC8415"},
	OptIAAddr:          {"IAADDR", "RFC8415"},
	OptORO:             {"ORO", "RFC8415"},
	OptPreference:      {"PREFERENCE", "RFC8415"},
	OptElapsedTime:     {"ELAPSED_TIME", "RFC8415"},
	OptStatusCode:      {"STATUS_CODE", "RFC8415"},
	OptRapidCommit:     {"RAPID_COMMIT", "RFC8415"},
	OptVendorOpts:      {"VENDOR_OPTS", "RFC8415"},
	OptReconfAccept:    {"RECONF_ACCEPT", "RFC8415"},
	OptSIPServerDomain: {"SIP_SERVER_D", "RFC3319"},
	OptSIPServerAddr:   {"SIP_SERVER_A", "RFC3319"},
	OptDNSServers:      {"DNS_SERVERS", "RFC3646"},
	OptDomainList:      {"DOMAIN_LIST", "RFC3646"},
	OptIAPD:            {"IA_PD", "RFC8415"},
	OptIAPrefix:        {"IAPREFIX", "RFC8415"},
	OptSNTPServers:     {"SNTP_SERVERS", "RFC4075"},
	OptInfoRefreshTime: {"INFORMATION_REFRESH_TIME", "RFC8415"},
	OptFQDN:            {"CLIENT_FQDN", "RFC4704"},
	OptNTPServer:       {"NTP_SERVER", "RFC5908"},
	OptAFTRName:        {"AFTR_NAME", "RFC6334"},
	OptPDExclude:       {"PD_EXCLUDE", "RFC6603"},
	OptSolMaxRT:        {"SOL_MAX_RT", "RFC8415"},
	OptInfMaxRT:        {"INF_MAX_RT", "RFC8415"},
	OptS46Rule:         {"S46_RULE", "RFC7598"},
	OptS46BR:           {"S46_BR", "RFC7598"},
	OptS46DMR:          {"S46_DMR", "RFC7598"},
	OptS46V4V6Bind:     {"S46_V4V6BIND", "RFC7598"},
	OptS46PortParams:   {"S46_PORTPARAMS", "RFC7598"},
	OptS46ContMAPE:     {"S46_CONT_MAPE", "RFC7598"},
	OptS46ContMAPT:     {"S46_CONT_MAPT", "RFC7598"},
	OptS46ContLW:       {"S46_CONT_LW", "RFC7598"},
	OptCERID:           {"CER_ID", "draft-donley-dhc-cer-id-option-03"},
}

func (t OptionType) String() string {
	if desc, ok := optionDescriptions[t]; ok {
		return fmt.Sprintf("%s (%s)", desc.Description, desc.Reference)
	}
	return fmt.Sprintf("Unknown Option (%d)", uint16(t))
}

// Option is a view of one type-length-value record. Value aliases the
// buffer the option was read from.
type Option struct {
	Type  OptionType
	Value []byte
}

func (o Option) Len() int {
	return OptionHeaderLength + len(o.Value)
}

func (o Option) Serialize() []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(o.Type),
		Uint16ToByteSlice(uint16(len(o.Value))),
		o.Value,
	)
}

func (o Option) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("type", uint16(o.Type))
	enc.AddInt("length", len(o.Value))
	enc.AddString("value", hex.EncodeToString(o.Value))
	return nil
}

// Options walks data as a sequence of options in wire order. The walk ends
// quietly at the first record whose header or declared length does not fit
// in the remaining bytes.
func Options(data []byte) iter.Seq[Option] {
	return func(yield func(Option) bool) {
		for len(data) >= OptionHeaderLength {
			length := int(binary.BigEndian.Uint16(data[2:4]))
			if OptionHeaderLength+length > len(data) {
				return
			}
			opt := Option{
				Type:  OptionType(binary.BigEndian.Uint16(data[0:2])),
				Value: data[OptionHeaderLength : OptionHeaderLength+length : OptionHeaderLength+length],
			}
			if !yield(opt) {
				return
			}
			data = data[OptionHeaderLength+length:]
		}
	}
}

func DecodeOptions(data []byte) []Option {
	var opts []Option
	for opt := range Options(data) {
		opts = append(opts, opt)
	}
	return opts
}

// SerializeOptions concatenates the wire form of opts. Values longer than
// 65535 bytes cannot be represented and are rejected.
func SerializeOptions(opts ...Option) ([]byte, error) {
	buf := make([]byte, 0)
	for _, opt := range opts {
		if len(opt.Value) > maxOptionValueLength {
			return nil, fmt.Errorf("option %d value is too long: %d bytes", opt.Type, len(opt.Value))
		}
		buf = append(buf, opt.Serialize()...)
	}
	return buf, nil
}
