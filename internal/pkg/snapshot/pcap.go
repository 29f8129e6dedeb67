// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/nttcom/dhcp6notify/pkg/notifier"
	"github.com/nttcom/dhcp6notify/pkg/packet/dhcpv6"
)

var ErrNoReply = errors.New("no DHCPv6 reply found")

const (
	pcapngMagic = 0x0a0d0d0a

	iaHeaderLength       = 12 // iaid, t1, t2
	iaAddrHeaderLength   = 24 // address, preferred, valid
	iaPrefixHeaderLength = 25 // preferred, valid, prefix-length, prefix
)

// options that only matter to the exchange itself
var exchangeOptions = map[dhcpv6.OptionType]struct{}{
	dhcpv6.OptClientID:        {},
	dhcpv6.OptServerID:        {},
	dhcpv6.OptORO:             {},
	dhcpv6.OptPreference:      {},
	dhcpv6.OptElapsedTime:     {},
	dhcpv6.OptStatusCode:      {},
	dhcpv6.OptRapidCommit:     {},
	dhcpv6.OptReconfAccept:    {},
	dhcpv6.OptInfoRefreshTime: {},
	dhcpv6.OptSolMaxRT:        {},
	dhcpv6.OptInfMaxRT:        {},
}

// LoadPcap builds a State from the last DHCPv6 Reply in a pcap or pcapng file.
func LoadPcap(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	return ReadPcap(f)
}

func ReadPcap(r io.Reader) (*State, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	var (
		source   gopacket.PacketDataSource
		linkType layers.LinkType
	)
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcapng: %w", err)
		}
		source, linkType = ng, ng.LinkType()
	} else {
		rd, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcap: %w", err)
		}
		source, linkType = rd, rd.LinkType()
	}

	var state *State
	packets := gopacket.NewPacketSource(source, linkType)
	for {
		pkt, err := packets.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read packet: %w", err)
		}
		layer := pkt.Layer(layers.LayerTypeDHCPv6)
		if layer == nil {
			continue
		}
		msg, ok := layer.(*layers.DHCPv6)
		if !ok || msg.MsgType != layers.DHCPv6MsgTypeReply {
			continue
		}
		var server netip.Addr
		if ip, ok := pkt.NetworkLayer().(*layers.IPv6); ok {
			server, _ = netip.AddrFromSlice(ip.SrcIP)
		}
		state = FromReply(server, msg.Options)
	}
	if state == nil {
		return nil, ErrNoReply
	}
	return state, nil
}

// FromReply fills a State from the options of a Reply sent by server. Options
// the client has no dedicated state for go to the custom options buffer.
func FromReply(server netip.Addr, opts layers.DHCPv6Options) *State {
	s := NewState()
	if server.Is6() {
		a := server.As16()
		s.SetBuffer(notifier.StateServerAddr, a[:])
	}

	for _, opt := range opts {
		typ := dhcpv6.OptionType(opt.Code)
		switch typ {
		case dhcpv6.OptDNSServers:
			s.AppendBuffer(notifier.StateDNS, opt.Data)
		case dhcpv6.OptDomainList:
			s.AppendBuffer(notifier.StateSearch, opt.Data)
		case dhcpv6.OptSNTPServers:
			s.AppendBuffer(notifier.StateSNTPIP, opt.Data)
		case dhcpv6.OptNTPServer:
			addNTPServer(s, opt.Data)
		case dhcpv6.OptSIPServerAddr:
			s.AppendBuffer(notifier.StateSIPIP, opt.Data)
		case dhcpv6.OptSIPServerDomain:
			s.AppendBuffer(notifier.StateSIPFQDN, opt.Data)
		case dhcpv6.OptAFTRName:
			s.AppendBuffer(notifier.StateAFTRName, opt.Data)
		case dhcpv6.OptCERID:
			if len(opt.Data) == dhcpv6.IPv6AddressLength {
				s.AppendBuffer(notifier.StateCER, opt.Data)
			}
		case dhcpv6.OptS46ContMAPE:
			s.AppendBuffer(notifier.StateS46MAPE, opt.Data)
		case dhcpv6.OptS46ContMAPT:
			s.AppendBuffer(notifier.StateS46MAPT, opt.Data)
		case dhcpv6.OptS46ContLW:
			s.AppendBuffer(notifier.StateS46LW, opt.Data)
		case dhcpv6.OptIANA:
			addIANA(s, opt.Data)
		case dhcpv6.OptIAPD:
			addIAPD(s, opt.Data)
		default:
			if _, ok := exchangeOptions[typ]; ok {
				continue
			}
			s.AppendBuffer(notifier.StateCustomOpts, dhcpv6.Option{Type: typ, Value: opt.Data}.Serialize())
		}
	}

	s.SetBound(len(s.Entries(notifier.StateIANA)) > 0 || len(s.Entries(notifier.StateIAPD)) > 0)
	return s
}

func addNTPServer(s *State, data []byte) {
	for sub := range dhcpv6.Options(data) {
		switch sub.Type {
		case dhcpv6.NTPSubOptSrvAddr, dhcpv6.NTPSubOptMCAddr:
			if len(sub.Value) == dhcpv6.IPv6AddressLength {
				s.AppendBuffer(notifier.StateNTPIP, sub.Value)
			}
		case dhcpv6.NTPSubOptSrvFQDN:
			s.AppendBuffer(notifier.StateNTPFQDN, sub.Value)
		}
	}
}

type iaHeader struct {
	iaid, t1, t2 uint32
}

func decodeIAHeader(data []byte) (iaHeader, []byte, bool) {
	if len(data) < iaHeaderLength {
		return iaHeader{}, nil, false
	}
	return iaHeader{
		iaid: binary.BigEndian.Uint32(data[0:4]),
		t1:   binary.BigEndian.Uint32(data[4:8]),
		t2:   binary.BigEndian.Uint32(data[8:12]),
	}, data[iaHeaderLength:], true
}

func addIANA(s *State, data []byte) {
	ia, opts, ok := decodeIAHeader(data)
	if !ok {
		return
	}
	for sub := range dhcpv6.Options(opts) {
		if sub.Type != dhcpv6.OptIAAddr || len(sub.Value) < iaAddrHeaderLength {
			continue
		}
		s.AddEntry(notifier.StateIANA, dhcpv6.Entry{
			Target:    netip.AddrFrom16([dhcpv6.IPv6AddressLength]byte(sub.Value[0:16])),
			Length:    128,
			Preferred: binary.BigEndian.Uint32(sub.Value[16:20]),
			Valid:     binary.BigEndian.Uint32(sub.Value[20:24]),
			T1:        ia.t1,
			T2:        ia.t2,
			IAID:      ia.iaid,
		})
	}
}

func addIAPD(s *State, data []byte) {
	ia, opts, ok := decodeIAHeader(data)
	if !ok {
		return
	}
	for sub := range dhcpv6.Options(opts) {
		if sub.Type != dhcpv6.OptIAPrefix || len(sub.Value) < iaPrefixHeaderLength {
			continue
		}
		bits := sub.Value[8]
		if bits > 128 {
			continue
		}
		e := dhcpv6.Entry{
			Preferred: binary.BigEndian.Uint32(sub.Value[0:4]),
			Valid:     binary.BigEndian.Uint32(sub.Value[4:8]),
			Length:    bits,
			Target:    netip.AddrFrom16([dhcpv6.IPv6AddressLength]byte(sub.Value[9:25])),
			T1:        ia.t1,
			T2:        ia.t2,
			IAID:      ia.iaid,
		}
		for pdOpt := range dhcpv6.Options(sub.Value[iaPrefixHeaderLength:]) {
			if pdOpt.Type != dhcpv6.OptPDExclude || len(pdOpt.Value) < 1 {
				continue
			}
			delegated := netip.PrefixFrom(e.Target, int(bits))
			addr, err := dhcpv6.ExcludedPrefixAddr(delegated, pdOpt.Value[0], pdOpt.Value[1:])
			if err != nil {
				continue
			}
			e.Exclusion = &dhcpv6.PrefixExclusion{Addr: addr, Length: uint16(pdOpt.Value[0])}
		}
		s.AddEntry(notifier.StateIAPD, e)
	}
}
