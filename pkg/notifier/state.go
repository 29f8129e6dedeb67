// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package notifier

import (
	"context"
	"fmt"

	"github.com/nttcom/dhcp6notify/pkg/document"
	"github.com/nttcom/dhcp6notify/pkg/packet/dhcpv6"
)

type StateType uint8

const (
	StateServerAddr StateType = iota
	StateDNS
	StateSearch
	StateCustomOpts
	StateSNTPIP
	StateNTPIP
	StateNTPFQDN
	StateSIPIP
	StateSIPFQDN
	StateAFTRName
	StateCER
	StateS46MAPE
	StateS46MAPT
	StateS46LW
	StatePassthru
	StateIAPD
	StateIANA
	StateRAPrefix
	StateRARoute
	StateRADNS
	StateRASearch
	stateMax
)

var stateTypeNames = [stateMax]string{
	StateServerAddr: "server-addr",
	StateDNS:        "dns",
	StateSearch:     "search",
	StateCustomOpts: "custom-opts",
	StateSNTPIP:     "sntp-ip",
	StateNTPIP:      "ntp-ip",
	StateNTPFQDN:    "ntp-fqdn",
	StateSIPIP:      "sip-ip",
	StateSIPFQDN:    "sip-fqdn",
	StateAFTRName:   "aftr-name",
	StateCER:        "cer",
	StateS46MAPE:    "s46-mape",
	StateS46MAPT:    "s46-mapt",
	StateS46LW:      "s46-lw",
	StatePassthru:   "passthru",
	StateIAPD:       "ia-pd",
	StateIANA:       "ia-na",
	StateRAPrefix:   "ra-prefix",
	StateRARoute:    "ra-route",
	StateRADNS:      "ra-dns",
	StateRASearch:   "ra-search",
}

func (t StateType) String() string {
	if t < stateMax {
		return stateTypeNames[t]
	}
	return fmt.Sprintf("state(%d)", uint8(t))
}

// ParseStateType is the inverse of StateType.String.
func ParseStateType(s string) (StateType, error) {
	for i, name := range stateTypeNames {
		if name == s {
			return StateType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state type %q", s)
}

// IsEntryTable reports whether the state is kept as a lease entry table
// rather than a raw option buffer.
func (t StateType) IsEntryTable() bool {
	return t >= StateIAPD && t < stateMax
}

// State is the read-only view of the client's current configuration. The
// returned slices are borrowed for the duration of one encode pass.
type State interface {
	Buffer(t StateType) []byte
	Entries(t StateType) dhcpv6.EntryTable
	IsBound() bool
	RAHopLimit() uint32
	RAMTU() uint32
	RAReachable() uint32
	RARetransmit() uint32
}

// Snapshotter is implemented by states that change while a document is
// being built. Snapshot returns a copy that no longer changes.
type Snapshotter interface {
	Snapshot() State
}

// Bus delivers a finished notification to its subscribers. doc is only
// valid until Notify returns.
type Bus interface {
	HasSubscribers() bool
	Notify(ctx context.Context, status string, doc *document.Table) error
}
