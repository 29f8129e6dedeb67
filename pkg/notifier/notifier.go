// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package notifier turns the client's binary DHCPv6 state into one ordered
// notification document and hands it to a Bus.
package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nttcom/dhcp6notify/pkg/document"
	"github.com/nttcom/dhcp6notify/pkg/packet/dhcpv6"
)

// Status names carried by notifications
const (
	StatusStarted = "started"
	StatusUpdated = "updated"
	StatusBound   = "bound"
	StatusStopped = "stopped"
)

// Recorder receives counters for notifications and decode skips.
type Recorder interface {
	NotificationSent(status string)
	NotificationSkipped()
	DecodeSkipped(component string)
}

type nopRecorder struct{}

func (nopRecorder) NotificationSent(string) {}
func (nopRecorder) NotificationSkipped()    {}
func (nopRecorder) DecodeSkipped(string)    {}

type Assembler struct {
	state    State
	bus      Bus
	logger   *zap.Logger
	limit    int
	recorder Recorder
}

type Option func(*Assembler)

// WithDocumentLimit bounds the size of every document built. A limit <= 0
// selects document.DefaultLimit.
func WithDocumentLimit(limit int) Option {
	return func(a *Assembler) {
		a.limit = limit
	}
}

func WithRecorder(r Recorder) Option {
	return func(a *Assembler) {
		if r != nil {
			a.recorder = r
		}
	}
}

// NewAssembler returns an Assembler reading from state. bus may be nil, in
// which case Notify never sends anything.
func NewAssembler(state State, bus Bus, logger *zap.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assembler{
		state:    state,
		bus:      bus,
		logger:   logger.With(zap.String("component", "notifier")),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Notify encodes the current state and publishes it tagged with status. It
// does nothing when there is no bus or nobody is subscribed.
func (a *Assembler) Notify(ctx context.Context, status string) error {
	if a.bus == nil || !a.bus.HasSubscribers() {
		a.logger.Debug("no subscribers, notification skipped", zap.String("status", status))
		a.recorder.NotificationSkipped()
		return nil
	}

	doc, err := a.Build()
	if err != nil {
		return err
	}
	defer doc.Release()

	if err := a.bus.Notify(ctx, status, doc.Root()); err != nil {
		return fmt.Errorf("failed to publish %q notification: %w", status, err)
	}
	a.logger.Debug("notification sent", zap.String("status", status), zap.Int("size", doc.Size()))
	a.recorder.NotificationSent(status)
	return nil
}

// Build encodes the current state into a new document, which the caller must
// release. On failure nothing is returned and the partial document is
// already released. A state implementing Snapshotter is read from a single
// snapshot.
func (a *Assembler) Build() (*document.Document, error) {
	s := a.state
	if ss, ok := s.(Snapshotter); ok {
		s = ss.Snapshot()
	}
	doc := document.New(a.limit)
	if err := a.build(doc.Root(), s); err != nil {
		doc.Release()
		return nil, err
	}
	return doc, nil
}

type encodeStep struct {
	name   string
	encode func(t *document.Table) error
}

func (a *Assembler) steps(s State) []encodeStep {
	ipv6List := func(name string, st StateType) encodeStep {
		return encodeStep{name, func(t *document.Table) error { return a.encodeIPv6List(t, name, s.Buffer(st)) }}
	}
	fqdn := func(name string, st StateType) encodeStep {
		return encodeStep{name, func(t *document.Table) error { return a.encodeFQDN(t, name, s.Buffer(st)) }}
	}
	s46 := func(m dhcpv6.S46Mechanism, st StateType) encodeStep {
		return encodeStep{m.Name(), func(t *document.Table) error { return a.encodeS46(t, m, s.Buffer(st)) }}
	}
	entries := func(name string, kind dhcpv6.EntryKind, st StateType) encodeStep {
		return encodeStep{name, func(t *document.Table) error { return a.encodeEntries(t, name, kind, s.Entries(st)) }}
	}
	scalar := func(name string, get func() uint32) encodeStep {
		return encodeStep{name, func(t *document.Table) error { return t.AddUint32(name, get()) }}
	}

	steps := []encodeStep{
		ipv6List("SERVER", StateServerAddr),
		ipv6List("RDNSS", StateDNS),
		ipv6List("SNTP_IP", StateSNTPIP),
		ipv6List("NTP_IP", StateNTPIP),
		fqdn("NTP_FQDN", StateNTPFQDN),
		ipv6List("SIP_IP", StateSIPIP),
		fqdn("DOMAINS", StateSearch),
		fqdn("SIP_DOMAIN", StateSIPFQDN),
		fqdn("AFTR", StateAFTRName),
		ipv6List("CER", StateCER),
		s46(dhcpv6.S46MAPE, StateS46MAPE),
		s46(dhcpv6.S46MAPT, StateS46MAPT),
		s46(dhcpv6.S46LW4O6, StateS46LW),
		{"custom options", func(t *document.Table) error { return a.encodeCustom(t, s.Buffer(StateCustomOpts)) }},
	}
	if s.IsBound() {
		steps = append(steps,
			entries("PREFIXES", dhcpv6.EntryPrefix, StateIAPD),
			entries("ADDRESSES", dhcpv6.EntryAddress, StateIANA),
		)
	}
	return append(steps,
		entries("RA_ADDRESSES", dhcpv6.EntryAddress, StateRAPrefix),
		entries("RA_ROUTES", dhcpv6.EntryRoute, StateRARoute),
		entries("RA_DNS", dhcpv6.EntryHost, StateRADNS),
		encodeStep{"RA_DOMAINS", func(t *document.Table) error { return a.encodeSearch(t, "RA_DOMAINS", s.Entries(StateRASearch)) }},
		scalar("RA_HOPLIMIT", s.RAHopLimit),
		scalar("RA_MTU", s.RAMTU),
		scalar("RA_REACHABLE", s.RAReachable),
		scalar("RA_RETRANSMIT", s.RARetransmit),
		encodeStep{"PASSTHRU", func(t *document.Table) error { return a.encodeHex(t, "PASSTHRU", s.Buffer(StatePassthru)) }},
	)
}

func (a *Assembler) build(root *document.Table, s State) error {
	for _, step := range a.steps(s) {
		if err := step.encode(root); err != nil {
			return fmt.Errorf("failed to encode %s: %w", step.name, err)
		}
	}
	return nil
}
