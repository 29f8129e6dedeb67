// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package snapshot holds a client state in memory and fills it from snapshot
// files or packet captures.
package snapshot

import (
	"maps"
	"sync"

	"github.com/nttcom/dhcp6notify/pkg/notifier"
	"github.com/nttcom/dhcp6notify/pkg/packet/dhcpv6"
)

type RAParams struct {
	HopLimit   uint32 `yaml:"hop_limit"`
	MTU        uint32 `yaml:"mtu"`
	Reachable  uint32 `yaml:"reachable"`
	Retransmit uint32 `yaml:"retransmit"`
}

// State is an in-memory notifier.State. It is safe for concurrent use; Replace
// swaps the whole content at once.
type State struct {
	mu      sync.RWMutex
	buffers map[notifier.StateType][]byte
	entries map[notifier.StateType]dhcpv6.EntryTable
	bound   bool
	ra      RAParams
}

var (
	_ notifier.State       = (*State)(nil)
	_ notifier.Snapshotter = (*State)(nil)
)

func NewState() *State {
	return &State{
		buffers: make(map[notifier.StateType][]byte),
		entries: make(map[notifier.StateType]dhcpv6.EntryTable),
	}
}

func (s *State) Buffer(t notifier.StateType) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffers[t]
}

func (s *State) Entries(t notifier.StateType) dhcpv6.EntryTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[t]
}

func (s *State) IsBound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bound
}

func (s *State) RAHopLimit() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ra.HopLimit
}

func (s *State) RAMTU() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ra.MTU
}

func (s *State) RAReachable() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ra.Reachable
}

func (s *State) RARetransmit() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ra.Retransmit
}

// SetBuffer replaces a raw option buffer. Entry table states are converted
// from the legacy flat layout.
func (s *State) SetBuffer(t notifier.StateType, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.IsEntryTable() {
		s.entries[t] = dhcpv6.DecodeEntryTable(b)
		return
	}
	s.buffers[t] = b
}

// AppendBuffer adds b to the end of a raw option buffer.
func (s *State) AppendBuffer(t notifier.StateType, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[t] = append(s.buffers[t], b...)
}

func (s *State) AddEntry(t notifier.StateType, e dhcpv6.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[t] = append(s.entries[t], e)
}

func (s *State) SetBound(bound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = bound
}

func (s *State) SetRA(ra RAParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ra = ra
}

// Snapshot returns a copy of s. Later changes to s do not reach the copy.
func (s *State) Snapshot() notifier.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &State{
		buffers: maps.Clone(s.buffers),
		entries: maps.Clone(s.entries),
		bound:   s.bound,
		ra:      s.ra,
	}
}

// Replace copies the content of other into s.
func (s *State) Replace(other *State) {
	other.mu.RLock()
	buffers := maps.Clone(other.buffers)
	entries := maps.Clone(other.entries)
	bound, ra := other.bound, other.ra
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers, s.entries, s.bound, s.ra = buffers, entries, bound, ra
}

// Reset empties the state.
func (s *State) Reset() {
	s.Replace(NewState())
}
