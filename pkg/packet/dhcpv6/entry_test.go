// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestEntryTable_SerializeDecode(t *testing.T) {
	table := EntryTable{
		{
			Target:    netip.MustParseAddr("2001:db8:1::"),
			Length:    56,
			Router:    netip.MustParseAddr("::"),
			Valid:     7200,
			Preferred: 3600,
			T1:        1800,
			T2:        2880,
			IAID:      2,
		},
		{
			Target:    netip.MustParseAddr("::"),
			Router:    netip.MustParseAddr("::"),
			Valid:     600,
			AuxTarget: []byte("example.com"),
		},
		{
			Target: netip.MustParseAddr("fe80::1"),
			Length: 128,
			Router: netip.MustParseAddr("fe80::2"),
			Valid:  1800,
		},
	}

	buf := table.Serialize()
	assert.Len(t, buf, 3*EntryHeaderLength+len("example.com"))

	decoded := DecodeEntryTable(buf)
	assert.Equal(t, table, decoded)
}

func TestDecodeEntryTable_Truncated(t *testing.T) {
	e := Entry{Target: netip.MustParseAddr("2001:db8::1"), Router: netip.MustParseAddr("::"), Valid: 1}
	aux := Entry{Target: netip.MustParseAddr("::"), Router: netip.MustParseAddr("::"), Valid: 1, AuxTarget: []byte("lan")}

	tests := []struct {
		name     string
		input    []byte
		expected int
	}{
		{name: "Empty", input: nil, expected: 0},
		{name: "Shorter than one header", input: e.Serialize()[:EntryHeaderLength-1], expected: 0},
		{name: "One entry plus a partial header", input: append(e.Serialize(), make([]byte, 10)...), expected: 1},
		{name: "Aux tail cut short", input: append(e.Serialize(), aux.Serialize()[:EntryHeaderLength+2]...), expected: 1},
		{name: "Variable stride", input: append(aux.Serialize(), e.Serialize()...), expected: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, DecodeEntryTable(tt.input), tt.expected)
		})
	}
}

func TestEntry_ExcludedPrefix(t *testing.T) {
	explicit := &PrefixExclusion{Addr: netip.MustParseAddr("2001:db8:0:1::"), Length: 64}

	tests := []struct {
		name     string
		entry    Entry
		expected PrefixExclusion
		ok       bool
	}{
		{
			name:  "No exclusion",
			entry: Entry{Router: netip.MustParseAddr("::")},
			ok:    false,
		},
		{
			name:     "Explicit exclusion",
			entry:    Entry{Exclusion: explicit},
			expected: *explicit,
			ok:       true,
		},
		{
			name:     "Legacy non-zero priority",
			entry:    Entry{Router: netip.MustParseAddr("2001:db8:0:2::"), Priority: 64},
			expected: PrefixExclusion{Addr: netip.MustParseAddr("2001:db8:0:2::"), Length: 64},
			ok:       true,
		},
		{
			name:     "Legacy priority wider than a byte",
			entry:    Entry{Router: netip.MustParseAddr("2001:db8:0:2::"), Priority: 300},
			expected: PrefixExclusion{Addr: netip.MustParseAddr("2001:db8:0:2::"), Length: 300},
			ok:       true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			excl, ok := tt.entry.ExcludedPrefix()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, excl)
		})
	}
}

func TestEntry_SerializeExplicitExclusion(t *testing.T) {
	e := Entry{
		Target:    netip.MustParseAddr("2001:db8::"),
		Length:    56,
		Valid:     100,
		Exclusion: &PrefixExclusion{Addr: netip.MustParseAddr("2001:db8:0:1::"), Length: 64},
	}
	decoded := DecodeEntryTable(e.Serialize())
	require.Len(t, decoded, 1)

	excl, ok := decoded[0].ExcludedPrefix()
	assert.True(t, ok)
	assert.Equal(t, *e.Exclusion, excl)
	assert.Nil(t, decoded[0].Exclusion, "the wire form only carries the legacy encoding")
}

func TestEntry_MarshalLogObject(t *testing.T) {
	e := &Entry{Target: netip.MustParseAddr("2001:db8::1"), Length: 128, Valid: 10, AuxTarget: []byte("lan")}
	enc := zapcore.NewMapObjectEncoder()
	assert.NoError(t, e.MarshalLogObject(enc))
	assert.Equal(t, "2001:db8::1", enc.Fields["target"])
	assert.NotContains(t, enc.Fields, "router")
	assert.Equal(t, "lan", enc.Fields["auxTarget"])
}

func TestEntryKind_String(t *testing.T) {
	assert.Equal(t, "prefix", EntryPrefix.String())
	assert.Equal(t, "unknown", EntryKind(42).String())
}
