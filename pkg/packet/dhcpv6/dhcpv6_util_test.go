// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"bytes"
	"testing"
)

func TestAppendByteSlices(t *testing.T) {
	tests := []struct {
		name     string
		input    [][]byte
		expected []byte
	}{
		{
			name:     "Concatenate non-empty slices",
			input:    [][]byte{{0x01, 0x02}, {0x03, 0x04, 0x05}},
			expected: []byte{0x01, 0x02, 0x03, 0x04, 0x05},
		},
		{
			name:     "Concatenate empty slices",
			input:    [][]byte{{}, {}},
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AppendByteSlices(tt.input...)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestUint16ToByteSlice(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []byte
	}{
		{
			name:     "Convert uint16 0x0102 to bytes",
			input:    uint16(0x0102),
			expected: []byte{0x01, 0x02},
		},
		{
			name:     "Convert OptionType 94 to bytes",
			input:    OptS46ContMAPE,
			expected: []byte{0x00, 0x5e},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result []byte
			switch v := tt.input.(type) {
			case uint16:
				result = Uint16ToByteSlice(v)
			case OptionType:
				result = Uint16ToByteSlice(v)
			default:
				t.Fatalf("unexpected type %T", v)
			}
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestBitHelpers(t *testing.T) {
	if !IsBitSet(uint8(0x01), S46RuleFlagFMR) {
		t.Error("expected FMR bit to be set")
	}
	if IsBitSet(uint8(0x02), S46RuleFlagFMR) {
		t.Error("expected FMR bit to be clear")
	}
	if got := SetBit(uint8(0x00), S46RuleFlagFMR, true); got != 0x01 {
		t.Errorf("expected 0x01, got 0x%02x", got)
	}
	if got := SetBit(uint8(0x00), S46RuleFlagFMR, false); got != 0x00 {
		t.Errorf("expected 0x00, got 0x%02x", got)
	}
}
