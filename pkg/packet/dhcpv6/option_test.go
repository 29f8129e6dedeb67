// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package dhcpv6

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []Option
	}{
		{
			name:     "Empty buffer",
			input:    []byte{},
			expected: nil,
		},
		{
			name:     "Buffer shorter than a header",
			input:    []byte{0x00, 0x17, 0x00},
			expected: nil,
		},
		{
			name:  "Two records in wire order",
			input: []byte{0x00, 0x63, 0x00, 0x02, 0xab, 0xcd, 0x00, 0x17, 0x00, 0x00},
			expected: []Option{
				{Type: 99, Value: []byte{0xab, 0xcd}},
				{Type: OptDNSServers, Value: []byte{}},
			},
		},
		{
			name:  "Truncated trailing record is dropped",
			input: []byte{0x00, 0x63, 0x00, 0x01, 0xff, 0x00, 0x64, 0x00, 0x04, 0x01, 0x02},
			expected: []Option{
				{Type: 99, Value: []byte{0xff}},
			},
		},
		{
			name:  "Trailing bytes shorter than a header are ignored",
			input: []byte{0x00, 0x63, 0x00, 0x00, 0x00, 0x64, 0x00},
			expected: []Option{
				{Type: 99, Value: []byte{}},
			},
		},
		{
			name:     "Declared length overruns the buffer",
			input:    []byte{0x00, 0x63, 0xff, 0xff, 0x01},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodeOptions(tt.input))
		})
	}
}

func TestOptions_StopEarly(t *testing.T) {
	buf, err := SerializeOptions(
		Option{Type: 1, Value: []byte{0x01}},
		Option{Type: 2, Value: []byte{0x02}},
		Option{Type: 3, Value: []byte{0x03}},
	)
	require.NoError(t, err)

	var visited []OptionType
	for opt := range Options(buf) {
		visited = append(visited, opt.Type)
		if opt.Type == 2 {
			break
		}
	}
	assert.Equal(t, []OptionType{1, 2}, visited)
}

func TestOptions_ValueDoesNotExtendIntoNextRecord(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x00, 0x01, 0xaa, 0x00, 0x02, 0x00, 0x01, 0xbb}
	opts := DecodeOptions(buf)
	require.Len(t, opts, 2)

	first := append(opts[0].Value, 0xff)
	assert.Equal(t, []byte{0xaa, 0xff}, first)
	assert.Equal(t, byte(0x00), buf[5], "appending to a value must not overwrite the next header")
}

func TestSerializeOptions(t *testing.T) {
	buf, err := SerializeOptions(Option{Type: 99, Value: []byte{0xab, 0xcd}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x63, 0x00, 0x02, 0xab, 0xcd}, buf)

	_, err = SerializeOptions(Option{Type: 99, Value: make([]byte, 0x10000)})
	assert.Error(t, err)
}

func TestOptionType_String(t *testing.T) {
	assert.Equal(t, "S46_CONT_MAPE (RFC7598)", OptS46ContMAPE.String())
	assert.Equal(t, "Unknown Option (999)", OptionType(999).String())
}

func TestOption_MarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	err := Option{Type: 99, Value: []byte{0xab, 0xcd}}.MarshalLogObject(enc)

	assert.NoError(t, err)
	assert.Equal(t, uint16(99), enc.Fields["type"])
	assert.Equal(t, 2, enc.Fields["length"])
	assert.Equal(t, "abcd", enc.Fields["value"])
}
