// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNotification(t *testing.T) {
	data, err := structpb.NewStruct(map[string]any{"RDNSS": []any{"2001:db8::53"}})
	require.NoError(t, err)

	tests := []struct {
		name       string
		n          Notification
		wantFields int
	}{
		{"with data", Notification{Type: "bound", Object: "odhcp6c.wan", Data: data}, 1},
		{"without data", Notification{Type: "stopped", Object: "odhcp6c.wan"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNotification(tt.n.Struct())
			require.NoError(t, err)
			assert.Equal(t, tt.n.Type, got.Type)
			assert.Equal(t, tt.n.Object, got.Object)
			assert.Len(t, got.Data.GetFields(), tt.wantFields)

			enc := zapcore.NewMapObjectEncoder()
			require.NoError(t, got.MarshalLogObject(enc))
			assert.Equal(t, tt.n.Type, enc.Fields["Type"])
			assert.Equal(t, tt.wantFields, enc.Fields["Fields"])
		})
	}
}

func TestParseNotification_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   *structpb.Struct
	}{
		{"nil", nil},
		{"missing type", &structpb.Struct{Fields: map[string]*structpb.Value{}}},
		{"numeric type", &structpb.Struct{Fields: map[string]*structpb.Value{FieldType: structpb.NewNumberValue(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNotification(tt.in)
			assert.Error(t, err)
		})
	}
}
