// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package v1

import (
	"fmt"

	"go.uber.org/zap/zapcore"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names of a notification message
const (
	FieldType   = "type"
	FieldObject = "object"
	FieldData   = "data"
)

// Notification is one message of the Subscribe stream.
type Notification struct {
	Type   string
	Object string
	Data   *structpb.Struct
}

// Struct wraps the notification for the wire.
func (n *Notification) Struct() *structpb.Struct {
	data := n.Data
	if data == nil {
		data = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldType:   structpb.NewStringValue(n.Type),
		FieldObject: structpb.NewStringValue(n.Object),
		FieldData:   structpb.NewStructValue(data),
	}}
}

// ParseNotification unwraps a message received from the Subscribe stream.
func ParseNotification(s *structpb.Struct) (*Notification, error) {
	fields := s.GetFields()
	typ, ok := fields[FieldType].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, fmt.Errorf("notification has no %q string", FieldType)
	}
	n := &Notification{
		Type:   typ.StringValue,
		Object: fields[FieldObject].GetStringValue(),
		Data:   fields[FieldData].GetStructValue(),
	}
	return n, nil
}

// Implements zapcore.ObjectMarshaler interface for Notification
func (n *Notification) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("Type", n.Type)
	enc.AddString("Object", n.Object)
	enc.AddInt("Fields", len(n.Data.GetFields()))
	return nil
}
