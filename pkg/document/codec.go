// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/protobuf/types/known/structpb"
)

var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}
}

// MarshalJSON writes the table's fields in insertion order, repeating names
// as they were added.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range t.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindUint8, KindUint16, KindUint32:
		return json.Marshal(v.num)
	case KindArray:
		return v.array.MarshalJSON()
	case KindTable:
		return v.table.MarshalJSON()
	}
	return nil, fmt.Errorf("unknown value kind %s", v.kind)
}

// MarshalCBOR encodes the table as a CBOR map in core deterministic form.
// Repeated names become an array of their values.
func (t *Table) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(t.Map())
}

// Struct converts the table into a protobuf Struct. A name that occurs more
// than once becomes a list of its values in insertion order.
func (t *Table) Struct() *structpb.Struct {
	repeated := t.repeatedNames()
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(t.fields))}
	for _, f := range t.fields {
		if !repeated[f.Name] {
			s.Fields[f.Name] = f.Value.Proto()
			continue
		}
		list, ok := s.Fields[f.Name]
		if !ok {
			list = structpb.NewListValue(&structpb.ListValue{})
			s.Fields[f.Name] = list
		}
		l := list.GetListValue()
		l.Values = append(l.Values, f.Value.Proto())
	}
	return s
}

func (a *Array) ListValue() *structpb.ListValue {
	l := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(a.items))}
	for _, v := range a.items {
		l.Values = append(l.Values, v.Proto())
	}
	return l
}

// Proto converts the value into a protobuf Value. Integers become numbers.
func (v Value) Proto() *structpb.Value {
	switch v.kind {
	case KindString:
		return structpb.NewStringValue(v.str)
	case KindUint8, KindUint16, KindUint32:
		return structpb.NewNumberValue(float64(v.num))
	case KindArray:
		return structpb.NewListValue(v.array.ListValue())
	case KindTable:
		return structpb.NewStructValue(v.table.Struct())
	}
	return structpb.NewNullValue()
}
