// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package document builds the ordered, self-describing notification
// payload. A Document accounts every field against a size limit, the way a
// fixed scratch buffer would, and fails with ErrNoMemory once it is full.
package document

import (
	"errors"
	"fmt"
)

var (
	ErrNoMemory = errors.New("document size limit exceeded")
	ErrReleased = errors.New("document already released")
)

// DefaultLimit matches the largest payload a notification attribute can carry.
const DefaultLimit = 1<<24 - 1

const (
	fieldHeaderLength = 4
	nameHeaderLength  = 2
	alignment         = 4
)

type Kind uint8

const (
	KindString Kind = iota
	KindUint8
	KindUint16
	KindUint32
	KindArray
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

type Value struct {
	kind  Kind
	str   string
	num   uint32
	array *Array
	table *Table
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) Text() string  { return v.str }
func (v Value) Uint() uint32  { return v.num }
func (v Value) Array() *Array { return v.array }
func (v Value) Table() *Table { return v.table }

// Interface returns the value as plain Go data: string, uint8, uint16,
// uint32, []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindUint8:
		return uint8(v.num)
	case KindUint16:
		return uint16(v.num)
	case KindUint32:
		return v.num
	case KindArray:
		return v.array.Slice()
	case KindTable:
		return v.table.Map()
	}
	return nil
}

type Field struct {
	Name  string
	Value Value
}

type Document struct {
	root     *Table
	size     int
	limit    int
	released bool
}

// New returns an empty document whose root is a table. A limit <= 0 selects
// DefaultLimit.
func New(limit int) *Document {
	if limit <= 0 {
		limit = DefaultLimit
	}
	d := &Document{limit: limit}
	d.root = &Table{doc: d}
	return d
}

func (d *Document) Root() *Table {
	return d.root
}

// Size is the number of bytes accounted so far.
func (d *Document) Size() int {
	return d.size
}

func (d *Document) Limit() int {
	return d.limit
}

// Release drops the document's contents. Further additions fail with
// ErrReleased. Release is idempotent.
func (d *Document) Release() {
	d.released = true
	d.root = &Table{doc: d}
	d.size = 0
}

func align(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

func (d *Document) reserve(name string, payload int) error {
	if d.released {
		return ErrReleased
	}
	cost := align(fieldHeaderLength+nameHeaderLength+len(name)+1) + align(payload)
	if d.size+cost > d.limit {
		return fmt.Errorf("%w: %d of %d bytes used, %q needs %d", ErrNoMemory, d.size, d.limit, name, cost)
	}
	d.size += cost
	return nil
}

type Table struct {
	doc    *Document
	fields []Field
}

func (t *Table) add(name string, payload int, v Value) error {
	if err := t.doc.reserve(name, payload); err != nil {
		return err
	}
	t.fields = append(t.fields, Field{Name: name, Value: v})
	return nil
}

func (t *Table) AddString(name, s string) error {
	return t.add(name, len(s)+1, Value{kind: KindString, str: s})
}

func (t *Table) AddUint8(name string, n uint8) error {
	return t.add(name, 1, Value{kind: KindUint8, num: uint32(n)})
}

func (t *Table) AddUint16(name string, n uint16) error {
	return t.add(name, 2, Value{kind: KindUint16, num: uint32(n)})
}

func (t *Table) AddUint32(name string, n uint32) error {
	return t.add(name, 4, Value{kind: KindUint32, num: n})
}

func (t *Table) AddArray(name string) (*Array, error) {
	a := &Array{doc: t.doc}
	if err := t.add(name, 0, Value{kind: KindArray, array: a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (t *Table) AddTable(name string) (*Table, error) {
	nt := &Table{doc: t.doc}
	if err := t.add(name, 0, Value{kind: KindTable, table: nt}); err != nil {
		return nil, err
	}
	return nt, nil
}

// Fields returns the fields in insertion order. Names may repeat.
func (t *Table) Fields() []Field {
	return t.fields
}

func (t *Table) Len() int {
	return len(t.fields)
}

// Get returns the first field called name.
func (t *Table) Get(name string) (Value, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Names returns the field names in insertion order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.fields))
	for _, f := range t.fields {
		names = append(names, f.Name)
	}
	return names
}

// Map flattens the table into plain Go data. A name that occurs more than
// once maps to a []any of its values in insertion order.
func (t *Table) Map() map[string]any {
	repeated := t.repeatedNames()
	m := make(map[string]any, len(t.fields))
	for _, f := range t.fields {
		if !repeated[f.Name] {
			m[f.Name] = f.Value.Interface()
			continue
		}
		list, _ := m[f.Name].([]any)
		m[f.Name] = append(list, f.Value.Interface())
	}
	return m
}

// repeatedNames reports the names that occur more than once, or nil.
func (t *Table) repeatedNames() map[string]bool {
	var repeated map[string]bool
	seen := make(map[string]struct{}, len(t.fields))
	for _, f := range t.fields {
		if _, ok := seen[f.Name]; !ok {
			seen[f.Name] = struct{}{}
			continue
		}
		if repeated == nil {
			repeated = make(map[string]bool)
		}
		repeated[f.Name] = true
	}
	return repeated
}

// Array holds unnamed values. Its entries are accounted like fields with an
// empty name.
type Array struct {
	doc   *Document
	items []Value
}

func (a *Array) add(payload int, v Value) error {
	if err := a.doc.reserve("", payload); err != nil {
		return err
	}
	a.items = append(a.items, v)
	return nil
}

func (a *Array) AddString(s string) error {
	return a.add(len(s)+1, Value{kind: KindString, str: s})
}

func (a *Array) AddTable() (*Table, error) {
	nt := &Table{doc: a.doc}
	if err := a.add(0, Value{kind: KindTable, table: nt}); err != nil {
		return nil, err
	}
	return nt, nil
}

func (a *Array) Items() []Value {
	return a.items
}

func (a *Array) Len() int {
	return len(a.items)
}

func (a *Array) Slice() []any {
	s := make([]any, 0, len(a.items))
	for _, v := range a.items {
		s = append(s, v.Interface())
	}
	return s
}
