package cql

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

// UDTValue holds the field values of a user type instance.
type UDTValue struct {
	typ    *UserType
	values []any
}

// NewUDTValue returns an empty value of the given user type. All fields are NULL.
func NewUDTValue(t *UserType) *UDTValue {
	return &UDTValue{typ: t, values: make([]any, len(t.Fields))}
}

// Type returns the user type schema of the value.
func (v *UDTValue) Type() *UserType { return v.typ }

// Set assigns a field value. Unknown fields are an error.
func (v *UDTValue) Set(field Identifier, value any) error {
	i := v.typ.Field(field)
	if i < 0 {
		return fmt.Errorf("cql: user type %s has no field %s", v.typ.Name, field)
	}
	v.values[i] = value
	return nil
}

// Get returns a field value and whether the field exists.
func (v *UDTValue) Get(field Identifier) (any, bool) {
	i := v.typ.Field(field)
	if i < 0 {
		return nil, false
	}
	return v.values[i], true
}

// Lookup returns the value of the field with the given name. Names match
// exactly first, then case-insensitively.
func (v *UDTValue) Lookup(name string) (any, bool) {
	for i, f := range v.typ.Fields {
		if f.Name.Name() == name {
			return v.values[i], true
		}
	}
	for i, f := range v.typ.Fields {
		if strings.EqualFold(f.Name.Name(), name) {
			return v.values[i], true
		}
	}
	return nil, false
}

// MarshalUDT implements gocql.UDTMarshaler.
func (v *UDTValue) MarshalUDT(name string, info gocql.TypeInfo) ([]byte, error) {
	for i, f := range v.typ.Fields {
		if f.Name.Name() == name {
			return gocql.Marshal(info, DriverValue(v.values[i]))
		}
	}
	return nil, nil
}

// String renders the value like the driver does.
func (v *UDTValue) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range v.typ.Fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Name.String())
		sb.WriteByte(':')
		sb.WriteString(literal(v.values[i]))
	}
	sb.WriteByte('}')
	return sb.String()
}

// TupleValue holds the positional components of a tuple.
type TupleValue struct {
	types  []DataType
	values []any
}

// NewTupleValue returns a tuple of the given component types with all
// components NULL.
func NewTupleValue(types ...DataType) *TupleValue {
	return &TupleValue{types: types, values: make([]any, len(types))}
}

// Types returns the component types.
func (v *TupleValue) Types() []DataType { return v.types }

// Len returns the number of components.
func (v *TupleValue) Len() int { return len(v.values) }

// Set assigns the i-th component.
func (v *TupleValue) Set(i int, value any) error {
	if i < 0 || i >= len(v.values) {
		return fmt.Errorf("cql: tuple index %d out of range [0,%d)", i, len(v.values))
	}
	v.values[i] = value
	return nil
}

// Get returns the i-th component, or nil when out of range.
func (v *TupleValue) Get(i int) any {
	if i < 0 || i >= len(v.values) {
		return nil
	}
	return v.values[i]
}

// Values returns a copy of the components.
func (v *TupleValue) Values() []any {
	return append([]any(nil), v.values...)
}

// String renders the value like the driver does.
func (v *TupleValue) String() string {
	parts := make([]string, len(v.values))
	for i, x := range v.values {
		parts[i] = literal(x)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// LocalDate is a date without time zone, counted in days since the Unix epoch.
type LocalDate int32

// LocalDateOf returns the date of t in UTC.
func LocalDateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	return LocalDate(days)
}

// Time returns midnight UTC of the date.
func (d LocalDate) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// String returns the date in ISO 8601 format.
func (d LocalDate) String() string {
	return d.Time().Format(time.DateOnly)
}

// LocalTime is a time of day counted in milliseconds since midnight,
// 0 <= t < 86 400 000.
type LocalTime int64

// MillisPerDay bounds LocalTime values.
const MillisPerDay = 24 * 60 * 60 * 1000

// Duration returns the time of day as an offset from midnight.
func (t LocalTime) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

// Valid reports whether t lies within a day.
func (t LocalTime) Valid() bool { return t >= 0 && t < MillisPerDay }

// String returns the time as hh:mm:ss.fff.
func (t LocalTime) String() string {
	ms := int64(t)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}

// DriverValue converts container values to the representation gocql marshals:
// tuples become []any, dates become time.Time and times of day become
// time.Duration. Collections are converted element-wise, map keys
// included. Tuple keys become arrays so they stay comparable.
func DriverValue(v any) any {
	switch v := v.(type) {
	case *TupleValue:
		out := make([]any, len(v.values))
		for i, x := range v.values {
			out[i] = DriverValue(x)
		}
		return out
	case LocalDate:
		return v.Time()
	case LocalTime:
		return v.Duration()
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = DriverValue(x)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, x := range v {
			out[driverKey(k)] = DriverValue(x)
		}
		return out
	default:
		return v
	}
}

var anyType = reflect.TypeFor[any]()

func driverKey(k any) any {
	tv, ok := k.(*TupleValue)
	if !ok {
		return DriverValue(k)
	}
	arr := reflect.New(reflect.ArrayOf(len(tv.values), anyType)).Elem()
	for i, x := range tv.values {
		if dv := DriverValue(x); dv != nil {
			arr.Index(i).Set(reflect.ValueOf(dv))
		}
	}
	return arr.Interface()
}

func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
