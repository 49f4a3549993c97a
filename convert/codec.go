package convert

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"

	"github.com/syssam/cassava/dialect/cql"
)

// encode applies the built-in write conversions. Values without one are
// returned as is.
func encode(v any) (any, error) {
	switch x := v.(type) {
	case civil.Time:
		if !x.IsValid() {
			return nil, fmt.Errorf("invalid time of day %s", x)
		}
		return LocalTimeOf(x), nil
	case civil.Date:
		if !x.IsValid() {
			return nil, fmt.Errorf("invalid date %s", x)
		}
		return cql.LocalDateOf(x.In(time.UTC)), nil
	case cql.LocalTime:
		if !x.Valid() {
			return nil, fmt.Errorf("time of day %d out of range [0,%d)", int64(x), cql.MillisPerDay)
		}
		return x, nil
	case uuid.UUID:
		return gocql.UUID(x), nil
	case decimal.Decimal:
		return inf.NewDecBig(x.Coefficient(), inf.Scale(-x.Exponent())), nil
	default:
		return v, nil
	}
}

// LocalTimeOf returns t in milliseconds since midnight. Sub-millisecond
// precision is truncated.
func LocalTimeOf(t civil.Time) cql.LocalTime {
	ms := int64(t.Hour)*3_600_000 + int64(t.Minute)*60_000 + int64(t.Second)*1000 + int64(t.Nanosecond)/int64(time.Millisecond)
	return cql.LocalTime(ms)
}

// CivilTime is the inverse of LocalTimeOf.
func CivilTime(t cql.LocalTime) civil.Time {
	ms := int64(t)
	return civil.Time{
		Hour:       int(ms / 3_600_000),
		Minute:     int(ms / 60_000 % 60),
		Second:     int(ms / 1000 % 60),
		Nanosecond: int(ms % 1000 * int64(time.Millisecond)),
	}
}

var errNoConversion = errors.New("no conversion")

// decode applies the built-in read conversions.
func decode(src, dst any) error {
	var err error
	switch d := dst.(type) {
	case *civil.Time:
		err = decodeTimeOfDay(src, d)
	case *cql.LocalTime:
		var t civil.Time
		if err = decodeTimeOfDay(src, &t); err == nil {
			*d = LocalTimeOf(t)
		}
	case *civil.Date:
		switch x := src.(type) {
		case cql.LocalDate:
			*d = civil.DateOf(x.Time())
		case time.Time:
			*d = civil.DateOf(x.UTC())
		default:
			err = errNoConversion
		}
	case *cql.LocalDate:
		switch x := src.(type) {
		case time.Time:
			*d = cql.LocalDateOf(x.UTC())
		case civil.Date:
			*d = cql.LocalDateOf(x.In(time.UTC))
		default:
			err = errNoConversion
		}
	case *time.Time:
		switch x := src.(type) {
		case cql.LocalDate:
			*d = x.Time()
		case civil.Date:
			*d = x.In(time.UTC)
		default:
			err = errNoConversion
		}
	case *uuid.UUID:
		switch x := src.(type) {
		case gocql.UUID:
			*d = uuid.UUID(x)
		case string:
			*d, err = uuid.Parse(x)
		case []byte:
			*d, err = uuid.FromBytes(x)
		default:
			err = errNoConversion
		}
	case *gocql.UUID:
		switch x := src.(type) {
		case uuid.UUID:
			*d = gocql.UUID(x)
		case string:
			*d, err = gocql.ParseUUID(x)
		default:
			err = errNoConversion
		}
	case *decimal.Decimal:
		switch x := src.(type) {
		case *inf.Dec:
			*d = decimal.NewFromBigInt(x.UnscaledBig(), -int32(x.Scale()))
		case string:
			*d, err = decimal.NewFromString(x)
		case float64:
			*d = decimal.NewFromFloat(x)
		default:
			err = errNoConversion
		}
	case **inf.Dec:
		switch x := src.(type) {
		case decimal.Decimal:
			*d = inf.NewDecBig(x.Coefficient(), inf.Scale(-x.Exponent()))
		default:
			err = errNoConversion
		}
	case *int64:
		err = decodeInt(src, d)
	case *int:
		err = decodeInt(src, d)
	case *int32:
		err = decodeInt(src, d)
	case *int16:
		err = decodeInt(src, d)
	case *int8:
		err = decodeInt(src, d)
	case *float64:
		switch x := src.(type) {
		case float32:
			*d = float64(x)
		default:
			if n, ok := asInt64(src); ok {
				*d = float64(n)
			} else {
				err = errNoConversion
			}
		}
	default:
		err = errNoConversion
	}
	if errors.Is(err, errNoConversion) {
		err = decodeReflect(src, dst)
	}
	return err
}

func decodeTimeOfDay(src any, d *civil.Time) error {
	var t cql.LocalTime
	switch x := src.(type) {
	case cql.LocalTime:
		t = x
	case time.Duration:
		t = cql.LocalTime(x / time.Millisecond)
	case int64:
		t = cql.LocalTime(x)
	case civil.Time:
		*d = x
		return nil
	default:
		return errNoConversion
	}
	if !t.Valid() {
		return fmt.Errorf("time of day %d out of range [0,%d)", int64(t), cql.MillisPerDay)
	}
	*d = CivilTime(t)
	return nil
}

func asInt64(src any) (int64, bool) {
	switch x := src.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	default:
		return 0, false
	}
}

func decodeInt[T ~int | ~int8 | ~int16 | ~int32 | ~int64](src any, d *T) error {
	n, ok := asInt64(src)
	if !ok {
		return errNoConversion
	}
	if v := T(n); int64(v) != n {
		return fmt.Errorf("value %d overflows %T", n, v)
	}
	*d = T(n)
	return nil
}

// decodeReflect assigns src to *dst when the types are assignable or share
// their underlying kind, e.g. string into a named string type.
func decodeReflect(src, dst any) error {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("cannot decode into %T", dst)
	}
	et := dv.Type().Elem()
	if src == nil {
		dv.Elem().Set(reflect.Zero(et))
		return nil
	}
	sv := reflect.ValueOf(src)
	switch {
	case sv.Type().AssignableTo(et):
		dv.Elem().Set(sv)
	case sv.Kind() == et.Kind() && isBasic(et.Kind()) && sv.Type().ConvertibleTo(et):
		dv.Elem().Set(sv.Convert(et))
	default:
		return fmt.Errorf("cannot convert %T to %s", src, et)
	}
	return nil
}

func isBasic(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
