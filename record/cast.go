package record

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Canonical in-memory representations per column type:
//
//	text       string
//	boolean    bool
//	int        int32
//	bigint     int64
//	float      float32
//	double     float64
//	decimal    decimal.Decimal
//	date       Date
//	timestamp  time.Time (UTC, millisecond precision)
//	timeuuid   uuid.UUID (version 1)
//	uuid       uuid.UUID
//
// A nil input casts to nil for every type.

var errNotIntegral = errors.New("not an integral value")

// timestampLayouts are tried in order when casting strings to timestamps.
// Layouts without a zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04",
	time.DateOnly,
}

// Cast converts v to the canonical representation of t.
func Cast(v any, t ColumnType) (any, error) {
	return castValue("", t, v)
}

// castColumn casts v for the named column, attaching the column to any CastError.
func castColumn(col Column, v any) (any, error) {
	return castValue(col.Name, col.Type, v)
}

func castValue(column string, t ColumnType, v any) (any, error) {
	v = deref(v)
	if v == nil {
		return nil, nil
	}

	fail := func(numeric bool, err error) (any, error) {
		return nil, &CastError{Column: column, Type: t, Value: v, Numeric: numeric, Err: err}
	}

	switch t {
	case TypeText:
		return castText(v), nil

	case TypeBoolean:
		b, ok := castBool(v)
		if !ok {
			return fail(false, nil)
		}
		return b, nil

	case TypeInt:
		n, numeric, err := castInt(v)
		if err != nil {
			return fail(numeric, err)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return fail(false, fmt.Errorf("%d overflows int", n))
		}
		return int32(n), nil

	case TypeBigint:
		n, numeric, err := castInt(v)
		if err != nil {
			return fail(numeric, err)
		}
		return n, nil

	case TypeFloat:
		f, err := castFloat(v, 32)
		if err != nil {
			return fail(true, err)
		}
		return float32(f), nil

	case TypeDouble:
		f, err := castFloat(v, 64)
		if err != nil {
			return fail(true, err)
		}
		return f, nil

	case TypeDecimal:
		d, err := castDecimal(v)
		if err != nil {
			return fail(true, err)
		}
		return d, nil

	case TypeDate:
		d, err := castDate(v)
		if err != nil {
			return fail(false, err)
		}
		return d, nil

	case TypeTimestamp:
		ts, err := castTimestamp(v)
		if err != nil {
			return fail(false, err)
		}
		return ts, nil

	case TypeUUID, TypeTimeUUID:
		u, err := castUUID(v)
		if err != nil {
			return fail(false, err)
		}
		if t == TypeTimeUUID && u.Version() != 1 {
			return fail(false, fmt.Errorf("uuid version %d is not a timeuuid", u.Version()))
		}
		return u, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnknownType, t)
}

// deref follows pointers so *string, *time.Time etc. cast like their targets.
func deref(v any) any {
	for v != nil {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		switch v.(type) {
		case *big.Int, *decimal.Decimal:
			return v
		}
		v = rv.Elem().Interface()
	}
	return v
}

func castText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func castBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch x {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
		return false, false
	}
	if n, ok := integerValue(v); ok {
		switch n {
		case 0:
			return false, true
		case 1:
			return true, true
		}
	}
	return false, false
}

// integerValue extracts an int64 from any integer kind.
func integerValue(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

// castInt returns the integer value of v. The numeric flag is set when the input
// is not a number at all, as opposed to a number that is not integral.
func castInt(v any) (int64, bool, error) {
	if n, ok := integerValue(v); ok {
		return n, false, nil
	}

	switch x := v.(type) {
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, true, err
		}
		return n, false, nil
	case decimal.Decimal:
		if !x.IsInteger() {
			return 0, false, errNotIntegral
		}
		return x.IntPart(), false, nil
	case *big.Int:
		if !x.IsInt64() {
			return 0, false, fmt.Errorf("%s overflows bigint", x)
		}
		return x.Int64(), false, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false, errNotIntegral
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false, fmt.Errorf("%v overflows bigint", f)
		}
		return int64(f), false, nil
	}

	return 0, true, fmt.Errorf("%T is not numeric", v)
}

// castFloat returns v as a float of the given bit size. Finite values outside
// that size's range fail instead of becoming infinities.
func castFloat(v any, bits int) (float64, error) {
	var f float64
	if n, ok := integerValue(v); ok {
		f = float64(n)
	} else {
		switch x := v.(type) {
		case string:
			return strconv.ParseFloat(x, bits)
		case decimal.Decimal:
			f = x.InexactFloat64()
			if math.IsInf(f, 0) {
				return 0, fmt.Errorf("%s overflows a %d-bit float", x, bits)
			}
		default:
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
				return 0, fmt.Errorf("%T is not numeric", v)
			}
			f = rv.Float()
		}
	}
	if bits == 32 && !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("%v overflows a 32-bit float", f)
	}
	return f, nil
}

func castDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		return *x, nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	case string:
		return decimal.NewFromString(x)
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case fmt.Stringer:
		// Driver decimal types (e.g. *inf.Dec) render their exact value.
		return decimal.NewFromString(x.String())
	}
	if n, ok := integerValue(v); ok {
		return decimal.NewFromInt(n), nil
	}
	return decimal.Decimal{}, fmt.Errorf("%T is not numeric", v)
}

func castDate(v any) (Date, error) {
	switch x := v.(type) {
	case Date:
		return x, nil
	case time.Time:
		return DateOf(x), nil
	case string:
		return ParseDate(x)
	}
	return Date{}, fmt.Errorf("%T is not a date", v)
}

func castTimestamp(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return normalizeTimestamp(x), nil
	case Date:
		return x.Time(), nil
	case string:
		return parseTimestamp(x)
	}
	if n, ok := integerValue(v); ok {
		return normalizeTimestamp(time.Unix(n, 0)), nil
	}
	return time.Time{}, fmt.Errorf("%T is not a timestamp", v)
}

// normalizeTimestamp converts to UTC at the store's millisecond resolution.
func normalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Round(time.Millisecond)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		// Digits only: the millisecond epoch literal the store uses.
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return normalizeTimestamp(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

var maxUUIDInt = new(big.Int).Lsh(big.NewInt(1), 128)

func castUUID(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case string:
		return uuid.Parse(x)
	case *big.Int:
		return uuidFromInt(x)
	}
	if n, ok := integerValue(v); ok {
		return uuidFromInt(big.NewInt(n))
	}

	// Driver UUID types are [16]byte arrays.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Len() == 16 && rv.Type().Elem().Kind() == reflect.Uint8 {
		var u uuid.UUID
		reflect.Copy(reflect.ValueOf(&u).Elem(), rv)
		return u, nil
	}
	return uuid.Nil, fmt.Errorf("%T is not a uuid", v)
}

func uuidFromInt(n *big.Int) (uuid.UUID, error) {
	if n.Sign() < 0 || n.Cmp(maxUUIDInt) >= 0 {
		return uuid.Nil, fmt.Errorf("%s is outside the 128-bit range", n)
	}
	var u uuid.UUID
	n.FillBytes(u[:])
	return u, nil
}
