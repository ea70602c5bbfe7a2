package record

import (
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// maxRangeValues bounds how many values a Range may expand to in an IN list.
const maxRangeValues = 10000

// Range is an inclusive range predicate for Where. It expands to an IN list, so
// it only applies to enumerable values: integers, Dates and strings.
type Range struct {
	From any
	To   any
}

// values expands the range in ascending order.
func (rg Range) values() ([]any, error) {
	from, to := deref(rg.From), deref(rg.To)

	if a, ok := integerValue(from); ok {
		b, ok := integerValue(to)
		if !ok {
			return nil, fmt.Errorf("%w: %T..%T", ErrInvalidRange, rg.From, rg.To)
		}
		if b < a {
			return nil, nil
		}
		// Compared unsigned: b-a overflows int64 for ranges spanning zero.
		span := uint64(b) - uint64(a)
		if span >= maxRangeValues {
			return nil, fmt.Errorf("%w: %d..%d has more than %d values", ErrInvalidRange, a, b, maxRangeValues)
		}
		out := make([]any, 0, span+1)
		for i := int64(0); i <= int64(span); i++ {
			out = append(out, a+i)
		}
		return out, nil
	}

	switch a := from.(type) {
	case Date:
		b, ok := to.(Date)
		if !ok {
			return nil, fmt.Errorf("%w: %T..%T", ErrInvalidRange, rg.From, rg.To)
		}
		var out []any
		for d := a; !b.Before(d); d = d.AddDays(1) {
			if len(out) == maxRangeValues {
				return nil, fmt.Errorf("%w: %s..%s has more than %d values", ErrInvalidRange, a, b, maxRangeValues)
			}
			out = append(out, d)
		}
		return out, nil

	case string:
		b, ok := to.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T..%T", ErrInvalidRange, rg.From, rg.To)
		}
		return stringRange(a, b)
	}

	return nil, fmt.Errorf("%w: %T is not enumerable", ErrInvalidRange, rg.From)
}

// stringRange enumerates from..to by successor, the way "domain1".."domain3"
// yields domain1, domain2, domain3. A start longer than the end yields nothing.
func stringRange(from, to string) ([]any, error) {
	if from == "" {
		return nil, fmt.Errorf("%w: empty range start", ErrInvalidRange)
	}
	var out []any
	for s := from; len(s) <= len(to); s = succ(s) {
		if len(out) == maxRangeValues {
			return nil, fmt.Errorf("%w: %q..%q has more than %d values", ErrInvalidRange, from, to, maxRangeValues)
		}
		out = append(out, s)
		if s == to {
			return out, nil
		}
	}
	return out, nil
}

// succ returns the successor of s: the rightmost alphanumeric is incremented,
// carrying into the alphanumerics to its left; "az" -> "ba", "a9" -> "b0",
// "zz" -> "aaa". Strings without alphanumerics increment their last byte.
func succ(s string) string {
	b := []byte(s)

	last := -1
	for i := len(b) - 1; i >= 0; i-- {
		if isAlnum(b[i]) {
			last = i
			break
		}
	}
	if last < 0 {
		if len(b) == 0 {
			return ""
		}
		b[len(b)-1]++
		return string(b)
	}

	i := last
	for {
		switch c := b[i]; {
		case c == 'z':
			b[i] = 'a'
		case c == 'Z':
			b[i] = 'A'
		case c == '9':
			b[i] = '0'
		default:
			b[i]++
			return string(b)
		}

		// Carry to the next alphanumeric on the left, or grow the string.
		j := i - 1
		for j >= 0 && !isAlnum(b[j]) {
			j--
		}
		if j < 0 {
			var lead byte
			switch c := b[i]; {
			case c == 'a':
				lead = 'a'
			case c == 'A':
				lead = 'A'
			default:
				lead = '1'
			}
			out := make([]byte, 0, len(b)+1)
			out = append(out, b[:i]...)
			out = append(out, lead)
			out = append(out, b[i:]...)
			return string(out)
		}
		i = j
	}
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// valuesEqual compares canonical values. Times and decimals compare by value.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && x.Cmp(y) == 0
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(a) == reflect.TypeOf(b) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
