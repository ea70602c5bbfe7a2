package record

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ColumnType is the declared CQL type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota + 1
	TypeBoolean
	TypeInt
	TypeBigint
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeDate
	TypeTimestamp
	TypeTimeUUID
	TypeUUID
)

var columnTypeNames = map[ColumnType]string{
	TypeText:      "text",
	TypeBoolean:   "boolean",
	TypeInt:       "int",
	TypeBigint:    "bigint",
	TypeFloat:     "float",
	TypeDouble:    "double",
	TypeDecimal:   "decimal",
	TypeDate:      "date",
	TypeTimestamp: "timestamp",
	TypeTimeUUID:  "timeuuid",
	TypeUUID:      "uuid",
}

// String returns the CQL name of the type (e.g., "timeuuid").
func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// Valid reports whether t is one of the supported column types.
func (t ColumnType) Valid() bool {
	_, ok := columnTypeNames[t]
	return ok
}

// ParseColumnType resolves a CQL type name. Aliases varchar and ascii map to text.
func ParseColumnType(name string) (ColumnType, error) {
	switch name {
	case "varchar", "ascii":
		return TypeText, nil
	}
	for t, n := range columnTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Date is a calendar date without a time zone, the value of a date column.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO-8601 date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String returns the ISO-8601 form of the date.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// gregorianOffset is the number of 100ns intervals between 1582-10-15 and the Unix epoch.
const gregorianOffset = 0x01B21DD213814000

// NewTimeUUID returns a version 1 UUID whose timestamp is t. Clock sequence and node are
// random, so two UUIDs generated for the same instant differ.
func NewTimeUUID(t time.Time) (uuid.UUID, error) {
	var u uuid.UUID
	var rnd [8]byte
	if _, err := rand.Read(rnd[:]); err != nil {
		return u, err
	}

	ticks := uint64(t.UnixNano()/100) + gregorianOffset
	binary.BigEndian.PutUint32(u[0:4], uint32(ticks))
	binary.BigEndian.PutUint16(u[4:6], uint16(ticks>>32))
	binary.BigEndian.PutUint16(u[6:8], uint16(ticks>>48)&0x0fff|0x1000)

	u[8] = rnd[0]&0x3f | 0x80 // RFC 4122 variant
	u[9] = rnd[1]
	copy(u[10:], rnd[2:8])
	u[10] |= 0x01 // multicast bit marks a random node
	return u, nil
}

// TimeUUIDTime returns the instant encoded in a version 1 UUID.
func TimeUUIDTime(u uuid.UUID) (time.Time, bool) {
	if u.Version() != 1 {
		return time.Time{}, false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), true
}
