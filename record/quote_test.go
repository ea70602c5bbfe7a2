package record_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jacentio/canopy/record"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "NULL"},
		{"string", "value", "'value'"},
		{"apostrophe", "some'value", "'some''value'"},
		{"injection", "x'; DROP TABLE posts; --", "'x''; DROP TABLE posts; --'"},
		{"int", 1, "1"},
		{"int32", int32(-7), "-7"},
		{"bigint", int64(1) << 40, "1099511627776"},
		{"float", 1.5, "1.5"},
		{"nan", math.NaN(), "NaN"},
		{"infinity", math.Inf(-1), "-Infinity"},
		{"decimal", decimal.RequireFromString("10.50"), "10.5"},
		{"bool", true, "true"},
		{"timestamp", time.Date(2016, 11, 1, 12, 0, 0, 0, time.UTC), "1478001600000"},
		{"date", record.Date{Year: 2016, Month: 12, Day: 6}, "'2016-12-06'"},
		{"uuid", uuid.MustParse("1ce29e82-b2ea-11e6-88fa-2971245f69e1"), "1ce29e82-b2ea-11e6-88fa-2971245f69e1"},
		{"blob", []byte{0xca, 0xfe}, "0xcafe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := record.Quote(tt.input); got != tt.want {
				t.Errorf("Quote(%#v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	got, err := record.QuoteIdentifier("user")
	if err != nil {
		t.Fatalf("QuoteIdentifier failed: %v", err)
	}
	if got != `"user"` {
		t.Errorf("expected %q, got %q", `"user"`, got)
	}

	for _, name := range []string{`us"er`, `"`, ""} {
		if _, err := record.QuoteIdentifier(name); !errors.Is(err, record.ErrInvalidIdentifier) {
			t.Errorf("QuoteIdentifier(%q): expected ErrInvalidIdentifier, got %v", name, err)
		}
	}
}

func TestStatement(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     map[string]any
		want     string
	}{
		{
			name:     "quotes every argument",
			template: "SELECT * FROM test_logs WHERE date = :date AND id = :id AND message = :message",
			args: map[string]any{
				"date":    record.Date{Year: 2016, Month: 12, Day: 6},
				"id":      1,
				"message": "some'value",
			},
			want: "SELECT * FROM test_logs WHERE date = '2016-12-06' AND id = 1 AND message = 'some''value'",
		},
		{
			name:     "placeholder prefix of a longer name",
			template: "a = :id AND b = :id_2",
			args:     map[string]any{"id": 1, "id_2": 2},
			want:     "a = 1 AND b = 2",
		},
		{
			name:     "literals and casts are untouched",
			template: "a = ':id' AND b = x::int AND c = :id",
			args:     map[string]any{"id": 1, "int": 2},
			want:     "a = ':id' AND b = x::int AND c = 1",
		},
		{
			name:     "quoted identifiers are untouched",
			template: `SELECT "a:id" FROM t WHERE "it's" = :id`,
			args:     map[string]any{"id": 1},
			want:     `SELECT "a:id" FROM t WHERE "it's" = 1`,
		},
		{
			name:     "unknown names stay",
			template: "a = :missing",
			args:     map[string]any{"id": 1},
			want:     "a = :missing",
		},
		{
			name:     "no args",
			template: "a = :id",
			want:     "a = :id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := record.Statement(tt.template, tt.args); got != tt.want {
				t.Errorf("Statement = %q, want %q", got, tt.want)
			}
		})
	}
}
