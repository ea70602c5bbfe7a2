package record

import (
	"encoding/hex"
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

// Quote renders v as a CQL literal. Every attribute value that reaches statement
// text goes through Quote; free text is single-quoted with embedded quotes doubled.
func Quote(v any) string {
	v = deref(v)
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return strconv.FormatInt(x.UnixMilli(), 10)
	case Date:
		return "'" + x.String() + "'"
	case bool:
		return strconv.FormatBool(x)
	case uuid.UUID:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case *big.Int:
		return x.String()
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case string:
		return quoteString(x)
	case []byte:
		return "0x" + hex.EncodeToString(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float(), 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.String:
		return quoteString(rv.String())
	case reflect.Array:
		if u, err := castUUID(v); err == nil {
			return u.String()
		}
	}

	return quoteString(castText(v))
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// QuoteIdentifier wraps a table or column name in double quotes. Names containing
// a double quote are rejected rather than escaped.
func QuoteIdentifier(name string) (string, error) {
	if name == "" || strings.Contains(name, `"`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return `"` + name + `"`, nil
}

// quoteIdentifiers quotes each name and joins them with ", ".
func quoteIdentifiers(names []string) (string, error) {
	quoted := make([]string, len(names))
	for i, name := range names {
		q, err := QuoteIdentifier(name)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, ", "), nil
}

// Statement replaces each :name placeholder in template with the quoted value of
// args[name]. Placeholders inside literals or quoted identifiers are left
// untouched, as are names missing from args.
func Statement(template string, args map[string]any) string {
	if len(args) == 0 {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))
	inLiteral, inIdent := false, false

	for i := 0; i < len(template); i++ {
		c := template[i]
		if c == '\'' && !inIdent {
			inLiteral = !inLiteral
			b.WriteByte(c)
			continue
		}
		if c == '"' && !inLiteral {
			inIdent = !inIdent
			b.WriteByte(c)
			continue
		}
		if inLiteral || inIdent || c != ':' || i+1 >= len(template) || !isIdentStart(template[i+1]) ||
			(i > 0 && (template[i-1] == ':' || isIdentPart(template[i-1]))) {
			b.WriteByte(c)
			continue
		}

		end := i + 1
		for end < len(template) && isIdentPart(template[end]) {
			end++
		}
		name := template[i+1 : end]
		value, ok := args[name]
		if !ok {
			b.WriteString(template[i:end])
		} else {
			b.WriteString(Quote(value))
		}
		i = end - 1
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
