package migrate

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jacentio/canopy/record"
)

// Func is a migration body. It runs on a checked-out session.
type Func func(ctx context.Context, s record.Session) error

// Migration is one versioned schema change. Versions are positive integers,
// conventionally the creation time as a Unix timestamp, and apply in ascending order.
type Migration struct {
	Version int64
	Name    string
	Up      Func
	Down    Func
}

func (m Migration) String() string {
	return FormatVersion(m.Version) + "_" + m.Name
}

// Statements returns a Func that executes stmts in order and stops at the first error.
func Statements(stmts ...string) Func {
	return func(ctx context.Context, s record.Session) error {
		for i, stmt := range stmts {
			if _, err := s.Execute(ctx, stmt, record.ExecOptions{}); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	}
}

// FormatVersion renders a version the way the ledgers store it.
func FormatVersion(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ParseVersion parses a stored version.
func ParseVersion(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("canopy: invalid migration version %q", s)
	}
	return v, nil
}

// sortMigrations orders migrations by version and rejects duplicates.
func sortMigrations(ms []Migration) ([]Migration, error) {
	out := append([]Migration(nil), ms...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i, m := range out {
		if m.Version <= 0 {
			return nil, fmt.Errorf("canopy: migration %q has invalid version %d", m.Name, m.Version)
		}
		if m.Up == nil {
			return nil, fmt.Errorf("canopy: migration %s has no up body", m)
		}
		if i > 0 && out[i-1].Version == m.Version {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateVersion, m.Version)
		}
	}
	return out, nil
}

// pending returns the versions of all that are not in applied, ascending.
func pending(all, applied []int64) []int64 {
	done := make(map[int64]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	var out []int64
	for _, v := range all {
		if _, ok := done[v]; !ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
