package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var filenamePattern = regexp.MustCompile(`^([0-9]+)_([A-Za-z0-9_]+)\.(up|down)\.cql$`)

// Load reads migrations from dir in fsys. Each migration is a file named
// <version>_<name>.up.cql with an optional <version>_<name>.down.cql; files hold
// semicolon-separated CQL statements. Other files are ignored.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[int64]*Migration)
	var order []int64

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cql") {
			continue
		}
		match := filenamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFilename, entry.Name())
		}
		version, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFilename, entry.Name())
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		stmts, err := SplitStatements(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: match[2]}
			byVersion[version] = m
			order = append(order, version)
		} else if m.Name != match[2] {
			return nil, fmt.Errorf("%w: %d (%s, %s)", ErrDuplicateVersion, version, m.Name, match[2])
		}

		if match[3] == "up" {
			m.Up = Statements(stmts...)
		} else {
			m.Down = Statements(stmts...)
		}
	}

	out := make([]Migration, 0, len(order))
	for _, v := range order {
		m := byVersion[v]
		if m.Up == nil {
			return nil, fmt.Errorf("canopy: migration %s has no up file", m)
		}
		out = append(out, *m)
	}
	return sortMigrations(out)
}

// SplitStatements splits CQL text on semicolons outside string literals, quoted
// identifiers and comments. Comments are dropped; empty statements are skipped.
func SplitStatements(src string) ([]string, error) {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\'' || c == '"':
			end := closingQuote(src, i)
			if end < 0 {
				return nil, fmt.Errorf("canopy: unterminated quote at offset %d", i)
			}
			cur.WriteString(src[i : end+1])
			i = end

		case c == '-' && strings.HasPrefix(src[i:], "--"), c == '/' && strings.HasPrefix(src[i:], "//"):
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				i = len(src)
			} else {
				i += nl
				cur.WriteByte('\n')
			}

		case c == '/' && strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("canopy: unterminated comment at offset %d", i)
			}
			i += end + 3
			cur.WriteByte(' ')

		case c == ';':
			flush()

		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return stmts, nil
}

// closingQuote returns the index of the quote closing the literal opened at
// start. A doubled quote is an escaped quote.
func closingQuote(src string, start int) int {
	q := src[start]
	for i := start + 1; i < len(src); i++ {
		if src[i] != q {
			continue
		}
		if i+1 < len(src) && src[i+1] == q {
			i++
			continue
		}
		return i
	}
	return -1
}
