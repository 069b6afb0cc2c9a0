package dialect

import (
	"fmt"
	"strings"
)

// SplitSQL breaks a hand-written SELECT into the parts a paged query is
// assembled from: the count statement, the select list onwards, and the
// trailing ORDER BY.
//
// Only top-level keywords count; anything inside parentheses or quotes is
// skipped, so sub-selects and window functions do not confuse the split.
func SplitSQL(query string) (SQLParts, error) {
	parts := SQLParts{SQL: query}

	sel := skipSpace(query, 0)
	if !keywordAt(query, sel, "SELECT") {
		return parts, fmt.Errorf("%w: %q", ErrUnparsableSQL, query)
	}
	colStart := skipSpace(query, sel+len("SELECT"))
	from := findTopLevel(query, colStart, "FROM")
	if from < 0 {
		return parts, fmt.Errorf("%w: %q", ErrUnparsableSQL, query)
	}
	columns := strings.TrimSpace(query[colStart:from])

	parts.SQLSelectRemoved = query[colStart:]
	parts.Distinct = hasDistinctPrefix(columns)
	if parts.Distinct {
		parts.SQLCount = query[:colStart] + "COUNT(" + columns + ") " + query[from:]
	} else {
		parts.SQLCount = query[:colStart] + "COUNT(*) " + query[from:]
	}

	if ob := lastTopLevel(parts.SQLCount, "ORDER BY"); ob >= 0 {
		parts.SQLOrderBy = strings.TrimSpace(parts.SQLCount[ob:])
		parts.SQLCount = strings.TrimRight(parts.SQLCount[:ob], " \t\r\n")
	}
	return parts, nil
}

func hasDistinctPrefix(s string) bool {
	s = strings.TrimLeft(s, " \t\r\n")
	return keywordAt(s, 0, "DISTINCT")
}

// removeOrderBy drops the last top-level ORDER BY clause from s.
func removeOrderBy(s string) string {
	if ob := lastTopLevel(s, "ORDER BY"); ob >= 0 {
		return strings.TrimRight(s[:ob], " \t\r\n")
	}
	return s
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// keywordAt reports whether kw starts at s[i] as a whole word. A space in
// kw matches any run of whitespace.
func keywordAt(s string, i int, kw string) bool {
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	j := i
	for k := 0; k < len(kw); k++ {
		if kw[k] == ' ' {
			if j >= len(s) || !isSpace(s[j]) {
				return false
			}
			j = skipSpace(s, j)
			continue
		}
		if j >= len(s) || upper(s[j]) != kw[k] {
			return false
		}
		j++
	}
	return j >= len(s) || !isWordByte(s[j])
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// topLevel calls fn for every offset in s that is outside parentheses,
// string literals and quoted identifiers. fn returns false to stop.
func topLevel(s string, from int, fn func(i int) bool) {
	depth := 0
	for i := from; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'', '"', '`', '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			for i++; i < len(s) && s[i] != closer; i++ {
			}
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && !fn(i) {
				return
			}
		}
	}
}

func findTopLevel(s string, from int, kw string) int {
	found := -1
	topLevel(s, from, func(i int) bool {
		if keywordAt(s, i, kw) {
			found = i
			return false
		}
		return true
	})
	return found
}

func lastTopLevel(s string, kw string) int {
	found := -1
	topLevel(s, 0, func(i int) bool {
		if keywordAt(s, i, kw) {
			found = i
		}
		return true
	})
	return found
}

// unqualifyColumns strips the table qualifier from every item of a
// comma-separated column list, keeping any trailing ASC or DESC.
func unqualifyColumns(list string) string {
	items := splitTopLevel(list, ',')
	for i, item := range items {
		item = strings.TrimSpace(item)
		dot := -1
		topLevel(item, 0, func(j int) bool {
			if item[j] == '.' {
				dot = j
			}
			return true
		})
		items[i] = item[dot+1:]
	}
	return strings.Join(items, ", ")
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	topLevel(s, 0, func(i int) bool {
		if s[i] == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
		return true
	})
	return append(parts, s[start:])
}
