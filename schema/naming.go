package schema

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

var pluralizeClient = pluralizer.NewClient()

// NamingStrategy derives table and column names for types and fields that
// do not name them explicitly.
type NamingStrategy interface {
	// ColumnName converts a Go field name to a column name.
	ColumnName(fieldName string) string
	// TableName converts a Go type name to a table name.
	TableName(typeName string) string
}

// Case is a naming convention.
type Case int

const (
	AsIs       Case = iota // UserID
	SnakeCase              // user_id
	CamelCase              // userId
	PascalCase             // UserId
)

// Naming is the configurable NamingStrategy.
type Naming struct {
	Columns      Case
	Tables       Case
	PluralTables bool
}

// DefaultNamingStrategy maps to snake_case columns and plural snake_case tables.
func DefaultNamingStrategy() NamingStrategy {
	return Naming{Columns: SnakeCase, Tables: SnakeCase, PluralTables: true}
}

// VerbatimNamingStrategy uses Go names unchanged.
func VerbatimNamingStrategy() NamingStrategy {
	return Naming{Columns: AsIs, Tables: AsIs}
}

func (n Naming) ColumnName(fieldName string) string {
	return applyCase(n.Columns, fieldName)
}

func (n Naming) TableName(typeName string) string {
	name := applyCase(n.Tables, typeName)
	if n.PluralTables {
		return pluralize(name)
	}
	return name
}

func applyCase(c Case, name string) string {
	switch c {
	case SnakeCase:
		return toSnakeCase(name)
	case CamelCase:
		return toCamelCase(name)
	case PascalCase:
		return toPascalCase(name)
	default:
		return name
	}
}

// toSnakeCase converts any naming convention to snake_case, keeping
// acronyms together: UserID -> user_id, HTTPServer -> http_server.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}
	if strings.Contains(name, "_") && !hasUpperCase(name) {
		return name
	}

	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func toCamelCase(name string) string {
	pascal := toPascalCase(name)
	if pascal == "" {
		return ""
	}
	r := []rune(pascal)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func toPascalCase(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(toSnakeCase(name), "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// pluralize pluralizes the last word of a name, preserving its case.
func pluralize(name string) string {
	if name == "" {
		return ""
	}
	cut := strings.LastIndexByte(name, '_') + 1
	head, word := name[:cut], name[cut:]
	if cut == 0 {
		if i := lastUpper(name); i > 0 {
			head, word = name[:i], name[i:]
		}
	}
	plural := pluralizeClient.Plural(word)
	return head + preserveCase(word, plural)
}

func lastUpper(s string) int {
	idx := -1
	for i, r := range s {
		if unicode.IsUpper(r) {
			idx = i
		}
	}
	return idx
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func preserveCase(original, result string) string {
	switch {
	case original == "" || result == "":
		return result
	case strings.ToLower(original) == original:
		return strings.ToLower(result)
	case strings.ToUpper(original) == original:
		return strings.ToUpper(result)
	case unicode.IsUpper(rune(original[0])):
		return strings.ToUpper(result[:1]) + strings.ToLower(result[1:])
	default:
		return strings.ToLower(result)
	}
}
