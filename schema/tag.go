package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ParsedTag is the mapping configuration read from a `db` struct tag.
type ParsedTag struct {
	ColumnName string // explicit or derived column name
	Skip       bool   // db:"-"
	Tagged     bool   // the field carries a db tag at all

	Primary   bool   // primary key column
	NoAuto    bool   // primary key is not auto-incremented
	Sequence  string // sequence feeding the key (Oracle)
	Generator string // id generator filled in before insert

	Result bool // read-only result column, never inserted or updated
	UTC    bool // force time values read from the database to UTC
}

// TagParser parses and caches `db` struct tags.
type TagParser struct {
	naming  NamingStrategy
	cache   map[string]*ParsedTag
	cacheMu sync.RWMutex
}

// NewTagParser creates a tag parser that derives untagged column names
// with naming.
func NewTagParser(naming NamingStrategy) *TagParser {
	return &TagParser{
		naming: naming,
		cache:  make(map[string]*ParsedTag, 128),
	}
}

// ParseTag parses the db tag of a field.
//
// Supported syntax:
//
//	`db:"user_name"`                   // column name only
//	`db:"column:user_name;utc"`        // explicit column plus flags
//	`db:"primary;seq:users_seq"`       // primary key fed by a sequence
//	`db:"primary;noauto;generator:uuid"`
//	`db:"result"`                      // read-only result column
//	`db:"-"`                           // not mapped
func (p *TagParser) ParseTag(fieldName string, tag reflect.StructTag) (*ParsedTag, error) {
	tagValue, ok := tag.Lookup("db")
	if !ok || tagValue == "" {
		return &ParsedTag{ColumnName: p.naming.ColumnName(fieldName)}, nil
	}

	cacheKey := fieldName + ":" + tagValue
	p.cacheMu.RLock()
	if cached, exists := p.cache[cacheKey]; exists {
		p.cacheMu.RUnlock()
		return cached, nil
	}
	p.cacheMu.RUnlock()

	parsed, err := p.parseTagValue(fieldName, tagValue)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", fieldName, err)
	}

	p.cacheMu.Lock()
	p.cache[cacheKey] = parsed
	p.cacheMu.Unlock()

	return parsed, nil
}

func (p *TagParser) parseTagValue(fieldName, tagValue string) (*ParsedTag, error) {
	if tagValue == "-" {
		return &ParsedTag{Skip: true, Tagged: true}, nil
	}

	parsed := &ParsedTag{
		ColumnName: p.naming.ColumnName(fieldName),
		Tagged:     true,
	}

	if !strings.ContainsAny(tagValue, ";:") && !isFlag(tagValue) {
		parsed.ColumnName = tagValue
		return parsed, nil
	}

	for _, option := range strings.Split(tagValue, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if err := p.parseOption(parsed, option); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

func isFlag(s string) bool {
	switch s {
	case "primary", "primary_key", "pk", "noauto", "result", "utc":
		return true
	}
	return false
}

func (p *TagParser) parseOption(tag *ParsedTag, option string) error {
	if colonIdx := strings.IndexByte(option, ':'); colonIdx != -1 {
		key := strings.TrimSpace(option[:colonIdx])
		value := strings.TrimSpace(option[colonIdx+1:])
		return p.parseKeyValue(tag, key, value)
	}
	return p.parseFlag(tag, option)
}

func (p *TagParser) parseFlag(tag *ParsedTag, flag string) error {
	switch flag {
	case "primary", "primary_key", "pk":
		tag.Primary = true
	case "noauto":
		tag.NoAuto = true
	case "result":
		tag.Result = true
	case "utc":
		tag.UTC = true
	default:
		return fmt.Errorf("unknown db tag option %q", flag)
	}
	return nil
}

func (p *TagParser) parseKeyValue(tag *ParsedTag, key, value string) error {
	if value == "" {
		return fmt.Errorf("db tag option %q needs a value", key)
	}
	switch key {
	case "column", "name":
		tag.ColumnName = value
	case "seq", "sequence":
		tag.Sequence = value
	case "generator", "gen":
		if _, ok := LookupGenerator(value); !ok {
			return fmt.Errorf("unknown id generator %q", value)
		}
		tag.Generator = value
	default:
		return fmt.Errorf("unknown db tag option %q", key)
	}
	return nil
}

// ClearCache removes all cached parsed tags.
func (p *TagParser) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	clear(p.cache)
}
