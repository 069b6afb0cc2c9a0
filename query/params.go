package query

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExpandParams rewrites @N and @name references against args into a fresh,
// densely numbered argument list. Collections other than strings and byte
// slices expand to one parameter per element. @@ is left untouched.
func ExpandParams(sqlText string, args []any) (string, []any, error) {
	var out []any
	s, err := expandInto(sqlText, args, &out)
	if err != nil {
		return "", nil, err
	}
	return s, out, nil
}

func expandInto(sqlText string, src []any, dest *[]any) (string, error) {
	if !strings.Contains(sqlText, "@") {
		return sqlText, nil
	}
	var sb strings.Builder
	sb.Grow(len(sqlText) + 8)
	for i := 0; i < len(sqlText); {
		c := sqlText[i]
		if c != '@' || (i > 0 && sqlText[i-1] == '@') {
			sb.WriteByte(c)
			i++
			continue
		}
		end := i + 1
		for end < len(sqlText) {
			r, size := utf8.DecodeRuneInString(sqlText[end:])
			if !isWordRune(r) {
				break
			}
			end += size
		}
		if end == i+1 {
			sb.WriteByte(c)
			i++
			continue
		}
		name := sqlText[i+1 : end]
		val, err := lookupParam(name, src, sqlText)
		if err != nil {
			return "", err
		}
		writeParam(&sb, val, dest)
		i = end
	}
	return sb.String(), nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func lookupParam(name string, src []any, sqlText string) (any, error) {
	if idx, err := strconv.Atoi(name); err == nil {
		if idx < 0 || idx >= len(src) {
			return nil, fmt.Errorf("%w: @%d with %d arguments in %q", ErrParamIndex, idx, len(src), sqlText)
		}
		return src[idx], nil
	}
	for _, a := range src {
		if v, ok := namedValue(a, name); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: @%s in %q", ErrParamName, name, sqlText)
}

func namedValue(arg any, name string) (any, bool) {
	if na, ok := arg.(sql.NamedArg); ok {
		return na.Value, na.Name == name
	}
	v := reflect.ValueOf(arg)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		if _, ok := v.Type().FieldByName(name); !ok {
			return nil, false
		}
		f := v.FieldByName(name)
		if !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	}
	return nil, false
}

func writeParam(sb *strings.Builder, val any, dest *[]any) {
	if isExpandable(val) {
		rv := reflect.ValueOf(val)
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('@')
			sb.WriteString(strconv.Itoa(len(*dest)))
			*dest = append(*dest, rv.Index(i).Interface())
		}
		return
	}
	sb.WriteByte('@')
	sb.WriteString(strconv.Itoa(len(*dest)))
	*dest = append(*dest, val)
}

func isExpandable(val any) bool {
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}
