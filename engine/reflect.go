package engine

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/NetRube/NetRube.Data/schema"
)

// buildInsert collects the column list, the value list and the bound
// arguments of an INSERT. Result columns are skipped. With autoInc the key
// column is either given the dialect's key expression or left out for the
// database to fill.
func (d *Database) buildInsert(meta *schema.EntityMeta, v reflect.Value, table schema.TableInfo, autoInc bool) (cols, vals []string, args []any, err error) {
	for _, f := range meta.Columns {
		if f.Column.ResultColumn {
			continue
		}
		if autoInc && strings.EqualFold(f.Column.ColumnName, table.PrimaryKey) {
			if expr := d.profile.AutoIncrementExpression(table); expr != "" {
				cols = append(cols, d.profile.EscapeIdentifier(f.Column.ColumnName))
				vals = append(vals, expr)
			}
			continue
		}
		val, err := f.BindValue(v)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		cols = append(cols, d.profile.EscapeIdentifier(f.Column.ColumnName))
		vals = append(vals, "@"+strconv.Itoa(len(args)))
		args = append(args, val)
	}
	return cols, vals, args, nil
}

// buildUpdateSet renders "col = @n" for every writable column other than
// the key. A non-nil only restricts the set to those columns.
func (d *Database) buildUpdateSet(meta *schema.EntityMeta, v reflect.Value, pk string, only map[string]bool) (sets []string, args []any, err error) {
	for _, f := range meta.Columns {
		if f.Column.ResultColumn || strings.EqualFold(f.Column.ColumnName, pk) {
			continue
		}
		if only != nil && !only[strings.ToLower(f.Column.ColumnName)] {
			continue
		}
		val, err := f.BindValue(v)
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		sets = append(sets, fmt.Sprintf("%s = @%d", d.profile.EscapeIdentifier(f.Column.ColumnName), len(args)))
		args = append(args, val)
	}
	return sets, args, nil
}

// keyValue returns the value of the column named pk.
func keyValue(meta *schema.EntityMeta, v reflect.Value, pk string) (any, error) {
	f, ok := meta.Column(pk)
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrNoPrimaryKey, meta.Type)
	}
	return f.BindValue(v)
}

// columnSet resolves field or column names to a set of lower-cased column
// names.
func columnSet(meta *schema.EntityMeta, names []string) (map[string]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		f, err := meta.Resolve(n)
		if err != nil {
			return nil, err
		}
		set[strings.ToLower(f.Column.ColumnName)] = true
	}
	return set, nil
}
