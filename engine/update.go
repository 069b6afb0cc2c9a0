package engine

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Update writes every column of entity, matching the row by primary key,
// and returns the number of rows affected.
func (d *Database) Update(ctx context.Context, entity any) (int64, error) {
	return d.UpdateColumns(ctx, entity)
}

// UpdateColumns is Update restricted to the named fields or columns.
func (d *Database) UpdateColumns(ctx context.Context, entity any, columns ...string) (int64, error) {
	meta, _, err := d.registry.ResolveValue(entity)
	if err != nil {
		return 0, err
	}
	return d.UpdateTable(ctx, meta.Table.TableName, meta.Table.PrimaryKey, entity, columns...)
}

// UpdateTable is UpdateColumns with an explicit table and key column.
func (d *Database) UpdateTable(ctx context.Context, table, pk string, entity any, columns ...string) (int64, error) {
	meta, v, err := d.registry.ResolveValue(entity)
	if err != nil {
		return 0, err
	}
	only, err := columnSet(meta, columns)
	if err != nil {
		return 0, err
	}
	sets, args, err := d.buildUpdateSet(meta, v, pk, only)
	if err != nil {
		return 0, err
	}
	if len(sets) == 0 {
		return 0, nil
	}
	key, err := keyValue(meta, v, pk)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = @%d",
		d.profile.EscapeTableName(table),
		strings.Join(sets, ", "),
		d.profile.EscapeIdentifier(pk),
		len(args),
	)
	return d.executeEntity(ctx, q, append(args, key))
}

// UpdateWhere runs "UPDATE table <sqlText>" against T's table.
func UpdateWhere[T any](ctx context.Context, d *Database, sqlText string, args ...any) (int64, error) {
	meta, err := d.registry.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	return d.Execute(ctx, fmt.Sprintf("UPDATE %s %s", d.profile.EscapeTableName(meta.Table.TableName), sqlText), args...)
}

// executeEntity runs an entity statement with its arguments bound as they
// are.
func (d *Database) executeEntity(ctx context.Context, q string, args []any) (int64, error) {
	cmd, err := d.createCommand(q, args, false)
	if err != nil {
		return d.affectedErr(err, cmd)
	}
	res, err := d.ExecCommand(ctx, cmd)
	if err != nil {
		return d.affectedErr(err, cmd)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return d.affectedErr(err, cmd)
	}
	return n, nil
}
