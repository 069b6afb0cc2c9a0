package engine

import (
	"context"
	"fmt"
	"reflect"
)

// Delete removes the row of entity, matched by primary key.
func (d *Database) Delete(ctx context.Context, entity any) (int64, error) {
	meta, v, err := d.registry.ResolveValue(entity)
	if err != nil {
		return 0, err
	}
	key, err := keyValue(meta, v, meta.Table.PrimaryKey)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = @0",
		d.profile.EscapeTableName(meta.Table.TableName),
		d.profile.EscapeIdentifier(meta.Table.PrimaryKey),
	)
	return d.executeEntity(ctx, q, []any{key})
}

// DeleteByKey removes the row of T whose primary key is key.
func DeleteByKey[T any](ctx context.Context, d *Database, key any) (int64, error) {
	meta, err := d.registry.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	pk, err := meta.PrimaryKey()
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = @0",
		d.profile.EscapeTableName(meta.Table.TableName),
		d.profile.EscapeIdentifier(pk.Column.ColumnName),
	)
	return d.executeEntity(ctx, q, []any{key})
}

// DeleteWhere runs "DELETE FROM table <sqlText>" against T's table.
func DeleteWhere[T any](ctx context.Context, d *Database, sqlText string, args ...any) (int64, error) {
	meta, err := d.registry.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	return d.Execute(ctx, fmt.Sprintf("DELETE FROM %s %s", d.profile.EscapeTableName(meta.Table.TableName), sqlText), args...)
}
