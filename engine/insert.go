package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/NetRube/NetRube.Data/schema"
)

// Insert writes entity to its table and returns the primary key. A
// database-generated key is written back into the entity, which must then
// be passed by pointer. A failure swallowed by the exception hook returns
// nil.
func (d *Database) Insert(ctx context.Context, entity any) (any, error) {
	meta, _, err := d.registry.ResolveValue(entity)
	if err != nil {
		return nil, err
	}
	t := meta.Table
	return d.InsertInto(ctx, t.TableName, t.PrimaryKey, t.AutoIncrement, entity)
}

// InsertInto is Insert with an explicit table, key column and key
// generation.
func (d *Database) InsertInto(ctx context.Context, table, pk string, autoInc bool, entity any) (any, error) {
	meta, v, err := d.registry.ResolveValue(entity)
	if err != nil {
		return nil, err
	}
	info := schema.TableInfo{
		TableName:     table,
		PrimaryKey:    pk,
		AutoIncrement: autoInc,
		SequenceName:  meta.Table.SequenceName,
	}
	key, _ := meta.Column(pk)

	if key != nil && key.Generator != nil && key.Get(v).IsZero() {
		if !v.CanAddr() {
			return nil, ErrNotAddressable
		}
		id, err := key.Generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", key.Name, err)
		}
		if err := key.Set(v, id); err != nil {
			return nil, err
		}
	}

	cols, vals, args, err := d.buildInsert(meta, v, info, autoInc)
	if err != nil {
		return nil, err
	}
	output := ""
	if autoInc {
		output = d.profile.InsertOutputClause(pk)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s)%s VALUES (%s)",
		d.profile.EscapeTableName(table),
		strings.Join(cols, ","),
		output,
		strings.Join(vals, ","),
	)

	release, err := d.acquire(ctx)
	if err != nil {
		return nil, d.except(err, nil)
	}
	defer release()

	cmd, err := d.createCommand(q, args, false)
	if err != nil {
		return nil, d.except(err, nil)
	}

	if !autoInc {
		if _, err := d.ExecCommand(ctx, cmd); err != nil {
			return nil, d.except(err, cmd)
		}
		if key == nil {
			return nil, nil
		}
		return key.Get(v).Interface(), nil
	}

	id, err := d.profile.ExecuteInsert(ctx, d, cmd, pk)
	if err != nil {
		return nil, d.except(err, cmd)
	}
	if key != nil && id != nil {
		if !v.CanAddr() {
			return id, ErrNotAddressable
		}
		if err := key.Set(v, id); err != nil {
			return id, err
		}
	}
	return id, nil
}
