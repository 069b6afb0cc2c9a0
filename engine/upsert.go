package engine

import "context"

// IsNew reports whether entity has not been inserted yet, judged by a zero
// auto-increment primary key.
func (d *Database) IsNew(entity any) (bool, error) {
	meta, v, err := d.registry.ResolveValue(entity)
	if err != nil {
		return false, err
	}
	return meta.IsNew(v)
}

// Save inserts entity when it is new and updates it otherwise.
func (d *Database) Save(ctx context.Context, entity any) error {
	isNew, err := d.IsNew(entity)
	if err != nil {
		return err
	}
	if isNew {
		_, err = d.Insert(ctx, entity)
		return err
	}
	_, err = d.Update(ctx, entity)
	return err
}
