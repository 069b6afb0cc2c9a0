package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/schema"
)

type token struct {
	ID    string `db:"primary;noauto;generator:uuid"`
	Owner string
}

func (token) TableName() string { return "tokens" }

func TestInsertAutoIncrement(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite last insert id", func(t *testing.T) {
		d, mock := newMock(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "people" ("name","age") VALUES (?,?)`).
			WithArgs("ann", 30).
			WillReturnResult(sqlmock.NewResult(7, 1))

		p := &person{Name: "ann", Age: 30}
		id, err := d.Insert(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, int64(7), p.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("postgres returning", func(t *testing.T) {
		d, mock := newMock(t, dialect.PostgreSQL)
		mock.ExpectQuery(`INSERT INTO "people" ("name","age") VALUES ($1,$2) returning "id" as NewID`).
			WithArgs("ann", 30).
			WillReturnRows(sqlmock.NewRows([]string{"newid"}).AddRow(8))

		p := &person{Name: "ann", Age: 30}
		_, err := d.Insert(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(8), p.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sql server output clause", func(t *testing.T) {
		d, mock := newMock(t, dialect.SqlServer)
		mock.ExpectQuery(`INSERT INTO [people] ([name],[age]) OUTPUT INSERTED.[id] VALUES (@p1,@p2)`).
			WithArgs("ann", 30).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

		p := &person{Name: "ann", Age: 30}
		_, err := d.Insert(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(9), p.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInsertGeneratedKey(t *testing.T) {
	d, mock := newMock(t, dialect.SQLite)
	mock.ExpectExec(`INSERT INTO "tokens" ("id","owner") VALUES (?,?)`).
		WithArgs(sqlmock.AnyArg(), "ann").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tok := &token{Owner: "ann"}
	id, err := d.Insert(context.Background(), tok)
	require.NoError(t, err)
	_, err = uuid.Parse(tok.ID)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, id)

	_, err = d.Insert(context.Background(), token{Owner: "bob"})
	assert.ErrorIs(t, err, ErrNotAddressable)
}

func TestInsertConstraintViolation(t *testing.T) {
	d, mock := newMock(t, dialect.SQLite)
	mock.ExpectExec(`INSERT INTO "people" ("name","age") VALUES (?,?)`).
		WithArgs("ann", 30).
		WillReturnError(errors.New("UNIQUE constraint failed: people.name"))

	_, err := d.Insert(context.Background(), &person{Name: "ann", Age: 30})
	require.Error(t, err)
	assert.True(t, IsConstraintError(err))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("all columns", func(t *testing.T) {
		d, mock := newMock(t, dialect.SQLite)
		mock.ExpectExec(`UPDATE "people" SET "name" = ?, "age" = ? WHERE "id" = ?`).
			WithArgs("ann", 31, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := d.Update(ctx, &person{ID: 1, Name: "ann", Age: 31})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("selected columns", func(t *testing.T) {
		d, mock := newMock(t, dialect.PostgreSQL)
		mock.ExpectExec(`UPDATE "people" SET "age" = $1 WHERE "id" = $2`).
			WithArgs(31, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := d.UpdateColumns(ctx, person{ID: 1, Name: "ignored", Age: 31}, "Age")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown column", func(t *testing.T) {
		d, _ := newMock(t, dialect.SQLite)
		_, err := d.UpdateColumns(ctx, person{ID: 1}, "Missing")
		assert.Error(t, err)
	})

	t.Run("where", func(t *testing.T) {
		d, mock := newMock(t, dialect.SQLite)
		mock.ExpectExec(`UPDATE "people" SET age = age + 1 WHERE age < ?`).
			WithArgs(18).
			WillReturnResult(sqlmock.NewResult(0, 4))

		n, err := UpdateWhere[person](ctx, d, "SET age = age + 1 WHERE age < @0", 18)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	d, mock := newMock(t, dialect.SQLite)
	mock.ExpectExec(`DELETE FROM "people" WHERE "id" = ?`).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "people" WHERE "id" = ?`).WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "people" WHERE age > ?`).WithArgs(99).WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := d.Delete(ctx, &person{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = DeleteByKey[person](ctx, d, 4)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = DeleteWhere[person](ctx, d, "WHERE age > @0", 99)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	d, mock := newMock(t, dialect.SQLite)
	mock.ExpectExec(`INSERT INTO "people" ("name","age") VALUES (?,?)`).
		WithArgs("ann", 30).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(`UPDATE "people" SET "name" = ?, "age" = ? WHERE "id" = ?`).
		WithArgs("ann", 31, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &person{Name: "ann", Age: 30}
	isNew, err := d.IsNew(p)
	require.NoError(t, err)
	assert.True(t, isNew)

	require.NoError(t, d.Save(ctx, p))
	assert.Equal(t, int64(5), p.ID)

	p.Age = 31
	require.NoError(t, d.Save(ctx, p))
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = d.IsNew(&token{})
	assert.ErrorIs(t, err, schema.ErrNotAutoIncrement)
}
