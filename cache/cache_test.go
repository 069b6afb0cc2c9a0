package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementCachePreparesOnce(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT 1").WillBeClosed()

	sc, err := NewStatementCache(4)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := sc.GetOrPrepare(ctx, db, "SELECT 1")
	require.NoError(t, err)
	second, err := sc.GetOrPrepare(ctx, db, "SELECT 1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, sc.Len())

	_, ok := sc.Get("SELECT 1")
	assert.True(t, ok)

	require.NoError(t, sc.Close())
	assert.Equal(t, 0, sc.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementCacheEvictionCloses(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT 1").WillBeClosed()
	mock.ExpectPrepare("SELECT 2")

	sc, err := NewStatementCache(1)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = sc.GetOrPrepare(ctx, db, "SELECT 1")
	require.NoError(t, err)
	_, err = sc.GetOrPrepare(ctx, db, "SELECT 2")
	require.NoError(t, err)

	_, ok := sc.Get("SELECT 1")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementCachePrepareError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectPrepare("SELECT x").WillReturnError(boom)

	sc, err := NewStatementCache(2)
	require.NoError(t, err)
	_, err = sc.GetOrPrepare(context.Background(), db, "SELECT x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, sc.Len())
}

func TestFactoryCache(t *testing.T) {
	fc, err := NewFactoryCache[string](0)
	require.NoError(t, err)

	k1 := FactoryKey("SELECT * FROM a", "dsn", "id", "name")
	k2 := FactoryKey("SELECT * FROM a", "dsn", "id", "title")
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, k1, FactoryKey("SELECT * FROM a", "dsn", "id", "name"))

	builds := 0
	build := func() (string, error) { builds++; return "factory", nil }
	v, err := fc.GetOrBuild(k1, build)
	require.NoError(t, err)
	assert.Equal(t, "factory", v)
	_, err = fc.GetOrBuild(k1, build)
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	_, err = fc.GetOrBuild(k2, func() (string, error) { return "", errors.New("bad") })
	require.Error(t, err)
	_, ok := fc.Get(k2)
	assert.False(t, ok)

	fc.Purge()
	assert.Equal(t, 0, fc.Len())
}
