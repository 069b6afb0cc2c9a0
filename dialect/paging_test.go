package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQL(t *testing.T) {
	tests := []struct {
		name          string
		sql           string
		count         string
		selectRemoved string
		orderBy       string
		distinct      bool
	}{
		{
			name:          "simple",
			sql:           "SELECT * FROM users",
			count:         "SELECT COUNT(*) FROM users",
			selectRemoved: "* FROM users",
		},
		{
			name:          "order by is split off",
			sql:           "SELECT id, name FROM users WHERE age > @0 ORDER BY name DESC",
			count:         "SELECT COUNT(*) FROM users WHERE age > @0",
			selectRemoved: "id, name FROM users WHERE age > @0 ORDER BY name DESC",
			orderBy:       "ORDER BY name DESC",
		},
		{
			name:          "distinct counts columns",
			sql:           "select distinct city from users",
			count:         "select COUNT(distinct city) from users",
			selectRemoved: "distinct city from users",
			distinct:      true,
		},
		{
			name:          "nested from is ignored",
			sql:           "SELECT id, (SELECT COUNT(*) FROM orders o WHERE o.uid = u.id) n FROM users u ORDER BY id",
			count:         "SELECT COUNT(*) FROM users u",
			selectRemoved: "id, (SELECT COUNT(*) FROM orders o WHERE o.uid = u.id) n FROM users u ORDER BY id",
			orderBy:       "ORDER BY id",
		},
		{
			name:          "window order by is not trailing",
			sql:           "SELECT ROW_NUMBER() OVER (ORDER BY id) rn FROM users",
			count:         "SELECT COUNT(*) FROM users",
			selectRemoved: "ROW_NUMBER() OVER (ORDER BY id) rn FROM users",
		},
		{
			name:          "quoted keywords are ignored",
			sql:           "SELECT 'from' AS word FROM [order by]",
			count:         "SELECT COUNT(*) FROM [order by]",
			selectRemoved: "'from' AS word FROM [order by]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := SplitSQL(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, parts.SQL)
			assert.Equal(t, tt.count, parts.SQLCount)
			assert.Equal(t, tt.selectRemoved, parts.SQLSelectRemoved)
			assert.Equal(t, tt.orderBy, parts.SQLOrderBy)
			assert.Equal(t, tt.distinct, parts.Distinct)
		})
	}
}

func TestSplitSQLRejectsNonSelect(t *testing.T) {
	for _, q := range []string{"UPDATE users SET a = 1", "SELECT 1", ""} {
		_, err := SplitSQL(q)
		assert.ErrorIs(t, err, ErrUnparsableSQL, q)
	}
}

func TestRemoveOrderBy(t *testing.T) {
	assert.Equal(t, "* FROM t", removeOrderBy("* FROM t ORDER BY a"))
	assert.Equal(t, "* FROM t", removeOrderBy("* FROM t"))
}
