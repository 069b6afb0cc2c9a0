package dialect

import (
	"context"
	"database/sql"
	"testing"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NetRube/NetRube.Data/schema"
)

// =========================================================================
// Resolution
// =========================================================================

func TestResolveFamily(t *testing.T) {
	tests := []struct {
		name     string
		driver   string
		provider string
		want     Family
	}{
		{"mysql driver", "*mysql.MySQLDriver", "", MySQL},
		{"pq driver", "*pq.Driver", "", PostgreSQL},
		{"pgx stdlib driver", "*stdlib.Driver", "", PostgreSQL},
		{"modernc sqlite driver", "*sqlite.Driver", "", SQLite},
		{"mssql driver", "*mssql.Driver", "", SqlServer},
		{"driver wins over provider", "*mysql.MySQLDriver", "postgres", MySQL},
		{"provider mysql", "*fake.Driver", "MySql.Data", MySQL},
		{"provider tidb", "", "tidb", MySQL},
		{"provider sqlserverce before sqlserver", "", "System.Data.SqlServerCe.4.0", SqlServerCE},
		{"provider npgsql", "", "Npgsql", PostgreSQL},
		{"provider oracle", "", "Oracle.DataAccess", Oracle},
		{"provider sqlite", "", "System.Data.SQLite", SQLite},
		{"provider sqlserver", "", "sqlserver", SqlServer},
		{"unknown falls back to ansi", "*sqlmock.mockDriver", "whatever", ANSI},
		{"empty falls back to ansi", "", "", ANSI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFamily(tt.driver, tt.provider))
			assert.Equal(t, tt.want, Resolve(tt.driver, tt.provider).Family())
		})
	}
}

func TestForFamilyIsExhaustive(t *testing.T) {
	for _, f := range Families() {
		assert.Equal(t, f, ForFamily(f).Family(), f.String())
	}
	assert.Equal(t, ANSI, ForFamily(Family(99)).Family())
}

func TestParseFamily(t *testing.T) {
	f, ok := ParseFamily("PostgreSQL")
	require.True(t, ok)
	assert.Equal(t, PostgreSQL, f)

	f, ok = ParseFamily("mssql")
	require.True(t, ok)
	assert.Equal(t, SqlServer, f)

	_, ok = ParseFamily("db2")
	assert.False(t, ok)
}

// =========================================================================
// Escaping
// =========================================================================

func TestEscapeIdentifier(t *testing.T) {
	tests := []struct {
		family Family
		in     string
		want   string
	}{
		{ANSI, "name", `"name"`},
		{SqlServer, "name", "[name]"},
		{SqlServerCE, "name", "[name]"},
		{MySQL, "name", "`name`"},
		{PostgreSQL, "name", `"name"`},
		{Oracle, "name", `"NAME"`},
		{Oracle, `"Name"`, `"Name"`},
		{SQLite, "name", `"name"`},
	}

	for _, tt := range tests {
		t.Run(tt.family.String()+"/"+tt.in, func(t *testing.T) {
			p := ForFamily(tt.family)
			got := p.EscapeIdentifier(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, p.EscapeIdentifier(got), "escaping must be idempotent")
		})
	}
}

func TestEscapeTableNamePassesSchemaQualifiedNames(t *testing.T) {
	for _, f := range Families() {
		p := ForFamily(f)
		assert.Equal(t, "dbo.users", p.EscapeTableName("dbo.users"), f.String())
		assert.Equal(t, p.EscapeIdentifier("users"), p.EscapeTableName("users"), f.String())
	}
}

func TestParameterPrefix(t *testing.T) {
	assert.Equal(t, "@", ForFamily(ANSI).ParameterPrefix(""))
	assert.Equal(t, "@", ForFamily(MySQL).ParameterPrefix("Server=x"))
	assert.Equal(t, "?", ForFamily(MySQL).ParameterPrefix("Server=x;Allow User Variables=true"))
	assert.Equal(t, ":", ForFamily(Oracle).ParameterPrefix(""))
	assert.Equal(t, "@", ForFamily(SqlServer).ParameterPrefix(""))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", ForFamily(MySQL).Placeholder(3))
	assert.True(t, ForFamily(MySQL).Positional())
	assert.Equal(t, "$4", ForFamily(PostgreSQL).Placeholder(3))
	assert.Equal(t, "@p4", ForFamily(SqlServer).Placeholder(3))
	assert.Equal(t, ":4", ForFamily(Oracle).Placeholder(3))
	assert.False(t, ForFamily(Oracle).Positional())
}

// =========================================================================
// Paging
// =========================================================================

func TestBuildPageQueryAppendsExactlyTwoArgs(t *testing.T) {
	parts, err := SplitSQL("SELECT id, name FROM users WHERE age > @0 ORDER BY name")
	require.NoError(t, err)

	tests := []struct {
		family Family
		sql    string
		tail   []any
	}{
		{ANSI, "SELECT id, name FROM users WHERE age > @0 ORDER BY name\nLIMIT @1 OFFSET @2", []any{int64(10), int64(20)}},
		{MySQL, "SELECT id, name FROM users WHERE age > @0 ORDER BY name\nLIMIT @1 OFFSET @2", []any{int64(10), int64(20)}},
		{SQLite, "SELECT id, name FROM users WHERE age > @0 ORDER BY name\nLIMIT @1 OFFSET @2", []any{int64(10), int64(20)}},
		{PostgreSQL, "SELECT id, name FROM users WHERE age > @0 ORDER BY name\nLIMIT @1 OFFSET @2", []any{int64(10), int64(20)}},
		{SqlServerCE, "SELECT id, name FROM users WHERE age > @0 ORDER BY name\nOFFSET @1 ROWS FETCH NEXT @2 ROWS ONLY", []any{int64(20), int64(10)}},
		{SqlServer, "SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY name) peta_rn, id, name FROM users WHERE age > @0) peta_paged WHERE peta_rn>@1 AND peta_rn<=@2", []any{int64(20), int64(30)}},
		{Oracle, "SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY name) peta_rn, id, name FROM users WHERE age > @0) peta_paged WHERE peta_rn>@1 AND peta_rn<=@2", []any{int64(20), int64(30)}},
	}

	for _, tt := range tests {
		t.Run(tt.family.String(), func(t *testing.T) {
			args := []any{18}
			q, out, err := ForFamily(tt.family).BuildPageQuery(20, 10, parts, args)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, q)
			require.Len(t, out, len(args)+2)
			assert.Equal(t, tt.tail, out[1:])
			assert.Len(t, args, 1, "input args must not be modified")
		})
	}
}

func TestSqlServerPageQueryDistinct(t *testing.T) {
	parts, err := SplitSQL("SELECT DISTINCT city FROM users")
	require.NoError(t, err)

	q, _, err := ForFamily(SqlServer).BuildPageQuery(0, 5, parts, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY (SELECT NULL)) peta_rn, peta_inner.* FROM (SELECT DISTINCT city FROM users) peta_inner) peta_paged WHERE peta_rn>@0 AND peta_rn<=@1", q)
}

func TestOraclePagingRequiresAlias(t *testing.T) {
	parts, err := SplitSQL("SELECT * FROM users")
	require.NoError(t, err)

	_, _, err = ForFamily(Oracle).BuildPageQuery(0, 5, parts, nil)
	assert.ErrorIs(t, err, ErrPagingAlias)

	_, _, err = ForFamily(Oracle).BuildPagedSQL(0, 5, Clauses{Columns: "*", From: "users"}, nil)
	assert.ErrorIs(t, err, ErrPagingAlias)
}

func TestBuildTopSQL(t *testing.T) {
	c := Clauses{Columns: "a.id", From: "a", Where: "WHERE (a.x = @0)", OrderBy: " ORDER BY a.id"}
	args := []any{1}

	tests := []struct {
		family Family
		want   string
	}{
		{ANSI, "SELECT a.id FROM a WHERE (a.x = @0) ORDER BY a.id LIMIT @1"},
		{SqlServer, "SELECT TOP (@1) a.id FROM a WHERE (a.x = @0) ORDER BY a.id"},
		{SqlServerCE, "SELECT TOP (@1) a.id FROM a WHERE (a.x = @0) ORDER BY a.id"},
		{Oracle, "SELECT * FROM (SELECT a.id FROM a WHERE (a.x = @0) ORDER BY a.id) WHERE ROWNUM <= @1 ORDER BY ROWNUM ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.family.String(), func(t *testing.T) {
			q, out := ForFamily(tt.family).BuildTopSQL(3, c, args)
			assert.Equal(t, tt.want, q)
			assert.Equal(t, []any{1, int64(3)}, out)
		})
	}
}

func TestBuildPagedSQL(t *testing.T) {
	c := Clauses{Distinct: true, Columns: "a.id", From: "a", OrderBy: " ORDER BY a.id"}

	q, out, err := ForFamily(PostgreSQL).BuildPagedSQL(10, 5, c, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT a.id FROM a  ORDER BY a.id LIMIT @0 OFFSET @1", q)
	assert.Equal(t, []any{int64(5), int64(10)}, out)

	q, out, err = ForFamily(SqlServerCE).BuildPagedSQL(10, 5, c, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT a.id FROM a  ORDER BY a.id\nOFFSET @0 ROWS FETCH NEXT @1 ROWS ONLY", q)
	assert.Equal(t, []any{int64(10), int64(5)}, out)

	q, out, err = ForFamily(SqlServer).BuildPagedSQL(10, 5, Clauses{Columns: "a.id", From: "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY (SELECT NULL)) row_num, a.id FROM a ) paged_rows WHERE row_num > @0 AND row_num <= @1", q)
	assert.Equal(t, []any{int64(10), int64(15)}, out)
}

func TestRowNumberPagingKeepsDistinct(t *testing.T) {
	c := Clauses{
		Distinct: true,
		Columns:  "a.id, a.name",
		From:     "a",
		Where:    "WHERE a.id > @0",
		OrderBy:  " ORDER BY a.name DESC, a.id",
	}
	want := "SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY name DESC, id) row_num, distinct_rows.* " +
		"FROM (SELECT DISTINCT a.id, a.name FROM a WHERE a.id > @0) distinct_rows) paged_rows WHERE row_num > @1 AND row_num <= @2"

	for _, f := range []Family{SqlServer, Oracle} {
		t.Run(f.String(), func(t *testing.T) {
			q, out, err := ForFamily(f).BuildPagedSQL(10, 5, c, []any{1})
			require.NoError(t, err)
			assert.Equal(t, want, q)
			assert.Equal(t, []any{1, int64(10), int64(15)}, out)
		})
	}

	q, _, err := ForFamily(SqlServer).BuildPagedSQL(0, 5, Clauses{Distinct: true, Columns: "[people].[name]", From: "[people]"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY (SELECT NULL)) row_num, distinct_rows.* "+
		"FROM (SELECT DISTINCT [people].[name] FROM [people] ) distinct_rows) paged_rows WHERE row_num > @0 AND row_num <= @1", q)
}

func TestUnqualifyColumns(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" a.name DESC, a.id", "name DESC, id"},
		{"[people].[first.name]", "[first.name]"},
		{`"S"."T"."COL" ASC`, `"COL" ASC`},
		{"age", "age"},
		{"COALESCE(a.x, a.y)", "COALESCE(a.x, a.y)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, unqualifyColumns(tt.in))
		})
	}
}

// =========================================================================
// Values and inserts
// =========================================================================

func TestMapParameterValue(t *testing.T) {
	assert.Equal(t, 1, ForFamily(ANSI).MapParameterValue(true))
	assert.Equal(t, 0, ForFamily(MySQL).MapParameterValue(false))
	assert.Equal(t, true, ForFamily(PostgreSQL).MapParameterValue(true))
	assert.Equal(t, int64(7), ForFamily(SQLite).MapParameterValue(uint32(7)))
	assert.Equal(t, 1, ForFamily(SQLite).MapParameterValue(true))
	assert.Equal(t, mssql.VarChar("abc"), ForFamily(SqlServer).MapParameterValue(AnsiString("abc")))
	assert.Equal(t, mssql.VarChar("abc"), ForFamily(SqlServerCE).MapParameterValue(AnsiString("abc")))
	assert.Equal(t, "abc", ForFamily(MySQL).MapParameterValue(AnsiString("abc")))
	assert.Equal(t, "x", ForFamily(ANSI).MapParameterValue("x"))
}

func TestExistsTemplate(t *testing.T) {
	assert.Equal(t, "SELECT COUNT(*) FROM %s WHERE %s", ForFamily(ANSI).ExistsTemplate())
	assert.Equal(t, "SELECT EXISTS (SELECT 1 FROM %s WHERE %s)", ForFamily(MySQL).ExistsTemplate())
	assert.Equal(t, "IF EXISTS (SELECT 1 FROM %s WHERE %s) SELECT 1 ELSE SELECT 0", ForFamily(SqlServer).ExistsTemplate())
}

func TestAutoIncrementAndOutputClause(t *testing.T) {
	ti := schema.TableInfo{TableName: "users", PrimaryKey: "id", AutoIncrement: true, SequenceName: "users_seq"}
	assert.Equal(t, "users_seq.nextval", ForFamily(Oracle).AutoIncrementExpression(ti))
	assert.Empty(t, ForFamily(Oracle).AutoIncrementExpression(schema.TableInfo{}))
	assert.Empty(t, ForFamily(PostgreSQL).AutoIncrementExpression(ti))

	assert.Equal(t, " OUTPUT INSERTED.[id]", ForFamily(SqlServer).InsertOutputClause("id"))
	assert.Empty(t, ForFamily(SqlServerCE).InsertOutputClause("id"))
	assert.Empty(t, ForFamily(MySQL).InsertOutputClause("id"))
}

type fakeResult struct{ id int64 }

func (r fakeResult) LastInsertId() (int64, error) { return r.id, nil }
func (r fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeExecutor struct {
	nonQuery []string
	scalar   []string
	created  []string
}

func (f *fakeExecutor) CreateCommand(query string, args ...any) (*Command, error) {
	f.created = append(f.created, query)
	return &Command{SQL: query, Args: args}, nil
}

func (f *fakeExecutor) ExecCommand(_ context.Context, cmd *Command) (sql.Result, error) {
	f.nonQuery = append(f.nonQuery, cmd.SQL)
	return fakeResult{id: 42}, nil
}

func (f *fakeExecutor) ScalarCommand(_ context.Context, cmd *Command) (any, error) {
	f.scalar = append(f.scalar, cmd.SQL)
	return int64(7), nil
}

func TestExecuteInsert(t *testing.T) {
	const insert = "INSERT INTO t (a) VALUES (?)"
	ctx := context.Background()

	t.Run("ansi selects identity", func(t *testing.T) {
		ex := &fakeExecutor{}
		id, err := ForFamily(ANSI).ExecuteInsert(ctx, ex, &Command{SQL: insert}, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, []string{insert + ";\nSELECT @@IDENTITY AS NewID;"}, ex.scalar)
	})

	t.Run("mysql reads driver result", func(t *testing.T) {
		ex := &fakeExecutor{}
		id, err := ForFamily(MySQL).ExecuteInsert(ctx, ex, &Command{SQL: insert}, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.Equal(t, []string{insert}, ex.nonQuery)
	})

	t.Run("postgres returning", func(t *testing.T) {
		ex := &fakeExecutor{}
		id, err := ForFamily(PostgreSQL).ExecuteInsert(ctx, ex, &Command{SQL: insert}, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, []string{insert + ` returning "id" as NewID`}, ex.scalar)
	})

	t.Run("postgres without key", func(t *testing.T) {
		ex := &fakeExecutor{}
		id, err := ForFamily(PostgreSQL).ExecuteInsert(ctx, ex, &Command{SQL: insert}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(-1), id)
		assert.Len(t, ex.nonQuery, 1)
	})

	t.Run("sqlserverce follow-up identity", func(t *testing.T) {
		ex := &fakeExecutor{}
		id, err := ForFamily(SqlServerCE).ExecuteInsert(ctx, ex, &Command{SQL: insert}, "id")
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, []string{insert}, ex.nonQuery)
		assert.Equal(t, []string{"SELECT @@@IDENTITY AS NewID;"}, ex.created)
	})

	t.Run("oracle out parameter", func(t *testing.T) {
		ex := &fakeExecutor{}
		cmd := &Command{SQL: insert}
		_, err := ForFamily(Oracle).ExecuteInsert(ctx, ex, cmd, "id")
		require.NoError(t, err)
		assert.Equal(t, insert+` returning "ID" into :newid`, cmd.SQL)
		require.Len(t, cmd.Args, 1)
		named, ok := cmd.Args[0].(sql.NamedArg)
		require.True(t, ok)
		assert.Equal(t, "newid", named.Name)
	})
}

func TestOraclePreExecuteBindsByName(t *testing.T) {
	cmd := &Command{}
	ForFamily(Oracle).PreExecute(cmd)
	assert.True(t, cmd.BindByName)

	cmd = &Command{}
	ForFamily(PostgreSQL).PreExecute(cmd)
	assert.False(t, cmd.BindByName)
}

func TestRenderValue(t *testing.T) {
	assert.Equal(t, "NULL", ForFamily(ANSI).RenderValue(nil))
	assert.Equal(t, "'O''Brien'", ForFamily(MySQL).RenderValue("O'Brien"))
	assert.Equal(t, "TRUE", ForFamily(PostgreSQL).RenderValue(true))
	assert.Equal(t, "1", ForFamily(SqlServer).RenderValue(true))
	assert.Equal(t, "42", ForFamily(SQLite).RenderValue(int64(42)))
}
