package schema

import (
	"database/sql"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =========================================================================
// Test Data Structures
// =========================================================================

type Account struct {
	AccountID int64     `db:"column:account_id;primary"`
	Name      string
	Balance   float64   `db:"result"`
	Created   time.Time `db:"utc"`
	Secret    string    `db:"-"`
	internal  string
}

type NoTagsStruct struct {
	ID   uint64
	Name string
	Age  int
}

type legacyRow struct {
	ID   int `db:"primary;noauto"`
	Code string
}

func (legacyRow) TableName() string { return "LEGACY_TBL" }

type SequencedOrder struct {
	ID    int64 `db:"primary;seq:orders_seq"`
	Total float64
}

type Token struct {
	ID    string `db:"primary;generator:uuid"`
	Owner string
}

type ExplicitEntity struct {
	ExplicitColumns
	ID      int    `db:"id"`
	Name    string `db:"name"`
	Ignored string
}

type Audit struct {
	CreatedBy string
}

type Document struct {
	Audit
	ID    int64 `db:"primary"`
	Title string
}

// =========================================================================
// Naming Tests
// =========================================================================

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ID", "id"},
		{"UserID", "user_id"},
		{"FirstName", "first_name"},
		{"HTTPServer", "http_server"},
		{"OAuth2Token", "o_auth2_token"},
		{"already_snake", "already_snake"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, toSnakeCase(tt.in))
		})
	}
}

func TestNamingStrategy(t *testing.T) {
	n := DefaultNamingStrategy()
	assert.Equal(t, "users", n.TableName("User"))
	assert.Equal(t, "blog_posts", n.TableName("BlogPost"))
	assert.Equal(t, "categories", n.TableName("Category"))
	assert.Equal(t, "people", n.TableName("Person"))
	assert.Equal(t, "created_at", n.ColumnName("CreatedAt"))

	v := VerbatimNamingStrategy()
	assert.Equal(t, "User", v.TableName("User"))
	assert.Equal(t, "CreatedAt", v.ColumnName("CreatedAt"))

	c := Naming{Columns: CamelCase, Tables: PascalCase}
	assert.Equal(t, "userId", c.ColumnName("user_id"))
	assert.Equal(t, "BlogPost", c.TableName("blog_post"))
}

// =========================================================================
// Tag Parser Tests
// =========================================================================

func TestParseTag(t *testing.T) {
	p := NewTagParser(DefaultNamingStrategy())

	tests := []struct {
		name    string
		field   string
		tag     reflect.StructTag
		want    ParsedTag
		wantErr bool
	}{
		{"untagged", "FirstName", ``, ParsedTag{ColumnName: "first_name"}, false},
		{"plain column", "FirstName", `db:"fname"`, ParsedTag{ColumnName: "fname", Tagged: true}, false},
		{"skip", "Secret", `db:"-"`, ParsedTag{Skip: true, Tagged: true}, false},
		{"flag only", "ID", `db:"primary"`, ParsedTag{ColumnName: "id", Tagged: true, Primary: true}, false},
		{"options", "ID", `db:"column:user_id;primary;noauto;seq:s"`,
			ParsedTag{ColumnName: "user_id", Tagged: true, Primary: true, NoAuto: true, Sequence: "s"}, false},
		{"result and utc", "At", `db:"result;utc"`, ParsedTag{ColumnName: "at", Tagged: true, Result: true, UTC: true}, false},
		{"generator", "ID", `db:"generator:ulid"`, ParsedTag{ColumnName: "id", Tagged: true, Generator: "ulid"}, false},
		{"unknown flag", "ID", `db:"primary;wat"`, ParsedTag{}, true},
		{"unknown generator", "ID", `db:"generator:nope"`, ParsedTag{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseTag(tt.field, tt.tag)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

// =========================================================================
// Table Info Tests
// =========================================================================

func TestStandardMapperTableInfo(t *testing.T) {
	m := NewStandardMapper(nil)

	tests := []struct {
		name string
		typ  reflect.Type
		want TableInfo
	}{
		{"tagged primary", reflect.TypeOf(Account{}), TableInfo{TableName: "accounts", PrimaryKey: "account_id", AutoIncrement: true}},
		{"field named ID", reflect.TypeOf(NoTagsStruct{}), TableInfo{TableName: "no_tags_structs", PrimaryKey: "id"}},
		{"table namer", reflect.TypeOf(legacyRow{}), TableInfo{TableName: "LEGACY_TBL", PrimaryKey: "id"}},
		{"pointer type", reflect.TypeOf(&Account{}), TableInfo{TableName: "accounts", PrimaryKey: "account_id", AutoIncrement: true}},
		{"sequence", reflect.TypeOf(SequencedOrder{}), TableInfo{TableName: "sequenced_orders", PrimaryKey: "id", AutoIncrement: true, SequenceName: "orders_seq"}},
		{"generator", reflect.TypeOf(Token{}), TableInfo{TableName: "tokens", PrimaryKey: "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.TableInfo(tt.typ))
		})
	}
}

// =========================================================================
// Registry Tests
// =========================================================================

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(nil)

	meta, err := r.Resolve(reflect.TypeOf(Account{}))
	require.NoError(t, err)

	assert.Equal(t, "accounts", meta.Table.TableName)
	require.Len(t, meta.Columns, 4)
	assert.Equal(t, []string{"account_id", "name", "balance", "created"},
		[]string{meta.Columns[0].Column.ColumnName, meta.Columns[1].Column.ColumnName, meta.Columns[2].Column.ColumnName, meta.Columns[3].Column.ColumnName})
	assert.Equal(t, []string{"account_id", "name", "created"}, meta.QueryColumns())

	f, ok := meta.Column("NAME")
	require.True(t, ok)
	assert.Equal(t, "Name", f.Name)

	f, err = meta.Resolve("AccountID")
	require.NoError(t, err)
	assert.Equal(t, "account_id", f.Column.ColumnName)

	_, err = meta.Resolve("Missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), "Missing")

	again, err := r.Resolve(reflect.TypeOf(&Account{}))
	require.NoError(t, err)
	assert.Same(t, meta, again)
}

func TestRegistryFlattensEmbeddedStructs(t *testing.T) {
	meta, err := NewRegistry(nil).Resolve(reflect.TypeOf(Document{}))
	require.NoError(t, err)

	_, ok := meta.Column("created_by")
	assert.True(t, ok)
	assert.Len(t, meta.Columns, 3)
}

func TestRegistryExplicitColumns(t *testing.T) {
	meta, err := NewRegistry(nil).Resolve(reflect.TypeOf(ExplicitEntity{}))
	require.NoError(t, err)

	assert.Len(t, meta.Columns, 2)
	_, ok := meta.Column("ignored")
	assert.False(t, ok)
}

func TestRegistryRejectsNonStruct(t *testing.T) {
	_, err := NewRegistry(nil).Resolve(reflect.TypeOf(42))
	assert.ErrorIs(t, err, ErrNotStruct)
}

type upperMapper struct{ *StandardMapper }

func (m upperMapper) TableInfo(t reflect.Type) TableInfo {
	ti := m.StandardMapper.TableInfo(t)
	ti.TableName = "T_" + ti.TableName
	return ti
}

func TestRegistryRegisterInvalidates(t *testing.T) {
	r := NewRegistry(nil)
	flushes := 0
	r.OnInvalidate(func() { flushes++ })

	before, err := r.Resolve(reflect.TypeOf(Account{}))
	require.NoError(t, err)
	assert.Equal(t, "accounts", before.Table.TableName)

	custom := upperMapper{NewStandardMapper(nil)}
	r.Register(reflect.TypeOf(Account{}), custom)
	assert.Equal(t, 1, flushes)

	after, err := r.Resolve(reflect.TypeOf(Account{}))
	require.NoError(t, err)
	assert.Equal(t, "T_accounts", after.Table.TableName)
	assert.Equal(t, "accounts", before.Table.TableName, "previously resolved metadata is immutable")

	r.RevokeMapper(custom)
	assert.Equal(t, 2, flushes)
	reverted, err := r.Resolve(reflect.TypeOf(Account{}))
	require.NoError(t, err)
	assert.Equal(t, "accounts", reverted.Table.TableName)

	r.RegisterPackage(reflect.TypeOf(Account{}).PkgPath(), custom)
	pkg, err := r.Resolve(reflect.TypeOf(NoTagsStruct{}))
	require.NoError(t, err)
	assert.Equal(t, "T_no_tags_structs", pkg.Table.TableName)

	r.RevokePackage(reflect.TypeOf(Account{}).PkgPath())
	assert.Equal(t, 4, flushes)
}

func TestRegistryConcurrentResolveAndInvalidate(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				meta, err := r.Resolve(reflect.TypeOf(Account{}))
				if assert.NoError(t, err) {
					assert.Equal(t, "account_id", meta.Table.PrimaryKey)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.InvalidateAll()
			}
		}()
	}
	wg.Wait()
}

type namedMapper struct {
	*StandardMapper
	table   string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (m *namedMapper) TableInfo(t reflect.Type) TableInfo {
	if m.started != nil {
		m.once.Do(func() { close(m.started) })
		<-m.release
	}
	ti := m.StandardMapper.TableInfo(t)
	ti.TableName = m.table
	return ti
}

func TestRegistryResolveAfterFlushSeesNewMapper(t *testing.T) {
	typ := reflect.TypeOf(Account{})
	slow := &namedMapper{
		StandardMapper: NewStandardMapper(nil),
		table:          "old_table",
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	r := NewRegistry(nil)
	r.Register(typ, slow)

	done := make(chan *EntityMeta, 1)
	go func() {
		meta, err := r.Resolve(typ)
		assert.NoError(t, err)
		done <- meta
	}()
	<-slow.started

	r.Register(typ, &namedMapper{StandardMapper: NewStandardMapper(nil), table: "new_table"})

	fresh, err := r.Resolve(typ)
	require.NoError(t, err)
	assert.Equal(t, "new_table", fresh.Table.TableName)

	close(slow.release)
	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, "old_table", stale.Table.TableName)

	cached, err := r.Resolve(typ)
	require.NoError(t, err)
	assert.Same(t, fresh, cached)
}

// =========================================================================
// Entity Operation Tests
// =========================================================================

func TestIsNew(t *testing.T) {
	r := NewRegistry(nil)
	meta, err := r.Resolve(reflect.TypeOf(Account{}))
	require.NoError(t, err)

	isNew, err := meta.IsNew(reflect.ValueOf(Account{}))
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = meta.IsNew(reflect.ValueOf(Account{AccountID: 5}))
	require.NoError(t, err)
	assert.False(t, isNew)

	plain, err := r.Resolve(reflect.TypeOf(NoTagsStruct{}))
	require.NoError(t, err)
	_, err = plain.IsNew(reflect.ValueOf(NoTagsStruct{}))
	assert.ErrorIs(t, err, ErrNotAutoIncrement)
}

func TestFieldSetForcesUTC(t *testing.T) {
	meta, err := NewRegistry(nil).Resolve(reflect.TypeOf(Account{}))
	require.NoError(t, err)
	f, ok := meta.Column("created")
	require.True(t, ok)

	local := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("X", 3600))
	var a Account
	require.NoError(t, f.Set(reflect.ValueOf(&a).Elem(), local))

	assert.Equal(t, time.UTC, a.Created.Location())
	assert.Equal(t, 10, a.Created.Hour())
}

func TestGeneratorAttached(t *testing.T) {
	meta, err := NewRegistry(nil).Resolve(reflect.TypeOf(Token{}))
	require.NoError(t, err)
	pk, err := meta.PrimaryKey()
	require.NoError(t, err)
	require.NotNil(t, pk.Generator)

	id, err := pk.Generator.Generate()
	require.NoError(t, err)
	assert.Len(t, id, 36)

	ulidGen, ok := LookupGenerator("ulid")
	require.True(t, ok)
	id, err = ulidGen.Generate()
	require.NoError(t, err)
	assert.Len(t, id, 26)
}

// =========================================================================
// Conversion Tests
// =========================================================================

func TestAssign(t *testing.T) {
	var (
		i32  int32
		u8   uint8
		s    string
		f    float64
		b    bool
		raw  []byte
		ts   time.Time
		ptr  *int64
		ns   sql.NullString
		when = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	)

	tests := []struct {
		name string
		dst  any
		src  any
		want any
	}{
		{"int64 to int32", &i32, int64(42), int32(42)},
		{"bytes to int", &i32, []byte("7"), int32(7)},
		{"int64 to uint8", &u8, int64(200), uint8(200)},
		{"bytes to string", &s, []byte("hello"), "hello"},
		{"int to string", &s, int64(5), "5"},
		{"string to float", &f, "1.5", 1.5},
		{"int to bool", &b, int64(1), true},
		{"string to bytes", &raw, "abc", []byte("abc")},
		{"string to time", &ts, "2020-01-02 03:04:05", when},
		{"int to pointer", &ptr, int64(9), int64(9)},
		{"scanner", &ns, "x", sql.NullString{String: "x", Valid: true}},
		{"nil zeroes", &s, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := reflect.ValueOf(tt.dst).Elem()
			require.NoError(t, Assign(dst, tt.src))
			got := dst.Interface()
			if p, ok := got.(*int64); ok {
				require.NotNil(t, p)
				got = *p
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignErrors(t *testing.T) {
	var u8 uint8
	assert.Error(t, Assign(reflect.ValueOf(&u8).Elem(), int64(300)))

	var n int
	assert.Error(t, Assign(reflect.ValueOf(&n).Elem(), "abc"))

	var m map[string]int
	assert.Error(t, Assign(reflect.ValueOf(&m).Elem(), int64(1)))
}

// =========================================================================
// Change Tracking Tests
// =========================================================================

func TestDiff(t *testing.T) {
	r := NewRegistry(nil)
	orig := Account{AccountID: 1, Name: "a", Balance: 10}
	cur := orig
	cur.Name = "b"
	cur.Balance = 99
	cur.AccountID = 2

	changes, err := r.Diff(&cur, orig)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Field: "Name", Column: "name", Value: "b"}}, changes)

	_, err = r.Diff(&cur, NoTagsStruct{})
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry(nil)
	acc := &Account{AccountID: 1, Name: "a"}
	snap := TrackWith(r, acc)

	changes, err := snap.Changes()
	require.NoError(t, err)
	assert.Empty(t, changes)

	acc.Name = "renamed"
	changes, err = snap.Changes()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "renamed", changes[0].Value)

	snap.Reset()
	changes, err = snap.Changes()
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Same(t, acc, snap.Entity())
}
