package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/koustreak/realms/internal/database"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/realm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB records statements and replays canned rows.
type fakeDB struct {
	dialect database.Dialect
	sql     []string
	args    [][]any
	rows    [][]any
	result  database.Result
	err     error
}

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close()                     {}
func (f *fakeDB) Dialect() database.Dialect  { return f.dialect }

func (f *fakeDB) record(sql string, args []any) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
}

func (f *fakeDB) last() (string, []any) {
	return f.sql[len(f.sql)-1], f.args[len(f.args)-1]
}

func (f *fakeDB) lastSQL() string {
	s, _ := f.last()
	return s
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (database.Rows, error) {
	f.record(sql, args)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{rows: f.rows, pos: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) (database.Row, error) {
	f.record(sql, args)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{rows: f.rows, pos: 0}, nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (database.Result, error) {
	f.record(sql, args)
	return f.result, f.err
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Columns() ([]string, error) { return columns, nil }
func (r *fakeRows) Close()                     {}
func (r *fakeRows) Err() error                 { return nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos]
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = row[i].(int64)
		case *string:
			*p = row[i].(string)
		case *time.Time:
			*p = row[i].(time.Time)
		}
	}
	return nil
}

func TestInsert_PostgresReturnsID(t *testing.T) {
	db := &fakeDB{dialect: database.DialectPostgres, rows: [][]any{{int64(41)}}}
	repo := New(db, time.Second)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	f := &File{Realm: realm.Memes, Folder: "root", Filename: "cat.gif", ObjectKey: "root/1_cat.gif", Size: 10}
	require.NoError(t, repo.Insert(context.Background(), f))

	assert.Equal(t, int64(41), f.ID)
	assert.Equal(t, fixed, f.CreatedAt)
	sql, args := db.last()
	assert.Contains(t, sql, `RETURNING "id"`)
	assert.Equal(t, "memes", args[0])
}

func TestInsert_MySQLUsesLastInsertID(t *testing.T) {
	db := &fakeDB{dialect: database.DialectMySQL, result: database.Result{RowsAffected: 1, LastInsertID: 9}}
	repo := New(db, 0)

	f := &File{Realm: realm.Music, Filename: "song.mp3", ObjectKey: "root/1_song.mp3"}
	require.NoError(t, repo.Insert(context.Background(), f))

	assert.Equal(t, int64(9), f.ID)
	assert.NotContains(t, db.lastSQL(), "RETURNING")
}

func TestInsert_Validates(t *testing.T) {
	repo := New(&fakeDB{}, 0)

	tests := []struct {
		name string
		file File
	}{
		{"unknown realm", File{Realm: "podcasts", Filename: "a.mp3", ObjectKey: "k"}},
		{"missing filename", File{Realm: realm.Music, ObjectKey: "k"}},
		{"missing key", File{Realm: realm.Music, Filename: "a.mp3"}},
		{"negative size", File{Realm: realm.Music, Filename: "a.mp3", ObjectKey: "k", Size: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.file
			assert.True(t, errs.IsInvalidInput(repo.Insert(context.Background(), &f)))
		})
	}
}

func TestListByRealm(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{
		dialect: database.DialectPostgres,
		rows: [][]any{
			{int64(2), "visuals", "root", "b.png", "root/2_b.png", "https://cdn/b.png", "image/png", int64(20), created},
			{int64(1), "visuals", "trips", "a.jpg", "trips/1_a.jpg", "", "image/jpeg", int64(10), created},
		},
	}

	files, err := New(db, 0).ListByRealm(context.Background(), realm.Visuals, 25)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, realm.Visuals, files[0].Realm)
	assert.Equal(t, "b.png", files[0].Filename)
	assert.Equal(t, "trips", files[1].Folder)
	assert.Equal(t, int64(10), files[1].Size)

	sql, args := db.last()
	assert.Contains(t, sql, `ORDER BY "id" DESC LIMIT $2`)
	assert.Equal(t, []any{"visuals", 25}, args)
}

func TestListByRealm_EmptyIsNotNil(t *testing.T) {
	files, err := New(&fakeDB{}, 0).ListByRealm(context.Background(), realm.Games, 0)
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestDelete(t *testing.T) {
	db := &fakeDB{result: database.Result{RowsAffected: 1}}
	require.NoError(t, New(db, 0).Delete(context.Background(), 3))
	assert.Equal(t, `DELETE FROM "files" WHERE "id" = $1`, db.lastSQL())

	db.result = database.Result{}
	assert.True(t, errs.IsNotFound(New(db, 0).Delete(context.Background(), 3)))
}
