// Package catalog stores metadata for uploaded files in the `files` table.
package catalog

import (
	"context"
	"time"

	"github.com/koustreak/realms/internal/database"
	"github.com/koustreak/realms/internal/errs"
	"github.com/koustreak/realms/internal/realm"
)

const table = "files"

var columns = []string{"id", "realm", "folder", "filename", "object_key", "url", "mime", "size", "created_at"}

// File is one row of the files table.
type File struct {
	ID        int64     `json:"id"`
	Realm     realm.ID  `json:"realm"`
	Folder    string    `json:"folder"`
	Filename  string    `json:"filename"`
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	Mime      string    `json:"mime"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository reads and writes file records through database.DB.
type Repository struct {
	db      database.DB
	dialect database.Dialect
	timeout time.Duration
	now     func() time.Time
}

// New returns a Repository. timeout bounds every statement; zero disables it.
func New(db database.DB, timeout time.Duration) *Repository {
	return &Repository{
		db:      db,
		dialect: db.Dialect(),
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Insert stores f and fills in its ID and CreatedAt.
func (r *Repository) Insert(ctx context.Context, f *File) error {
	if !f.Realm.Valid() || f.Filename == "" || f.ObjectKey == "" {
		return errs.New(errs.ErrKindInvalidInput, "file record needs realm, filename and object key")
	}
	if f.Size < 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "negative size %d", f.Size)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = r.now()
	}

	sql, args, err := database.Insert(table, r.dialect).
		Set("realm", string(f.Realm)).
		Set("folder", f.Folder).
		Set("filename", f.Filename).
		Set("object_key", f.ObjectKey).
		Set("url", f.URL).
		Set("mime", f.Mime).
		Set("size", f.Size).
		Set("created_at", f.CreatedAt).
		Returning("id").
		Build()
	if err != nil {
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if r.dialect == database.DialectPostgres {
		row, err := r.db.QueryRow(ctx, sql, args...)
		if err != nil {
			return err
		}
		return row.Scan(&f.ID)
	}

	res, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	f.ID = res.LastInsertID
	return nil
}

// ListByRealm returns up to limit records for id, newest first.
// A non-positive limit returns every record.
func (r *Repository) ListByRealm(ctx context.Context, id realm.ID, limit int) ([]File, error) {
	b := database.Select(table, r.dialect).
		Columns(columns...).
		Where("realm", "=", string(id)).
		OrderBy("id", database.Desc)
	if limit > 0 {
		b.Limit(limit)
	}
	sql, args, err := b.Build()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		var (
			f  File
			rl string
		)
		if err := rows.Scan(&f.ID, &rl, &f.Folder, &f.Filename, &f.ObjectKey, &f.URL, &f.Mime, &f.Size, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Realm = realm.ID(rl)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// Delete removes the record with the given id. A missing row is NotFound.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	sql, args, err := database.Delete(table, r.dialect).Where("id", "=", id).Build()
	if err != nil {
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return errs.Newf(errs.ErrKindNotFound, "file %d not found", id)
	}
	return nil
}
