package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"registrar/internal/patch"
)

// Table is the CRUD surface shared by students, courses and teachers.
type Table[T any] struct {
	store  *Store
	def    patch.Table
	search []string
	scan   func(pgx.Row) (T, error)
}

func (t *Table[T]) columns() string {
	return strings.Join(t.def.Returning, ", ")
}

// List returns every row, newest first. A non-blank term keeps rows where any
// search column contains it, ignoring case.
func (t *Table[T]) List(ctx context.Context, term string) ([]T, error) {
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()

	sql := "SELECT " + t.columns() + " FROM " + t.def.Name
	var args []any
	if term = strings.TrimSpace(term); term != "" && len(t.search) > 0 {
		args = append(args, strings.ToLower(term))
		conds := make([]string, 0, len(t.search))
		for _, col := range t.search {
			conds = append(conds, "strpos(lower(coalesce("+col+", '')), $"+strconv.Itoa(len(args))+") > 0")
		}
		sql += " WHERE " + strings.Join(conds, " OR ")
	}
	sql += " ORDER BY created_at DESC"

	rows, err := t.store.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "list "+t.def.Name)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := t.scan(rows)
		if err != nil {
			return nil, mapError(err, "scan "+t.def.Name)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list "+t.def.Name)
	}
	return items, nil
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	rowID, err := parseUUID(id)
	if err != nil {
		return zero, ErrNotFound
	}
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()

	row := t.store.db.QueryRow(ctx, "SELECT "+t.columns()+" FROM "+t.def.Name+" WHERE id = $1", rowID)
	item, err := t.scan(row)
	if err != nil {
		return zero, mapError(err, "get "+t.def.Name)
	}
	return item, nil
}

// Create inserts a row. An existing natural key yields ErrConflict.
func (t *Table[T]) Create(ctx context.Context, set []patch.Assignment) (T, error) {
	var zero T
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()

	sql, args := t.def.BuildInsert(set)
	item, err := t.scan(t.store.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, ErrConflict
		}
		return zero, mapError(err, "create "+t.def.Name)
	}
	return item, nil
}

func (t *Table[T]) Update(ctx context.Context, id string, set []patch.Assignment) (T, error) {
	var zero T
	rowID, err := parseUUID(id)
	if err != nil {
		return zero, ErrNotFound
	}
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()

	sql, args := t.def.BuildUpdate(set, rowID)
	item, err := t.scan(t.store.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return zero, mapError(err, "update "+t.def.Name)
	}
	return item, nil
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	rowID, err := parseUUID(id)
	if err != nil {
		return ErrNotFound
	}
	ctx, cancel := t.store.withTimeout(ctx)
	defer cancel()

	tag, err := t.store.db.Exec(ctx, "DELETE FROM "+t.def.Name+" WHERE id = $1", rowID)
	if err != nil {
		return mapError(err, "delete "+t.def.Name)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
