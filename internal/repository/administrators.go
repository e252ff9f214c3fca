package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"registrar/internal/model"
)

const bootstrapLockKey = "registrar.administrators.bootstrap"

func scanAdministrator(row pgx.Row, withHash bool) (model.Administrator, error) {
	var (
		admin model.Administrator
		id    pgtype.UUID
		err   error
	)
	if withHash {
		err = row.Scan(&id, &admin.Username, &admin.PasswordHash, &admin.CreatedAt)
	} else {
		err = row.Scan(&id, &admin.Username, &admin.CreatedAt)
	}
	admin.ID = uuidString(id)
	return admin, err
}

func (s *Store) CountAdministrators(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*)::int FROM administrators`).Scan(&count); err != nil {
		return 0, mapError(err, "count administrators")
	}
	return count, nil
}

// GetAdministratorByUsername returns the record including its password hash.
func (s *Store) GetAdministratorByUsername(ctx context.Context, username string) (model.Administrator, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM administrators
		WHERE username = $1
	`, username)
	admin, err := scanAdministrator(row, true)
	return admin, mapError(err, "get administrator by username")
}

func (s *Store) GetAdministrator(ctx context.Context, id string) (model.Administrator, error) {
	adminID, err := parseUUID(id)
	if err != nil {
		return model.Administrator{}, ErrNotFound
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRow(ctx, `
		SELECT id, username, created_at
		FROM administrators
		WHERE id = $1
	`, adminID)
	admin, err := scanAdministrator(row, false)
	return admin, mapError(err, "get administrator")
}

func (s *Store) CreateAdministrator(ctx context.Context, username, passwordHash string) (model.Administrator, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRow(ctx, `
		INSERT INTO administrators (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, username, created_at
	`, username, passwordHash)
	admin, err := scanAdministrator(row, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return admin, ErrConflict
	}
	return admin, mapError(err, "create administrator")
}

// CreateFirstAdministrator inserts only while the table is empty. Concurrent
// callers are serialized on an advisory lock so at most one of them succeeds.
func (s *Store) CreateFirstAdministrator(ctx context.Context, username, passwordHash string) (model.Administrator, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Administrator{}, mapError(err, "begin bootstrap")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, bootstrapLockKey); err != nil {
		return model.Administrator{}, mapError(err, "lock bootstrap")
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO administrators (username, password_hash)
		SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM administrators)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, username, created_at
	`, username, passwordHash)
	admin, err := scanAdministrator(row, false)
	if errors.Is(err, pgx.ErrNoRows) {
		// The table is no longer empty; a username conflict is only reported after authentication.
		return model.Administrator{}, ErrRegistrationClosed
	}
	if err != nil {
		return model.Administrator{}, mapError(err, "create first administrator")
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Administrator{}, mapError(err, "commit bootstrap")
	}
	return admin, nil
}
