package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kjstillabower/user-weather-service/internal/apperror"
	"github.com/kjstillabower/user-weather-service/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT    NOT NULL,
	email      TEXT    NOT NULL UNIQUE,
	age        INTEGER NOT NULL DEFAULT 0,
	created_at TEXT    NOT NULL,
	updated_at TEXT    NOT NULL
);`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements UserStore on the pure-Go modernc.org/sqlite driver.
// It holds a single connection, so writers are serialized and ":memory:" works.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
// path may be ":memory:" for tests. logger may be nil.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if !strings.Contains(path, ":memory:") {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil && logger != nil {
			logger.Warn("could not set WAL mode", zap.Error(err))
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil && logger != nil {
		logger.Warn("could not set busy timeout", zap.Error(err))
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// List returns all users ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, age FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Age); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Get implements UserStore.Get.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (models.User, bool, error) {
	return getUser(ctx, s.db, id)
}

// InTx implements UserStore.InTx.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx UserTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqliteTx{q: tx, now: s.now}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

// Ping checks that the database is reachable. Used for health checks.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database. Call during shutdown.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	q   querier
	now func() time.Time
}

func (t *sqliteTx) Get(ctx context.Context, id int64) (models.User, bool, error) {
	return getUser(ctx, t.q, id)
}

func (t *sqliteTx) FindByEmail(ctx context.Context, email string) (models.User, bool, error) {
	var u models.User
	err := t.q.QueryRowContext(ctx, `SELECT id, name, email, age FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Age)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("find user by email: %w", err)
	}
	return u, true, nil
}

func (t *sqliteTx) Insert(ctx context.Context, u *models.User) error {
	ts := t.now().UTC().Format(time.RFC3339)
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO users(name, email, age, created_at, updated_at) VALUES(?,?,?,?,?)`,
		u.Name, u.Email, u.Age, ts, ts)
	if err != nil {
		return classify("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: last insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (t *sqliteTx) Update(ctx context.Context, u models.User) error {
	_, err := t.q.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, age = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Email, u.Age, t.now().UTC().Format(time.RFC3339), u.ID)
	if err != nil {
		return classify("update user", err)
	}
	return nil
}

func (t *sqliteTx) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := t.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, classify("delete user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user: rows affected: %w", err)
	}
	return n > 0, nil
}

func getUser(ctx context.Context, q querier, id int64) (models.User, bool, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `SELECT id, name, email, age FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Age)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, true, nil
}

// classify turns constraint failures into apperror.StorageConstraintViolation
// and wraps everything else.
func classify(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
			return apperror.Wrap(apperror.StorageConstraintViolation, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
