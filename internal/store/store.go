// Package store persists users in SQLite through database/sql.
package store

import (
	"context"

	"github.com/kjstillabower/user-weather-service/internal/models"
)

// UserStore is the durable user table. Reads outside InTx see committed data only.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int64) (models.User, bool, error)
	// InTx runs fn in a write transaction. fn's error rolls back; nil commits.
	InTx(ctx context.Context, fn func(tx UserTx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// UserTx is the set of operations available inside a transaction.
// Get and FindByEmail return (zero, false, nil) when no row matches.
type UserTx interface {
	Get(ctx context.Context, id int64) (models.User, bool, error)
	FindByEmail(ctx context.Context, email string) (models.User, bool, error)
	// Insert assigns u.ID on success.
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u models.User) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
}
