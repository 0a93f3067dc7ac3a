// Package repository declares the storage contracts the service layer
// depends on. Implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"

	"github.com/sakif/account-service/internal/model"
)

// UserFilter selects users by any of their unique keys. Non-empty fields
// are OR-ed together, so {Email: e, Username: u} matches a user owning
// either value. An empty filter matches nothing.
type UserFilter struct {
	ID          string
	Username    string
	Email       string
	PhoneNumber string
}

// IsEmpty reports whether no field is set.
func (f UserFilter) IsEmpty() bool {
	return f == UserFilter{}
}

// UserRepository stores user accounts.
//
// Implementations must enforce uniqueness of username, email and phone
// number atomically and report a violation as apperror.ErrConflict; a
// missing row is apperror.ErrNotFound.
type UserRepository interface {
	// FindOne returns the first user matching f.
	FindOne(ctx context.Context, f UserFilter) (*model.User, error)
	// FindAll returns every user matching f, used for uniqueness checks.
	FindAll(ctx context.Context, f UserFilter) ([]model.User, error)
	Insert(ctx context.Context, user *model.User) error
	// Update writes the non-empty fields of patch to the user with the given ID.
	Update(ctx context.Context, id string, patch model.UserPatch) error
	Delete(ctx context.Context, id string) error
	// RecordLogin stamps the user's last successful login, in epoch milliseconds.
	RecordLogin(ctx context.Context, id string, at int64) error
}
