package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, phone_number, password_hash, salt,
	first_name, last_name, room_number, profile_image, role, registered_on, last_log_in_on`

// uniqueColumns maps the users table's UNIQUE columns to their JSON field names.
var uniqueColumns = map[string]string{
	"username":     "username",
	"email":        "email",
	"phone_number": "phoneNumber",
}

// Insert stores a new user. A missing ID is generated with xid.
//
// Uniqueness is enforced by the table's UNIQUE constraints, so two racing
// registrations with the same email cannot both succeed; the loser gets
// apperror.ErrConflict naming the column.
func (db *DB) Insert(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PhoneNumber,
		user.PasswordHash,
		user.Salt,
		user.FirstName,
		user.LastName,
		user.RoomNumber,
		user.ProfileImage,
		user.Role,
		user.RegisteredOn,
		user.LastLogInOn,
	)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}
	return nil
}

// FindOne returns the first user matching any non-empty field of f.
// Returns apperror.ErrNotFound if nothing matches.
func (db *DB) FindOne(ctx context.Context, f repository.UserFilter) (*model.User, error) {
	where, args := filterClause(f)
	if where == "" {
		return nil, apperror.NotFound("user", "")
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, args...)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", filterLabel(f))
		}
		return nil, fmt.Errorf("sqlite: finding user %s: %w", filterLabel(f), err)
	}
	return u, nil
}

// FindAll returns every user matching any non-empty field of f.
// At most one row per unique field can match, so the result is small.
func (db *DB) FindAll(ctx context.Context, f repository.UserFilter) ([]model.User, error) {
	where, args := filterClause(f)
	if where == "" {
		return []model.User{}, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users %s: %w", filterLabel(f), err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}

// Update writes the non-empty fields of patch to the user with the given ID.
//
// RowsAffected tells us whether the WHERE clause matched; zero means the
// user does not exist.
func (db *DB) Update(ctx context.Context, id string, patch model.UserPatch) error {
	var (
		sets []string
		args []any
	)
	add := func(column, value string) {
		if value != "" {
			sets = append(sets, column+" = ?")
			args = append(args, value)
		}
	}
	add("username", patch.Username)
	add("email", patch.Email)
	add("phone_number", patch.PhoneNumber)
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	add("room_number", patch.RoomNumber)
	add("profile_image", patch.ProfileImage)

	if len(sets) == 0 {
		_, err := db.FindOne(ctx, repository.UserFilter{ID: id})
		return err
	}

	args = append(args, id)
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// Delete removes the user with the given ID.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// RecordLogin sets last_log_in_on for the user with the given ID.
func (db *DB) RecordLogin(ctx context.Context, id string, at int64) error {
	result, err := db.conn.ExecContext(ctx, `UPDATE users SET last_log_in_on = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("sqlite: recording login for %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PhoneNumber,
		&u.PasswordHash,
		&u.Salt,
		&u.FirstName,
		&u.LastName,
		&u.RoomNumber,
		&u.ProfileImage,
		&u.Role,
		&u.RegisteredOn,
		&u.LastLogInOn,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// filterClause builds "a = ? OR b = ?" from the non-empty fields of f.
func filterClause(f repository.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value != "" {
			conds = append(conds, column+" = ?")
			args = append(args, value)
		}
	}
	add("id", f.ID)
	add("username", f.Username)
	add("email", f.Email)
	add("phone_number", f.PhoneNumber)
	return strings.Join(conds, " OR "), args
}

// filterLabel names the lookup in errors without exposing email or phone.
func filterLabel(f repository.UserFilter) string {
	switch {
	case f.ID != "":
		return f.ID
	case f.Username != "":
		return f.Username
	default:
		return "(by contact)"
	}
}

// conflictError converts a SQLite UNIQUE constraint violation into
// apperror.FieldConflict. Any other error returns nil.
//
// modernc reports extended result codes (SQLITE_CONSTRAINT_UNIQUE = 2067);
// the low byte is the primary code SQLITE_CONSTRAINT.
func conflictError(err error) *apperror.AppError {
	var sqliteErr *sqlitedrv.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return nil
	}

	msg := sqliteErr.Error()
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return nil
	}

	// e.g. "users.email (2067)" or "users.username, users.email"
	rest := msg[i+len(marker):]
	if j := strings.Index(rest, " ("); j >= 0 {
		rest = rest[:j]
	}
	var fields []string
	for _, col := range strings.Split(rest, ",") {
		col = strings.TrimSpace(col)
		col = strings.TrimPrefix(col, "users.")
		if name, ok := uniqueColumns[col]; ok {
			fields = append(fields, name)
		}
	}
	if len(fields) == 0 {
		fields = []string{"user"}
	}
	return apperror.FieldConflict(fields...)
}
