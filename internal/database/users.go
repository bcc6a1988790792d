package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, name, username, password_hash, role, party, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.Role, &u.Party, &u.CreatedAt)
	return u, err
}

// GetUserByUsername returns the user with the given username, any party.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// GetUserByLogin returns the user matching username and party. The password
// check happens in the handler against the bcrypt hash.
type GetUserByLoginParams struct {
	Username string
	Party    string
}

func (q *Queries) GetUserByLogin(ctx context.Context, arg GetUserByLoginParams) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND party = $2`,
		arg.Username, arg.Party)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type CreateUserParams struct {
	Name         string
	Username     string
	PasswordHash string
	Role         string
	Party        string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO users (name, username, password_hash, role, party)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		arg.Name, arg.Username, arg.PasswordHash, arg.Role, arg.Party)
	return scanUser(row)
}

// DeleteUser removes a user. Order history survives: orders.waiter_id is
// ON DELETE SET NULL and waiter_name is snapshotted at order creation.
func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
