package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/storage/db"
)

type UserRepository interface {
	WithDB(db db.DB) UserRepository
	CreateUser(ctx context.Context, user model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

type userRepository struct {
	db db.DB
}

func NewUserRepository(db db.DB) UserRepository {
	return &userRepository{db: db}
}

func (r userRepository) WithDB(db db.DB) UserRepository {
	return &userRepository{db: db}
}

func (r userRepository) CreateUser(ctx context.Context, user model.User) error {
	const query = `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r userRepository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1`

	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

func (r userRepository) scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}

	return user, nil
}
