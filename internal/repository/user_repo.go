package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paygate/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
	// SetLifetimeAccess is an idempotent upsert of the entitlement flag.
	// Setting true when the flag is already true succeeds without effect.
	SetLifetimeAccess(ctx context.Context, userID string, value bool) error
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (user_id, name, email)
              VALUES ($1, $2, $3)
              RETURNING user_id, name, email, has_lifetime_access, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, u.UserID, u.Name, u.Email).
		Scan(&u.UserID, &u.Name, &u.Email, &u.HasLifetimeAccess, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT user_id, name, email, has_lifetime_access, stripe_customer_id, created_at, updated_at
              FROM users WHERE user_id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT user_id, name, email, has_lifetime_access, stripe_customer_id, created_at, updated_at
              FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	query := `SELECT user_id, name, email, has_lifetime_access, stripe_customer_id, created_at, updated_at
              FROM users WHERE stripe_customer_id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, customerID))
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $1, updated_at = NOW() WHERE user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, customerID, userID); err != nil {
		return fmt.Errorf("store stripe customer id for user %s: %w", userID, err)
	}
	return nil
}

func (r *userRepo) SetLifetimeAccess(ctx context.Context, userID string, value bool) error {
	query := `UPDATE users SET has_lifetime_access = $1, updated_at = NOW() WHERE user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, value, userID); err != nil {
		return fmt.Errorf("set lifetime access for user %s: %w", userID, err)
	}
	return nil
}

func (r *userRepo) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.HasLifetimeAccess, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
