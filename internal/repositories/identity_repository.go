package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository persists the signed-in identity between runs.
type IdentityRepository interface {
	Save(ctx context.Context, identity models.Identity) error
	Load(ctx context.Context) (models.Identity, error)
	Clear(ctx context.Context) error
}

// IdentityRepo is a sqlx implementation of IdentityRepository. It keeps at
// most one identity.
type IdentityRepo struct {
	db *sqlx.DB
}

// NewIdentityRepo constructs an IdentityRepo.
func NewIdentityRepo(db *sqlx.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

type identityRow struct {
	UserID string `db:"user_id"`
	Name   string `db:"name"`
	Email  string `db:"email"`
	Pic    string `db:"pic"`
	Token  string `db:"token"`
}

// Save replaces the stored identity.
func (r *IdentityRepo) Save(ctx context.Context, identity models.Identity) error {
	if !identity.Valid() {
		return errors.New("identity requires id and token")
	}
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO identity (slot, user_id, name, email, pic, token, updated_at)
        VALUES (1, :user_id, :name, :email, :pic, :token, CURRENT_TIMESTAMP)
        ON CONFLICT(slot) DO UPDATE SET
            user_id = excluded.user_id,
            name = excluded.name,
            email = excluded.email,
            pic = excluded.pic,
            token = excluded.token,
            updated_at = CURRENT_TIMESTAMP`,
		identityRow{
			UserID: identity.ID,
			Name:   identity.Name,
			Email:  identity.Email,
			Pic:    identity.Pic,
			Token:  identity.Token,
		})
	return err
}

// Load returns the stored identity or ErrIdentityNotFound.
func (r *IdentityRepo) Load(ctx context.Context) (models.Identity, error) {
	var row identityRow
	err := r.db.GetContext(ctx, &row, `SELECT user_id, name, email, pic, token FROM identity WHERE slot = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Identity{}, ErrIdentityNotFound
		}
		return models.Identity{}, err
	}
	return models.Identity{
		User:  models.User{ID: row.UserID, Name: row.Name, Email: row.Email, Pic: row.Pic},
		Token: row.Token,
	}, nil
}

// Clear forgets the stored identity (sign out).
func (r *IdentityRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identity`)
	return err
}
