package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrEmailTaken         = errors.New("auth: email already in use")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
)

// Credential is one stored login identity.
type Credential struct {
	UID          string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Repository persists credentials in the users table.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (uid, email, password_hash, display_name, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.UID, c.Email, c.PasswordHash, c.DisplayName, time.Now())
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	err := r.db.QueryRowContext(ctx, `
		SELECT uid, email, password_hash, display_name, created_at
		FROM users WHERE email = $1`, email).
		Scan(&c.UID, &c.Email, &c.PasswordHash, &c.DisplayName, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return &c, nil
}
