package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/spotdesk/spot-service/pkg/util"
)

// Credential is a login record tied to an employee directory entry.
type Credential struct {
	Username     string
	PasswordHash string
	EmpID        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialRepository stores registered logins.
type CredentialRepository interface {
	GetByUsername(ctx context.Context, username string) (*Credential, error)
	Create(ctx context.Context, cred *Credential) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

type credentialRepository struct {
	db Querier
}

// NewCredentialRepository builds the repository.
func NewCredentialRepository(db Querier) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) GetByUsername(ctx context.Context, username string) (*Credential, error) {
	const query = `SELECT username, password_hash, emp_id, created_at, updated_at FROM logins WHERE username=$1`
	var cred Credential
	err := r.db.QueryRow(ctx, query, username).Scan(
		&cred.Username,
		&cred.PasswordHash,
		&cred.EmpID,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Create(ctx context.Context, cred *Credential) error {
	const query = `
        INSERT INTO logins (username, password_hash, emp_id, created_at, updated_at)
        VALUES ($1,$2,$3,NOW(),NOW())`
	_, err := r.db.Exec(ctx, query, cred.Username, cred.PasswordHash, cred.EmpID)
	if err != nil && isUniqueViolation(err) {
		return apperrors.NewConflict("account already registered", map[string]any{"username": cred.Username})
	}
	return err
}

func (r *credentialRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	const query = `UPDATE logins SET password_hash=$1, updated_at=NOW() WHERE username=$2`
	cmd, err := r.db.Exec(ctx, query, passwordHash, username)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
