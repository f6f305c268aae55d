package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository sentinel errors. Services translate these into apperr kinds.
var (
	ErrNotFound        = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrAlreadyVerified = errors.New("account already verified")
)

// Repository persists accounts. Verification-state writes are conditional so
// that concurrent issue/validate calls for the same account cannot interleave
// into an inconsistent record.
type Repository interface {
	Create(ctx context.Context, acct Account) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)

	// SetVerificationToken stores a new code hash and expiry, overwriting any
	// prior pair. It only touches unverified accounts.
	SetVerificationToken(ctx context.Context, id, hash string, expiresAt time.Time) error

	// MarkVerified flips the account to verified and clears both token fields,
	// but only while the stored hash still equals expectHash. A stale hash or
	// an already-verified account returns ErrAlreadyVerified.
	MarkVerified(ctx context.Context, id, expectHash string) (Account, error)
}

const accountColumns = `id, first_name, last_name, phone_number, email, password_hash,
role, email_verified, verification_token_hash, verification_token_expires_at, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account. The unique index on lower(email) enforces the
// at-most-one-account-per-email invariant without a read-then-insert race.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) (Account, error) {
	id, err := uuid.Parse(acct.ID)
	if err != nil {
		return Account{}, err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, first_name, last_name, phone_number, email,
        password_hash, role, email_verified, verification_token_hash, verification_token_expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, acct.FirstName, acct.LastName, acct.PhoneNumber, acct.Email, acct.PasswordHash,
		acct.Role, acct.EmailVerified, acct.VerificationTokenHash, acct.VerificationTokenExpiresAt,
		acct.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateEmail
		}
		return Account{}, err
	}
	return acct, nil
}

// FindByEmail fetches an account by its lowercased email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	return scanAccount(row)
}

// FindByID fetches an account by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

// SetVerificationToken overwrites the stored code hash and expiry for an
// unverified account. Overwriting immediately invalidates any prior code.
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, id, hash string, expiresAt time.Time) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts
        SET verification_token_hash = $1, verification_token_expires_at = $2
        WHERE id = $3 AND email_verified = FALSE`, hash, expiresAt.UTC(), accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyVerified
	}
	return nil
}

// MarkVerified performs the compare-and-set transition to the verified state.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id, expectHash string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE accounts
        SET email_verified = TRUE, verification_token_hash = NULL, verification_token_expires_at = NULL
        WHERE id = $1 AND email_verified = FALSE AND verification_token_hash = $2
        RETURNING `+accountColumns, accountID, expectHash)
	acct, err := scanAccount(row)
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrAlreadyVerified
	}
	return acct, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		acct      Account
	)
	err := row.Scan(&id, &acct.FirstName, &acct.LastName, &acct.PhoneNumber, &acct.Email,
		&acct.PasswordHash, &acct.Role, &acct.EmailVerified,
		&acct.VerificationTokenHash, &acct.VerificationTokenExpiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acct.ID = id.String()
	acct.CreatedAt = createdAt.UTC()
	if acct.VerificationTokenExpiresAt != nil {
		t := acct.VerificationTokenExpiresAt.UTC()
		acct.VerificationTokenExpiresAt = &t
	}
	return acct, nil
}
