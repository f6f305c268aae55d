package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/veriauth/veriauth/internal/apperr"
	"github.com/veriauth/veriauth/internal/auth"
)

// Compared against on login when the email is unknown, so both branches pay
// the same bcrypt cost and response timing cannot reveal whether an email is
// registered.
var dummyPasswordHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Verifier issues and delivers email verification codes. Implemented by the
// verification service; declared here so this package stays independent of it.
type Verifier interface {
	IssueAndSend(ctx context.Context, acct *Account) error
}

// SignupInput is the validated input to Signup.
type SignupInput struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
	Password    string
}

// Service manages account creation and credential checks.
type Service struct {
	repo     Repository
	verifier Verifier
	signer   *auth.Signer
	now      func() time.Time
}

// NewService creates a new account service.
func NewService(repo Repository, verifier Verifier, signer *auth.Signer) *Service {
	return &Service{repo: repo, verifier: verifier, signer: signer, now: time.Now}
}

// Signup registers a new unverified account, triggers delivery of its first
// verification code, and issues a session token.
//
// An existing verified account is a plain conflict. An existing unverified one
// is reported distinctly so clients know to hit the resend endpoint instead.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Account, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.EmailVerified {
			return Account{}, "", apperr.Conflict("user with the specified email already exists")
		}
		return Account{}, "", apperr.UnverifiedConflict(
			"email already registered but not verified, please verify your email or resend the verification code")
	case !errors.Is(err, ErrNotFound):
		return Account{}, "", apperr.Internal("failed to check existing account", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, "", apperr.Internal("failed to hash password", err)
	}

	acct := Account{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		CreatedAt:    s.now().UTC(),
	}

	created, err := s.repo.Create(ctx, acct)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// lost a signup race; the insert is the authoritative uniqueness check
			return Account{}, "", apperr.Conflict("user with the specified email already exists")
		}
		return Account{}, "", apperr.Internal("failed to create account", err)
	}

	// Token persistence and email delivery are separate steps. A delivery
	// failure surfaces to the caller but the stored hash stands; the resend
	// endpoint recovers from a lost email.
	if err := s.verifier.IssueAndSend(ctx, &created); err != nil {
		return Account{}, "", err
	}

	token, err := s.signer.Sign(created.ID, created.Role)
	if err != nil {
		return Account{}, "", apperr.Internal("failed to issue session token", err)
	}
	return created, token, nil
}

// Login checks credentials and issues a session token. The failure is a single
// undifferentiated kind: it never reveals whether the email is registered.
// Email verification is deliberately not required to log in; it gates only the
// verified-email routes.
func (s *Service) Login(ctx context.Context, email, password string) (Account, string, error) {
	acct, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return Account{}, "", apperr.InvalidCredentials("invalid email or password")
		}
		return Account{}, "", apperr.Internal("failed to look up account", err)
	}

	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		return Account{}, "", apperr.InvalidCredentials("invalid email or password")
	}

	token, err := s.signer.Sign(acct.ID, acct.Role)
	if err != nil {
		return Account{}, "", apperr.Internal("failed to issue session token", err)
	}
	return acct, token, nil
}

// Status fetches the account behind an authenticated session.
func (s *Service) Status(ctx context.Context, id string) (Account, error) {
	acct, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, apperr.NotFound("user no longer exists")
		}
		return Account{}, apperr.Internal("failed to look up account", err)
	}
	return acct, nil
}
