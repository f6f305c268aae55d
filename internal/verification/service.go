package verification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"text/template"
	"time"

	"github.com/veriauth/veriauth/internal/account"
	"github.com/veriauth/veriauth/internal/apperr"
	"github.com/veriauth/veriauth/internal/notification"
)

const emailSubject = "Email Verification Code"

var emailTemplate = template.Must(template.New("verification").Parse(
	`Your email verification code is: {{.Code}}

It will expire in {{printf "%.0f" .TTL.Minutes}} minutes.
`))

// Service drives the verification-code lifecycle: generate, hash, deliver,
// persist, and later compare. Expiry is evaluated lazily at validation time;
// there is no background sweep.
type Service struct {
	repo   account.Repository
	mailer notification.Mailer
	ttl    time.Duration

	// injectable for deterministic tests
	now  func() time.Time
	rand io.Reader
}

// NewService creates a verification service issuing codes valid for ttl.
func NewService(repo account.Repository, mailer notification.Mailer, ttl time.Duration) *Service {
	return &Service{repo: repo, mailer: mailer, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. For tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IssueAndSend generates a fresh code for the account, persists its hash and
// expiry, and emails the plaintext. Persistence happens first and stands even
// when delivery fails: the two steps are deliberately not atomic, and resend
// is the recovery path for a lost email. No account lock is held while the
// mail transport is in flight.
func (s *Service) IssueAndSend(ctx context.Context, acct *account.Account) error {
	code, hash, err := GenerateCode(s.rand)
	if err != nil {
		return apperr.Internal("failed to generate verification code", err)
	}

	expiresAt := s.now().UTC().Add(s.ttl)
	if err := s.repo.SetVerificationToken(ctx, acct.ID, hash, expiresAt); err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			return apperr.NotFound("user with the specified email does not exist")
		case errors.Is(err, account.ErrAlreadyVerified):
			return apperr.AlreadyVerified("user has already been verified")
		default:
			return apperr.Internal("failed to store verification code", err)
		}
	}
	acct.VerificationTokenHash = &hash
	acct.VerificationTokenExpiresAt = &expiresAt

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, struct {
		Code string
		TTL  time.Duration
	}{Code: code, TTL: s.ttl}); err != nil {
		return apperr.Internal("failed to render verification email", err)
	}

	if err := s.mailer.Send(ctx, acct.Email, emailSubject, body.String()); err != nil {
		return apperr.Delivery("failed to send verification email", err)
	}
	return nil
}

// Validate checks a submitted code against the account's stored hash and, on
// success, flips the account to verified and discards the token fields. The
// transition is a compare-and-set on the stored hash, so two concurrent
// submissions of the same code verify exactly once.
func (s *Service) Validate(ctx context.Context, email, code string) (account.Account, error) {
	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, apperr.NotFound("user with the specified email does not exist")
		}
		return account.Account{}, apperr.Internal("failed to look up account", err)
	}

	if acct.EmailVerified {
		return account.Account{}, apperr.AlreadyVerified("user has already been verified")
	}
	if acct.VerificationTokenHash == nil || acct.VerificationTokenExpiresAt == nil {
		return account.Account{}, apperr.InvalidCode("invalid verification code")
	}
	if s.now().After(*acct.VerificationTokenExpiresAt) {
		return account.Account{}, apperr.Expired("verification code has expired")
	}
	if !CodeMatches(code, *acct.VerificationTokenHash) {
		return account.Account{}, apperr.InvalidCode("invalid verification code")
	}

	verified, err := s.repo.MarkVerified(ctx, acct.ID, *acct.VerificationTokenHash)
	if err != nil {
		if errors.Is(err, account.ErrAlreadyVerified) {
			// lost the race against a concurrent submission or resend
			return account.Account{}, apperr.AlreadyVerified("user has already been verified")
		}
		return account.Account{}, apperr.Internal("failed to mark account verified", err)
	}
	return verified, nil
}

// Resend issues a brand-new code for an unverified account. The overwrite
// invalidates any unexpired prior code; at most one code is valid per account.
func (s *Service) Resend(ctx context.Context, email string) error {
	acct, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return apperr.NotFound("user with the specified email does not exist")
		}
		return apperr.Internal("failed to look up account", err)
	}
	if acct.EmailVerified {
		return apperr.AlreadyVerified("user has already been verified")
	}
	return s.IssueAndSend(ctx, &acct)
}
