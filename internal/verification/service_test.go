package verification

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriauth/veriauth/internal/account"
	"github.com/veriauth/veriauth/internal/apperr"
)

var codePattern = regexp.MustCompile(`\d{6}`)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email was sent")
	code := codePattern.FindString(m.sent[len(m.sent)-1].Body)
	require.Len(t, code, 6, "email body carries no 6-digit code")
	return code
}

type fixture struct {
	svc    *Service
	repo   account.Repository
	mailer *captureMailer
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   account.NewMemoryRepository(),
		mailer: &captureMailer{},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, f.mailer, 10*time.Minute).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) seedAccount(t *testing.T, email string) account.Account {
	t.Helper()
	acct, err := f.repo.Create(context.Background(), account.Account{
		ID:           uuid.NewString(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PhoneNumber:  "+1555000111",
		Email:        email,
		PasswordHash: []byte("irrelevant"),
		Role:         account.RoleUser,
		CreatedAt:    f.now,
	})
	require.NoError(t, err)
	return acct
}

func TestIssueAndSendStoresHashAndEmailsCode(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")

	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))

	stored, err := f.repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationTokenHash)
	require.NotNil(t, stored.VerificationTokenExpiresAt)
	assert.Equal(t, f.now.Add(10*time.Minute), *stored.VerificationTokenExpiresAt)

	code := f.mailer.lastCode(t)
	assert.Equal(t, HashCode(code), *stored.VerificationTokenHash)
	assert.Equal(t, "ada@example.com", f.mailer.sent[0].To)
	assert.Equal(t, "Email Verification Code", f.mailer.sent[0].Subject)
	assert.Contains(t, f.mailer.sent[0].Body, "10 minutes")
}

func TestIssueAndSendPersistsDespiteDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")
	f.mailer.fail = errors.New("smtp down")

	err := f.svc.IssueAndSend(context.Background(), &acct)
	require.Error(t, err)
	assert.Equal(t, apperr.KindDelivery, apperr.KindOf(err))

	// The hash stands even though the email was lost; resend recovers.
	stored, findErr := f.repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, findErr)
	assert.NotNil(t, stored.VerificationTokenHash)
	assert.NotNil(t, stored.VerificationTokenExpiresAt)

	f.mailer.fail = nil
	require.NoError(t, f.svc.Resend(context.Background(), "ada@example.com"))
	code := f.mailer.lastCode(t)
	_, err = f.svc.Validate(context.Background(), "ada@example.com", code)
	require.NoError(t, err)
}

func TestValidateSuccessClearsTokenFields(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")
	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))

	verified, err := f.svc.Validate(context.Background(), "ada@example.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	assert.True(t, verified.EmailVerified)
	assert.Nil(t, verified.VerificationTokenHash)
	assert.Nil(t, verified.VerificationTokenExpiresAt)

	stored, err := f.repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.Nil(t, stored.VerificationTokenHash)
	assert.Nil(t, stored.VerificationTokenExpiresAt)
}

func TestValidateReplayAfterSuccess(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")
	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))
	code := f.mailer.lastCode(t)

	_, err := f.svc.Validate(context.Background(), "ada@example.com", code)
	require.NoError(t, err)

	// Resubmitting the same plaintext never silently re-verifies.
	_, err = f.svc.Validate(context.Background(), "ada@example.com", code)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyVerified, apperr.KindOf(err))
}

func TestValidateUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Validate(context.Background(), "ghost@example.com", "123456")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestValidateWrongCode(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")
	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))

	code := f.mailer.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "999999"
	}

	_, err := f.svc.Validate(context.Background(), "ada@example.com", wrong)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidCode, apperr.KindOf(err))
}

func TestValidateWithoutIssuedCode(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "ada@example.com")

	_, err := f.svc.Validate(context.Background(), "ada@example.com", "123456")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidCode, apperr.KindOf(err))
}

func TestValidateExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")
	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))
	code := f.mailer.lastCode(t)
	issuedAt := f.now

	// just inside the window: still valid
	f.now = issuedAt.Add(10*time.Minute - time.Second)
	_, err := f.svc.Validate(context.Background(), "ada@example.com", code)
	require.NoError(t, err)
}

func TestValidateExpired(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")
	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))
	code := f.mailer.lastCode(t)

	f.now = f.now.Add(10*time.Minute + time.Second)
	_, err := f.svc.Validate(context.Background(), "ada@example.com", code)
	require.Error(t, err)
	assert.Equal(t, apperr.KindExpired, apperr.KindOf(err))
}

func TestResendInvalidatesPriorCode(t *testing.T) {
	f := newFixture(t)
	acct := f.seedAccount(t, "ada@example.com")
	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))
	first := f.mailer.lastCode(t)

	require.NoError(t, f.svc.Resend(context.Background(), "ada@example.com"))
	second := f.mailer.lastCode(t)

	if first != second {
		_, err := f.svc.Validate(context.Background(), "ada@example.com", first)
		require.Error(t, err, "overwritten code must no longer validate")
		assert.Equal(t, apperr.KindInvalidCode, apperr.KindOf(err))
	}

	_, err := f.svc.Validate(context.Background(), "ada@example.com", second)
	require.NoError(t, err)
}

func TestResendGuards(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Resend(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	acct := f.seedAccount(t, "ada@example.com")
	require.NoError(t, f.svc.IssueAndSend(context.Background(), &acct))
	_, err = f.svc.Validate(context.Background(), "ada@example.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	err = f.svc.Resend(context.Background(), "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyVerified, apperr.KindOf(err))
}
