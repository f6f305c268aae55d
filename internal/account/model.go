package account

import "time"

// Roles an account can hold. There is no finer-grained permission model.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a registered user.
//
// VerificationTokenHash and VerificationTokenExpiresAt are either both set or
// both nil. Once EmailVerified is true both are nil; the code is discarded on
// verification so the same plaintext can never verify twice.
type Account struct {
	ID                         string
	FirstName                  string
	LastName                   string
	PhoneNumber                string
	Email                      string
	PasswordHash               []byte
	Role                       string
	EmailVerified              bool
	VerificationTokenHash      *string
	VerificationTokenExpiresAt *time.Time
	CreatedAt                  time.Time
}

// Public is the outward-facing projection of an account. The password hash and
// verification token fields are never serialized.
type Public struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstname"`
	LastName      string    `json:"lastname"`
	PhoneNumber   string    `json:"phoneNumber"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Public returns the serializable view of the account.
func (a Account) Public() Public {
	return Public{
		ID:            a.ID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		PhoneNumber:   a.PhoneNumber,
		Email:         a.Email,
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
	}
}
