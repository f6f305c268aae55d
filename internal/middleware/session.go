package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/veriauth/veriauth/internal/account"
	"github.com/veriauth/veriauth/internal/apperr"
	"github.com/veriauth/veriauth/internal/auth"
)

// SessionGuard validates the session token on protected requests. The token is
// read from the Authorization header first, falling back to the session
// cookie. On success the account and claims are stashed in the request locals.
func SessionGuard(signer *auth.Signer, repo account.Repository, revocations *auth.RevocationList) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFromRequest(c)
		if raw == "" {
			return apperr.Unauthenticated("missing authentication token")
		}

		claims, err := signer.Parse(raw)
		if err != nil {
			return apperr.Unauthenticated("invalid or expired session token")
		}
		if revocations.IsRevoked(c.UserContext(), claims.ID) {
			return apperr.Unauthenticated("session has been logged out")
		}

		acct, err := repo.FindByID(c.UserContext(), claims.Subject)
		if err != nil {
			return apperr.Unauthenticated("user belonging to this token no longer exists")
		}

		c.Locals(account.CtxAccountKey, acct)
		c.Locals(account.CtxClaimsKey, claims)
		return c.Next()
	}
}

// RequireVerifiedEmail gates routes that demand a proven email address. It is
// layered after SessionGuard on the routes that need it, not on all protected
// routes; login itself never requires verification.
func RequireVerifiedEmail() fiber.Handler {
	return func(c *fiber.Ctx) error {
		acct, ok := c.Locals(account.CtxAccountKey).(account.Account)
		if !ok {
			return apperr.Unauthenticated("missing authentication token")
		}
		if !acct.EmailVerified {
			return apperr.EmailNotVerified("please verify your email address to access this resource")
		}
		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("Bearer "):])
	}
	return c.Cookies(account.SessionCookie)
}
