package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/veriauth/veriauth/internal/account"
	"github.com/veriauth/veriauth/internal/verification"
)

// RegisterAuthRoutes wires the authentication and email-verification endpoints.
//
// Verification gates only the status route. Login and logout work for
// unverified accounts; that partial access before verification is deliberate.
func RegisterAuthRoutes(r fiber.Router, accounts *account.Handler, verify *verification.Handler,
	guard, verified, rateLimiter fiber.Handler) {

	r.Post("/signup", accounts.Signup)
	if rateLimiter != nil {
		r.Post("/login", rateLimiter, accounts.Login)
	} else {
		r.Post("/login", accounts.Login)
	}
	r.Post("/verify", verify.Verify)
	r.Post("/verify/resend", verify.Resend)

	r.Get("/status", guard, verified, accounts.Status)
	r.Get("/logout", guard, accounts.Logout)
}
