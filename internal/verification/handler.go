package verification

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/veriauth/veriauth/internal/apperr"
)

var validate = validator.New()

// Handler exposes the email-verification endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a verification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"verification_code" validate:"required,len=6,numeric"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Verify redeems a submitted code and flips the account to verified.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	if err := validate.Struct(req); err != nil {
		return apperr.Validation("email and a 6-digit verification_code are required")
	}

	acct, err := h.service.Validate(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Email verified successfully",
		"user":    acct.Public(),
	})
}

// Resend issues a new code to a registered but unverified email.
func (h *Handler) Resend(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	if err := validate.Struct(req); err != nil {
		return apperr.Validation("a valid email is required")
	}

	if err := h.service.Resend(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Verification code resent to your email address",
	})
}
