package account

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/veriauth/veriauth/internal/apperr"
	"github.com/veriauth/veriauth/internal/auth"
)

// Locals keys and the session cookie name shared with the session guard
// middleware.
const (
	CtxAccountKey = "account"
	CtxClaimsKey  = "session_claims"
	SessionCookie = "token"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("password_strength", validatePasswordStrength)
}

// validatePasswordStrength requires at least one upper-case letter, one
// lower-case letter and one digit.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	var hasUpper, hasLower, hasNumber bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}
	return hasUpper && hasLower && hasNumber
}

// Handler exposes the credential endpoints.
type Handler struct {
	service     *Service
	revocations *auth.RevocationList
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service, revocations *auth.RevocationList) *Handler {
	return &Handler{service: service, revocations: revocations}
}

type signupRequest struct {
	FirstName   string `json:"firstname" validate:"required,min=2,max=64"`
	LastName    string `json:"lastname" validate:"required,min=2,max=64"`
	PhoneNumber string `json:"phoneNumber" validate:"required,min=7,max=20"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,password_strength"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup registers a new account and returns it with a session token.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	acct, token, err := h.service.Signup(c.UserContext(), SignupInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	setSessionCookie(c, token)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": acct.Public(), "token": token},
	})
}

// Login checks credentials and returns the account with a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	acct, token, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	setSessionCookie(c, token)
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user": acct.Public(), "token": token},
	})
}

// Status reports the authenticated, verified account.
func (h *Handler) Status(c *fiber.Ctx) error {
	acct, ok := c.Locals(CtxAccountKey).(Account)
	if !ok {
		return apperr.Unauthenticated("missing authentication token")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "User is authenticated",
		"user":    acct.Public(),
	})
}

// Logout clears the session cookie and records the token on the revocation
// list until it would have expired anyway. The account record is untouched.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if claims, ok := c.Locals(CtxClaimsKey).(*auth.Claims); ok && claims.ExpiresAt != nil {
		// best effort; a cache failure must not block logout
		revokeCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		_ = h.revocations.Revoke(revokeCtx, claims.ID, claims.ExpiresAt.Time)
	}
	c.ClearCookie(SessionCookie)
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Successfully logged out"})
}

func setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

// validateRequest runs struct validation and folds violations into a single
// ValidationError naming every offending field.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "password_strength":
		return fmt.Sprintf("%s must contain an upper-case letter, a lower-case letter and a digit", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
