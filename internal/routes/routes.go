package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/veriauth/veriauth/internal/account"
	"github.com/veriauth/veriauth/internal/apperr"
	"github.com/veriauth/veriauth/internal/auth"
	"github.com/veriauth/veriauth/internal/config"
	"github.com/veriauth/veriauth/internal/middleware"
	"github.com/veriauth/veriauth/internal/notification"
	"github.com/veriauth/veriauth/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Repositories and services
	var repo account.Repository
	if d.DB != nil {
		repo = account.NewPostgresRepository(d.DB)
	} else {
		repo = account.NewMemoryRepository()
	}

	var mailer notification.Mailer
	if d.Cfg.SMTPHost != "" {
		mailer = notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     d.Cfg.SMTPHost,
			Port:     d.Cfg.SMTPPort,
			Username: d.Cfg.SMTPUsername,
			Password: d.Cfg.SMTPPassword,
			From:     d.Cfg.MailFrom,
			Timeout:  d.Cfg.EmailTimeout,
		})
	} else {
		mailer = notification.NewLogMailer(d.Logger)
	}

	signer := auth.NewSigner([]byte(d.Cfg.JWTSecret), d.Cfg.SessionTokenTTL)
	revocations := auth.NewRevocationList(d.Cache)
	verifier := verification.NewService(repo, mailer, d.Cfg.VerificationCodeTTL)
	accounts := account.NewService(repo, verifier, signer)

	accountHandler := account.NewHandler(accounts, revocations)
	verifyHandler := verification.NewHandler(verifier)

	guard := middleware.SessionGuard(signer, repo, revocations)
	verified := middleware.RequireVerifiedEmail()
	limiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimitPerMin)

	// Welcome routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": fmt.Sprintf("Welcome to %s", d.Cfg.AppName)})
	})
	api := app.Group("/api/v1")
	api.Get("", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": fmt.Sprintf("Welcome to %s API", d.Cfg.AppName)})
	})

	// The auth surface is served bare and under the versioned prefix.
	RegisterAuthRoutes(app.Group("/auth"), accountHandler, verifyHandler, guard, verified, limiter)
	RegisterAuthRoutes(api.Group("/auth"), accountHandler, verifyHandler, guard, verified, limiter)

	// Structured 404 for everything else, naming the missing path and method.
	app.Use(func(c *fiber.Ctx) error {
		return apperr.NotFoundf("Can't find %s using http method %s on this server. Route not defined",
			c.Path(), c.Method())
	})

	return nil
}

// ErrorHandler renders domain errors as the JSON envelope clients expect.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		message := "something went wrong"

		var ae *apperr.Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &ae):
			status = ae.Status
			message = ae.Message
		case errors.As(err, &fe):
			status = fe.Code
			message = fe.Message
		}

		if status >= http.StatusInternalServerError && log != nil {
			log.Error("request failed", "status", status, "error", err,
				"path", c.Path(), "method", c.Method())
		}

		statusWord := "fail"
		if status >= http.StatusInternalServerError {
			statusWord = "error"
		}
		return c.Status(status).JSON(fiber.Map{"status": statusWord, "message": message})
	}
}
