// Package server assembles the fiber app: middleware, sessions and routes.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/jmoiron/sqlx"

	"wayfarer/internal/config"
	"wayfarer/internal/http/handlers"
	applog "wayfarer/internal/log"
	"wayfarer/internal/metrics"
	"wayfarer/internal/repos"
	"wayfarer/internal/services"
	"wayfarer/web"
)

const (
	maxBodyBytes   = 1 << 20 // 1 MiB
	sessionCookie  = "sid"
	csrfCookie     = "csrf_"
	friendlyErrMsg = "Something went wrong. Please try again."

	// ShutdownTimeout bounds graceful shutdown of the listener.
	ShutdownTimeout = 10 * time.Second
)

// Deps are the collaborators the app is built from. Storage may be nil for
// the in-memory session store; Metrics may be nil to skip /metrics.
type Deps struct {
	DB      *sqlx.DB
	Storage fiber.Storage
	Metrics *metrics.Metrics
	// AccessLog turns on fiber's request logger.
	AccessLog bool
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
		code = fe.Code
		return c.Status(code).Render("error", fiber.Map{"Title": "Error", "Message": fe.Message})
	}
	// Log and show a friendly message
	applog.Error(c, "server.error", err, nil)
	if rerr := c.Status(code).Render("error", fiber.Map{"Title": "Error", "Message": friendlyErrMsg}); rerr != nil {
		return c.Status(code).SendString(friendlyErrMsg)
	}
	return nil
}

// New wires the auth page, landing pages and supporting endpoints.
func New(cfg config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:                 web.Engine(),
		ViewsLayout:           "layouts/main",
		ErrorHandler:          errorHandler,
		BodyLimit:             maxBodyBytes,
		DisableStartupMessage: true,
	})

	routes := handlers.Routes{Auth: cfg.AuthPath, Home: cfg.HomePath, Admin: cfg.AdminPath}
	sessions := session.New(session.Config{
		Storage:        deps.Storage,
		Expiration:     cfg.SessionTTL,
		KeyLookup:      "cookie:" + sessionCookie,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})

	userRepo := repos.NewUserRepo(deps.DB)
	authSvc := services.NewAuthService(userRepo, cfg.BcryptCost)
	authH := &handlers.AuthHandler{Auth: authSvc, Sessions: sessions, Metrics: deps.Metrics, Routes: routes}
	homeH := &handlers.HomeHandler{Routes: routes}

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	if deps.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		ContextKey:     "csrf",
		Expiration:     cfg.SessionTTL,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
			return c.Status(fiber.StatusForbidden).Render("error", fiber.Map{"Title": "Error", "Message": "Security check failed. Please refresh and try again."})
		},
	}))

	// ---------- Auth ----------
	app.Get(cfg.AuthPath, authH.Page)
	app.Post(cfg.AuthPath, limiter.New(limiter.Config{
		Max:          cfg.RateMax,
		Expiration:   cfg.RateWindow,
		LimitReached: authH.Throttled,
	}), authH.Submit)
	app.Post("/logout", authH.Logout)

	// ---------- Landing pages ----------
	app.Get(cfg.AdminPath, handlers.RequireAdmin(sessions, cfg.AuthPath), homeH.Admin)
	app.Get(cfg.HomePath, handlers.RequireUser(sessions, cfg.AuthPath), homeH.Home)

	// Health, metrics & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).Render("error", fiber.Map{"Title": "Not found", "Message": "Page not found"})
	})

	return app
}
