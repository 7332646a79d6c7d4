// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/handlers"
	"github.com/marcoalfans/manud-be/app/middleware"
	"github.com/marcoalfans/manud-be/config"
	"github.com/marcoalfans/manud-be/docs"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth        handlers.AuthHandlerInterface
	User        *handlers.UserHandler
	Umkm        handlers.UmkmHandlerInterface
	Destination handlers.DestinationHandlerInterface
	Chatbot     *handlers.ChatbotHandler
	System      *handlers.SystemHandler
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.Config
	handlers Handlers
	auth     *middleware.AuthMiddleware
	logger   logging.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.Config, h Handlers, auth *middleware.AuthMiddleware, log logging.Logger) Router {
	r := &FiberRouter{cfg: cfg, handlers: h, auth: auth, logger: log}
	r.app = fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ServerHeader: "ManudBE",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	r.app.Get("/", r.handlers.System.Welcome)
	r.app.Get("/swagger/doc.json", r.serveSwaggerJSON)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}

	api := r.app.Group("/api/v1")
	api.Get("/health", r.handlers.System.Health)

	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == "/api/v1/health"
	}))
	api.Get("/test/store", r.handlers.System.ProbeStore)

	requireAuth := r.auth.Authenticate()

	auth := api.Group("/auth")
	auth.Use(r.rateLimiter(r.cfg.Security.AuthRateLimit, nil))
	auth.Post("/register", r.handlers.Auth.Register)
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/logout", requireAuth, r.handlers.Auth.Logout)
	auth.Get("/verify-email", r.handlers.Auth.VerifyEmail)
	auth.Post("/resend-verification", r.handlers.Auth.ResendVerification)
	auth.Post("/forgot-password", r.handlers.Auth.ForgotPassword)
	auth.Post("/reset-password", r.handlers.Auth.ResetPassword)
	auth.Get("/captcha", r.handlers.Auth.Captcha)

	users := api.Group("/users")
	users.Get("/me", requireAuth, r.handlers.User.Me)

	// static segments are registered before :id so they are never read as ids
	umkm := api.Group("/umkm")
	umkm.Get("/", r.handlers.Umkm.List)
	umkm.Get("/export", requireAuth, r.handlers.Umkm.Export)
	umkm.Get("/:id", r.handlers.Umkm.Get)
	umkm.Post("/", requireAuth, r.handlers.Umkm.Create)
	umkm.Put("/:id", requireAuth, r.handlers.Umkm.Update)
	umkm.Delete("/:id", requireAuth, r.handlers.Umkm.Delete)

	destinations := api.Group("/destinations")
	destinations.Get("/dataset", r.handlers.Destination.Browse)
	destinations.Get("/dataset/list", r.handlers.Destination.List)
	destinations.Get("/dataset/export", requireAuth, r.handlers.Destination.Export)
	destinations.Get("/dataset/:id", r.handlers.Destination.Get)
	destinations.Post("/dataset", requireAuth, r.handlers.Destination.Create)
	destinations.Put("/dataset/:id", requireAuth, r.handlers.Destination.Update)
	destinations.Delete("/dataset/:id", requireAuth, r.handlers.Destination.Delete)
	destinations.Get("/", requireAuth, r.handlers.Destination.Favorites)
	destinations.Post("/", requireAuth, r.handlers.Destination.SaveFavorite)
	destinations.Delete("/all", requireAuth, r.handlers.Destination.DeleteAllFavorites)
	destinations.Delete("/", requireAuth, r.handlers.Destination.DeleteFavorite)

	chatbot := api.Group("/chatbot")
	chatbot.Post("/", r.handlers.Chatbot.Chat)
	chatbot.Delete("/:sessionId", r.handlers.Chatbot.Forget)

	r.app.Use(r.notFoundHandler)
	r.logger.Info("Routes configured", "routes", len(r.app.GetRoutes(true)))
}

func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))
	r.app.Use(func(c fiber.Ctx) error {
		// handlers read the id from this local when building request contexts
		c.Locals("request_id", requestid.FromContext(c))
		return c.Next()
	})

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: !r.cfg.IsProduction(),
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("Panic recovered",
				"request_id", requestid.FromContext(c),
				"panic", e,
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
			)
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// workbooks are already zip-compressed
				return strings.HasSuffix(c.Path(), "/export")
			},
		}))
	}

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:request_id}","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == r.cfg.Metrics.Path
		},
	}))

	r.app.Use(middleware.Metrics())
}

func (r *FiberRouter) rateLimiter(max int, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		},
		Next: next,
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting HTTP server", "address", address)
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests until ctx expires.
func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

// GetApp returns the underlying Fiber app
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error:   dto.ErrorDetail{Code: "SWAGGER_LOAD_ERROR"},
		})
	}
	c.Set("Content-Type", "application/json")
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Endpoint not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"method": c.Method(),
				"path":   c.Path(),
			},
		},
	})
}

// errorHandler renders errors that escaped the handlers, such as body limit or panics.
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
		}
	}
	if code >= fiber.StatusInternalServerError {
		r.logger.Error("Unhandled request error", "status", code, "path", c.Path(), "request_id", requestid.FromContext(c), "error", err)
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: "REQUEST_FAILED",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
