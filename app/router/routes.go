// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
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
	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/handlers"
	"github.com/inventara/inventara/app/middleware"
	"github.com/inventara/inventara/config"
	"github.com/inventara/inventara/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app               *fiber.App
	cfg               *config.ProductionConfig
	authMiddleware    *middleware.AuthMiddleware
	authHandler       handlers.AuthHandlerInterface
	inventoryHandler  handlers.InventoryHandlerInterface
	itemHandler       handlers.ItemHandlerInterface
	discussionHandler handlers.DiscussionHandlerInterface
	adminHandler      handlers.AdminUserHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authMiddleware *middleware.AuthMiddleware,
	authHandler handlers.AuthHandlerInterface,
	inventoryHandler handlers.InventoryHandlerInterface,
	itemHandler handlers.ItemHandlerInterface,
	discussionHandler handlers.DiscussionHandlerInterface,
	adminHandler handlers.AdminUserHandlerInterface,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Inventara API",
		ServerHeader: "Inventara",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:               app,
		cfg:               cfg,
		authMiddleware:    authMiddleware,
		authHandler:       authHandler,
		inventoryHandler:  inventoryHandler,
		itemHandler:       itemHandler,
		discussionHandler: discussionHandler,
		adminHandler:      adminHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Prometheus scrape endpoint
	if r.cfg.Metrics.EnablePrometheus {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Apply general rate limiting to all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/signup", r.authHandler.Signup)
	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.Refresh)
	auth.Post("/logout", r.authHandler.Logout, r.authMiddleware.Authenticate())
	auth.Get("/me", r.authHandler.Profile, r.authMiddleware.Authenticate())

	optional := r.authMiddleware.OptionalAuth()
	required := r.authMiddleware.Authenticate()

	// Categories and tags
	api.Get("/categories", r.inventoryHandler.ListCategories)
	api.Get("/tags", r.inventoryHandler.ListTags)

	// Inventories: reads are open to anonymous viewers, writes require a login
	inventories := api.Group("/inventories")
	inventories.Get("/", r.inventoryHandler.ListInventories, optional)
	inventories.Post("/", r.inventoryHandler.CreateInventory, required)
	inventories.Post("/delete", r.inventoryHandler.DeleteInventories, required)
	inventories.Get("/:uuid", r.inventoryHandler.GetInventory, optional)
	inventories.Put("/:uuid", r.inventoryHandler.UpdateInventory, required)
	inventories.Get("/:uuid/id-format", r.inventoryHandler.GetIdFormat, optional)
	inventories.Put("/:uuid/id-format", r.inventoryHandler.ReplaceIdFormat, required)
	inventories.Get("/:uuid/fields", r.inventoryHandler.GetFieldSet, optional)
	inventories.Put("/:uuid/fields", r.inventoryHandler.ReplaceFieldSet, required)

	// Explicit access grants
	inventories.Get("/:uuid/access", r.inventoryHandler.ListAccessGrants, required)
	inventories.Post("/:uuid/access", r.inventoryHandler.GrantAccess, required)
	inventories.Delete("/:uuid/access/:userID", r.inventoryHandler.RevokeAccess, required)

	// Items
	inventories.Get("/:uuid/items", r.itemHandler.ListItems, optional)
	inventories.Post("/:uuid/items", r.itemHandler.CreateItem, required)
	inventories.Post("/:uuid/items/delete", r.itemHandler.DeleteItems, required)
	inventories.Get("/:uuid/items/custom-id/preview", r.itemHandler.PreviewCustomId, optional)
	inventories.Get("/:uuid/items/export", r.itemHandler.ExportItems, optional)
	inventories.Get("/:uuid/items/:itemID", r.itemHandler.GetItem, optional)
	inventories.Put("/:uuid/items/:itemID", r.itemHandler.UpdateItem, required)
	inventories.Post("/:uuid/items/:itemID/like", r.itemHandler.LikeItem, required)
	inventories.Delete("/:uuid/items/:itemID/like", r.itemHandler.UnlikeItem, required)

	// Discussion board: reading is public, posting and deleting need a login
	inventories.Get("/:uuid/discussion", r.discussionHandler.ListPosts, optional)
	inventories.Post("/:uuid/discussion", r.discussionHandler.CreatePost, required)
	inventories.Delete("/:uuid/discussion/:postID", r.discussionHandler.DeletePost, required)

	// Admin routes
	admin := api.Group("/admin", required, r.authMiddleware.RequireAdminRole())
	admin.Get("/users", r.adminHandler.ListUsers)
	admin.Post("/users/block", r.adminHandler.BlockUsers)
	admin.Post("/users/unblock", r.adminHandler.UnblockUsers)
	admin.Post("/users/promote", r.adminHandler.PromoteUsers)
	admin.Post("/users/demote", r.adminHandler.DemoteUsers)
	admin.Post("/users/remove", r.adminHandler.RemoveUsers)
	admin.Get("/users/export", r.adminHandler.ExportUsers)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             r.cfg.Security.XSSProtection,
		ContentTypeNosniff:        r.cfg.Security.XContentTypeOptions,
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		HSTSExcludeSubdomains:     !r.cfg.Security.HSTSIncludeSubDoms,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: r.cfg.Security.AllowedMethods,
		AllowHeaders: r.cfg.Security.AllowedHeaders,
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
		},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Skip compression for binary downloads
			contentType := c.Get("Content-Type")
			return strings.Contains(contentType, "image/") ||
				strings.Contains(contentType, "spreadsheetml")
		},
	}))

	// Advanced logging middleware
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks in production
			return c.Path() == "/api/v1/health"
		},
	}))

	// Prometheus HTTP metrics
	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	// Custom security middleware
	r.app.Use(r.securityMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// securityMiddleware adds response headers used by the reverse proxy
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "Inventara")
	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "inventara-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
