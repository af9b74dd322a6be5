// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "folio/docs" // swagger docs
	"folio/internal/bootstrap"
	"folio/internal/config"
	"folio/internal/discussions"
	"folio/internal/featureflags"
	"folio/internal/identity"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/notifications"
	"folio/internal/repository"
	"folio/internal/service"
	"folio/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	resolver *identity.JWTResolver
	auth     *middleware.Auth
	userRepo repository.UserRepository
	blobs    storage.BlobStore
	notifier *notifications.Notifier
	hub      *notifications.Hub

	featureFlags     *featureflags.Manager
	contentService   *service.ContentService
	commentService   *service.CommentService
	likeService      *service.LikeService
	voteService      *service.VoteService
	selectionService *service.SelectionService
	progressService  *service.ProgressService
}

// NewServer creates a server on top of an initialized runtime.
func NewServer(cfg *config.Config, rt *bootstrap.Runtime) (*Server, error) {
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Catalog, rt.Blobs)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass an in-memory database and a nil or miniredis client.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	catalog *discussions.Catalog,
	blobs storage.BlobStore,
) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	essayRepo := repository.NewEssayRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	resolver := identity.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	// Realtime fan-out needs Redis pub/sub; without it events are dropped
	realtime := redisClient != nil && flags.EnabledGlobally(featureflags.RealtimeEvents)
	pubsub := redisClient
	if !realtime {
		pubsub = nil
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("folio-api"),
		resolver:       resolver,
		userRepo:       userRepo,
		blobs:          blobs,
		notifier:       notifications.NewNotifier(pubsub),
		featureFlags:   flags,
	}
	if realtime {
		server.hub = notifications.NewHub()
	}
	server.auth = middleware.NewAuth(resolver, server.provisionUser)

	isAdmin := service.AdminChecker(userRepo.IsAdmin)
	server.contentService = service.NewContentService(essayRepo, reviewRepo, blobs, isAdmin, server.notifier)
	audience := service.NewAudience(essayRepo, reviewRepo, commentRepo, isAdmin)
	server.commentService = service.NewCommentService(
		commentRepo, audience, isAdmin, server.notifier, server.featureFlags, cfg.CommentMaxDepth)
	server.likeService = service.NewLikeService(repository.NewLikeRepository(db), audience, server.notifier)
	server.voteService = service.NewVoteService(repository.NewVoteRepository(db), audience, server.notifier)
	server.selectionService = service.NewSelectionService(repository.NewSelectionRepository(db), catalog, redisClient)
	server.progressService = service.NewProgressService(repository.NewProgressRepository(db))

	return server, nil
}

// provisionUser mirrors the resolved identity into the local users table.
func (s *Server) provisionUser(ctx context.Context, id *identity.Identity) error {
	return s.userRepo.Ensure(ctx, &models.User{
		ID:          id.UserID,
		Username:    id.Username,
		DisplayName: id.DisplayName,
		Role:        id.Role,
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request and trace ids into the slog context
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  middleware.CodeRateLimited,
			})
		},
	}))

	app.Use(middleware.StoreDeadline(s.config.StoreTimeout()))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if s.blobs != nil {
		if local, ok := s.blobs.(*storage.LocalStore); ok {
			app.Static(storage.URLPrefix, local.Root(), fiber.Static{MaxAge: 86400})
		}
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	optional := s.auth.Optional()
	required := s.auth.Required()

	// Essays and reviews share handlers keyed by the route's kind
	for _, kind := range []models.ContentKind{models.KindEssay, models.KindReview} {
		group := api.Group("/" + string(kind) + "s")
		group.Get("/", optional, s.ListContent(kind))
		group.Post("/", required, middleware.RateLimit(s.redis, 5, 10*time.Minute, "create_"+string(kind)), s.CreateContent(kind))
		group.Get("/:id", optional, s.GetContent(kind))
		group.Put("/:id", required, s.UpdateContent(kind))
		group.Delete("/:id", required, s.DeleteContent(kind))
	}

	essays := api.Group("/essays")
	essays.Post("/:id/like", required, middleware.RateLimit(s.redis, 30, time.Minute, "like"), s.ToggleLike(models.LikeEssay))
	essays.Get("/:id/like", optional, s.LikeStatus(models.LikeEssay))

	reviews := api.Group("/reviews")
	reviews.Post("/:id/vote", required, middleware.RateLimit(s.redis, 30, time.Minute, "vote"), s.RecordVote)
	reviews.Get("/:id/votes", optional, s.VoteSummary)

	comments := api.Group("/comments")
	comments.Put("/:id", required, s.UpdateComment)
	comments.Delete("/:id", required, s.DeleteComment)
	comments.Post("/:id/like", required, middleware.RateLimit(s.redis, 30, time.Minute, "like"), s.ToggleLike(models.LikeComment))
	comments.Get("/:id/like", optional, s.LikeStatus(models.LikeComment))

	api.Get("/users/:id/essays", optional, s.ListAuthorEssays)

	discussionsGroup := api.Group("/discussions")
	discussionsGroup.Get("/", s.ListDiscussions)
	discussionsGroup.Get("/:id", s.GetDiscussion)
	discussionsGroup.Get("/:id/points", optional, s.GetSelection)
	discussionsGroup.Post("/:id/points/:index/toggle", required,
		middleware.RateLimit(s.redis, 60, time.Minute, "selection"), s.ToggleSelection)

	progress := api.Group("/progress", required)
	progress.Get("/me", s.GetMyProgress)
	progress.Put("/me", s.UpdateMyProgress)

	api.Post("/media/covers", required, middleware.RateLimit(s.redis, 10, 10*time.Minute, "cover_upload"), s.UploadCover)

	api.Get("/feature-flags", optional, s.GetFeatureFlags)

	api.Get("/ws", s.auth.WebSocket(), s.WebsocketHandler())

	admin := api.Group("/admin", required, s.AdminRequired())
	admin.Get("/reviews/pending", s.GetModerationQueue)
	admin.Post("/:kind/:id/moderate", s.ModerateContent)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	// Generic comment routes last so /comments/:id above wins for PUT/DELETE
	api.Get("/:parentType/:parentId/comments", optional, s.ListComments)
	api.Post("/:parentType/:parentId/comments", required,
		middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.PostComment)
}

// LivenessCheck answers liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck answers readiness checks. Redis is optional, so its
// absence is reported without failing the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after the Required auth middleware.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.userRepo.IsAdmin(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return models.Respond(c, err)
		}
		if !admin {
			return models.Respond(c, models.NewPermissionError("Admin access required"))
		}
		return c.Next()
	}
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Folio API",
		BodyLimit: (s.config.MediaMaxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			slog.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
			return models.Respond(c, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				slog.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	slog.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and closes realtime connections. The
// runtime owns the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			slog.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
