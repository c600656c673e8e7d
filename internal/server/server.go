package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"

	"github.com/receiptwise/expense-tracker/internal/async"
	"github.com/receiptwise/expense-tracker/internal/auth"
	"github.com/receiptwise/expense-tracker/internal/blobstore"
	"github.com/receiptwise/expense-tracker/internal/common"
	"github.com/receiptwise/expense-tracker/internal/export"
	"github.com/receiptwise/expense-tracker/internal/repository"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Store  repository.ReceiptStore
	Blob   blobstore.Store
	Queue  async.Queue
	Auth   *auth.Service
	Export *export.Service

	// ImageRef maps a stored object key to the reference handed to the
	// recognizer. Defaults to the blob store's public URL.
	ImageRef func(key string) string

	MaxUploadMB int
	Logger      *slog.Logger
}

// Server is the fiber application.
type Server struct {
	app    *fiber.App
	logger *slog.Logger
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	imageRef := deps.ImageRef
	if imageRef == nil {
		imageRef = deps.Blob.PublicURL
	}

	maxUpload := deps.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 20
	}
	app := fiber.New(fiber.Config{
		AppName:   "expense-tracker",
		BodyLimit: maxUpload << 20,
	})

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
	}))

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		reqID := uuid.NewString()
		c.SetUserContext(common.WithRequestID(c.UserContext(), reqID))
		c.Set("X-Request-Id", reqID)

		err := c.Next()
		logger.Info("request",
			"request_id", common.RequestIDFromContext(c.UserContext()),
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	})

	v := validator.New()

	authH := &authHandler{svc: deps.Auth, validator: v, clock: time.Now}
	receiptsH := &receiptsHandler{
		store:     deps.Store,
		blob:      deps.Blob,
		queue:     deps.Queue,
		validator: v,
		imageRef:  imageRef,
		clock:     time.Now,
	}
	exportH := &exportHandler{svc: deps.Export}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/auth/token", authH.token)

	receipts := api.Group("/receipts", authMiddleware(deps.Auth))
	receipts.Get("", receiptsH.list)
	receipts.Post("", receiptsH.create)
	receipts.Put("/:id", receiptsH.update)
	receipts.Delete("/:id", receiptsH.remove)
	receipts.Post("/upload", receiptsH.upload)
	receipts.Get("/export", exportH.xlsx)

	return &Server{app: app, logger: logger}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.logger.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
