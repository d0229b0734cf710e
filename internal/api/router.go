package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/database"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/ws"
)

type Dependencies struct {
	Gallery handler.GalleryService
	Store   database.Pinger
	Events  *ws.Hub // optional live feed of gallery events
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Face Gallery API",
		BodyLimit:    handler.MaxBodySize,
		UnescapePath: true,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var store database.Pinger
	if r.deps != nil {
		store = r.deps.Store
	}
	healthHandler := handler.NewHealthHandler(store, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Only configure gallery routes if dependencies were provided
	if r.deps == nil || r.deps.Gallery == nil {
		return
	}

	v1 := r.app.Group("/v1")
	galleryHandler := handler.NewGalleryHandler(r.deps.Gallery, r.logger)

	v1.Post("/recognize", galleryHandler.Recognize)
	v1.Post("/search", galleryHandler.Search)
	v1.Post("/register", galleryHandler.Register)
	v1.Post("/extract", galleryHandler.Extract)
	v1.Post("/process", galleryHandler.Process)
	v1.Post("/batch", galleryHandler.Batch)

	v1.Get("/status", galleryHandler.Status)
	v1.Get("/people", galleryHandler.ListPeople)
	v1.Delete("/people/:name", galleryHandler.DeletePerson)
	v1.Delete("/gallery", galleryHandler.ClearAll)

	if r.deps.Events != nil {
		v1.Get("/events", ws.UpgradeMiddleware(), ws.Handler(r.deps.Events))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
