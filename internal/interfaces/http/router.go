package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Tiempo-api/internal/application/auth"
	"github.com/jhoicas/Tiempo-api/internal/application/billing"
	"github.com/jhoicas/Tiempo-api/internal/application/loader"
	"github.com/jhoicas/Tiempo-api/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	AdminUC     *usecase.AdminUseCase
	TeamUC      *usecase.TeamUseCase
	ClientUC    *usecase.ClientUseCase
	ProjectUC   *usecase.ProjectUseCase
	TimeEntryUC *usecase.TimeEntryUseCase
	Invoices    *billing.Engine
	InvoicePDF  *billing.PDFUseCase

	// Users y Teams resuelven los roles de instancia y de equipo de cada petición.
	Users        userReader
	Teams        memberRoleReader
	Sources      loader.Sources
	LoaderConfig loader.Config

	// Metrics es opcional; sin él no se expone /metrics.
	Metrics interface {
		metricsObserver
		Handler() nethttp.Handler
	}
	Logger    zerolog.Logger
	JWTSecret string
	AppName   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		app.Use(Metrics(deps.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (Bearer Token + contexto de petición)
	protected := api.Group("/",
		AuthMiddleware(deps.JWTSecret),
		RequestContext(deps.Users, deps.Teams, deps.Sources, deps.LoaderConfig, deps.Logger),
	)
	protected.Get("/me", authHandler.Me)

	// Administración de instancia
	admin := protected.Group("/admin", RequireInstanceAdmin())
	adminHandler := NewAdminHandler(deps.AdminUC)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Patch("/users/:id/role", adminHandler.SetInstanceRole)

	// Equipos
	teamHandler := NewTeamHandler(deps.TeamUC)
	protected.Post("/teams", teamHandler.Create)
	members := protected.Group("/team/members")
	members.Get("/", teamHandler.ListMembers)
	members.Post("/", teamHandler.AddMember)
	members.Patch("/:userId", teamHandler.UpdateMember)
	members.Delete("/:userId", teamHandler.RemoveMember)

	// Clientes
	clients := protected.Group("/clients")
	clientHandler := NewClientHandler(deps.ClientUC)
	clients.Get("/", clientHandler.List)
	clients.Post("/", clientHandler.Create)

	// Proyectos
	projects := protected.Group("/projects")
	projectHandler := NewProjectHandler(deps.ProjectUC)
	projects.Get("/", projectHandler.List)
	projects.Post("/", projectHandler.Create)
	projects.Get("/:id", projectHandler.Get)
	projects.Patch("/:id", projectHandler.Update)
	projects.Get("/:id/members", projectHandler.ListMembers)
	projects.Put("/:id/members/:userId", projectHandler.SetMember)
	projects.Delete("/:id/members/:userId", projectHandler.RemoveMember)
	projects.Get("/:id/tasks", projectHandler.ListTasks)
	projects.Post("/:id/tasks", projectHandler.CreateTask)

	// Registro de tiempo
	entries := protected.Group("/time-entries")
	entryHandler := NewTimeEntryHandler(deps.TimeEntryUC)
	entries.Get("/", entryHandler.List)
	entries.Post("/", entryHandler.Create)
	entries.Post("/:id/stop", entryHandler.Stop)
	entries.Delete("/:id", entryHandler.Delete)

	// Facturas
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.InvoicePDF)
	invoices.Get("/", invoiceHandler.List)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Patch("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)
	invoices.Post("/:id/items", invoiceHandler.AddItem)
	invoices.Patch("/:id/items/:itemId", invoiceHandler.UpdateItem)
	invoices.Delete("/:id/items/:itemId", invoiceHandler.DeleteItem)
	invoices.Post("/:id/items/:itemId/time-entries", invoiceHandler.AddTimeEntries)
	invoices.Delete("/:id/time-entries/:timeEntryId", invoiceHandler.RemoveTimeEntry)
	invoices.Post("/:id/recalculate", invoiceHandler.Recalculate)
	invoices.Post("/:id/send", invoiceHandler.Send)
	invoices.Post("/:id/pay", invoiceHandler.Pay)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)
}
