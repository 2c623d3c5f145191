package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/Tiempo-api/internal/application/auth"
	"github.com/jhoicas/Tiempo-api/internal/application/billing"
	"github.com/jhoicas/Tiempo-api/internal/application/loader"
	"github.com/jhoicas/Tiempo-api/internal/application/usecase"
	"github.com/jhoicas/Tiempo-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/Tiempo-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Tiempo-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Tiempo-api/internal/interfaces/http"
	"github.com/jhoicas/Tiempo-api/pkg/config"
	"github.com/jhoicas/Tiempo-api/pkg/logger"
	"github.com/jhoicas/Tiempo-api/pkg/password"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		migrator, err := postgres.NewMigrator(pool, log.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("configurar migraciones")
		}
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("aplicar migraciones")
		}
	}

	postgres.SetListLimits(postgres.ListLimits{
		MaxLimit:     cfg.List.MaxLimit,
		DefaultLimit: cfg.List.DefaultLimit,
	})
	m := metrics.New()

	userRepo := postgres.NewUserRepository(pool)
	teamRepo := postgres.NewTeamRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	projectRepo := postgres.NewProjectRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	timeEntryRepo := postgres.NewTimeEntryRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	authUC := auth.NewAuthUseCase(userRepo, teamRepo, txRunner, password.Hasher{}, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	adminUC := usecase.NewAdminUseCase(userRepo, txRunner)
	teamUC := usecase.NewTeamUseCase(teamRepo, userRepo, txRunner)
	clientUC := usecase.NewClientUseCase(clientRepo)
	projectUC := usecase.NewProjectUseCase(projectRepo, taskRepo, teamRepo)
	timeEntryUC := usecase.NewTimeEntryUseCase(timeEntryRepo)

	engine := billing.NewEngine(txRunner, invoiceRepo, billing.WithConflictHook(m.BillingConflict))
	// PDF: representación imprimible de la factura
	invoicePDFUC := billing.NewPDFUseCase(engine, infrapdf.NewMarotoPDFGenerator(cfg.App.Name))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Tiempo API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		AdminUC:     adminUC,
		TeamUC:      teamUC,
		ClientUC:    clientUC,
		ProjectUC:   projectUC,
		TimeEntryUC: timeEntryUC,
		Invoices:    engine,
		InvoicePDF:  invoicePDFUC,
		Users:       userRepo,
		Teams:       teamRepo,
		Sources:     loader.SourcesFrom(userRepo, projectRepo, clientRepo, taskRepo, invoiceRepo, timeEntryRepo),
		LoaderConfig: loader.Config{
			Wait:      cfg.Loader.Wait,
			MaxBatch:  cfg.Loader.MaxBatch,
			CacheSize: cfg.Loader.CacheSize,
			OnFetch:   m.LoaderFetch,
		},
		Metrics:   m,
		Logger:    log.Zerolog(),
		JWTSecret: cfg.JWT.Secret,
		AppName:   cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
