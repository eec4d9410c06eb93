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
	"github.com/ulule/limiter/v3"

	_ "github.com/jhoicas/traslados-api/docs"
	"github.com/jhoicas/traslados-api/internal/application/inventory"
	"github.com/jhoicas/traslados-api/internal/application/transfer"
	"github.com/jhoicas/traslados-api/internal/application/usecase"
	"github.com/jhoicas/traslados-api/internal/infrastructure/messaging"
	infrapdf "github.com/jhoicas/traslados-api/internal/infrastructure/pdf"
	"github.com/jhoicas/traslados-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/traslados-api/internal/interfaces/http"
	"github.com/jhoicas/traslados-api/pkg/config"
	"github.com/jhoicas/traslados-api/pkg/logger"
)

// @title                       Traslados API
// @version                     1.0
// @description                 Traslados de inventario entre sucursales con reserva en destino.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Dur("lock_timeout", cfg.DB.LockTimeout).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
		log.Info().Msg("esquema aplicado")
	}

	txRunner := postgres.NewTxRunner(pool, cfg.DB.LockTimeout)
	branchRepo := postgres.NewBranchRepository(pool)

	// Eventos de traslado: Kafka si hay brokers, si no se descartan.
	var publisher transfer.EventPublisher = transfer.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		producer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error().Err(err).Msg("cierre del productor Kafka")
			}
		}()
		publisher = producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publicación de eventos activa")
	}

	workflow := transfer.NewWorkflow(txRunner, publisher, log.Component("transfer"))
	dispatchNoteUC := transfer.NewDispatchNoteUseCase(txRunner, infrapdf.NewDispatchNoteGenerator())
	adjustUC := inventory.NewAdjustStockUseCase(txRunner)
	branchUC := usecase.NewBranchUseCase(branchRepo)

	var writeLimiter *limiter.Limiter
	if cfg.RateLimit.Rate != "" {
		writeLimiter, err = httpRouter.NewRateLimiter(cfg.RateLimit.Rate)
		if err != nil {
			log.Fatal().Err(err).Str("rate", cfg.RateLimit.Rate).Msg("RATE_LIMIT inválido")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Traslados API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		BranchUC:     branchUC,
		Transfers:    workflow,
		DispatchNote: dispatchNoteUC,
		Adjustments:  adjustUC,
		JWTSecret:    cfg.JWT.Secret,
		Limiter:      writeLimiter,
		Logger:       log.Component("http"),
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
