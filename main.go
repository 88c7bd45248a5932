package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"medpipe_backend/bootstrap"
	"medpipe_backend/config"
	"medpipe_backend/middleware"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/database"
	"medpipe_backend/routes"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medpipe",
		Short: "Medical document pipeline backend",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			err := godotenv.Load()
			logging.Init()
			if err != nil {
				logging.Logger.Warn("no .env file loaded", "error", err)
			}
		},
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, the task worker and the grpc health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(config.LoadConfig())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.InitPostgres(config.LoadConfig())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.AutoMigrate(); err != nil {
				return err
			}
			logging.Logger.Info("migrations applied")
			return nil
		},
	}
}

func runServer(cfg *config.Config) error {
	application, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	app := fiber.New()
	app.Use(middleware.Logger(os.Getenv("APP_ENV")))
	app.Use(middleware.CORS(cfg.AllowOrigins))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.RegisterDocumentRoutes(app, application.Handlers.DocHandler)
	routes.RegisterPatientRoutes(app, application.Handlers.PatientHandler)
	routes.RegisterTranslationRoutes(app, application.Handlers.TranslationHandler)
	routes.SetupWebSocketRoutes(app, application.Handlers.WSHandler)

	application.StartWorker()

	port := cfg.HttpPort
	if port == "" {
		port = "3000"
	}
	go func() {
		logging.Logger.Info("Server running", "addr", "http://localhost:"+port)
		if err := app.Listen(":" + port); err != nil {
			logging.Logger.Error("fail Listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Logger.Info("shutting down")

	if err := app.Shutdown(); err != nil {
		logging.Logger.Error("fail fiber shutdown", "error", err)
	}
	return application.Shutdown()
}
