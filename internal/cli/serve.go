package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/spf13/cobra"

	"dxf-normalizer/internal/common/config"
	"dxf-normalizer/internal/common/middleware"
	"dxf-normalizer/internal/normalizer/handlers"
	"dxf-normalizer/internal/normalizer/history"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the normalizer HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if servePort != "" {
			cfg.Port = servePort
		}
		opts, err := normalizerOptions(cfg.Normalizer)
		if err != nil {
			return err
		}

		repo, closeDB, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()

		h := handlers.NewHandler(repo, history.NewFileStorage(cfg.DataDir), opts)
		app := newApp(cfg, h)

		// ============================================================
		// Server Start
		// ============================================================

		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Starting Normalizer Service on %s (env: %s)", addr, cfg.Environment)

		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func newApp(cfg *config.Config, h *handlers.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    cfg.BodyLimit,
		AppName:      "Normalizer Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins...))

	h.Register(app)
	return app
}
