package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-station-charts/internal/api/http"
	"github.com/i474232898/weather-station-charts/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve series and charts over HTTP and rebuild them periodically",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	// Scheduler that periodically fetches, compiles and plots.
	sched := scheduler.New(a.pipeline, a.fetcher, a.cfg.Stations, a.cfg.RefreshInterval, logger)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := newServer(a)

	go func() {
		if err := srv.Listen(":" + a.cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("port", a.cfg.Port))

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	return nil
}

func newServer(a *app) *fiber.App {
	srv := fiber.New(fiber.Config{
		AppName:               "weather-station-charts",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Runs triggered over HTTP are synchronous.
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	srv.Use(fiberlogger.New())
	srv.Use(recover.New())

	srv.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-station-charts",
		})
	})

	httpapi.RegisterRoutes(srv, httpapi.Deps{
		Store:    a.store,
		Runner:   a.pipeline,
		Drawer:   a.pipeline.Renderer(),
		Calendar: a.pipeline.Calendar(),
	})
	return srv
}
