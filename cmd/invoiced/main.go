package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/docuflow/invoice-verifier/internal/common"
	"github.com/docuflow/invoice-verifier/internal/document"
	"github.com/docuflow/invoice-verifier/internal/export"
	"github.com/docuflow/invoice-verifier/internal/extract"
	"github.com/docuflow/invoice-verifier/internal/extract/openai"
	"github.com/docuflow/invoice-verifier/internal/review"
	"github.com/docuflow/invoice-verifier/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		// Missing credentials are surfaced per-request as NO_API_KEY,
		// not a startup crash.
		logger.Warn("config incomplete", "error", err)
	}

	pre := document.NewPreprocessor(document.Config{
		Pdftotext: cfg.Document.Pdftotext,
		MaxPages:  cfg.Document.MaxPages,
		MaxChars:  cfg.Document.MaxChars,
	}, nil, logger)

	llm := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	orch := extract.NewOrchestrator(llm, logger)

	session := review.NewSession(logger)
	exporter := export.NewService(logger)

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Server.BodyLimit,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	srv := server.New(cfg, pre, orch, session, exporter, logger)
	srv.RegisterRoutes(app)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := app.Listen(cfg.Server.Addr); err != nil {
			logger.Error("http listen failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
