package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"

	"logclassifier/internal/classifier"
	"logclassifier/internal/config"
	apierrors "logclassifier/internal/errors"
	"logclassifier/internal/exporter"
	"logclassifier/internal/infrastructure"
	customMiddleware "logclassifier/internal/middleware"
	"logclassifier/internal/operations"
	"logclassifier/internal/services"
	"logclassifier/internal/store"
	handlers "logclassifier/internal/transport/http"
	ws "logclassifier/internal/websocket"
	"logclassifier/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Pipeline      *classifier.Pipeline
	Store         *store.SQLiteStore
	WebSocketHub  *ws.Hub
	JobQueue      *operations.JobQueue
	Services      *ServiceContainer
	FrontendFS    fs.FS

	errorHandler *apierrors.ErrorHandler
	queueCancel  context.CancelFunc
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Uploads        *services.UploadStore
	Classification *services.ClassificationService
	Jobs           *services.JobService
	Health         *services.HealthService
}

// NewApplication loads configuration from the environment and builds the application
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger, infrastructure.DefaultOTelConfig(), frontendFS)
}

// New builds an application from an explicit configuration
func New(cfg *config.Config, logger *slog.Logger, otelCfg *infrastructure.OTelConfig, frontendFS fs.FS) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.GetVersionString()))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	logger.Info("Resolved paths",
		slog.String("base_dir", paths.BaseDir),
		slog.String("resources_dir", paths.ResourcesDir),
		slog.String("database", paths.DatabaseFile),
		slog.String("output_csv", paths.OutputCSV))

	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	meter := otelProviders.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(infrastructure.MeterName)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		FrontendFS:    frontendFS,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(context.Background()); err != nil {
		app.closeResources(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		app.closeResources(context.Background())
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices builds the pipeline, storage, hub, queue and services
func (a *Application) initializeServices(ctx context.Context) error {
	pipeline, err := classifier.NewFromConfig(a.Config.Classifier, a.Config.LLM, a.Metrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}
	a.Pipeline = pipeline

	db, err := store.Open(ctx, a.Paths.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	a.Store = db

	a.WebSocketHub = ws.NewHub(a.Logger)
	a.WebSocketHub.SetKeepalive(a.Config.WebSocket.PingPeriod, a.Config.WebSocket.PongWait)
	a.WebSocketHub.Start()

	uploads := services.NewUploadStore(a.Config.Server.MaxUploadsCached)
	classification := services.NewClassificationService(
		pipeline,
		uploads,
		db,
		exporter.NewCSVWriter(a.Paths, a.Logger),
		a.Metrics,
		a.Logger,
	)

	broadcaster := operations.NewStatusBroadcaster(a.WebSocketHub, a.Logger)
	a.JobQueue = operations.NewJobQueue(
		a.Config.Jobs.Workers,
		operations.NewMemoryJobStore(),
		classification,
		broadcaster,
		a.Logger,
	)

	a.Services = &ServiceContainer{
		Uploads:        uploads,
		Classification: classification,
		Jobs:           services.NewJobService(uploads, a.JobQueue, a.Logger),
		Health:         services.NewHealthService(db, a.WebSocketHub, a.JobQueue, uploads, a.Paths, a.Logger),
	}

	a.Logger.InfoContext(ctx, "Services initialized",
		slog.Int("classifier_workers", a.Config.Classifier.Workers),
		slog.Int("job_workers", a.Config.Jobs.Workers),
		slog.Any("labels", pipeline.Labels()))

	return nil
}

// setupRouter configures the router. The WebSocket route sits outside the
// main group so no middleware wraps the hijacked connection.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	r.Handle("/ws", wsHandler)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	var page *handlers.PageHandler
	if a.FrontendFS != nil {
		page, err = handlers.NewPageHandler(a.FrontendFS, handlers.PageData{
			Title:   config.AppName,
			Version: contracts.Version,
			Sources: config.KnownSources,
		}, a.Logger)
		if err != nil {
			return err
		}
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → limiter
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Compress(5))

		// set before mounting so sub-routers inherit them
		r.NotFound(a.errorHandler.NotFound)
		r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

		a.setupAPIRoutes(r)

		if page != nil {
			r.Get("/", page.ServeIndex)
		}
	})

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints. Uploads and classification get
// the long timeout, everything else the request timeout.
func (a *Application) setupAPIRoutes(r chi.Router) {
	classification := handlers.NewClassificationHandler(a.Services.Classification, a.Logger, a.errorHandler)
	jobs := handlers.NewJobsHandler(a.Services.Jobs, a.Logger, a.errorHandler)
	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	clientLogs := handlers.NewClientLogHandler(a.Logger, a.errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

			r.Get("/health", health.HealthCheck)
			r.Get("/health/ready", health.ReadinessCheck)
			r.Get("/health/live", health.LivenessCheck)
			r.Get("/version", health.Version)

			r.Post("/predict", classification.Predict)
			r.Get("/pipeline", classification.Pipeline)
			r.Post("/logs", clientLogs.Handle)

			r.Mount("/runs", classification.RunRoutes())
			r.Mount("/jobs", jobs.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ClassifyTimeout, a.Logger))
			r.Use(customMiddleware.MaxBodySize(a.Config.Server.MaxUploadBytes))

			r.Mount("/uploads", classification.UploadRoutes())
		})
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := append([]string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}, a.Config.Security.AllowedOrigins...)

	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
			"Location",
		},
		AllowCredentials: false,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the job queue and the HTTP server. A listen failure cancels
// the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	queueCtx, queueCancel := context.WithCancel(context.Background())
	a.queueCancel = queueCancel
	a.JobQueue.Start(queueCtx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if status := a.Services.Health.ReadinessCheck(ctx); status.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup readiness check reported problems",
			slog.String("status", status.Status),
			slog.Any("services", status.Services))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var serverErr error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			serverErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	a.closeResources(shutdownCtx)

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return serverErr
}

// closeResources releases everything built by New, in reverse order
func (a *Application) closeResources(ctx context.Context) {
	if a.JobQueue != nil {
		if err := a.JobQueue.Stop(a.Config.Jobs.StopTimeout); err != nil {
			a.Logger.ErrorContext(ctx, "Failed to stop job queue gracefully", slog.String("error", err.Error()))
		}
	}
	if a.queueCancel != nil {
		a.queueCancel()
	}

	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing run store", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+5*time.Second)
	defer stopCancel()
	err := a.Stop(stopCtx)

	if closeErr := infrastructure.CloseLogFile(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
