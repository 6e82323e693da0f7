// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/modelportal/detection-service/internal/config"
	"github.com/modelportal/detection-service/internal/detector"
	"github.com/modelportal/detection-service/internal/framesource"
	"github.com/modelportal/detection-service/internal/inference"
	"github.com/modelportal/detection-service/internal/metrics"
	"github.com/modelportal/detection-service/internal/middleware"
	"github.com/modelportal/detection-service/internal/model"
	"github.com/modelportal/detection-service/internal/server"
	"github.com/modelportal/detection-service/internal/snapshot"
)

const serviceName = "detection-service"

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "API server port (default: 8080)")
	modelPath := flag.String("model", "", "Path to ONNX model file (default: yolov5s.onnx)")
	redisAddr := flag.String("redis", "", "Redis address for detection snapshots (default: disabled)")
	metricsPort := flag.Int("metrics", 0, "Prometheus metrics port (default: 9100)")
	configFile := flag.String("config", "", "Path to config file (optional)")
	useMock := flag.Bool("mock", false, "Use mock inference engine (for testing)")
	flag.Parse()

	// Load configuration from file and environment
	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadWithConfigFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override with flags if provided
	if *port > 0 {
		cfg.Port = *port
	}
	if *modelPath != "" {
		cfg.Model = *modelPath
	}
	if *redisAddr != "" {
		cfg.Redis = *redisAddr
	}
	if *metricsPort > 0 {
		cfg.MetricsPort = *metricsPort
	}
	if *useMock {
		cfg.UseMockInference = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting %s...", serviceName)
	log.Printf("Configuration: port=%d, model=%s, redis=%s, metrics=%d, tick=%dms, otel=%v",
		cfg.Port, cfg.Model, cfg.Redis, cfg.MetricsPort, cfg.TickIntervalMs, cfg.OTELEnabled)

	// Initialize OpenTelemetry tracer
	var tracerShutdown func(context.Context) error
	if cfg.OTELEnabled {
		tracerShutdown, err = initTracer(cfg.OTELEndpoint)
		if err != nil {
			log.Printf("Warning: Failed to initialize tracer: %v", err)
		} else {
			log.Printf("OpenTelemetry tracing enabled (endpoint: %s)", cfg.OTELEndpoint)
		}
	}

	// Model configuration for the bundled YOLOv5s COCO detector
	modelCfg := model.Default()

	// The loader runs inside the detection loop the first time a run
	// starts, so a bad model path surfaces as a retryable error status
	// rather than a crash.
	loader := func() (inference.Engine, error) {
		if cfg.UseMockInference {
			log.Printf("Using mock inference engine")
			return inference.NewMock(modelCfg), nil
		}
		log.Printf("Loading ONNX model from %s...", cfg.Model)
		modelBytes, err := os.ReadFile(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: read model file: %v", inference.ErrModelLoad, err)
		}
		engine, err := inference.NewFromBytes(modelBytes, modelCfg)
		if err != nil {
			return nil, err
		}
		log.Printf("ONNX model loaded successfully (%d bytes)", len(modelBytes))
		return engine, nil
	}

	// Runtime-tunable settings, seeded from config
	settings := detector.NewSettings(
		cfg.ConfidenceThreshold,
		cfg.IoUThreshold,
		time.Duration(cfg.TickIntervalMs)*time.Millisecond,
	)

	// Frame cell fed by the portal front end
	frames := framesource.NewLatestFrame()

	// Initialize Redis snapshot store (optional)
	var publishers []detector.Publisher
	if cfg.Redis != "" {
		log.Printf("Connecting to Redis at %s...", cfg.Redis)
		store, err := snapshot.New(cfg.Redis, time.Duration(cfg.SnapshotTTLSeconds)*time.Second)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v (continuing without snapshots)", err)
		} else {
			defer store.Close()
			publishers = append(publishers, store)
			log.Printf("Redis connected successfully")
		}
	}

	runner := detector.New(modelCfg, frames, loader, settings, publishers...)
	defer runner.Close()

	if err := runner.Start(); err != nil {
		log.Fatalf("Failed to start detector: %v", err)
	}

	// Start HTTP server for metrics and health checks
	metricsServer := startMetricsServer(cfg.MetricsPort, runner)

	// API server for the portal front end
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Metrics)
	server.New(modelCfg, runner, frames, settings).Routes(router)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down gracefully...", sig)

		metrics.SetUnhealthy()
		runner.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		apiServer.Shutdown(ctx)
		metricsServer.Shutdown(ctx)

		if tracerShutdown != nil {
			tracerShutdown(ctx)
		}
	}()

	log.Printf("API server listening on %s", apiServer.Addr)
	log.Printf("%s is ready to accept requests", serviceName)

	if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to serve: %v", err)
	}

	log.Printf("Server shutdown complete")
}

func startMetricsServer(port int, runner *detector.Runner) *http.Server {
	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if status, _ := runner.Status(); status == detector.StatusError {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service Unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness: serving traffic requires a loaded, ticking model
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if status, _ := runner.Status(); status != detector.StatusRunning {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Not Ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP server listening on %s (metrics, health)", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	return server
}

func initTracer(endpoint string) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	var err error

	if endpoint != "" {
		// For now, use stdout exporter as OTLP requires more setup
		// In production, use: otlptrace.New(ctx, otlptracegrpc.NewClient(...))
		log.Printf("Note: Using stdout trace exporter (OTLP endpoint: %s)", endpoint)
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Create resource with service information
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
