package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Skufu/symptomrx/internal/classifier"
	"github.com/Skufu/symptomrx/internal/engine"
	"github.com/Skufu/symptomrx/internal/refdata"
	"github.com/Skufu/symptomrx/internal/vocab"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Data sources accepted in DATA_SOURCE.
const (
	sourceCSV      = "csv"
	sourcePostgres = "postgres"
	sourceSQLite   = "sqlite"
)

type Config struct {
	Port           string
	DataSource     string
	DataDir        string
	DatabaseURL    string
	SQLitePath     string
	ModelKind      string
	ModelPath      string
	OrtLibraryPath string
	OnnxInputName  string
	OnnxOutputName string
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
	ServiceName    string
	TracesExporter string
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	tp, err := setupTracing(cfg)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	ctx := context.Background()
	loader, db, closeData, err := openReferenceData(ctx, cfg)
	if err != nil {
		log.Fatalf("reference data: %v", err)
	}
	defer closeData()

	tables, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("load reference tables: %v", err)
	}
	log.Printf("loaded reference tables from %s: %d descriptions, %d precautions, %d medications, %d diets, %d workouts",
		cfg.DataSource, len(tables.Descriptions), len(tables.Precautions), len(tables.Medications),
		len(tables.Diets), len(tables.Workouts))

	model, err := classifier.Open(classifier.Options{
		Kind:        cfg.ModelKind,
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.OrtLibraryPath,
		InputName:   cfg.OnnxInputName,
		OutputName:  cfg.OnnxOutputName,
		Features:    vocab.Symptoms().Size(),
	})
	if err != nil {
		log.Fatalf("load model: %v", err)
	}
	defer model.Close()

	eng, err := engine.New(model, tables, engine.WithLogger(log.Default()))
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	router := setupRouter(eng, db, routerOptions{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimitRPS,
		RateBurst:   cfg.RateLimitBurst,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           instrument(router, cfg.ServiceName, tp),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Printf("server listening on :%s", cfg.Port)
	waitForShutdown(server, tp)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DataSource:     strings.ToLower(getEnv("DATA_SOURCE", sourceCSV)),
		DataDir:        getEnv("DATA_DIR", "data"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SQLitePath:     os.Getenv("SQLITE_PATH"),
		ModelKind:      strings.ToLower(getEnv("MODEL_KIND", classifier.KindONNX)),
		ModelPath:      os.Getenv("MODEL_PATH"),
		OrtLibraryPath: os.Getenv("ORT_LIBRARY_PATH"),
		OnnxInputName:  getEnv("ONNX_INPUT_NAME", "float_input"),
		OnnxOutputName: getEnv("ONNX_OUTPUT_NAME", "label"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "symptomrx"),
		TracesExporter: strings.ToLower(getEnv("OTEL_TRACES_EXPORTER", exporterNone)),
	}

	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}

	switch cfg.DataSource {
	case sourceCSV:
	case sourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DATA_SOURCE=postgres")
		}
	case sourceSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required when DATA_SOURCE=sqlite")
		}
	default:
		return nil, fmt.Errorf("unknown DATA_SOURCE %q", cfg.DataSource)
	}

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("MODEL_PATH is required")
	}

	if cfg.TracesExporter != exporterNone && cfg.TracesExporter != exporterStdout {
		return nil, fmt.Errorf("unsupported OTEL_TRACES_EXPORTER %q", cfg.TracesExporter)
	}

	return cfg, nil
}

// openReferenceData returns the loader for cfg.DataSource, the database to
// report in /readyz (nil for CSV) and a cleanup func.
func openReferenceData(ctx context.Context, cfg *Config) (refdata.Loader, HealthChecker, func(), error) {
	switch cfg.DataSource {
	case sourcePostgres:
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		return refdata.NewPostgresStore(pool), pool, pool.Close, nil
	case sourceSQLite:
		store, err := refdata.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, func() { store.Close() }, nil
	default:
		return refdata.CSVDir(cfg.DataDir), nil, func() {}, nil
	}
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func waitForShutdown(server *http.Server, tp *sdktrace.TracerProvider) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Printf("tracer shutdown failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(text string) []string {
	out := []string{}
	for _, t := range strings.Split(text, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
