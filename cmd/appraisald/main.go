package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mhollis/appraisal-engine/internal/httpapi"
	"github.com/mhollis/appraisal-engine/internal/narrative"
	"github.com/mhollis/appraisal-engine/internal/store"
	"github.com/mhollis/appraisal-engine/internal/valuation"
)

func main() {
	_ = godotenv.Load()

	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	addrFlag := flag.String("addr", "", "listen address (overrides PORT env var)")
	flag.Parse()

	logger := newLogger()
	slog.SetDefault(logger)

	addr := *addrFlag
	if addr == "" {
		addr = ":" + getEnv("PORT", "8080")
	}
	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = getEnv("DB_PATH", "./data/appraisals.db")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		logger.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}
	if shutdownTracing != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		logger.Error("open store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("using sqlite store", "path", dbPath)

	var narrator httpapi.Narrator
	if caller, err := narrative.NewAnthropicCallerFromEnv(); err != nil {
		logger.Info("narrative generation disabled", "reason", err.Error())
	} else {
		narrator = narrative.NewGenerator(caller, logger)
		logger.Info("narrative generation enabled", "model", caller.ModelName())
	}

	engine := valuation.NewEngine(valuation.DefaultPolicy())
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(engine, st, narrator, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("appraisald listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if getEnvBool("LOG_DEBUG", false) {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// setupTracing installs an OTLP trace exporter when
// OTEL_EXPORTER_OTLP_ENDPOINT is set; otherwise tracing stays on the
// default no-op provider.
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return nil, nil
	}
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "appraisald"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
