// cmd/eligibility-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"opt-eligibility/internal/api"
	"opt-eligibility/internal/common/camunda"
	"opt-eligibility/internal/common/config"
	"opt-eligibility/internal/common/database"
	apperrors "opt-eligibility/internal/common/errors"
	"opt-eligibility/internal/common/logger"
	"opt-eligibility/internal/common/observability"
	"opt-eligibility/internal/common/ratelimit"
	"opt-eligibility/internal/eligibility"

	coe "opt-eligibility/internal/workers/eligibility/check-opt-eligibility"
	"opt-eligibility/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// checkActivity warns when the task type is missing from the activity
// registry, or registered but not marked as implemented.
func checkActivity(path, taskType string, log *zap.Logger) {
	if path == "" {
		return
	}
	reg, err := registry.LoadRegistry(path)
	if err == nil {
		err = reg.Validate()
	}
	if err != nil {
		log.Warn("Activity registry unavailable", zap.String("path", path), zap.Error(err))
		return
	}

	activity, ok := reg.Find(taskType)
	switch {
	case !ok:
		log.Warn("Task type is not in the activity registry", zap.String("taskType", taskType))
	case !activity.Runnable():
		log.Warn("Activity is not marked as implemented",
			zap.String("taskType", taskType),
			zap.String("status", activity.ImplementationStatus),
		)
	default:
		log.Info("Activity registered",
			zap.String("taskType", taskType),
			zap.String("version", activity.Version),
			zap.Strings("errorCodes", activity.ErrorCodes),
		)
	}
}

// deployResources deploys the configured process definitions. Failures are
// logged; the worker still serves instances of already deployed versions.
func deployResources(ctx context.Context, client *camunda.Client, paths []string, log *zap.Logger) {
	for _, path := range paths {
		definition, err := os.ReadFile(path)
		if err != nil {
			log.Error("Failed to read process definition", zap.String("path", path), zap.Error(err))
			continue
		}
		key, err := client.DeployResource(ctx, filepath.Base(path), definition)
		if err != nil {
			log.Error("Failed to deploy process definition", zap.String("path", path), zap.Error(err))
			continue
		}
		log.Info("Process definition deployed", zap.String("path", path), zap.Int64("deploymentKey", key))
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.Build(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		logger.New("info", "json").Fatal("logger build failed", zap.Error(err))
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting eligibility service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Tracing.ServiceName,
		TracingEnabled: cfg.Tracing.Enabled,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	policy, err := cfg.Rules.Policy()
	if err != nil {
		zapLog.Fatal("rule table rejected", zap.Error(apperrors.NewPolicyMisconfiguredError(err)))
	}
	engine, err := eligibility.NewEngine(policy)
	if err != nil {
		zapLog.Fatal("rule table rejected", zap.Error(apperrors.NewPolicyMisconfiguredError(err)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := api.Dependencies{
		Engine:          engine,
		Logger:          log,
		Observability:   obs,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ReadinessChecks: map[string]api.ReadinessCheck{},
	}

	// --- Redis rate limiter. The limiter fails open, so an unreachable
	// Redis degrades to no limiting instead of stopping the service. ---
	var redisClient *database.RedisClient
	if cfg.RateLimit.Enabled {
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis config invalid", zap.Error(err))
		}
		defer redisClient.Close()

		err = retryWithBackoff(func() error {
			return redisClient.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unreachable, rate limiter will fail open", zap.Error(err))
		} else {
			zapLog.Info("Redis connected successfully")
		}

		deps.Limiter = ratelimit.New(redisClient.GetClient(), cfg.RateLimit, log)
		deps.ReadinessChecks["redis"] = redisClient.Ping
	}

	// --- Zeebe client and worker ---
	var (
		zeebe  *camunda.Client
		worker *camunda.CamundaWorker
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")
		deps.ReadinessChecks["zeebe"] = zeebe.HealthCheck
		deployResources(ctx, zeebe, cfg.Camunda.DeployResources, zapLog)

		if config.IsWorkerEnabled(cfg, coe.TaskType) {
			checkActivity(cfg.Camunda.ActivityRegistry, coe.TaskType, zapLog)
			wc := config.GetWorkerConfig(cfg, coe.TaskType)
			handler := coe.NewHandler(coe.LoadConfig(wc), engine, obs, log)
			worker = camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
				TaskType:      coe.TaskType,
				MaxJobsActive: wc.MaxJobsActive,
				Timeout:       config.GetDuration(wc.Timeout),
			}, handler, log)
		}
	}

	// --- HTTP API and metrics servers ---
	gin.SetMode(gin.ReleaseMode)
	requestTimeout := config.GetDuration(cfg.Server.RequestTimeout)
	apiServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: requestTimeout,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout,
	}

	http.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsAddress(),
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("API server listening", zap.String("addr", apiServer.Addr))
		return serve(apiServer)
	})
	g.Go(func() error {
		zapLog.Info("Metrics server listening", zap.String("addr", metricsServer.Addr))
		return serve(metricsServer)
	})

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()

		if worker != nil {
			worker.Stop()
		}
		err := errors.Join(
			apiServer.Shutdown(shutdownCtx),
			metricsServer.Shutdown(shutdownCtx),
			obs.Shutdown(shutdownCtx),
		)
		return err
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("eligibility service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("Eligibility service stopped")
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}
