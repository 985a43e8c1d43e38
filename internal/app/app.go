package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"footballhub/internal/alerts"
	"footballhub/internal/config"
	"footballhub/internal/handlers"
	"footballhub/internal/migrations"
	"footballhub/internal/providers"
	"footballhub/internal/rate"
	"footballhub/internal/reports"
	"footballhub/internal/repositories"
	"footballhub/internal/routes"
	"footballhub/internal/routing"
	"footballhub/internal/services"
)

// App: собранный граф зависимостей сервиса.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB    *sql.DB
	Redis redis.UniversalClient

	Store        repositories.OTPStore
	DeliveryLog  repositories.DeliveryLog
	Registry     *providers.Registry
	Router       *routing.Router
	Limiter      rate.Limiter
	Alerts       alerts.Notifier
	Delivery     *services.DeliveryService
	Verification *services.VerificationService
	Reports      *reports.Service
}

// New подключает хранилища и собирает сервисы. Закрывать через Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// === DB / Redis ===
	if cfg.Database.DSN != "" {
		if a.DB, err = openPostgres(ctx, cfg.Database.DSN); err != nil {
			return nil, err
		}
		if err = migrations.Up(ctx, a.DB); err != nil {
			return nil, err
		}
	}
	if cfg.Redis.Addr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err = a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	// === Repos ===
	if a.Store, err = a.buildStore(ctx); err != nil {
		return nil, err
	}
	if a.DB != nil {
		a.DeliveryLog = repositories.NewPostgresDeliveryLog(a.DB)
	} else {
		a.DeliveryLog = repositories.NewMemoryDeliveryLog(0)
	}

	// === Providers / routing ===
	texts, err := providers.NewTexts()
	if err != nil {
		return nil, err
	}
	a.Registry = BuildRegistry(cfg.Providers, texts, logger)
	a.Router = routing.NewRouter(cfg.Routing, a.Registry.ConfiguredChannels()...)

	if a.Redis != nil {
		a.Limiter = rate.NewRedisLimiter(a.Redis, cfg.RateLimit)
	} else {
		a.Limiter = rate.NewMemoryLimiter(cfg.RateLimit, time.Now)
	}
	a.Alerts = alerts.Build(cfg.Alerts, logger)

	// === Services ===
	a.Delivery = services.NewDeliveryService(a.Store, a.DeliveryLog, a.Router, a.Registry, a.Limiter, a.Alerts, cfg.OTP, logger)
	a.Verification = services.NewVerificationService(a.Store, cfg.OTP, logger)
	a.Reports = reports.NewService(a.DeliveryLog, cfg.Reports.FontPath)

	logger.Info("otp service assembled",
		"store", cfg.Store.Driver,
		"delivery_log", fmt.Sprintf("%T", a.DeliveryLog),
		"channels", a.Registry.ConfiguredChannels(),
		"dev_mode", cfg.OTP.DevMode)
	return a, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (a *App) buildStore(ctx context.Context) (repositories.OTPStore, error) {
	cfg := a.Config
	switch cfg.Store.Driver {
	case config.StorePostgres:
		return repositories.NewPostgresOTPStore(a.DB, time.Now, a.Logger), nil
	case config.StoreRedis:
		return repositories.NewRedisOTPStore(a.Redis, cfg.Store.RedisPrefix, time.Now, a.Logger), nil
	case config.StoreDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return repositories.NewDynamoOTPStore(dynamodb.NewFromConfig(awsCfg), cfg.Store.DynamoTable, time.Now), nil
	case config.StoreMemory:
		a.Logger.Warn("otp store is in-memory: codes are lost on restart and not shared between instances")
		return repositories.NewMemoryOTPStore(time.Now), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// BuildRegistry регистрирует адаптеры в порядке предпочтения внутри канала.
func BuildRegistry(cfg config.ProvidersConfig, texts *providers.Texts, logger *slog.Logger) *providers.Registry {
	return providers.NewRegistry(
		providers.NewWhatsApp(cfg.WhatsApp, logger),
		providers.NewGreen(cfg.Green, texts, logger),
		providers.NewTemplatedSMS(cfg.TemplatedSMS, logger),
		providers.NewOTPSMS(cfg.OTPSMS, logger),
		providers.NewMobizon(cfg.Mobizon, texts, logger),
	)
}

// Handler собирает gin-движок со всеми маршрутами.
func (a *App) Handler() http.Handler {
	otpHandler := handlers.NewOTPHandler(a.Delivery, a.Verification, a.Logger)
	adminHandler := handlers.NewAdminHandler(a.Registry, a.Router, a.Reports, a.Store, a.Alerts, a.Config.OTP.DevMode, a.Logger)

	router := gin.New()
	return routes.SetupRoutes(router, otpHandler, adminHandler, []byte(a.Config.Auth.JWTSecret), a.Logger)
}

// ReportUnconfigured пишет в лог и в ops-канал, какие провайдеры без кредов.
func (a *App) ReportUnconfigured(ctx context.Context) {
	var missing []string
	for _, st := range a.Registry.Status() {
		if st.Configured {
			continue
		}
		a.Logger.Warn("provider not configured", "provider", st.Name, "channel", st.Channel, "error", st.Error)
		missing = append(missing, fmt.Sprintf("%s (%s): %s", st.Name, st.Channel, st.Error))
	}
	if len(missing) == 0 {
		return
	}
	actx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	err := a.Alerts.Notify(actx, alerts.Alert{
		Subject: "OTP providers not configured",
		Body:    strings.Join(missing, "\n"),
	})
	if err != nil {
		a.Logger.Warn("startup alert failed", "error", err)
	}
}

// Run слушает HTTP до отмены ctx, затем корректно гасит сервер.
func (a *App) Run(ctx context.Context) error {
	go a.ReportUnconfigured(context.WithoutCancel(ctx))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("db close", "error", err)
		}
	}
}
