package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/kpi-tracker-api/api"
	"github.com/sahilchouksey/kpi-tracker-api/config"
	"github.com/sahilchouksey/kpi-tracker-api/database"
	"github.com/sahilchouksey/kpi-tracker-api/router"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/services/cron"
	"github.com/sahilchouksey/kpi-tracker-api/services/storage"
	"github.com/sahilchouksey/kpi-tracker-api/utils/auth"
	"github.com/sahilchouksey/kpi-tracker-api/utils/cache"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"github.com/sahilchouksey/kpi-tracker-api/utils/middleware"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
)

const shutdownTimeout = 15 * time.Second

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(env.GO_ENV)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	response.SetLogger(log)

	// Initialize GORM database connection
	store, err := database.StartGORM(env, log)
	if err != nil {
		log.Error("check whether PostgreSQL is running", "host", env.DB_HOST, "port", env.DB_PORT)
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := database.NewSeeder(store.DB(), env, log).SeedAll(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	deps := router.Dependencies{
		Store:  store,
		JWT:    auth.NewJWTManager(auth.JWTConfig{Secret: env.JWT_SECRET, Expiry: env.JWT_EXPIRY, Issuer: env.JWT_ISSUER}),
		Mailer: services.NewEmailService(smtpConfig(env), !env.IsProduction(), log),
		Auth:   services.AuthConfig{OTPTTL: env.OTP_TTL, OTPMaxAttempts: env.OTP_MAX_ATTEMPTS},
		Security: middleware.SecurityConfig{
			AllowedOrigins:    env.ALLOWED_ORIGINS,
			RateLimitRequests: env.RATE_LIMIT_REQUESTS,
			RateLimitWindow:   time.Minute,
			EnableAccessLog:   true,
		},
		Log: log,
	}

	if env.GOOGLE_CLIENT_ID != "" {
		deps.Google = auth.NewGoogleVerifier(env.GOOGLE_CLIENT_ID)
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}

	// Initialize Redis cache for brute force protection
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		log.Warn("failed to connect to Redis, brute force protection disabled", "error", err)
	} else {
		defer redisCache.Close()
		deps.AttemptStore = redisCache
	}

	if env.StorageConfigured() {
		spaces, err := storage.NewSpacesClient(storage.SpacesConfig{
			AccessKey: env.SPACES_ACCESS_KEY,
			SecretKey: env.SPACES_SECRET_KEY,
			Bucket:    env.SPACES_BUCKET,
			Region:    env.SPACES_REGION,
			Endpoint:  env.SPACES_ENDPOINT,
			CDNURL:    env.SPACES_CDN_URL,
		})
		if err != nil {
			log.Warn("object storage unavailable, uploads disabled", "error", err)
		} else {
			deps.Objects = spaces
		}
	} else {
		log.Warn("object storage not configured, uploads disabled")
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	if env.CRON_ENABLED {
		cronManager := cron.NewCronManager(store.DB(), log)
		if err := cronManager.Start(); err != nil {
			log.Error("failed to start cron jobs", "error", err)
		} else {
			defer cronManager.Stop()
		}
	}

	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), log)
	router.SetupRoutes(server.GetEngine(), deps)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func smtpConfig(env *config.EnvironmentVariable) services.SMTPConfig {
	return services.SMTPConfig{
		Host:     env.SMTP_HOST,
		Port:     env.SMTP_PORT,
		Username: env.SMTP_USERNAME,
		Password: env.SMTP_PASSWORD,
		From:     env.SMTP_FROM,
	}
}
