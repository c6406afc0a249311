package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"vmforge/internal/config"
	"vmforge/internal/db"
	"vmforge/internal/email"
	apihttp "vmforge/internal/http"
	"vmforge/internal/hypervisor"
	"vmforge/internal/repository"
	"vmforge/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.RunMigrations(ctx, cfg); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)

	userSvc := service.NewUserService(logger, userRepo)
	sessionSvc := service.NewSessionService(
		cfg.TokenSecret,
		time.Duration(cfg.SessionTTLMinutes)*time.Minute,
		sessionRepo,
	)

	window := time.Duration(cfg.RateLimitWindowSecs) * time.Second
	var limiter service.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisRateLimiter(redisClient, window, cfg.RateLimitMax)
		}
		cancel()
	}
	if limiter == nil {
		memLimiter := service.NewSlidingWindowLimiter(window, cfg.RateLimitMax)
		limiter = memLimiter
		go sweepLoop(ctx, memLimiter, window)
	}

	go purgeLoop(ctx, logger, sessionSvc)

	var hvClient hypervisor.Client
	if cfg.HypervisorMode == "mock" || cfg.ProxmoxHost == "" {
		logger.Warn("using mock hypervisor client")
		hvClient = hypervisor.NewMockClient()
	} else {
		hvClient = hypervisor.NewProxmoxClient(
			cfg.ProxmoxHost,
			cfg.ProxmoxUser,
			cfg.ProxmoxPassword,
			cfg.ProxmoxNode,
			cfg.ProxmoxVerifySSL,
			logger,
		)
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" && cfg.ContactInbox != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.ContactInbox, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	userHandler := apihttp.NewUserHandler(logger, userSvc, sessionSvc)
	vmHandler := apihttp.NewVMHandler(logger, hvClient)
	miscHandler := apihttp.NewMiscHandler(logger, emailSender)
	router := apihttp.NewRouter(logger, limiter, sessionSvc, userHandler, vmHandler, miscHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           corsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// purgeLoop limpia sesiones expiradas cada hora.
func purgeLoop(ctx context.Context, logger *zap.Logger, sessions *service.SessionService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}

// sweepLoop acota la memoria del rate limiter descartando claves inactivas.
func sweepLoop(ctx context.Context, limiter *service.SlidingWindowLimiter, window time.Duration) {
	interval := 10 * window
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
