package main // Entry point package

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/miraifest/ticket-booking/internal/config"
	"github.com/miraifest/ticket-booking/internal/database"
	"github.com/miraifest/ticket-booking/internal/handler"
	"github.com/miraifest/ticket-booking/internal/logger"
	"github.com/miraifest/ticket-booking/internal/middleware"
	"github.com/miraifest/ticket-booking/internal/queue"
	"github.com/miraifest/ticket-booking/internal/repository"
	"github.com/miraifest/ticket-booking/internal/router"
	"github.com/miraifest/ticket-booking/internal/service"
	"github.com/miraifest/ticket-booking/internal/storage"
	"github.com/miraifest/ticket-booking/internal/validation"
)

func main() {
	seed := flag.Bool("seed", false, "create the admin account and default ticket types, then exit")
	migrate := flag.Bool("migrate", true, "apply the schema on start")
	flag.Parse()

	cfg := config.Load() // Load environment config
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName,
		database.Options{LockWaitSeconds: cfg.DBLockWaitSec})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrate || *seed {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	}
	if *seed {
		admin := database.SeedAdmin{
			Name:     envOr("ADMIN_NAME", "Super Admin"),
			Email:    envOr("ADMIN_EMAIL", "admin@miraifest.local"),
			Phone:    os.Getenv("ADMIN_PHONE"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		}
		if err := database.Seed(ctx, db, admin, cfg.BcryptCost); err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
		log.Info("seed complete", zap.String("admin_email", admin.Email))
		return
	}

	root, err := storage.NewRoot(cfg.UploadDir)
	if err != nil {
		log.Fatal("upload directory unavailable", zap.Error(err))
	}

	// Redis backs the ticket cache and the rate limiter; both degrade to
	// pass-through when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; caching and rate limiting disabled")
	}
	ticketCache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, "tickets")
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	authLimit := middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb)

	var events service.EventPublisher
	if cfg.EventsEnabled && cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer pub.Close()
		events = pub
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	// Repositories
	ticketRepo := repository.NewTicketTypeRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	userRepo := repository.NewUserRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	dashboardRepo := repository.NewDashboardRepo(db)

	// Services
	ledger := service.NewQuotaLedger(ticketRepo, cfg.TxTimeout)
	bookings := service.NewBookingService(service.BookingDeps{
		DB:        db,
		Bookings:  bookingRepo,
		Tickets:   ticketRepo,
		Ledger:    ledger,
		Codes:     service.NewCodeGenerator(cfg.CodeMaxAttempts),
		Artifacts: storage.NewArtifactStore(root),
		Proofs:    storage.NewProofStore(root),
		Events:    events,
		Cache:     ticketCache,
		Log:       log,
		TxTimeout: cfg.TxTimeout,
	})
	tickets := service.NewTicketService(db, ticketRepo, ledger, ticketCache, log, cfg.TxTimeout)
	users := service.NewUserService(userRepo, sessionRepo, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, log)
	dashboard := service.NewDashboardService(dashboardRepo, bookingRepo)

	// HTTP
	media := handler.MediaURLs{BaseURL: cfg.PublicBaseURL}
	authH := handler.NewAuthHandler(users)
	ticketH := handler.NewTicketHandler(tickets)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = validation.New()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS(config.LoadCORSConfig()))
	e.Use(middleware.Logger(log))
	e.Use(echomw.BodyLimit("6M"))

	auth := middleware.JWTAuth(cfg.JWTSecret, users)
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, router.PublicHandlers{
		Auth:    authH,
		Tickets: ticketH,
		Media:   handler.NewMediaHandler(root),
	}, ticketCache.Middleware(), limiter, authLimit)
	router.RegisterUser(e, router.UserHandlers{
		Auth:     authH,
		Bookings: handler.NewBookingHandler(bookings, media),
	}, auth, limiter, echomw.BodyLimit("6M"))
	router.RegisterAdmin(e, router.AdminHandlers{
		Bookings:  handler.NewAdminBookingHandler(bookings, media),
		Tickets:   ticketH,
		Users:     handler.NewAdminUserHandler(users),
		Dashboard: handler.NewDashboardHandler(dashboard, media),
	}, auth, limiter)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.TxTimeout+5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
