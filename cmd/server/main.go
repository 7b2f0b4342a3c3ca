package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/pressly/goose/v3"

	"github.com/kkayomi/class-reservation/internal/config"
	"github.com/kkayomi/class-reservation/internal/database"
	"github.com/kkayomi/class-reservation/internal/handler"
	"github.com/kkayomi/class-reservation/internal/middleware"
	"github.com/kkayomi/class-reservation/internal/notification"
	"github.com/kkayomi/class-reservation/internal/queue"
	"github.com/kkayomi/class-reservation/internal/router"
	"github.com/kkayomi/class-reservation/internal/service"
	gsync "github.com/kkayomi/class-reservation/internal/sync"

	"github.com/kkayomi/class-reservation/internal/repository"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("mysql"); err != nil {
		log.Fatalf("goose dialect: %v", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	classes := repository.NewClassRepo(db)
	schedules := repository.NewScheduleRepo(db)
	reservations := repository.NewReservationRepo(db)
	changes := repository.NewChangeRequestRepo(db)
	notifications := repository.NewNotificationRepo(db)

	// External adapters.  Each runs disabled when its credentials are
	// absent so the core booking flow still works in development.
	calendar := gsync.NewGoogleCalendar(cfg.GoogleCalendarID, cfg.GoogleAPIToken)
	sheets := gsync.NewGoogleSheets(cfg.GoogleSheetsID, cfg.GoogleAPIToken)
	dispatcher := notification.NewDispatcher(
		notification.NewKakaoClient(cfg.KakaoAPIKey, cfg.KakaoSenderKey),
		notification.NewSMSClient(cfg.SMSFrom),
		notifications,
		notification.TemplateConfig{
			StoreName:            cfg.StoreName,
			BankInfo:             cfg.BankInfo,
			BaseURL:              cfg.BaseURL,
			DepositDeadlineHours: cfg.DepositDeadlineHours,
		},
	)
	publisher := queue.Publisher{}

	// Services.
	reservationSvc := service.NewReservationService(
		reservations, classes, schedules, dispatcher, calendar, sheets, publisher,
	)
	changeSvc := service.NewChangeRequestService(
		changes, reservations, classes, schedules, dispatcher, calendar, sheets, publisher,
	)
	notificationSvc := service.NewNotificationAdminService(notifications, dispatcher)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(classes, schedules)
	tokenH := handler.NewChangeTokenHandler(changeSvc)
	bookingH := handler.NewBookingHandler(reservationSvc, changeSvc)
	adminResH := handler.NewAdminReservationHandler(reservationSvc)
	adminChangeH := handler.NewAdminChangeRequestHandler(changeSvc)
	adminCatalogH := handler.NewAdminCatalogHandler(classes, schedules)
	adminNotifyH := handler.NewAdminNotificationHandler(notificationSvc)

	// Redis-backed token bucket guards the public and booking endpoints.
	// When Redis is down the limiter fails open.
	rdb := config.NewRedisClient()
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, tokenH, limiter)
	router.RegisterCustomer(e, bookingH, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, adminResH, adminChangeH, adminCatalogH, adminNotifyH, cfg.JWTSecret)

	// The consumer appends reservation lifecycle events to a log file.
	// It maintains its own connection and reconnects on failure.
	go queue.StartEventConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
