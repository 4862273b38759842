package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/config"
	"github.com/bookmyhostel/hostel-api/internal/database"
	"github.com/bookmyhostel/hostel-api/internal/gateway"
	"github.com/bookmyhostel/hostel-api/internal/handler"
	"github.com/bookmyhostel/hostel-api/internal/lock"
	"github.com/bookmyhostel/hostel-api/internal/logger"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
	"github.com/bookmyhostel/hostel-api/internal/queue"
	"github.com/bookmyhostel/hostel-api/internal/repository"
	"github.com/bookmyhostel/hostel-api/internal/router"
	"github.com/bookmyhostel/hostel-api/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.WithError(err).Fatal("mysql")
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrate")
		}
	}

	mongoClient, err := config.NewMongoClient(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	mdb := mongoClient.Database(cfg.MongoDB)

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	gwCfg := config.LoadGatewayConfig()
	gw, err := gateway.New(gwCfg)
	if err != nil {
		log.WithError(err).Fatal("payment gateway")
	}

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	students := repository.NewStudentRepo(db)
	hostels := repository.NewHostelRepo(db)
	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	maintenance := repository.NewMaintenanceRepo(db)
	favorites := repository.NewFavoriteRepo(db)
	notifications := repository.NewNotificationRepo(mdb)
	messages := repository.NewMessageRepo(mdb)
	if err := notifications.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("notification indexes")
	}
	if err := messages.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("message indexes")
	}
	tx := database.NewTxManager(db)

	publisher := queue.NewPublisher(cfg.RabbitURL, log)

	// services
	bookingSvc := service.NewBookingService(service.BookingDeps{
		Tx:       tx,
		Students: students,
		Hostels:  hostels,
		Rooms:    rooms,
		Bookings: bookings,
		Payments: payments,
		Gateway:  gw,
		Locker:   lock.New(rdb, "lock"),
		Events:   publisher,
		Log:      log,
	}, service.BookingConfig{SemesterMonths: cfg.SemesterMonths, GatewayTimeout: gwCfg.Timeout})
	paymentSvc := service.NewPaymentService(service.PaymentDeps{
		Tx:       tx,
		Bookings: bookings,
		Rooms:    rooms,
		Payments: payments,
		Gateway:  gw,
		Events:   publisher,
		Log:      log,
	}, service.PaymentConfig{
		MinAmount:         cfg.MinPayment,
		GatewayTimeout:    gwCfg.Timeout,
		MidtransServerKey: gwCfg.MidtransServerKey,
	})
	studentSvc := service.NewStudentService(students, bookings, payments, maintenance, notifications, log)
	maintenanceSvc := service.NewMaintenanceService(maintenance, bookings, hostels, publisher, log)
	custodianSvc := service.NewCustodianService(hostels, rooms, bookings, payments, maintenance, notifications, log)
	messagingSvc := service.NewMessagingService(users, messages, notifications, log)

	cacheCfg := config.LoadCacheConfig()
	purge := func(ctx context.Context) error { return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix) }

	e := router.New(router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users, tokens, students, tx, log),
		Students:    handler.NewStudentHandler(studentSvc, log),
		Hostels:     handler.NewHostelHandler(hostels, rooms, favorites, log),
		Bookings:    handler.NewBookingHandler(bookingSvc, log),
		Payments:    handler.NewPaymentHandler(paymentSvc, log),
		Maintenance: handler.NewMaintenanceHandler(maintenanceSvc, log),
		Custodian:   handler.NewCustodianHandler(custodianSvc, bookingSvc, purge, log),
		Messaging:   handler.NewMessagingHandler(messagingSvc, log),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Origins:   cfg.FrontendOrigins,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     cacheCfg,
		Redis:     rdb,
		Log:       log,
	})

	// background workers
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := queue.NewConsumer(cfg.RabbitURL, notifications, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("event consumer stopped")
		}
	}()
	reaper, err := service.StartReaper(cfg.ReaperSchedule, bookingSvc, tokens, log)
	if err != nil {
		log.WithError(err).Fatal("booking reaper")
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "gateway": gwCfg.Provider}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	reaper.Stop(shutdownCtx)
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
	}
}
