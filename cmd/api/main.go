package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/config"
	"github.com/clinicore/clinic-api/internal/email"
	"github.com/clinicore/clinic-api/internal/handler"
	appointmentHandler "github.com/clinicore/clinic-api/internal/handler/appointment"
	authHandler "github.com/clinicore/clinic-api/internal/handler/auth"
	directoryHandler "github.com/clinicore/clinic-api/internal/handler/directory"
	medicalrecordHandler "github.com/clinicore/clinic-api/internal/handler/medicalrecord"
	scheduleHandler "github.com/clinicore/clinic-api/internal/handler/schedule"
	"github.com/clinicore/clinic-api/internal/middleware"
	"github.com/clinicore/clinic-api/internal/repository/postgres"
	"github.com/clinicore/clinic-api/internal/router"
	authService "github.com/clinicore/clinic-api/internal/service/auth"
	bookingService "github.com/clinicore/clinic-api/internal/service/booking"
	directoryService "github.com/clinicore/clinic-api/internal/service/directory"
	medicalService "github.com/clinicore/clinic-api/internal/service/medical"
	notificationService "github.com/clinicore/clinic-api/internal/service/notification"
	scheduleService "github.com/clinicore/clinic-api/internal/service/schedule"
	"github.com/clinicore/clinic-api/pkg/auth"
	"github.com/clinicore/clinic-api/pkg/logger"
	"github.com/clinicore/clinic-api/pkg/messaging/redis"
	"github.com/clinicore/clinic-api/pkg/metrics"
	"github.com/clinicore/clinic-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	zl := appLogger.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	recordRepo := postgres.NewMedicalRecordRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	roomRepo := postgres.NewRoomRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Shared infrastructure
	m := metrics.NewMetrics("clinic")
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	hasher := security.NewPasswordHasher()
	emailSvc := email.NewSMTPService(cfg.SMTP)

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Services
	notifier := notificationService.NewService(broker, emailSvc, appLogger)
	scheduleSvc := scheduleService.NewService(scheduleRepo, doctorRepo, roomRepo, m)
	bookingSvc := bookingService.NewService(appointmentRepo, scheduleRepo, doctorRepo, roomRepo, patientRepo, notifier, m)
	medicalSvc := medicalService.NewService(recordRepo, appointmentRepo)
	directorySvc := directoryService.NewService(doctorRepo, roomRepo, patientRepo)
	authSvc := authService.NewService(userRepo, doctorRepo, patientRepo, hasher, jwtSvc, emailSvc, appLogger)

	// HTTP layer
	handlers := router.Handlers{
		Health:        handler.NewHealthHandler(db),
		Auth:          authHandler.NewHandler(authSvc),
		Schedule:      scheduleHandler.NewHandler(scheduleSvc),
		Appointment:   appointmentHandler.NewHandler(bookingSvc),
		MedicalRecord: medicalrecordHandler.NewHandler(medicalSvc),
		Directory:     directoryHandler.NewHandler(directorySvc),
	}

	r := router.NewRouter(jwtSvc, handlers, *zl, router.Config{
		RateLimit:     100,
		RateBurst:     200,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "clinic_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
