package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/clinicore/clinic-api/internal/handler"
	appointmentHandler "github.com/clinicore/clinic-api/internal/handler/appointment"
	authHandler "github.com/clinicore/clinic-api/internal/handler/auth"
	directoryHandler "github.com/clinicore/clinic-api/internal/handler/directory"
	medicalrecordHandler "github.com/clinicore/clinic-api/internal/handler/medicalrecord"
	scheduleHandler "github.com/clinicore/clinic-api/internal/handler/schedule"
	"github.com/clinicore/clinic-api/internal/middleware"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/pkg/auth"
)

type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *authHandler.Handler
	Schedule      *scheduleHandler.Handler
	Appointment   *appointmentHandler.Handler
	MedicalRecord *medicalrecordHandler.Handler
	Directory     *directoryHandler.Handler
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
}

type Router struct {
	engine   *gin.Engine
	jwtSvc   auth.JWTService
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

func NewRouter(jwtSvc auth.JWTService, handlers Handlers, log zerolog.Logger, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		jwtSvc:   jwtSvc,
		handlers: handlers,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(log),
		r.metricsMiddleware(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	// Public routes
	r.handlers.Auth.RegisterRoutes(api.Group("/auth"))

	// Everything else requires a valid token.
	protected := api.Group("")
	protected.Use(middleware.Auth(r.jwtSvc))

	r.handlers.Auth.RegisterProtectedRoutes(protected.Group("/auth"))

	schedules := protected.Group("/schedules")
	r.handlers.Schedule.RegisterRoutes(schedules)
	r.handlers.Appointment.RegisterScheduleRoutes(schedules)

	appointments := protected.Group("/appointments")
	r.handlers.Appointment.RegisterRoutes(appointments)
	r.handlers.MedicalRecord.RegisterAppointmentRoutes(appointments)

	r.handlers.MedicalRecord.RegisterRoutes(protected.Group("/medical-records"))

	doctors := protected.Group("/doctors")
	doctors.Use(middleware.Cache(middleware.DefaultCacheConfig()))
	r.handlers.Directory.RegisterDoctorRoutes(doctors)
	r.handlers.Schedule.RegisterDoctorRoutes(doctors)

	rooms := protected.Group("/rooms")
	r.handlers.Directory.RegisterRoomRoutes(rooms)

	patients := protected.Group("/patients")
	r.handlers.MedicalRecord.RegisterPatientRoutes(patients)

	walkIn := protected.Group("/patients")
	walkIn.Use(middleware.RequireRoles(model.RoleReceptionist, model.RoleAdmin))
	r.handlers.Directory.RegisterPatientRoutes(walkIn)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.handlers.Health.LivenessCheck)
		health.GET("/ready", r.handlers.Health.ReadinessCheck)
	}
	rg.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
