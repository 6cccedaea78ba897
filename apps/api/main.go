package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	assignmentshandler "github.com/evanildobarros/isotek-qms/domains/assignments/be/handler"
	assignmentsrepo "github.com/evanildobarros/isotek-qms/domains/assignments/be/repo"
	assignmentsservice "github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
	commissionhandler "github.com/evanildobarros/isotek-qms/domains/commission/be/handler"
	commissionrepo "github.com/evanildobarros/isotek-qms/domains/commission/be/repo"
	commissionservice "github.com/evanildobarros/isotek-qms/domains/commission/be/service"
	earningshandler "github.com/evanildobarros/isotek-qms/domains/earnings/be/handler"
	earningsservice "github.com/evanildobarros/isotek-qms/domains/earnings/be/service"
	scopehandler "github.com/evanildobarros/isotek-qms/domains/scope/be/handler"
	scopeservice "github.com/evanildobarros/isotek-qms/domains/scope/be/service"
	platformauth "github.com/evanildobarros/isotek-qms/platform/go/auth"
	platformlogging "github.com/evanildobarros/isotek-qms/platform/go/logging"
	platformmetrics "github.com/evanildobarros/isotek-qms/platform/go/metrics"
	platformmiddleware "github.com/evanildobarros/isotek-qms/platform/go/middleware"
	"github.com/evanildobarros/isotek-qms/platform/go/persistence"
	scopemiddleware "github.com/evanildobarros/isotek-qms/platform/go/scope/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	AuthHMACSecret  string        `env:"AUTH_HMAC_SECRET,required"`

	// Engagement pricing; gateway figures mirror the payment processor contract.
	EngagementBasePrice float64 `env:"ENGAGEMENT_BASE_PRICE" envDefault:"1200"`
	GatewayPercent      float64 `env:"GATEWAY_PERCENT" envDefault:"0.0399"`
	FixedTransactionFee float64 `env:"FIXED_TRANSACTION_FEE" envDefault:"1.00"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	metrics := platformmetrics.New()

	assignmentRepo, err := assignmentsrepo.NewPostgresRepository(ctx, pool)
	if err != nil {
		logger.Fatal("init assignments repository", zap.Error(err))
	}
	assignmentService := assignmentsservice.New(assignmentRepo, metrics)
	assignmentHTTPHandler := assignmentshandler.New(assignmentService, logger)

	policyStore, err := commissionrepo.NewPostgresPolicyStore(ctx, pool)
	if err != nil {
		logger.Fatal("init commission policy store", zap.Error(err))
	}
	profileStore, err := commissionrepo.NewPostgresProfileStore(ctx, pool)
	if err != nil {
		logger.Fatal("init auditor profile store", zap.Error(err))
	}
	commissionService := commissionservice.New(policyStore, profileStore)
	commissionHTTPHandler := commissionhandler.New(commissionService, logger)

	guard := scopeservice.NewGuard(assignmentService, scopeservice.NewMemorySessionStore(), metrics, logger)
	guard.OnChange(func(e scopeservice.Event) {
		logger.Info("scope changed",
			zap.String("kind", string(e.Kind)),
			zap.String("actor_id", e.ActorID),
			zap.String("tenant_id", e.TenantID.String()),
			zap.String("assignment_id", e.AssignmentID.String()),
		)
	})
	scopeHTTPHandler := scopehandler.New(guard, logger)

	pricing := earningsservice.Pricing{
		BasePrice:           cfg.EngagementBasePrice,
		GatewayPercent:      cfg.GatewayPercent,
		FixedTransactionFee: cfg.FixedTransactionFee,
	}
	earningsService := earningsservice.New(assignmentService, commissionService, pricing, metrics, logger)
	earningsHTTPHandler := earningshandler.New(earningsService, logger)

	// The XP collaborator consumes first-time completions; the registry
	// guarantees this fires exactly once per assignment.
	assignmentService.OnCompleted(func(a assignmentsservice.Assignment) {
		logger.Info("assignment completed, dispatching reward event",
			zap.String("assignment_id", a.ID.String()),
			zap.String("auditor_id", a.AuditorID),
		)
	})

	verify := platformauth.HMACVerifier([]byte(cfg.AuthHMACSecret))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(platformlogging.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(platformmiddleware.DefaultCORS())

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(platformauth.JWT(verify, nil))
		api.Use(platformmiddleware.RequestTrace)

		api.Group(func(user chi.Router) {
			user.Use(platformauth.RequireUser)
			user.Use(scopemiddleware.WithEffectiveTenant(guard))
			user.Route("/scope", scopeHTTPHandler.Routes)
			user.Route("/auditors", earningsHTTPHandler.AuditorRoutes)
		})

		api.Group(func(admin chi.Router) {
			admin.Use(platformauth.RequireAdmin)
			admin.Route("/admin/assignments", assignmentHTTPHandler.Routes)
			admin.Route("/admin/commission-policy", commissionHTTPHandler.PolicyRoutes)
			admin.Route("/admin/auditors", commissionHTTPHandler.ProfileRoutes)
			admin.Route("/admin/earnings", earningsHTTPHandler.AdminRoutes)
		})
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api server listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-shutdownCtx.Done()
	logger.Info("shutting down api server")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(timeoutCtx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}
