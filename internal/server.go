package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"

	"github.com/2beens/gymplanner/internal/auth"
	"github.com/2beens/gymplanner/internal/config"
	"github.com/2beens/gymplanner/internal/db"
	"github.com/2beens/gymplanner/internal/documents"
	"github.com/2beens/gymplanner/internal/middleware"
	"github.com/2beens/gymplanner/internal/misc"
	"github.com/2beens/gymplanner/internal/telemetry/metrics"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

const sessionsCleanupInterval = 8 * time.Hour

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config        *config.Config
	dbPool        *pgxpool.Pool
	mysqlDB       *sql.DB
	documentsRepo documents.Store

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service
	rateLimiter  middleware.RequestRateLimiter

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	PostgresPassword        string
	MysqlPassword           string
	RedisPassword           string
	HoneycombTracingEnabled bool
	// Migrate creates the documents table when missing
	Migrate bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	s := &Server{
		config:      cfg,
		versionInfo: params.VersionInfo,
	}

	var storeCollector prometheus.Collector
	switch cfg.StorageDriver {
	case config.StorageMysql:
		mysqlDB, err := documents.OpenMysql(documents.MysqlParams{
			Host:     cfg.MysqlHost,
			Port:     cfg.MysqlPort,
			DBName:   cfg.MysqlDBName,
			User:     cfg.MysqlUser,
			Password: params.MysqlPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := mysqlDB.PingContext(ctx); err != nil {
			log.Warnf("failed to ping mysql: %s", err)
		}

		repo := documents.NewMysqlRepo(mysqlDB)
		if params.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate mysql: %w", err)
			}
		}
		s.mysqlDB = mysqlDB
		s.documentsRepo = repo
		storeCollector = collectors.NewDBStatsCollector(mysqlDB, cfg.MysqlDBName)
	default:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		repo := documents.NewPsqlRepo(dbPool)
		if params.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		s.dbPool = dbPool
		s.documentsRepo = repo
		storeCollector = pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		)
	}

	s.promRegistry = metrics.SetupPrometheus(storeCollector)
	s.metricsManager = metrics.NewManager("gymplanner", "cloud", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "gymplanner-cloud", rdb)
	if err != nil {
		return nil, err
	}
	s.otelShutdown = otelShutdown

	s.redisClient = rdb
	s.rateLimiter = redis_rate.NewLimiter(rdb)
	s.authService = auth.NewAuthService(cfg.AdminUsernames, auth.DefaultTTL, rdb)
	s.loginChecker = auth.NewLoginChecker(auth.DefaultTTL, rdb)

	if cfg.DocumentCacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.DocumentCacheTTLSeconds) * time.Second
		s.documentsRepo = documents.NewCachedRepo(s.documentsRepo, rdb, ttl)
		log.Debugf("documents cache enabled, ttl: %s", ttl)
	}

	go s.cleanSessions(ctx, sessionsCleanupInterval)

	return s, nil
}

func (s *Server) cleanSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.authService.ScanAndClean(ctx)
		}
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("cloud-router"))

	miscHandler := misc.NewHandler(s.versionInfo, s.authService, s.loginChecker)
	miscHandler.SetupRoutes(r, s.rateLimiter, s.metricsManager, s.config.LoginRateLimitAllowedPerMin)

	documentsHandler := documents.NewHandler(s.documentsRepo, s.metricsManager, s.config.MaxDocumentBytes)
	documentsHandler.SetupRoutes(r)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins...))
	r.Use(middleware.NewAuthMiddlewareHandler(s.loginChecker).AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("cloud service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the stores go away
	var err error
	if s.httpServer != nil {
		err = multierr.Append(err, s.httpServer.Shutdown(ctx))
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		err = multierr.Append(err, s.metricsHttpServer.Shutdown(ctx))
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		err = multierr.Append(err, s.redisClient.Close())
	}
	if s.mysqlDB != nil {
		err = multierr.Append(err, s.mysqlDB.Close())
	}
	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if err != nil {
		log.Errorf(" >>> graceful shutdown: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
