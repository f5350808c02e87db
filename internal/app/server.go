// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"academy-service/internal/config"
	"academy-service/internal/db"
	authHandler "academy-service/internal/handlers/auth"
	wsHandler "academy-service/internal/handlers/websocket"
	"academy-service/internal/middleware"
	"academy-service/internal/pkg/jwt"
	"academy-service/internal/pkg/provider"
	"academy-service/internal/pkg/session"
	"academy-service/internal/repository/postgres"
	authUsecase "academy-service/internal/service/auth"
	"academy-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg      config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	http     *http.Server
	pool     *pgxpool.Pool
	redis    redis.UniversalClient
	presence *websocket.Presence
}

func NewServer(logger *zap.Logger) *Server {
	cfg := config.Load()
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Init connects the backing services and builds the router
func (s *Server) Init(ctx context.Context) error {
	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: s.cfg.DatabaseURL, MaxConns: s.cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	s.logger.Info("connected to PostgreSQL")

	if s.cfg.DBAutoMigrate {
		if err := db.RunAuthMigration(ctx, pool); err != nil {
			return err
		}
	}

	// ----- Redis -----
	redisClient, err := db.NewRedis(db.RedisConfig{
		ClusterMode: s.cfg.RedisCluster,
		Addresses:   s.cfg.RedisAddrs,
		Password:    s.cfg.RedisPass,
		DB:          s.cfg.RedisDB,
		PoolSize:    10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redis = redisClient
	s.logger.Info("connected to Redis")

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session store & rate limiter -----
	tabStore := session.NewRedisDurableStore(redisClient, s.cfg.SessionMaxIdle+s.cfg.SessionClosedGrace)
	rateLimiter := session.NewRateLimiter(redisClient, s.cfg.LoginMaxAttempts, s.cfg.LoginWindow)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	tables := postgres.DefaultTables()
	credentialRepo := postgres.NewCredentialRepository(dbWrapper, tables)
	roleRepo := postgres.NewRoleRepository(dbWrapper, tables)

	// ----- Identity provider -----
	providers := provider.NewGoTrueFactory(provider.GoTrueConfig{
		URL:     s.cfg.ProviderURL,
		AnonKey: s.cfg.ProviderAnonKey,
		Timeout: s.cfg.ProviderTimeout,
	})

	// ----- Services -----
	passwords := authUsecase.NewPasswordVerifier(s.cfg.AllowLegacyPlaintext)
	if s.cfg.AllowLegacyPlaintext {
		s.logger.Warn("legacy plaintext passwords are accepted")
	}
	authenticator := authUsecase.NewAuthenticator(s.logger,
		authUsecase.NewStudentStrategy(credentialRepo, passwords),
		authUsecase.NewSupervisorStrategy(credentialRepo, passwords),
		authUsecase.NewAdminStrategy(providers, roleRepo, s.logger),
	)
	authService := authUsecase.NewAuthService(authenticator, providers, roleRepo, rateLimiter, s.logger)

	if s.cfg.AllowsAnyOrigin() {
		s.logger.Warn("ALLOWED_ORIGINS contains \"*\": any origin may send credentialed requests and open tab sockets")
	}

	// ----- WebSocket presence -----
	s.presence = websocket.NewPresence(tabStore, s.logger)

	// ----- Handlers & middlewares -----
	handlers := &Handlers{
		AuthHandler: authHandler.NewAuthHandler(authService, s.logger),
		WSHandler:   wsHandler.NewWebSocketHandler(s.presence, s.cfg.AllowedOrigins, s.logger),
		TabMiddleware: middleware.NewTabMiddleware(tabStore, jwtManager, middleware.TabConfig{
			MaxIdle:      s.cfg.SessionMaxIdle,
			ClosedGrace:  s.cfg.SessionClosedGrace,
			CookieSecure: s.cfg.CookieSecure,
		}, s.logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		Health: map[string]Pinger{
			"postgres": dbWrapper,
			"redis":    redisPinger{redisClient},
		},
	}

	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)
	SetupRouter(s.engine, s.logger, handlers)

	s.http = &http.Server{Addr: s.cfg.HTTPAddr, Handler: s.engine}
	return nil
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownTimeout is how long Shutdown may wait for in-flight requests
func (s *Server) ShutdownTimeout() time.Duration {
	return s.cfg.ShutdownTimeout
}

// Shutdown stops accepting requests, closes the presence sockets and
// releases the backing connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.presence != nil {
		s.presence.Shutdown()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return errors.Join(errs...)
}

type redisPinger struct {
	client redis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
