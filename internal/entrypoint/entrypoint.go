package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mrlokans/accounts/internal/auth"
	"github.com/mrlokans/accounts/internal/config"
	"github.com/mrlokans/accounts/internal/database"
	"github.com/mrlokans/accounts/internal/database/mongostore"
	"github.com/mrlokans/accounts/internal/database/users"
	http_controllers "github.com/mrlokans/accounts/internal/http"
	"github.com/mrlokans/accounts/internal/ratelimit"
	"github.com/mrlokans/accounts/internal/scheduler"
	"github.com/mrlokans/accounts/internal/services"
)

// connectTimeout bounds every startup round-trip to an external store.
const connectTimeout = 10 * time.Second

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		// service connections
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	slog.Info("shutting down server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Release stores only once no request can reach them.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	slog.Info("server exiting")
	return nil
}

// stores holds everything opened against external systems at boot.
type stores struct {
	credentials services.CredentialStore
	sessions    scs.Store
	redis       *redis.Client
	closers     []func(ctx context.Context) error
}

func (s *stores) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			slog.Error("error closing store", "error", err)
		}
	}
}

// openStores connects the credential store selected by DB_TYPE and picks the
// session store that goes with it: Redis when configured, otherwise the same
// relational database, otherwise process memory.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		s.closers = append(s.closers, func(context.Context) error { return client.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = client
		s.sessions = auth.NewRedisSessionStore(client)
	}

	switch cfg.Database.Type {
	case config.DBTypeSQLite, config.DBTypeMySQL:
		db, err := database.NewDatabase(cfg.Database, cfg.Global.IsProduction())
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.closers = append(s.closers, func(context.Context) error { return db.Close() })
		s.credentials = users.NewRepository(db.DB)

		if s.sessions == nil {
			sqlDB, err := db.SQLDB()
			if err != nil {
				s.close(ctx)
				return nil, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
			}
			if db.Type() == config.DBTypeMySQL {
				s.sessions, err = auth.NewMySQLSessionStore(sqlDB)
			} else {
				s.sessions, err = auth.NewSQLiteSessionStore(sqlDB)
			}
			if err != nil {
				s.close(ctx)
				return nil, fmt.Errorf("failed to initialize session store: %w", err)
			}
		}

	case config.DBTypeMongo:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		client, err := mongostore.Connect(connectCtx, cfg.Database.MongoURI)
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		s.closers = append(s.closers, client.Disconnect)

		repo, err := mongostore.NewRepository(connectCtx, client.Database(cfg.Database.MongoDatabase))
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("failed to initialize user collection: %w", err)
		}
		s.credentials = repo

		if s.sessions == nil {
			slog.Warn("REDIS_URL not set; sessions are kept in memory and lost on restart")
			s.sessions = auth.NewMemorySessionStore()
		}

	default:
		s.close(ctx)
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDBType, cfg.Database.Type)
	}

	return s, nil
}

// signingKey returns the key for the CSRF cookie. SESSION_SECRET may be hex
// or raw; when empty a random key is generated, which invalidates outstanding
// CSRF cookies on every restart.
func signingKey(sessionSecret string) ([]byte, error) {
	if sessionSecret != "" {
		if key, err := hex.DecodeString(sessionSecret); err == nil {
			return key, nil
		}
		return []byte(sessionSecret), nil
	}

	key, err := auth.GenerateSecret(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	slog.Warn("generated session secret (set SESSION_SECRET to persist)")
	return key, nil
}

// newLogger returns JSON logs in production and human-readable text elsewhere.
func newLogger(global config.Global) *slog.Logger {
	if global.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// app is the assembled service, ready to serve.
type app struct {
	router   *gin.Engine
	stores   *stores
	sweeper  *scheduler.SweepScheduler
	shutdown context.CancelFunc
}

func (a *app) close(ctx context.Context) {
	a.shutdown()
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	a.stores.close(ctx)
}

// build wires every component from cfg. The caller owns the returned app and
// must close it.
func build(ctx context.Context, cfg *config.Config, version string) (*app, error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	key, err := signingKey(cfg.Auth.SessionSecret)
	if err != nil {
		st.close(ctx)
		return nil, err
	}

	sessions := auth.NewSessionManager(st.sessions, cfg.Auth)

	var signer *auth.TokenSigner
	if cfg.Auth.JWTSecret != "" {
		signer = auth.NewTokenSigner([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenExpiry)
	}
	mechanism, err := auth.NewMechanism(cfg.Auth.Mode, sessions, signer)
	if err != nil {
		st.close(ctx)
		return nil, err
	}

	authService, err := auth.NewService(st.credentials, mechanism, cfg.Auth)
	if err != nil {
		st.close(ctx)
		return nil, err
	}

	appCtx, cancel := context.WithCancel(ctx)
	a := &app{stores: st, shutdown: cancel}

	var limiter ratelimit.Limiter
	if st.redis != nil {
		limiter = ratelimit.NewRedisLimiter(st.redis, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	} else {
		memory := ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		a.sweeper = scheduler.NewSweepScheduler("rate limiter", memory, scheduler.DefaultSweepSchedule)
		if err := a.sweeper.Start(appCtx); err != nil {
			a.close(ctx)
			return nil, err
		}
		limiter = memory
	}

	if cfg.Global.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a.router, err = http_controllers.NewRouter(http_controllers.RouterConfig{
		AuthService:    authService,
		Mechanism:      mechanism,
		SessionManager: sessions,
		CSRFGuard:      auth.NewCSRFGuard(sessions, cfg.CSRF, key, cfg.Auth.SecureCookies),
		RateLimiter:    limiter,
		CORSOrigin:     cfg.CORS.AllowedOrigin,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Store:          st.credentials,
		Production:     cfg.Global.IsProduction(),
		Version:        version,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	return a, nil
}

// Run validates cfg, assembles the service and serves until terminated.
func Run(cfg *config.Config, version string) error {
	slog.SetDefault(newLogger(cfg.Global))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting accounts",
		"version", version,
		"env", cfg.Global.Env,
		"db_type", cfg.Database.Type,
		"auth_mode", cfg.Auth.Mode,
		"redis", cfg.Redis.URL != "",
	)

	a, err := build(context.Background(), cfg, version)
	if err != nil {
		return err
	}

	return Serve(a.router, cfg, a.close)
}
