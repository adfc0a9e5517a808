// Command api serves the multi-Mandant business data backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	customershandler "github.com/steinberg-edv/mandant-api/domains/customers/be/handler"
	customersrepo "github.com/steinberg-edv/mandant-api/domains/customers/be/repo"
	customersservice "github.com/steinberg-edv/mandant-api/domains/customers/be/service"
	ordershandler "github.com/steinberg-edv/mandant-api/domains/orders/be/handler"
	ordersrepo "github.com/steinberg-edv/mandant-api/domains/orders/be/repo"
	ordersservice "github.com/steinberg-edv/mandant-api/domains/orders/be/service"
	productshandler "github.com/steinberg-edv/mandant-api/domains/products/be/handler"
	productsrepo "github.com/steinberg-edv/mandant-api/domains/products/be/repo"
	productsservice "github.com/steinberg-edv/mandant-api/domains/products/be/service"
	tempordershandler "github.com/steinberg-edv/mandant-api/domains/temporders/be/handler"
	tempordersrepo "github.com/steinberg-edv/mandant-api/domains/temporders/be/repo"
	tempordersservice "github.com/steinberg-edv/mandant-api/domains/temporders/be/service"
	"github.com/steinberg-edv/mandant-api/platform/go/apierr"
	"github.com/steinberg-edv/mandant-api/platform/go/auth"
	"github.com/steinberg-edv/mandant-api/platform/go/identity"
	"github.com/steinberg-edv/mandant-api/platform/go/logging"
	platformmw "github.com/steinberg-edv/mandant-api/platform/go/middleware"
	"github.com/steinberg-edv/mandant-api/platform/go/persistence"
	"github.com/steinberg-edv/mandant-api/platform/go/respond"
	"github.com/steinberg-edv/mandant-api/platform/go/tenant"
	tenantmw "github.com/steinberg-edv/mandant-api/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DBHost           string        `env:"DB_HOST,required"`
	DBPort           int           `env:"DB_PORT"`
	DBUser           string        `env:"DB_USER,required"`
	DBPassword       string        `env:"DB_PASSWORD,required"`
	DBEncrypt        bool          `env:"DB_ENCRYPT"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"15s"`
	DBRequestTimeout time.Duration `env:"DB_REQUEST_TIMEOUT" envDefault:"30s"`
	DBMaxIdleTime    time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`

	CentralDBName       string        `env:"CENTRAL_DB_NAME,required"`
	TenantDirectoryFile string        `env:"TENANT_DIRECTORY_FILE" envDefault:"config/tenants.yaml"`
	IdentityCacheTTL    time.Duration `env:"IDENTITY_CACHE_TTL" envDefault:"10m"`

	// AuthMode selects how the principal email is established:
	// "jwt" verifies a bearer token, "header" trusts a gateway-set header.
	AuthMode          string `env:"AUTH_MODE" envDefault:"jwt"`
	AuthJWTSecret     string `env:"AUTH_JWT_SECRET"`
	AuthTrustedHeader string `env:"AUTH_TRUSTED_HEADER" envDefault:"X-Authenticated-User"`
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		panic("parse environment: " + err.Error())
	}

	logger, err := logging.NewLogger(logging.Config{
		Component: "mandant-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		panic("build logger: " + err.Error())
	}
	defer logger.Sync() // nolint:errcheck

	directory, err := tenant.LoadDirectory(cfg.TenantDirectoryFile)
	if err != nil {
		logger.Fatal("load tenant directory", zap.String("file", cfg.TenantDirectoryFile), zap.Error(err))
	}
	logger.Info("tenant directory loaded", zap.Strings("tenants", directory.Names()))

	pools := persistence.NewManager(persistence.ServerConfig{
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		Encrypt:        cfg.DBEncrypt,
		ConnectTimeout: cfg.DBConnectTimeout,
		RequestTimeout: cfg.DBRequestTimeout,
		MaxIdleTime:    cfg.DBMaxIdleTime,
	}, logger)
	defer pools.Close()

	runner := persistence.NewRunner(logger, cfg.DBRequestTimeout)

	bootCtx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout)
	central, err := pools.Acquire(bootCtx, cfg.CentralDBName)
	cancel()
	if err != nil {
		logger.Fatal("connect central database", zap.String("database", cfg.CentralDBName), zap.Error(err))
	}

	resolver := identity.NewResolver(central, runner, cfg.IdentityCacheTTL)

	bundle := apierr.NewBundle()
	out := respond.NewWriter(bundle, logger)

	authMW, err := authMiddleware(cfg)
	if err != nil {
		logger.Fatal("configure authentication", zap.Error(err))
	}

	customers := customershandler.New(customersservice.New(customersrepo.New(runner)), out)
	products := productshandler.New(productsservice.New(productsrepo.New(runner)), out)
	orders := ordershandler.New(ordersservice.New(ordersrepo.New(runner)), out)
	temporders := tempordershandler.New(tempordersservice.New(tempordersrepo.New(runner)), out)

	root := chi.NewRouter()
	root.Use(chimw.RequestID)
	root.Use(chimw.RealIP)
	root.Use(chimw.Recoverer)
	root.Use(chimw.Timeout(cfg.RequestTimeout))
	root.Use(platformmw.DefaultCORS())
	root.Use(logging.RequestLogger(logger))
	root.Use(respond.Locale(bundle))

	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		out.Data(w, http.StatusOK, map[string]any{"status": "ok"}, nil)
	})
	root.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !runner.CanReach(r.Context(), central) {
			out.Err(w, r, apierr.New(http.StatusServiceUnavailable, apierr.CodeStorage))
			return
		}
		out.Data(w, http.StatusOK, map[string]any{"status": "ready"}, nil)
	})

	root.Route("/api/v1", func(api chi.Router) {
		api.Use(authMW)

		// The tenant list only needs an authenticated caller, not a
		// resolved tenant scope; the frontend uses it to populate the
		// Mandant selector.
		api.Get("/tenants", func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
				out.Err(w, r, apierr.NoPrincipal())
				return
			}
			out.Data(w, http.StatusOK, directory.Names(), nil)
		})

		api.Group(func(scoped chi.Router) {
			scoped.Use(tenantmw.TenantAccess(tenantmw.Deps{
				Directory: directory,
				Pools:     pools,
				Runner:    runner,
				Identity:  resolver,
				Respond:   out,
			}))

			scoped.Mount("/customers", customers.Routes())
			scoped.Mount("/products", products.Routes())
			scoped.Mount("/orders", orders.Routes())
			scoped.Mount("/temp-orders", temporders.Routes())
		})
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown incomplete", zap.Error(err))
		}
	}
}

// authMiddleware picks the principal source from configuration.
func authMiddleware(cfg config) (func(http.Handler) http.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AuthMode)) {
	case "jwt":
		if cfg.AuthJWTSecret == "" {
			return nil, errors.New("AUTH_JWT_SECRET is required when AUTH_MODE=jwt")
		}
		return auth.Middleware(auth.JWTEmail([]byte(cfg.AuthJWTSecret))), nil
	case "header":
		return auth.Middleware(auth.HeaderEmail(cfg.AuthTrustedHeader)), nil
	default:
		return nil, errors.New("unknown AUTH_MODE " + cfg.AuthMode)
	}
}
